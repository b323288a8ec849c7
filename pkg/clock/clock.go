// Package clock wraps the platform wall clock used to stamp samples
// constructed with the NOW sentinel timestamp.
package clock

import "time"

// Now is the sentinel timestamp value that means "stamp at construction
// time"; it must never be observed on a constructed sample.
const Now float64 = -1

// Clock yields seconds-since-epoch with microsecond resolution, the way
// the platform clock in spec.md §6 is described.
type Clock interface {
	Seconds() float64
}

// System is the default Clock backed by the Go runtime's wall clock.
type System struct{}

// Seconds returns the current wall-clock time as a float64 number of
// seconds since the Unix epoch, with microsecond resolution.
func (System) Seconds() float64 {
	t := time.Now()
	return float64(t.Unix()) + float64(t.Nanosecond()/1000)/1e6
}

// Stamp resolves ts to a concrete timestamp, substituting clk's current
// time when ts is the Now sentinel.
func Stamp(clk Clock, ts float64) float64 {
	if ts == Now {
		return clk.Seconds()
	}
	return ts
}

// SecondsOf converts an arbitrary time.Time (e.g. the time a tailing
// producer read a line) to the same seconds-since-epoch
// representation System.Seconds produces.
func SecondsOf(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond()/1000)/1e6
}
