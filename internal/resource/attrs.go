package resource

import (
	"sync"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/sample"
)

// Attrs holds the admin-configurable scalar attributes spec.md §4.5
// lists as forwarded to "whatever Resource is attached": units, data
// type, min period, high/low limit, change-by, mandatory, default,
// override, and routing source. Both IO and Observation embed Attrs
// rather than duplicating the bookkeeping, since the facade forwards
// these identically regardless of which concrete Resource they reach.
type Attrs struct {
	mu sync.Mutex

	units     string
	dataType  sample.DeclaredType
	minPeriod float64
	highLimit *float64
	lowLimit  *float64
	changeBy  float64
	mandatory bool
	def       *sample.Sample
	override  *sample.Sample
	source    string
}

// Units returns the configured engineering units string (e.g. "degC").
func (a *Attrs) Units() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.units
}

// SetUnits configures the engineering units string.
func (a *Attrs) SetUnits(u string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.units = u
}

// DataType returns the declared semantic type used when rendering
// pushed Bytes-kind samples (string vs JSON), per spec.md §4.1.
func (a *Attrs) DataType() sample.DeclaredType {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dataType
}

// SetDataType configures the declared semantic type.
func (a *Attrs) SetDataType(t sample.DeclaredType) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dataType = t
}

// MinPeriod returns the minimum number of seconds required between
// accepted pushes; zero means unfiltered.
func (a *Attrs) MinPeriod() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.minPeriod
}

// SetMinPeriod configures the minimum push period.
func (a *Attrs) SetMinPeriod(seconds float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.minPeriod = seconds
}

// HighLimit returns the configured upper bound, or nil if unset.
func (a *Attrs) HighLimit() *float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.highLimit
}

// SetHighLimit configures the upper bound a numeric push must not
// exceed; pass nil to clear it.
func (a *Attrs) SetHighLimit(v *float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.highLimit = v
}

// LowLimit returns the configured lower bound, or nil if unset.
func (a *Attrs) LowLimit() *float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lowLimit
}

// SetLowLimit configures the lower bound a numeric push must not
// undercut; pass nil to clear it.
func (a *Attrs) SetLowLimit(v *float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lowLimit = v
}

// ChangeBy returns the minimum absolute delta from the last accepted
// numeric value required to accept a new one; zero means unfiltered.
func (a *Attrs) ChangeBy() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.changeBy
}

// SetChangeBy configures the change-by deadband.
func (a *Attrs) SetChangeBy(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.changeBy = v
}

// Mandatory reports whether this resource must carry a value (pushed
// or default) before it is considered part of a complete snapshot.
func (a *Attrs) Mandatory() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mandatory
}

// SetMandatory configures the mandatory flag.
func (a *Attrs) SetMandatory(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mandatory = v
}

// Default returns the configured default sample, retained for the
// caller, or nil if none is set.
func (a *Attrs) Default() *sample.Sample {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.def == nil {
		return nil
	}
	return a.def.Retain()
}

// SetDefault configures the default sample returned by IO.Last before
// any sample has been pushed (Observation.Current does not consult it). SetDefault takes ownership of one
// reference to v; pass nil to clear a previously configured default.
func (a *Attrs) SetDefault(v *sample.Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.def != nil {
		a.def.Release()
	}
	a.def = v
}

// Override returns the configured override sample, retained for the
// caller, or nil if none is set. While an override is set, Push drops
// every incoming sample without updating the resource's current value.
func (a *Attrs) Override() *sample.Sample {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.override == nil {
		return nil
	}
	return a.override.Retain()
}

// SetOverride configures (or, with v == nil, clears) the override
// sample. SetOverride takes ownership of one reference to v.
func (a *Attrs) SetOverride(v *sample.Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.override != nil {
		a.override.Release()
	}
	a.override = v
}

// Source returns the path this resource is configured to pull routed
// samples from, or "" if it has none.
func (a *Attrs) Source() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.source
}

// SetSource configures the routing source path.
func (a *Attrs) SetSource(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = path
}

// closeAttrs releases the default and override samples, if any. Called
// from the owning resource's Close.
func (a *Attrs) closeAttrs() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.def != nil {
		a.def.Release()
		a.def = nil
	}
	if a.override != nil {
		a.override.Release()
		a.override = nil
	}
}

// passesFilter reports whether a numeric push of value at ts clears
// the configured high/low limit, change-by deadband, and min-period
// gates against lastTS/lastValue. Non-numeric samples (lastValue ==
// NaN-unknown) are never filtered here; the caller only applies this
// to Number-kind samples, per spec.md §4.5's filter attributes being
// meaningful for numeric data.
func (a *Attrs) passesFilter(ts, value float64, haveLast bool, lastTS, lastValue float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.highLimit != nil && value > *a.highLimit {
		return false
	}
	if a.lowLimit != nil && value < *a.lowLimit {
		return false
	}
	if !haveLast {
		return true
	}
	if a.minPeriod > 0 && ts-lastTS < a.minPeriod {
		return false
	}
	if a.changeBy > 0 {
		d := value - lastValue
		if d < 0 {
			d = -d
		}
		if d < a.changeBy {
			return false
		}
	}
	return true
}
