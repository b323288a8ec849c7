package destination

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// breakerState mirrors the teacher's pkg/circuit three-state machine,
// trimmed to what a Destination needs: half-open lets every call
// through and closes after successThreshold consecutive successes.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker protects a Destination's Send from repeatedly hammering a
// downstream system that is already failing, grounded on
// pkg/circuit/breaker.go's Execute three-phase pattern (pre-check,
// unlocked call, post-register).
type breaker struct {
	name             string
	log              *logrus.Logger
	failureThreshold int
	successThreshold int
	openFor          time.Duration

	mu            sync.Mutex
	state         breakerState
	failures      int
	successes     int
	nextRetryTime time.Time
}

func newBreaker(name string, log *logrus.Logger, failureThreshold, successThreshold int, openFor time.Duration) *breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	if openFor <= 0 {
		openFor = 60 * time.Second
	}
	return &breaker{
		name:             name,
		log:              log,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openFor:          openFor,
	}
}

// Execute runs fn under breaker protection. It refuses to call fn at
// all while the breaker is open and the retry window hasn't elapsed.
func (b *breaker) Execute(fn func() error) error {
	if !b.allow() {
		return fmt.Errorf("destination %s: circuit open", b.name)
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.successes = 0
		if b.state != breakerOpen && b.failures >= b.failureThreshold {
			b.log.WithField("destination", b.name).Warn("circuit breaker tripped open")
			b.state = breakerOpen
			b.nextRetryTime = time.Now().Add(b.openFor)
		}
		return err
	}

	b.failures = 0
	if b.state == breakerHalfOpen {
		b.successes++
		if b.successes >= b.successThreshold {
			b.log.WithField("destination", b.name).Info("circuit breaker closed")
			b.state = breakerClosed
			b.successes = 0
		}
	}
	return nil
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if time.Now().After(b.nextRetryTime) {
			b.state = breakerHalfOpen
			b.successes = 0
			return true
		}
		return false
	default: // breakerHalfOpen
		return true
	}
}
