// Package destination implements the output side of the Hub's routing
// table: pluggable sinks an Output resource forwards serialized
// samples to, grounded on the teacher's internal/sinks package (same
// queue+batch+circuit-breaker shape, generalized from log entries to
// Hub samples).
package destination

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Record is the unit handed to a Destination: a resolved path plus the
// sample payload already rendered to JSON by internal/sample.
type Record struct {
	Path      string
	Timestamp float64
	JSON      []byte
}

// Destination is a routing-table sink. Implementations must be safe
// for concurrent Send calls from multiple Output resources.
type Destination interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(r Record) error
}

// Registry resolves configured destination names to live Destination
// instances, mirroring the lookup table internal/app/app.go builds
// from the teacher's sink configuration list.
type Registry struct {
	log          *logrus.Logger
	destinations map[string]Destination
}

// NewRegistry creates an empty Registry.
func NewRegistry(log *logrus.Logger) *Registry {
	return &Registry{log: log, destinations: make(map[string]Destination)}
}

// Register adds a Destination under name, starting it immediately.
func (r *Registry) Register(ctx context.Context, name string, d Destination) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	r.destinations[name] = d
	r.log.WithField("destination", name).Info("destination registered")
	return nil
}

// Get looks up a registered Destination by name.
func (r *Registry) Get(name string) (Destination, bool) {
	d, ok := r.destinations[name]
	return d, ok
}

// StopAll stops every registered destination, collecting the first
// error encountered but attempting to stop all of them regardless.
func (r *Registry) StopAll() error {
	var firstErr error
	for name, d := range r.destinations {
		if err := d.Stop(); err != nil {
			r.log.WithError(err).WithField("destination", name).Error("destination stop failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
