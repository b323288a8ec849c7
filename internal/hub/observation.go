package hub

import (
	"fmt"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/resource"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/tree"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
)

func (h *Hub) observationAt(path string) (tree.View, *resource.Observation, error) {
	v, err := h.tree.GetResource(h.tree.Root(), path)
	if err != nil {
		return tree.View{}, nil, err
	}
	obsV, err := h.tree.GetObservation(v)
	if err != nil {
		return tree.View{}, nil, err
	}
	obs, ok := obsV.Resource().(*resource.Observation)
	if !ok {
		return tree.View{}, nil, result.New(result.BadParameter, "hub", "observationAt", "entry is not an observation")
	}
	return obsV, obs, nil
}

// ConfigureObservation sets buffer sizing and, optionally, an archive
// destination for an observation at path, creating it if absent.
func (h *Hub) ConfigureObservation(path string, maxHot, hardCap int, archiveDestName string) error {
	var outerErr error
	h.exec(func() {
		_, obs, err := h.observationAt(path)
		if err != nil {
			outerErr = err
			return
		}
		if archiveDestName == "" {
			obs.Configure(maxHot, hardCap, nil)
			return
		}
		d, ok := h.dests.Get(archiveDestName)
		if !ok {
			outerErr = result.New(result.NotFound, "hub", "ConfigureObservation", fmt.Sprintf("destination %q not registered", archiveDestName))
			return
		}
		obs.Configure(maxHot, hardCap, d)
	})
	return outerErr
}

// Observe records a numeric sample into the observation at path.
func (h *Hub) Observe(path string, ts, value float64) error {
	var outerErr error
	h.exec(func() {
		v, obs, err := h.observationAt(path)
		if err != nil {
			outerErr = err
			return
		}
		if outerErr = obs.Push(ts, value); outerErr == nil {
			h.notifyChange(path, v.Type())
		}
	})
	return outerErr
}

// DeleteObservation removes path's observation binding.
func (h *Hub) DeleteObservation(path string) error {
	var outerErr error
	h.exec(func() {
		v, ok, err := h.tree.Find(h.tree.Root(), path)
		if err != nil {
			outerErr = err
			return
		}
		if !ok {
			outerErr = result.New(result.NotFound, "hub", "DeleteObservation", "no such entry")
			return
		}
		outerErr = h.tree.DeleteObservation(v)
		if outerErr == nil {
			h.notifyChange(path, v.Type())
		}
	})
	return outerErr
}

// ObservationStats is the min/max/mean/stddev snapshot of an
// observation's current buffer.
type ObservationStats struct {
	Min, Max, Mean, StdDev float64
}

// QueryObservation returns aggregate statistics over path's buffered
// history. found is false if the observation has no samples yet.
func (h *Hub) QueryObservation(path string) (stats ObservationStats, found bool, err error) {
	h.exec(func() {
		_, obs, e := h.observationAt(path)
		if e != nil {
			err = e
			return
		}
		var ok bool
		if stats.Min, ok, err = obs.Min(); err != nil || !ok {
			return
		}
		if stats.Max, _, err = obs.Max(); err != nil {
			return
		}
		if stats.Mean, _, err = obs.Mean(); err != nil {
			return
		}
		if stats.StdDev, _, err = obs.StdDev(); err != nil {
			return
		}
		found = true
	})
	return stats, found, err
}

// DumpObservation renders path's entire buffered history as JSON.
func (h *Hub) DumpObservation(path string) (data []byte, err error) {
	h.exec(func() {
		_, obs, e := h.observationAt(path)
		if e != nil {
			err = e
			return
		}
		data, err = obs.DumpJSON()
	})
	return data, err
}
