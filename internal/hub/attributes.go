package hub

import (
	"github.com/Nico26-sw/legato-Service-DataHub/internal/sample"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/tree"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
)

// attributed is the subset of the resource facade's admin attributes
// (spec.md §4.5/§6: units, data type, min period, high/low limit,
// change-by, mandatory, default, override, source) that both IO and
// Observation resources expose by embedding resource.Attrs. Hub's
// Get*/Set* methods forward to this interface rather than to either
// concrete resource type, matching §4.5's "each forwarding is a strict
// precondition check followed by delegation".
type attributed interface {
	Units() string
	SetUnits(string)
	DataType() sample.DeclaredType
	SetDataType(sample.DeclaredType)
	MinPeriod() float64
	SetMinPeriod(float64)
	HighLimit() *float64
	SetHighLimit(*float64)
	LowLimit() *float64
	SetLowLimit(*float64)
	ChangeBy() float64
	SetChangeBy(float64)
	Mandatory() bool
	SetMandatory(bool)
	Default() *sample.Sample
	SetDefault(*sample.Sample)
	Override() *sample.Sample
	SetOverride(*sample.Sample)
	Source() string
	SetSource(string)
}

// resourceAt resolves path to its attached Resource. It does not
// promote a bare namespace — spec.md §4.5's "push on a pure namespace
// releases the sample and returns BadParameter" precondition applies
// identically to every other attribute operation.
func (h *Hub) resourceAt(path string) (tree.View, attributed, error) {
	v, ok, err := h.tree.Find(h.tree.Root(), path)
	if err != nil {
		return tree.View{}, nil, err
	}
	if !ok {
		return tree.View{}, nil, result.New(result.NotFound, "hub", "resourceAt", "no such entry")
	}
	res, ok := v.Resource().(attributed)
	if !ok {
		h.log.WithField("path", path).Warn("hub: attribute op applied to an entry with no admin attributes")
		return tree.View{}, nil, result.New(result.BadParameter, "hub", "resourceAt", "entry has no admin attributes")
	}
	return v, res, nil
}

// GetUnits returns path's configured units string, or "" if path does
// not resolve to an attributed resource — the sentinel spec.md §4.5
// prescribes for a misapplied getter.
func (h *Hub) GetUnits(path string) (units string) {
	h.exec(func() {
		if _, res, err := h.resourceAt(path); err == nil {
			units = res.Units()
		}
	})
	return units
}

// SetUnits configures path's units string (e.g. "degC").
func (h *Hub) SetUnits(path, units string) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		res.SetUnits(units)
	})
	return outerErr
}

// GetDataType returns path's declared data type (trigger/bool/number
// default to DeclaredTrigger/Bool/Number regardless of what's set
// here; the setting only disambiguates a Bytes-kind sample).
func (h *Hub) GetDataType(path string) (dt sample.DeclaredType) {
	h.exec(func() {
		if _, res, err := h.resourceAt(path); err == nil {
			dt = res.DataType()
		}
	})
	return dt
}

// SetDataType configures path's declared data type.
func (h *Hub) SetDataType(path string, dt sample.DeclaredType) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		res.SetDataType(dt)
	})
	return outerErr
}

// GetMinPeriod returns path's configured min period in seconds, or 0
// if path does not resolve to an attributed resource.
func (h *Hub) GetMinPeriod(path string) (seconds float64) {
	h.exec(func() {
		if _, res, err := h.resourceAt(path); err == nil {
			seconds = res.MinPeriod()
		}
	})
	return seconds
}

// SetMinPeriod configures the minimum number of seconds required
// between accepted pushes at path.
func (h *Hub) SetMinPeriod(path string, seconds float64) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		res.SetMinPeriod(seconds)
	})
	return outerErr
}

// SetHighLimit configures path's upper bound filter; pass nil to clear it.
func (h *Hub) SetHighLimit(path string, v *float64) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		res.SetHighLimit(v)
	})
	return outerErr
}

// SetLowLimit configures path's lower bound filter; pass nil to clear it.
func (h *Hub) SetLowLimit(path string, v *float64) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		res.SetLowLimit(v)
	})
	return outerErr
}

// SetChangeBy configures path's change-by deadband: a numeric push
// whose value does not differ from the last accepted value by at
// least this much is dropped.
func (h *Hub) SetChangeBy(path string, v float64) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		res.SetChangeBy(v)
	})
	return outerErr
}

// SetMandatory configures whether path must carry a value (pushed or
// default) before it counts as part of a complete snapshot.
func (h *Hub) SetMandatory(path string, v bool) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		res.SetMandatory(v)
	})
	return outerErr
}

// GetMandatory returns path's mandatory flag, or false if path does
// not resolve to an attributed resource.
func (h *Hub) GetMandatory(path string) (mandatory bool) {
	h.exec(func() {
		if _, res, err := h.resourceAt(path); err == nil {
			mandatory = res.Mandatory()
		}
	})
	return mandatory
}

// SetDefaultNumber configures path's default numeric sample, returned
// as its current value before any sample has been pushed.
func (h *Hub) SetDefaultNumber(path string, ts, value float64) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		sm, serr := h.samples.CreateNumber(ts, value)
		if serr != nil {
			outerErr = serr
			return
		}
		res.SetDefault(sm)
	})
	return outerErr
}

// SetOverrideNumber configures path's override numeric sample: while
// set, pushes at path are dropped and the override is what Last
// returns. Call ClearOverride to resume accepting pushes.
func (h *Hub) SetOverrideNumber(path string, ts, value float64) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		sm, serr := h.samples.CreateNumber(ts, value)
		if serr != nil {
			outerErr = serr
			return
		}
		res.SetOverride(sm)
	})
	return outerErr
}

// GetDefault returns path's configured default value, timestamp, and
// true, or (0, 0, false) if none is set or path is not attributed.
// Only meaningful for a numeric default: the value is read with
// GetNumber whatever the default sample's kind.
func (h *Hub) GetDefault(path string) (ts, value float64, ok bool) {
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			return
		}
		sm := res.Default()
		if sm == nil {
			return
		}
		defer sm.Release()
		ts, value, ok = sm.GetTimestamp(), sm.GetNumber(), true
	})
	return ts, value, ok
}

// GetOverride returns path's configured override value, timestamp,
// and true, or (0, 0, false) if none is set or path is not attributed.
func (h *Hub) GetOverride(path string) (ts, value float64, ok bool) {
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			return
		}
		sm := res.Override()
		if sm == nil {
			return
		}
		defer sm.Release()
		ts, value, ok = sm.GetTimestamp(), sm.GetNumber(), true
	})
	return ts, value, ok
}

// ClearOverride removes path's override sample, if any, resuming
// normal push acceptance.
func (h *Hub) ClearOverride(path string) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		res.SetOverride(nil)
	})
	return outerErr
}

// SetSource wires path to pull routed samples from sourcePath: every
// subsequent successful push accepted at sourcePath is re-pushed at
// path through path's own IO filters, per spec.md §6's
// "set_source/get_source" routing operations. path must already exist
// as an I/O or observation resource; sourcePath is resolved as an I/O
// resource, and is created as an input if it does not exist yet.
func (h *Hub) SetSource(path, sourcePath string) error {
	var outerErr error
	h.exec(func() {
		_, res, err := h.resourceAt(path)
		if err != nil {
			outerErr = err
			return
		}
		if _, _, err := h.ioResourceAt(sourcePath); err != nil {
			outerErr = err
			return
		}
		res.SetSource(sourcePath)
		h.sourcesMu.Lock()
		h.sources[sourcePath] = append(h.sources[sourcePath], path)
		h.sourcesMu.Unlock()
	})
	return outerErr
}

// GetSource returns path's configured routing source, or "" if none.
func (h *Hub) GetSource(path string) (source string) {
	h.exec(func() {
		if _, res, err := h.resourceAt(path); err == nil {
			source = res.Source()
		}
	})
	return source
}

// forwardRouted re-pushes sm at every destination path wired to
// sourcePath via SetSource. Each destination receives its own
// reference and runs through its own IO.Push, so its filters (min
// period, change-by, limits) apply independently rather than being
// bypassed by the routed delivery. Called with the command loop
// already held.
func (h *Hub) forwardRouted(sourcePath string, sm *sample.Sample) {
	h.sourcesMu.Lock()
	dests := append([]string(nil), h.sources[sourcePath]...)
	h.sourcesMu.Unlock()

	for _, dst := range dests {
		if dst == sourcePath {
			continue // refuse a direct self-loop; no deeper cycle detection
		}
		dv, io, err := h.ioResourceAt(dst)
		if err != nil {
			continue
		}
		r := sm.Retain()
		err = io.Push(dst, r)
		r.Release()
		if err != nil {
			h.log.WithError(err).WithField("path", dst).Warn("hub: routed forward push failed")
			continue
		}
		h.notifyChange(dst, dv.Type())
	}
}
