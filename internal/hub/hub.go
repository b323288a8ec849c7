// Package hub wires the tree, sample store, resource facade, and
// destination registry into the single entrypoint external code talks
// to: push samples in, configure routing, query observations, and
// register admin change handlers.
//
// Per spec.md §5 ("Concurrency model"), every tree mutation and
// resource push must appear to happen on a single owning goroutine.
// Rather than a bare mutex, Hub runs a command loop and marshals every
// public call through it — the same shape the teacher uses for each
// sink's queue-fed processLoop, generalized here to the whole hub
// instead of one destination.
package hub

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/destination"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/metrics"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/resource"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/sample"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/tree"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/clock"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/pool"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
)

// ObservationPrefix is the top-level path segment routed to
// observation placeholders by the tree's routing rule (spec.md §4.3).
const ObservationPrefix = "obs"

// Hub is the data-flow engine's single entrypoint.
type Hub struct {
	log *logrus.Logger
	clk clock.Clock

	tree    *tree.Tree
	samples *sample.Store
	dests   *destination.Registry

	cmds chan func()
	wg   sync.WaitGroup

	handlersMu sync.Mutex
	handlers   []ChangeHandler

	// sourcesMu guards sources, the sourcePath -> dependent-paths
	// fan-out table SetSource/forwardRouted maintain (spec.md §6's
	// "set_source/get_source" routing operations).
	sourcesMu sync.Mutex
	sources   map[string][]string
}

// Config bounds the Hub's allocation pools, command queue depth, and
// path component length.
type Config struct {
	NonStringCapacity int
	LargeStringBlocks int
	CommandQueueDepth int
	NameLimit         int
}

// New builds a Hub. Run must be called to start processing commands.
func New(cfg Config, clk clock.Clock, dests *destination.Registry, log *logrus.Logger) *Hub {
	h := &Hub{
		log:     log,
		clk:     clk,
		samples: sample.NewStore(clk, cfg.NonStringCapacity, cfg.LargeStringBlocks),
		dests:   dests,
		cmds:    make(chan func(), cfg.CommandQueueDepth),
		sources: make(map[string][]string),
	}
	h.tree = tree.New(h.makeResource, ObservationPrefix, cfg.NameLimit)
	return h
}

func (h *Hub) makeResource(kind tree.PlaceholderKind) (tree.Resource, error) {
	switch kind {
	case tree.PlaceholderObservation:
		return resource.NewObservation(""), nil
	default:
		return resource.NewIO(resource.DirectionInput), nil
	}
}

// Run drives the command loop until ctx is canceled. Callers should
// run it in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.wg.Add(1)
	defer h.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-h.cmds:
			f()
		}
	}
}

// Wait blocks until Run has returned.
func (h *Hub) Wait() { h.wg.Wait() }

// EntryCounts tallies live entries by type, for periodic metrics
// polling (internal/metrics.EntryCount).
func (h *Hub) EntryCounts() (counts map[tree.Type]int) {
	h.exec(func() { counts = h.tree.EntryCounts() })
	return counts
}

// PoolStats reports point-in-time utilization of the sample store's
// allocation pools, for periodic metrics polling
// (internal/metrics.PoolInUse/PoolDeniedTotal).
func (h *Hub) PoolStats() (nonString, small, medium, large pool.Stats) {
	return h.samples.PoolStats()
}

// exec submits f to the command loop and blocks until it has run,
// giving callers synchronous semantics over the single-goroutine
// tree/sample state.
func (h *Hub) exec(f func()) {
	done := make(chan struct{})
	h.cmds <- func() {
		f()
		close(done)
	}
	<-done
}

// existingOrNewIO reuses v's already-attached *resource.IO, set to
// direction, if one is present — a placeholder promoted by
// tree.GetResource's factory already carries one (see Hub.makeResource),
// and a demoted input/output retains its admin settings across
// redemotion to a placeholder per spec.md §4.3's "delete_io, has admin
// settings" transition and §8 property 4 ("re-creating /a reuses the
// entry"). Constructing a fresh IO here instead would silently discard
// those settings (Units, limits, Default/Override, ...) and leak the
// old resource's retained samples, since nothing would ever Close it.
// A placeholder whose attached resource isn't an IO falls back to a
// fresh IO; this happens for a placeholder under ObservationPrefix,
// which makeResource gives an Observation.
func existingOrNewIO(v tree.View, direction resource.Direction) *resource.IO {
	if io, ok := v.Resource().(*resource.IO); ok {
		io.SetDirection(direction)
		return io
	}
	return resource.NewIO(direction)
}

func (h *Hub) ioResourceAt(path string) (tree.View, *resource.IO, error) {
	v, err := h.tree.GetResource(h.tree.Root(), path)
	if err != nil {
		return tree.View{}, nil, err
	}
	if v.Type() == tree.TypePlaceholder {
		h.tree.CreateInput(v, existingOrNewIO(v, resource.DirectionInput))
	}
	io, ok := v.Resource().(*resource.IO)
	if !ok {
		return tree.View{}, nil, result.New(result.BadParameter, "hub", "ioResourceAt", "entry is not an input or output")
	}
	return v, io, nil
}

func (h *Hub) pushAndNotify(kind, path string, v tree.View, io *resource.IO, sm *sample.Sample) error {
	defer sm.Release()
	if err := io.Push(path, sm); err != nil {
		recordPushError(err)
		return err
	}
	metrics.SamplesPushedTotal.WithLabelValues(kind).Inc()
	h.notifyChange(path, v.Type())
	h.forwardRouted(path, sm)
	return nil
}

// recordPushError labels a failed push's error with its result.Code,
// falling back to "unknown" for an error type outside result's
// taxonomy (which should not happen on the hub's own public surface).
func recordPushError(err error) {
	code := "unknown"
	if re, ok := err.(*result.Error); ok {
		code = string(re.Code)
	}
	metrics.SamplePushErrorsTotal.WithLabelValues(code).Inc()
}

// PushTrigger pushes a new trigger sample at path, creating the input
// entry (and any missing namespace ancestors) on first use.
func (h *Hub) PushTrigger(path string, ts float64) error {
	var outerErr error
	h.exec(func() {
		v, io, err := h.ioResourceAt(path)
		if err != nil {
			recordPushError(err)
			outerErr = err
			return
		}
		sm, err := h.samples.CreateTrigger(ts)
		if err != nil {
			recordPushError(err)
			outerErr = err
			return
		}
		outerErr = h.pushAndNotify("trigger", path, v, io, sm)
	})
	return outerErr
}

// PushBool pushes a new boolean sample at path.
func (h *Hub) PushBool(path string, ts float64, value bool) error {
	var outerErr error
	h.exec(func() {
		v, io, err := h.ioResourceAt(path)
		if err != nil {
			recordPushError(err)
			outerErr = err
			return
		}
		sm, err := h.samples.CreateBool(ts, value)
		if err != nil {
			recordPushError(err)
			outerErr = err
			return
		}
		outerErr = h.pushAndNotify("bool", path, v, io, sm)
	})
	return outerErr
}

// PushNumber pushes a new numeric sample at path.
func (h *Hub) PushNumber(path string, ts float64, value float64) error {
	var outerErr error
	h.exec(func() {
		v, io, err := h.ioResourceAt(path)
		if err != nil {
			recordPushError(err)
			outerErr = err
			return
		}
		sm, err := h.samples.CreateNumber(ts, value)
		if err != nil {
			recordPushError(err)
			outerErr = err
			return
		}
		outerErr = h.pushAndNotify("number", path, v, io, sm)
	})
	return outerErr
}

// PushString pushes a new string sample at path. Hub satisfies
// internal/producer.Pusher through this method.
func (h *Hub) PushString(path string, ts float64, value []byte) error {
	var outerErr error
	h.exec(func() {
		v, io, err := h.ioResourceAt(path)
		if err != nil {
			recordPushError(err)
			outerErr = err
			return
		}
		sm, err := h.samples.CreateString(ts, value)
		if err != nil {
			recordPushError(err)
			outerErr = err
			return
		}
		outerErr = h.pushAndNotify("string", path, v, io, sm)
	})
	return outerErr
}

// PushJSON pushes a new JSON sample at path.
func (h *Hub) PushJSON(path string, ts float64, value []byte) error {
	var outerErr error
	h.exec(func() {
		v, io, err := h.ioResourceAt(path)
		if err != nil {
			recordPushError(err)
			outerErr = err
			return
		}
		sm, err := h.samples.CreateJSON(ts, value)
		if err != nil {
			recordPushError(err)
			outerErr = err
			return
		}
		outerErr = h.pushAndNotify("json", path, v, io, sm)
	})
	return outerErr
}

// ExtractAndPush reads srcPath's last JSON sample, extracts spec from
// it (spec.md §4.1's subscript extraction), and pushes the result at
// dstPath. It is a no-op, not an error, if extraction fails or
// srcPath has no sample yet.
func (h *Hub) ExtractAndPush(srcPath, spec, dstPath string) error {
	var outerErr error
	h.exec(func() {
		srcV, srcIO, err := h.ioResourceAt(srcPath)
		if err != nil {
			outerErr = err
			return
		}
		_ = srcV
		last := srcIO.Last()
		if last == nil {
			return
		}
		defer last.Release()

		extracted, _, ok := h.samples.ExtractJSON(last, spec)
		if !ok {
			return
		}

		dstV, dstIO, err := h.ioResourceAt(dstPath)
		if err != nil {
			extracted.Release()
			outerErr = err
			return
		}
		outerErr = h.pushAndNotify("extracted", dstPath, dstV, dstIO, extracted)
	})
	return outerErr
}

// CreateOutput wires path to a named destination, promoting its entry
// to an output. transform, if non-empty, is stored on the output as a
// JSON subscript and counts as an admin setting; it is not applied to
// pushed samples, and forwarded records carry the full rendered sample.
func (h *Hub) CreateOutput(path, destName, transform string) error {
	var outerErr error
	h.exec(func() {
		v, err := h.tree.GetResource(h.tree.Root(), path)
		if err != nil {
			outerErr = err
			return
		}
		dest, ok := h.dests.Get(destName)
		if !ok {
			outerErr = result.New(result.NotFound, "hub", "CreateOutput", fmt.Sprintf("destination %q not registered", destName))
			return
		}
		io := existingOrNewIO(v, resource.DirectionOutput)
		io.Configure(destName, dest, transform)
		h.tree.CreateOutput(v, io)
		h.notifyChange(path, tree.TypeOutput)
	})
	return outerErr
}

// DeleteIO removes path's input or output binding, per the
// delete_io state transition in spec.md §4.3.
func (h *Hub) DeleteIO(path string) error {
	var outerErr error
	h.exec(func() {
		v, ok, err := h.tree.Find(h.tree.Root(), path)
		if err != nil {
			outerErr = err
			return
		}
		if !ok {
			outerErr = result.New(result.NotFound, "hub", "DeleteIO", "no such entry")
			return
		}
		outerErr = h.tree.DeleteIO(v)
		if outerErr == nil {
			h.notifyChange(path, v.Type())
		}
	})
	return outerErr
}
