// Package resource implements the concrete Resource objects attached
// to input, output, and observation Entries in internal/tree: the
// admin-configurable state tree.GetResource promotes a placeholder
// into, and tree.CreateInput/CreateOutput/GetObservation attach.
//
// Resource objects satisfy tree.Resource structurally (HasAdminSettings,
// Close) without importing internal/tree, so hub wires them together
// through a ResourceFactory closure rather than a direct dependency.
package resource

import (
	"sync"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/destination"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/sample"
)

// Direction distinguishes an input Entry's producer role from an
// output Entry's consumer role.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

// IO is the Resource attached to an input or output Entry. Grounded
// on the teacher's sink/source configuration objects (a destination
// reference plus an optional JSON subscript transform), generalized
// from "where do log lines go" to "where do samples go and how are
// they reshaped".
type IO struct {
	Attrs

	mu        sync.Mutex
	direction Direction
	destName  string
	dest      destination.Destination
	transform string // JSON subscript stored by Configure; Push does not apply it
	last      *sample.Sample
	haveLast  bool
}

// NewIO creates an IO resource with no admin settings configured yet;
// HasAdminSettings reports false until Configure is called.
func NewIO(direction Direction) *IO {
	return &IO{direction: direction, Attrs: Attrs{dataType: sample.DeclaredJSON}}
}

// SetDirection changes which role io plays (producer vs. consumer).
// Used when a placeholder's existing IO resource is reused for a
// promotion to the opposite direction from the one it last held (e.g.
// a namespace placeholder, never before an input or output, is always
// created input-direction by the tree's factory; CreateOutput flips it
// before Configure attaches the destination).
func (io *IO) SetDirection(d Direction) {
	io.mu.Lock()
	io.direction = d
	io.mu.Unlock()
}

// Configure attaches admin settings: the destination a sample is
// forwarded to (outputs) or the default routing target it was
// discovered under (inputs, for symmetry), and an optional JSON
// subscript transform.
func (io *IO) Configure(destName string, dest destination.Destination, transform string) {
	io.mu.Lock()
	defer io.mu.Unlock()
	io.destName = destName
	io.dest = dest
	io.transform = transform
}

// HasAdminSettings reports whether admin configuration survives a
// delete_io demotion back to a placeholder, per spec.md §4.3.
func (io *IO) HasAdminSettings() bool {
	io.mu.Lock()
	configured := io.destName != "" || io.transform != ""
	io.mu.Unlock()
	if configured {
		return true
	}
	return io.Units() != "" || io.MinPeriod() != 0 || io.HighLimit() != nil ||
		io.LowLimit() != nil || io.ChangeBy() != 0 || io.Mandatory() || io.Source() != ""
}

// Close releases the last retained sample and any configured default
// or override. The destination itself is owned by the registry, not
// the IO resource, and is not stopped here.
func (io *IO) Close() {
	io.mu.Lock()
	if io.last != nil {
		io.last.Release()
		io.last = nil
	}
	io.mu.Unlock()
	io.closeAttrs()
}

// Push stores s as the IO resource's last sample (retaining a
// reference) and, for an output with a configured destination, hands
// it a rendered Record. A numeric push that fails the configured
// high/low limit, change-by, or min-period filter (Attrs) is dropped
// silently — filtering, not an error, per spec.md §4.5. While an
// override sample is configured, every push is dropped and the
// override remains the resource's current value.
func (io *IO) Push(path string, s *sample.Sample) error {
	if ov := io.Override(); ov != nil {
		ov.Release()
		return nil
	}

	io.mu.Lock()
	if s.Kind() == sample.Number {
		var lastTS, lastVal float64
		if io.haveLast {
			lastTS = io.last.GetTimestamp()
			lastVal = io.last.GetNumber()
		}
		if !io.passesFilter(s.GetTimestamp(), s.GetNumber(), io.haveLast, lastTS, lastVal) {
			io.mu.Unlock()
			return nil
		}
	}

	if io.last != nil {
		io.last.Release()
	}
	io.last = s.Retain()
	io.haveLast = true
	direction, dest, dataType := io.direction, io.dest, io.DataType()
	io.mu.Unlock()

	if direction != DirectionOutput || dest == nil {
		return nil
	}

	buf := make([]byte, 4096)
	n, err := s.ConvertToJSON(dataType, buf)
	if err != nil {
		return err
	}
	return dest.Send(destination.Record{
		Path:      path,
		Timestamp: s.GetTimestamp(),
		JSON:      append([]byte{}, buf[:n]...),
	})
}

// Last returns the configured override if one is set; otherwise the
// most recently pushed sample, or the configured default if none has
// arrived yet, or nil if neither is set. The result is retained for the
// caller.
func (io *IO) Last() *sample.Sample {
	if ov := io.Override(); ov != nil {
		return ov
	}
	io.mu.Lock()
	defer io.mu.Unlock()
	if io.last == nil {
		return io.Default()
	}
	return io.last.Retain()
}
