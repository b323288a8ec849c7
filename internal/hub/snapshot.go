package hub

import (
	"strconv"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/resource"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/tree"
)

// ScanVisitor is called once per resource entry during a scan pass,
// with the entry's path rendered relative to the tree root and
// whether it has not yet been observed by any completed snapshot.
// isNew is computed and passed here, rather than left for the visitor
// to query back via IsNew, because the visitor runs on the command
// loop's own goroutine while Scan's enclosing exec call is in flight —
// a second exec call from inside it would deadlock against itself.
type ScanVisitor func(path string, v tree.View, isNew bool)

// BeginScan clears the RELEVANT flag tree-wide, readying a new
// Scan/Commit/Flush cycle (spec.md §4.4).
func (h *Hub) BeginScan() {
	h.exec(func() { h.tree.BeginScan() })
}

// Scan walks every resource entry, marking it (and its ancestor
// chain) RELEVANT and invoking visit with its rendered path.
func (h *Hub) Scan(visit ScanVisitor) error {
	var outerErr error
	h.exec(func() {
		root := h.tree.Root()
		h.tree.ForEachResource(func(v tree.View) {
			if outerErr != nil {
				return
			}
			buf := make([]byte, 4096)
			n, err := h.tree.PathOf(v, root, buf)
			if err != nil {
				outerErr = err
				return
			}
			h.tree.MarkRelevantChain(v, root)
			visit(string(buf[:n]), v, h.tree.IsNew(v))
		})
	})
	return outerErr
}

// Commit marks every RELEVANT-and-NEW entry CLEAR_NEW. Call after a
// Scan pass has been fully and successfully serialized.
func (h *Hub) Commit() {
	h.exec(func() { h.tree.Commit() })
}

// Flush clears NEW on CLEAR_NEW entries and physically removes
// zombies that are now fully observed.
func (h *Hub) Flush() {
	h.exec(func() { h.tree.Flush() })
}

// IsNew reports whether v has not yet been observed by any completed
// snapshot.
func (h *Hub) IsNew(v tree.View) bool {
	var isNew bool
	h.exec(func() { isNew = h.tree.IsNew(v) })
	return isNew
}

// CurrentValueJSON renders v's attached resource's current value as
// JSON text, for the snapshotter (SPEC_FULL.md §4.4's "serializes ...
// path, type, current value"). ok is false for an entry that has
// never received a push (an input/output with no Last, or an
// observation with an empty buffer). Like ScanVisitor, this must only
// be called from a goroutine already inside the command loop — a scan
// visitor callback qualifies; calling it elsewhere races the resource
// state it reads.
func CurrentValueJSON(v tree.View) (string, bool) {
	switch r := v.Resource().(type) {
	case *resource.IO:
		sm := r.Last()
		if sm == nil {
			return "", false
		}
		defer sm.Release()
		buf := make([]byte, 4096)
		n, err := sm.ConvertToJSON(r.DataType(), buf)
		if err != nil {
			return "", false
		}
		return string(buf[:n]), true
	case *resource.Observation:
		_, value, ok := r.Current()
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(value, 'f', -1, 64), true
	default:
		return "", false
	}
}
