// Package tree implements the hierarchical namespace of typed entries
// (spec.md §4.3): namespace, placeholder, input, output, and
// observation nodes, with per-node state-machine transitions,
// reference-counted lifetimes, and the deletion/"zombie" protocol used
// for snapshotting.
//
// Entries live in a flat arena addressed by stable integer handles
// (spec.md Design Notes §9 prefers this over pointer-chasing with
// cyclic back-references), with an xxhash-keyed child index per
// namespace entry for average O(1) lookup by name.
package tree

import "github.com/cespare/xxhash/v2"

// Type is the tag on an Entry's current role in the tree.
type Type int

const (
	TypeNamespace Type = iota
	TypePlaceholder
	TypeInput
	TypeOutput
	TypeObservation
)

// Flag is one bit of the snapshot flag protocol (spec.md §3,
// "Flag semantics"). NEW and RELEVANT are carried by every entry
// (mirrored onto resource-attached entries per spec.md §4.4).
// CLEAR_NEW is set by Commit on any relevant entry still marked NEW;
// DELETED only applies once an entry has been converted to a namespace
// by the deletion protocol.
type Flag uint8

const (
	FlagNew Flag = 1 << iota
	FlagRelevant
	FlagClearNew
	FlagDeleted
)

// Resource is the minimal contract tree needs from whatever concrete
// Resource object (internal/resource) is attached to a non-namespace
// Entry: enough to drive the state-machine transitions and deletion
// protocol in spec.md §4.3 without the tree package depending on
// resource's concrete types.
type Resource interface {
	// HasAdminSettings reports whether admin state (limits, transform,
	// destination, ...) has been configured, which decides whether
	// delete_io demotes to a placeholder or releases the entry
	// outright.
	HasAdminSettings() bool
	// Close releases the resource's own backing state. Called when an
	// entry is demoted or the resource is otherwise discarded.
	Close()
}

// handle is a stable arena index. Slot 0 is the root, which is never
// freed; invalidHandle (-1) marks the absence of a handle.
type handle int32

const invalidHandle handle = -1

// entry is one node in the arena. Unexported: callers interact with
// entries only through the Tree's handle-based API and the *View
// wrapper returned by lookups.
type entry struct {
	name     string
	parent   handle
	children []handle
	index    map[uint64][]handle // xxhash(name) -> candidate children, live and zombie
	kind     Type
	flags    Flag
	resource Resource
	// alive marks an entry that exists independent of its children: a
	// namespace node on the path, or a resource-attached node. An
	// entry with alive == false and no children is unreachable and is
	// physically freed; see Tree.detachChild and Tree.physicallyFree.
	alive bool
	inUse bool // false for freed/recycled arena slots
}

func hashName(name string) uint64 {
	return xxhash.Sum64String(name)
}

// View is a read-only, copy-free handle to a tree entry, returned by
// Tree lookups. It becomes stale if the underlying entry is freed;
// callers should not retain a View across mutating Tree calls.
type View struct {
	tree *Tree
	h    handle
}

// Name returns the entry's path component.
func (v View) Name() string { return v.tree.arena[v.h].name }

// Type returns the entry's current type tag.
func (v View) Type() Type { return v.tree.arena[v.h].kind }

// IsRoot reports whether this View is the tree's root entry.
func (v View) IsRoot() bool { return v.h == 0 }

// Resource returns the attached Resource, or nil for a namespace.
func (v View) Resource() Resource { return v.tree.arena[v.h].resource }

// handleEq lets callers compare two Views for identity without
// exposing the handle type.
func (v View) handleEq(o View) bool { return v.tree == o.tree && v.h == o.h }

// Equal reports whether v and o refer to the same entry.
func (v View) Equal(o View) bool { return v.handleEq(o) }
