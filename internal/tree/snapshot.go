package tree

// This file implements the Scan/Commit/Flush snapshot protocol from
// spec.md §4.4. A snapshotter (internal/snapshot) drives these in
// sequence around a serialization pass:
//
//   1. BeginScan clears RELEVANT tree-wide, then the driver walks the
//      entries it intends to serialize and calls MarkRelevant on each
//      (and its ancestor chain, via MarkRelevantChain).
//   2. Commit runs once serialization has produced its output: every
//      RELEVANT entry that is still NEW is marked CLEAR_NEW. NEW
//      itself is left untouched here, so a snapshot attempt that is
//      abandoned before Flush leaves the tree exactly as it found it.
//   3. Flush finalizes: CLEAR_NEW entries have NEW and CLEAR_NEW
//      cleared, and any DELETED zombie whose NEW is now also clear is
//      physically removed (it has been observed as deleted by this
//      snapshot and no longer needs to shadow a resurrection).

// BeginScan clears the RELEVANT flag on every entry, live or zombie,
// readying the tree for a new Scan pass.
func (t *Tree) BeginScan() {
	for h := range t.arena {
		if t.arena[h].inUse {
			t.arena[h].flags &^= FlagRelevant
		}
	}
}

// MarkRelevant sets the RELEVANT flag on v's entry.
func (t *Tree) MarkRelevant(v View) {
	t.arena[v.h].flags |= FlagRelevant
}

// MarkRelevantChain sets RELEVANT on v and every namespace ancestor up
// to (not including) base, so the serialized snapshot can reconstruct
// v's full path.
func (t *Tree) MarkRelevantChain(v View, base View) {
	cur := v.h
	for {
		t.arena[cur].flags |= FlagRelevant
		if cur == base.h || cur == 0 {
			return
		}
		cur = t.arena[cur].parent
	}
}

// IsRelevant reports whether v was touched by the current Scan.
func (t *Tree) IsRelevant(v View) bool {
	return t.arena[v.h].flags&FlagRelevant != 0
}

// IsNew reports whether v has not yet been observed by any completed
// snapshot.
func (t *Tree) IsNew(v View) bool {
	return t.arena[v.h].flags&FlagNew != 0
}

// Commit marks every RELEVANT-and-NEW entry CLEAR_NEW, queuing it to
// have NEW cleared at Flush. Call once serialization has succeeded.
func (t *Tree) Commit() {
	for h := range t.arena {
		e := &t.arena[h]
		if !e.inUse {
			continue
		}
		if e.flags&FlagRelevant != 0 && e.flags&FlagNew != 0 {
			e.flags |= FlagClearNew
		}
	}
}

// Flush clears NEW on every CLEAR_NEW entry, then physically removes
// every DELETED zombie whose NEW is clear. A zombie only exists
// because deleteResourceEntry found NEW already clear at delete time
// (spec.md §4.4) — it was observed by some prior snapshot, so it needs
// no further Commit pass of its own before this Flush may reap it.
func (t *Tree) Flush() {
	var toFree []handle
	for h := range t.arena {
		e := &t.arena[h]
		if !e.inUse {
			continue
		}
		if e.flags&FlagClearNew != 0 {
			e.flags &^= (FlagNew | FlagClearNew)
		}
		if e.flags&FlagDeleted != 0 && e.flags&FlagNew == 0 {
			toFree = append(toFree, handle(h))
		}
	}
	for _, h := range toFree {
		e := &t.arena[h]
		if e.inUse && len(e.children) == 0 {
			e.alive = false
			t.physicallyFree(h)
		}
	}
}
