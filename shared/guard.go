package shared

// Hold identifies one successful lock acquisition for the traits hooks.
//
// The same Hold is passed to OnLocked and to the matching OnUnlocked, so
// hooks can carry per-acquisition state across the guard's lifetime with
// SetData/Data. WatchTraits uses this to hand the execution-time scope
// started in OnLocked to the OnUnlocked that stops it.
type Hold struct {
	cell      uintptr
	typeName  string
	exclusive bool
	data      any
}

// CellID returns the identity of the locked cell, equal to Cell.ID.
func (h *Hold) CellID() uintptr { return h.cell }

// TypeName returns the name of the wrapped type.
func (h *Hold) TypeName() string { return h.typeName }

// Exclusive reports whether the lock is held exclusively (a write guard).
func (h *Hold) Exclusive() bool { return h.exclusive }

// SetData stashes hook-owned state in the hold.
func (h *Hold) SetData(v any) { h.data = v }

// Data returns the state stashed by SetData, or nil.
func (h *Hold) Data() any { return h.data }

// guardBase carries the state common to read and write guards.
type guardBase[T any] struct {
	d      *details
	p      *T
	hold   Hold
	locked bool
}

func newGuardBase[T any](c Cell[T], exclusive bool) guardBase[T] {
	return guardBase[T]{
		d: c.d,
		p: c.p,
		hold: Hold{
			cell:      c.ID(),
			typeName:  c.d.typeName,
			exclusive: exclusive,
		},
		locked: true,
	}
}

// ReadGuard is a scoped token for shared access to a cell's value. It
// exists only while the cell's mutex is held in shared mode. Any number
// of read guards on the same cell may coexist across goroutines, but
// never together with a write guard.
//
// A guard must not be copied, and must be released exactly once with
// Unlock — normally with defer, which also covers release during panic
// unwinding.
//
// The value reached through Get is shared with other readers; mutating it
// through a read guard is a data race.
type ReadGuard[T any] struct {
	guardBase[T]
}

// Get returns the guarded value. It returns nil after Unlock; the pointer
// must not be retained past the guard's lifetime.
func (g *ReadGuard[T]) Get() *T {
	if !g.locked {
		return nil
	}
	return g.p
}

// Unlock runs the traits' OnUnlocked hook and releases the shared lock.
// Calling Unlock again is a no-op.
func (g *ReadGuard[T]) Unlock() {
	if !g.locked {
		return
	}
	g.locked = false
	g.d.traits.OnUnlocked(&g.hold)
	g.d.mu.RUnlock()
	g.p = nil
}

// WriteGuard is a scoped token for exclusive access to a cell's value.
// While it exists no other guard on the same cell exists in any
// goroutine. Constructible only from a Cell, never from a ConstCell.
//
// Like ReadGuard it must not be copied and is released with Unlock,
// normally deferred.
type WriteGuard[T any] struct {
	guardBase[T]
}

// Get returns the guarded value for reading and writing. It returns nil
// after Unlock; the pointer must not be retained past the guard's
// lifetime.
func (g *WriteGuard[T]) Get() *T {
	if !g.locked {
		return nil
	}
	return g.p
}

// Unlock runs the traits' OnUnlocked hook and releases the exclusive
// lock. Calling Unlock again is a no-op.
func (g *WriteGuard[T]) Unlock() {
	if !g.locked {
		return
	}
	g.locked = false
	g.d.traits.OnUnlocked(&g.hold)
	g.d.mu.Unlock()
	g.p = nil
}
