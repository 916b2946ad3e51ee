package shared

import (
	"reflect"
	"unsafe"
)

// Cell is a smart pointer that guarantees lock-guarded access to a shared
// value of type T.
//
// All access to the wrapped value flows through guards: Read and TryRead
// hand out shared (read-only) guards, Write and TryWrite hand out
// exclusive guards. The only way around the lock is Unprotected, which is
// deliberately named to read badly at call sites.
//
// Cells are cheap handles: copies alias the same underlying value, mutex
// and traits, and the garbage collector keeps that triple alive for as
// long as any cell, guard or upgraded weak handle refers to it. Two cells
// are Eq if they alias the same value; Less gives a stable arbitrary
// order so cells can key sorted containers.
//
// The zero Cell is empty; use Valid to test for it. Accessors on an empty
// cell panic with a nil dereference, same as any nil pointer.
//
// Recursive acquisition is not supported: a goroutine that already holds
// a guard on a cell and requests another guard on the same cell will
// either deadlock (negative timeout) or receive a LockFailed. Never lock
// the same cell more than once on the same goroutine at the same time.
type Cell[T any] struct {
	p *T
	d *details
}

// details is the non-generic half of a cell: the lock and the policy.
// It is allocated separately from the value so that weak handles can
// observe the lifetime of each half independently.
type details struct {
	mu       TimedRWMutex
	traits   Traits
	typeName string
}

// New wraps value in a cell with traits resolved from the value itself:
// if T (or *T) implements TraitsProvider its SharedTraits are used,
// otherwise DefaultTraits.
//
// Construction never touches the mutex; if building the value fails, that
// failure happens before New is called and no cell exists.
func New[T any](value T) Cell[T] {
	p := &value
	return newCell(p, traitsFor(p))
}

// NewWithTraits wraps value with an explicit traits instance, overriding
// any SharedTraits the type itself provides.
func NewWithTraits[T any](value T, traits Traits) Cell[T] {
	return newCell(&value, traits)
}

func newCell[T any](p *T, traits Traits) Cell[T] {
	return Cell[T]{
		p: p,
		d: &details{
			traits:   traits,
			typeName: reflect.TypeOf(p).Elem().String(),
		},
	}
}

// Valid reports whether the cell wraps a value.
func (c Cell[T]) Valid() bool { return c.p != nil }

// Eq reports whether both cells alias the same value.
func (c Cell[T]) Eq(b Cell[T]) bool { return c.p == b.p }

// Less orders cells by value identity. The order is arbitrary but total
// and stable for the lifetime of the cells.
func (c Cell[T]) Less(b Cell[T]) bool {
	return uintptr(unsafe.Pointer(c.p)) < uintptr(unsafe.Pointer(b.p))
}

// ID returns the cell's identity, shared by all copies of the cell and by
// the Holds passed to traits hooks. Zero for an empty cell.
func (c Cell[T]) ID() uintptr { return uintptr(unsafe.Pointer(c.p)) }

// Read acquires the lock in shared mode and returns a read guard.
//
// Protocol (shared-mode decision tree, spec of the timed path):
//
//  1. One non-blocking attempt.
//  2. timeout < 0: block indefinitely.
//  3. Otherwise a timed attempt with the traits' timeout.
//  4. On timeout, the deadlock probe: one more full timed attempt, so
//     that every participant of a mutual-wait cycle times out rather
//     than just the first. Its outcome becomes LockFailed.TryAgain; if
//     it succeeded the lock is released again before reporting.
//
// The returned guard must be released with Unlock, normally deferred:
//
//	g, err := c.Read()
//	if err != nil {
//		return err
//	}
//	defer g.Unlock()
//	use(*g.Get())
func (c Cell[T]) Read() (*ReadGuard[T], error) {
	d := c.d
	if !d.mu.TryRLock() {
		if err := acquireSlow(d, timedRLock); err != nil {
			return nil, err
		}
	}
	g := &ReadGuard[T]{guardBase: newGuardBase(c, false)}
	d.traits.OnLocked(&g.hold)
	return g, nil
}

// Write acquires the lock exclusively and returns a write guard. The
// protocol matches Read, against the exclusive mutex operations.
func (c Cell[T]) Write() (*WriteGuard[T], error) {
	d := c.d
	if !d.mu.TryLock() {
		if err := acquireSlow(d, timedLock); err != nil {
			return nil, err
		}
	}
	g := &WriteGuard[T]{guardBase: newGuardBase(c, true)}
	d.traits.OnLocked(&g.hold)
	return g, nil
}

// TryRead makes a single non-blocking attempt to acquire the lock in
// shared mode. It returns nil if the lock was not immediately available.
//
// This is the fast path: no timer, no deadlock probe, no error build.
// It fails orders of magnitude faster than Read with a zero timeout.
func (c Cell[T]) TryRead() *ReadGuard[T] {
	d := c.d
	if !d.mu.TryRLock() {
		return nil
	}
	g := &ReadGuard[T]{guardBase: newGuardBase(c, false)}
	d.traits.OnLocked(&g.hold)
	return g
}

// TryWrite makes a single non-blocking attempt to acquire the lock
// exclusively. It returns nil if the lock was not immediately available.
func (c Cell[T]) TryWrite() *WriteGuard[T] {
	d := c.d
	if !d.mu.TryLock() {
		return nil
	}
	g := &WriteGuard[T]{guardBase: newGuardBase(c, true)}
	d.traits.OnLocked(&g.hold)
	return g
}

// Unprotected returns the wrapped value with no locking at all. The
// caller takes over responsibility for synchronization; consider Read or
// Write instead.
func (c Cell[T]) Unprotected() *T { return c.p }

// Traits returns the per-cell traits instance.
func (c Cell[T]) Traits() Traits { return c.d.traits }

// Const returns a read-only projection of the cell. The projection
// aliases the same value, mutex and traits but statically offers no
// write accessors. There is no way back from a ConstCell to a Cell.
func (c Cell[T]) Const() ConstCell[T] { return ConstCell[T]{c} }

// Weak returns a non-owning observer of the cell.
func (c Cell[T]) Weak() Weak[T] { return makeWeak(c) }

// acquireMode selects the mutex operations used by acquireSlow.
type acquireMode int

const (
	timedRLock acquireMode = iota
	timedLock
)

// acquireSlow is the blocking tail of the lock protocol, shared by Read
// and Write. The caller has already failed one non-blocking attempt.
func acquireSlow(d *details, mode acquireMode) error {
	// Read once; the traits may compute it, and the protocol must use one
	// consistent value for both the attempt and the probe.
	timeout := d.traits.Timeout()

	if timeout < 0 {
		if mode == timedLock {
			d.mu.Lock()
		} else {
			d.mu.RLock()
		}
		return nil
	}

	if mode == timedLock {
		if d.mu.LockFor(timeout) {
			return nil
		}
	} else {
		if d.mu.RLockFor(timeout) {
			return nil
		}
	}

	// Deadlock probe. If this goroutine is part of a mutual-wait cycle,
	// staying blocked for one more timeout forces the counterpart to time
	// out too, so the failure is observed symmetrically on both sides.
	var tryAgain bool
	if mode == timedLock {
		tryAgain = d.mu.LockFor(timeout)
		if tryAgain {
			d.mu.Unlock()
		}
	} else {
		tryAgain = d.mu.RLockFor(timeout)
		if tryAgain {
			d.mu.RUnlock()
		}
	}

	return d.traits.OnTimeout(timeout, tryAgain)
}

// ConstCell is a cell that only ever yields read guards. It is obtained
// from Cell.Const; the reverse conversion does not exist.
type ConstCell[T any] struct {
	c Cell[T]
}

// Valid reports whether the projection wraps a value.
func (c ConstCell[T]) Valid() bool { return c.c.Valid() }

// Eq reports whether both projections alias the same value.
func (c ConstCell[T]) Eq(b ConstCell[T]) bool { return c.c.Eq(b.c) }

// Less orders projections by value identity.
func (c ConstCell[T]) Less(b ConstCell[T]) bool { return c.c.Less(b.c) }

// Read acquires the lock in shared mode. See Cell.Read.
func (c ConstCell[T]) Read() (*ReadGuard[T], error) { return c.c.Read() }

// TryRead makes one non-blocking shared attempt. See Cell.TryRead.
func (c ConstCell[T]) TryRead() *ReadGuard[T] { return c.c.TryRead() }

// Traits returns the per-cell traits instance.
func (c ConstCell[T]) Traits() Traits { return c.c.Traits() }

// Unprotected returns the wrapped value with no locking. The value must
// be treated as read-only.
func (c ConstCell[T]) Unprotected() *T { return c.c.p }
