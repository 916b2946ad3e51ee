package shared

import "weak"

// Weak is a non-owning observer of a cell. It keeps neither the value nor
// the lock-and-traits half alive; Upgrade succeeds only while BOTH still
// exist, because a usable cell needs both. A caller that wants to inspect
// traits after the value is gone should retain its own reference to the
// traits instead.
type Weak[T any] struct {
	p weak.Pointer[T]
	d weak.Pointer[details]
}

func makeWeak[T any](c Cell[T]) Weak[T] {
	return Weak[T]{
		p: weak.Make(c.p),
		d: weak.Make(c.d),
	}
}

// Upgrade returns a strong cell if the underlying value and details are
// both still alive, and reports whether it succeeded. On failure the
// returned cell is the zero Cell.
func (w Weak[T]) Upgrade() (Cell[T], bool) {
	p := w.p.Value()
	d := w.d.Value()
	if p == nil || d == nil {
		return Cell[T]{}, false
	}
	return Cell[T]{p: p, d: d}, true
}
