package shared

import (
	"time"

	"github.com/kolkov/sharedguard/verify"
)

// HeldTooLongFunc reports a guard that was held longer than expected.
// cellID and typeName identify which cell's guard overran; the same cell
// identity is returned by Cell.ID.
type HeldTooLongFunc func(expected, observed time.Duration, cellID uintptr, typeName string)

// WatchTraits emits a held-too-long diagnostic when a guard on the cell
// lives longer than Expected. OnLocked starts an execution-time scope,
// OnUnlocked stops it; an overrun invokes Report exactly once, after the
// guard is released.
//
// Holding a lock longer than other goroutines' acquisition timeout makes
// their acquisitions fail spuriously; watching held time is how those
// failures get traced back to the holder rather than the victim.
type WatchTraits struct {
	DefaultTraits

	// LockTimeout overrides the acquisition timeout. Zero means
	// DefaultTimeout; negative disables the timeout.
	LockTimeout time.Duration

	// Expected is the held-time threshold. Zero or negative disables
	// watching, leaving only the plain locking behavior.
	Expected time.Duration

	// Report receives overruns. Nil logs through the verify package's
	// default reporter (without cell identity).
	Report HeldTooLongFunc
}

// Timeout returns LockTimeout, or DefaultTimeout when unset.
func (t WatchTraits) Timeout() time.Duration {
	if t.LockTimeout == 0 {
		return DefaultTimeout
	}
	return t.LockTimeout
}

// OnLocked starts the execution-time scope and stashes it in the hold.
func (t WatchTraits) OnLocked(h *Hold) {
	if t.Expected <= 0 {
		return
	}
	var r verify.Reporter
	if t.Report != nil {
		cell, typ := h.CellID(), h.TypeName()
		report := t.Report
		r = func(expected, observed time.Duration) {
			report(expected, observed, cell, typ)
		}
	}
	h.SetData(verify.Start(t.Expected, r))
}

// OnUnlocked stops the scope started by OnLocked, reporting if the guard
// overran.
func (t WatchTraits) OnUnlocked(h *Hold) {
	if s, ok := h.Data().(*verify.Scope); ok && s != nil {
		s.Stop()
	}
}
