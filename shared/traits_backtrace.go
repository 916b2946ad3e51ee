package shared

import (
	"time"

	"github.com/kolkov/sharedguard/backtrace"
)

// BacktraceTraits attaches a captured call stack to every LockFailed, and
// sleeps one extra timeout before reporting so that a deadlock
// counterpart also fails its own attempt instead of silently winning the
// race to the error path.
//
// Use it wholesale via NewWithTraits, or embed it in a type's own traits:
//
//	type Model struct{ ... }
//
//	func (*Model) SharedTraits() shared.Traits {
//		return shared.BacktraceTraits{LockTimeout: 2 * time.Millisecond}
//	}
type BacktraceTraits struct {
	DefaultTraits

	// LockTimeout overrides the acquisition timeout. Zero means
	// DefaultTimeout; negative disables the timeout entirely.
	LockTimeout time.Duration
}

// Timeout returns LockTimeout, or DefaultTimeout when unset.
func (t BacktraceTraits) Timeout() time.Duration {
	if t.LockTimeout == 0 {
		return DefaultTimeout
	}
	return t.LockTimeout
}

// OnTimeout blocks for one more timeout, then returns a LockFailed with
// the current stack attached. The extra sleep mirrors the deadlock
// probe's reasoning: any goroutine this one is mutually waiting on is
// given time to hit its own timeout too.
func (t BacktraceTraits) OnTimeout(timeout time.Duration, tryAgain bool) error {
	if timeout > 0 {
		time.Sleep(timeout)
	}
	return &LockFailed{
		Timeout:  timeout,
		TryAgain: tryAgain,
		Stack:    backtrace.Capture(1),
	}
}
