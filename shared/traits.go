package shared

import (
	"time"
)

// DefaultTimeout is the lock-acquisition timeout used by DefaultTraits.
//
// The value follows the library's historic default of 100 ms: long enough
// that a healthy critical section never hits it, short enough that a
// deadlocked test fails in well under a second.
const DefaultTimeout = 100 * time.Millisecond

// Traits is the per-cell policy consulted by the lock-acquisition protocol.
//
// A cell reads Timeout once at the start of each blocking acquisition.
// On success it calls OnLocked, and OnUnlocked when the guard is released;
// the two are always paired, exactly once per successful guard, and run
// while the acquiring goroutine owns the mutex. On a timed-out acquisition
// the protocol calls OnTimeout after the deadlock probe and returns
// whatever error it produces.
//
// Timeout must be callable concurrently and without help from the cell it
// belongs to. OnUnlocked must not panic; it runs during guard release,
// including release triggered by a deferred Unlock during panic unwinding.
type Traits interface {
	// Timeout returns the acquisition timeout. Negative means block
	// indefinitely; zero means fail immediately (but still through the
	// full timed path, including the deadlock probe and error build —
	// use the Try accessors for a cheap non-blocking attempt).
	Timeout() time.Duration

	// OnTimeout turns a timed-out acquisition into an error. tryAgain is
	// the deadlock probe's second-attempt outcome. Implementations may
	// sleep, capture a backtrace, or log before returning; they must
	// return a non-nil error.
	OnTimeout(timeout time.Duration, tryAgain bool) error

	// OnLocked runs after every successful acquisition, while the lock is
	// held. The Hold identifies the cell and stays alive for the guard's
	// lifetime; state stashed in it is visible to OnUnlocked.
	OnLocked(h *Hold)

	// OnUnlocked runs exactly once when the guard releases, before the
	// mutex is given up.
	OnUnlocked(h *Hold)
}

// TraitsProvider lets a wrapped type supply its own traits. New resolves
// traits in this order: an explicit instance given to NewWithTraits, then
// the value's own SharedTraits, then DefaultTraits.
//
// The pointer receiver form is recognized too, so a type can keep its
// traits constructor on *T.
type TraitsProvider interface {
	SharedTraits() Traits
}

// DefaultTraits is the policy used when a type supplies nothing of its
// own: 100 ms timeout, plain LockFailed on timeout, no-op hooks.
//
// It is intended for embedding; override only the methods you need.
type DefaultTraits struct{}

// Timeout returns DefaultTimeout.
func (DefaultTraits) Timeout() time.Duration { return DefaultTimeout }

// OnTimeout returns a *LockFailed carrying the timeout and probe outcome.
func (DefaultTraits) OnTimeout(timeout time.Duration, tryAgain bool) error {
	return &LockFailed{Timeout: timeout, TryAgain: tryAgain}
}

// OnLocked does nothing.
func (DefaultTraits) OnLocked(*Hold) {}

// OnUnlocked does nothing.
func (DefaultTraits) OnUnlocked(*Hold) {}

// traitsFor resolves the traits for a freshly wrapped value: the value's
// own SharedTraits if it implements TraitsProvider (on T or *T), otherwise
// DefaultTraits.
func traitsFor[T any](p *T) Traits {
	if tp, ok := any(p).(TraitsProvider); ok {
		return tp.SharedTraits()
	}
	if tp, ok := any(*p).(TraitsProvider); ok {
		return tp.SharedTraits()
	}
	return DefaultTraits{}
}
