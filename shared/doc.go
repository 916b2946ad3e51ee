// Package shared guarantees lock-guarded access to shared mutable state.
//
// The central type is [Cell], a smart pointer wrapping a value together
// with a readers-writer mutex and a per-cell policy ([Traits]). The value
// is reachable only through guards, so a forgotten lock is a compile
// error rather than a latent data race, and a lock that cannot be
// acquired is a structured, diagnosable runtime error rather than a hang.
//
// # In a nutshell
//
//	c := shared.New(Model{})
//
//	w, err := c.Write() // mutually exclusive write access
//	if err != nil {
//		return err // *shared.LockFailed: timeout, deadlock probe outcome
//	}
//	defer w.Unlock()
//	w.Get().Counter++
//
// Shared read access works the same through [Cell.Read], and the
// non-blocking [Cell.TryRead]/[Cell.TryWrite] return nil instead of
// blocking or building an error.
//
// # Diagnosing lock failures
//
// Blocking acquisitions time out (100 ms by default) and run a deadlock
// probe before failing: one more full timed attempt that forces every
// participant of a mutual-wait cycle to observe its own timeout. The
// probe's outcome is reported as [LockFailed].TryAgain.
//
// Policies are per cell and per type. [BacktraceTraits] attaches call
// stacks to lock failures; [WatchTraits] warns when a guard is held
// longer than an expected duration. Types plug in their own policy by
// implementing [TraitsProvider]:
//
//	func (*Model) SharedTraits() shared.Traits {
//		return shared.WatchTraits{Expected: time.Millisecond}
//	}
//
// # What this package does not do
//
// Locks are not reentrant: acquiring a second guard on a cell whose lock
// the same goroutine already holds deadlocks or times out, and the
// guideline is simply to never do it. There is no transactional
// composition across cells, no lock-ordering registry and no fairness
// guarantee beyond the writer preference of [TimedRWMutex].
package shared
