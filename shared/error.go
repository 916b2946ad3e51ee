package shared

import (
	"fmt"
	"time"

	"github.com/kolkov/sharedguard/backtrace"
)

// LockFailed is the only error produced by the cell itself. It reports a
// blocking acquisition that did not get the lock within the configured
// timeout.
//
// TryAgain carries the outcome of the deadlock probe: after the first timed
// attempt fails, the acquiring goroutine blocks for one more full timeout
// before reporting failure. If this goroutine was part of a mutual-wait
// cycle, the extra wait forces every other participant to hit its own
// timeout as well, so all of them observe a LockFailed instead of just one.
// The probe's second attempt may itself succeed (the counterpart gave up);
// the lock is then released again and TryAgain is true, telling the caller
// that an immediate retry would likely succeed.
//
// Stack is nil unless a traits implementation such as BacktraceTraits
// attached one.
type LockFailed struct {
	// Timeout is the per-attempt timeout that was exceeded.
	Timeout time.Duration

	// TryAgain reports whether the deadlock probe's second attempt
	// succeeded.
	TryAgain bool

	// Stack is an optional backtrace captured at the point of failure.
	Stack *backtrace.Backtrace
}

func (e *LockFailed) Error() string {
	msg := fmt.Sprintf("shared: lock not acquired within %v (try_again=%v)", e.Timeout, e.TryAgain)
	if e.Stack != nil {
		msg += "\n" + e.Stack.String()
	}
	return msg
}
