// Package crash prettifies fatal signals.
//
// Install registers a handler for the catchable fatal signals and, when
// one arrives, logs the signal's name, a description and a backtrace of
// the receiving goroutine before restoring the default disposition and
// re-raising. The point is a readable last line in the log instead of a
// bare exit status.
//
// Faults inside Go code (nil dereference, out-of-bounds) become panics
// and never reach this package; Install matters for signals sent from
// outside the process and faults raised in cgo or syscall territory.
package crash

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kolkov/sharedguard/backtrace"
)

// catchable are the fatal signals a user-space handler may observe.
var catchable = []os.Signal{
	syscall.SIGABRT,
	syscall.SIGBUS,
	syscall.SIGFPE,
	syscall.SIGILL,
	syscall.SIGQUIT,
	syscall.SIGTERM,
}

// Install starts the prettifier. It returns a stop function that
// unregisters the handler; calling stop is optional.
func Install() (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, catchable...)

	go func() {
		sig, ok := <-ch
		if !ok {
			return
		}
		s, isSys := sig.(syscall.Signal)
		if !isSys {
			return
		}
		slog.Error("crash: fatal signal received",
			"signal", Name(s),
			"desc", Desc(s),
			"backtrace", backtrace.Capture(0).String())

		// Restore the default disposition and re-raise so the process
		// dies with the correct status for this signal.
		signal.Reset(sig)
		p, err := os.FindProcess(os.Getpid())
		if err == nil {
			p.Signal(sig)
		}
	}()

	return func() {
		signal.Stop(ch)
		close(ch)
	}
}
