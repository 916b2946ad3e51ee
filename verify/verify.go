// Package verify provides a scoped execution-time verifier: a watchdog
// for code that is expected to finish within a given duration.
//
// A Scope is started with the expected duration and stopped when the
// monitored work ends. If the work overran, the scope's reporter is
// invoked exactly once with the expected and observed durations. The
// typical use is watching how long a lock guard is held:
//
//	s := verify.Start(time.Millisecond, nil)
//	defer s.Stop()
//	// ... critical section ...
//
// A scope that is unwinding from a failure should call Abort before Stop
// so that the overrun caused by the failure itself is not reported on
// top of it.
package verify

import (
	"log/slog"
	"time"

	"github.com/kolkov/sharedguard/timer"
)

// Reporter receives the expected and observed durations of an overrun
// scope.
type Reporter func(expected, observed time.Duration)

// Scope watches one bounded stretch of execution. It is not safe for
// concurrent use; start it, use it, and stop it on the same goroutine.
type Scope struct {
	expected time.Duration
	report   Reporter
	t        timer.Timer
	done     bool
}

// Start begins watching. The reporter is called from Stop if the elapsed
// wall time exceeds expected; a nil reporter logs a warning through slog.
func Start(expected time.Duration, report Reporter) *Scope {
	if report == nil {
		report = logReport
	}
	return &Scope{
		expected: expected,
		report:   report,
		t:        timer.Start(),
	}
}

// Elapsed returns the wall time since Start.
func (s *Scope) Elapsed() time.Duration { return s.t.Elapsed() }

// Abort disarms the scope: Stop will not report. Use when the scope is
// unwinding from an error and the overrun is a symptom, not a finding.
func (s *Scope) Abort() { s.done = true }

// Stop ends the watch. If the scope overran its expected duration and
// was not aborted, the reporter fires exactly once, after Stop observes
// the elapsed time. Stop is idempotent.
func (s *Scope) Stop() {
	if s.done {
		return
	}
	s.done = true
	observed := s.t.Elapsed()
	if observed > s.expected {
		s.report(s.expected, observed)
	}
}

// logReport is the default reporter.
func logReport(expected, observed time.Duration) {
	slog.Warn("verify: scope exceeded expected execution time",
		"expected", expected,
		"observed", observed)
}
