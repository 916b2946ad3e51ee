// Package tasklog logs how long named tasks take, with per-goroutine
// nesting.
//
// A task logs its message when begun and "done in <elapsed>" when
// finished. Tasks begun while another task is running on the same
// goroutine are indented beneath it, so concurrent logs read as one tree
// per goroutine:
//
//	t := tasklog.Begin("rebuilding index over %d files", n)
//	defer t.Done()
//	for _, f := range files {
//		s := tasklog.Begin("file %s", f)
//		process(f)
//		s.Done()
//	}
//
// Output goes through log/slog at Info level. The whole package can be
// switched off with SetEnabled, making Begin/Done no-ops.
package tasklog

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kolkov/sharedguard/internal/goid"
	"github.com/kolkov/sharedguard/timer"
)

var (
	enabled atomic.Bool

	mu    sync.Mutex
	depth = map[uint64]int{}
)

func init() {
	enabled.Store(true)
}

// SetEnabled switches task logging on or off globally.
func SetEnabled(on bool) { enabled.Store(on) }

// Enabled reports whether task logging is on.
func Enabled() bool { return enabled.Load() }

// Task is one running, named, timed scope. Begin it with Begin and end it
// with Done, on the same goroutine.
type Task struct {
	t        timer.Timer
	msg      string
	gid      uint64
	silent   bool // logging disabled at Begin time
	noTiming bool
	done     bool
}

// Begin starts a task and logs its message.
func Begin(format string, args ...any) *Task {
	t := &Task{msg: fmt.Sprintf(format, args...)}
	if !enabled.Load() {
		t.silent = true
		return t
	}
	t.gid = goid.ID()
	t.t = timer.Start()

	mu.Lock()
	d := depth[t.gid]
	depth[t.gid] = d + 1
	mu.Unlock()

	slog.Info(indent(d) + t.msg + "...")
	return t
}

// Info logs an extra line under the task, at the task's indentation.
func (t *Task) Info(format string, args ...any) {
	if t.silent || t.done {
		return
	}
	mu.Lock()
	d := depth[t.gid] // already includes this task
	mu.Unlock()
	slog.Info(indent(d-1) + "- " + fmt.Sprintf(format, args...))
}

// SuppressTiming makes Done log nothing. The task still unwinds its
// nesting level.
func (t *Task) SuppressTiming() { t.noTiming = true }

// Elapsed returns the time since Begin.
func (t *Task) Elapsed() time.Duration { return t.t.Elapsed() }

// Done ends the task, logging "done in <elapsed>". Done is idempotent.
func (t *Task) Done() {
	if t.silent || t.done {
		t.done = true
		return
	}
	t.done = true
	elapsed := t.t.Elapsed()

	mu.Lock()
	d := depth[t.gid] - 1
	if d <= 0 {
		delete(depth, t.gid)
	} else {
		depth[t.gid] = d
	}
	mu.Unlock()

	if t.noTiming {
		return
	}
	slog.Info(fmt.Sprintf("%s%s... done in %s", indent(d), t.msg, FormatDuration(elapsed)))
}

func indent(d int) string {
	if d <= 0 {
		return ""
	}
	return strings.Repeat("    ", d)
}

// FormatDuration renders a duration the way the task log does: two
// significant-ish digits in the most natural unit.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%d ns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1f µs", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.1f ms", float64(d.Nanoseconds())/1e6)
	case d < time.Minute:
		return fmt.Sprintf("%.1f s", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}
