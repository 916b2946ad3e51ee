// Package assert builds structured assertion errors that carry where and
// what failed.
//
// Each helper evaluates its condition and returns nil on success, or an
// *Error recording the calling function, file, line, the rendered
// condition and an optional message. The error is ordinary Go error
// value; raise it, wrap it or log it as the caller sees fit.
//
//	if err := assert.Equals(got, want); err != nil {
//		return err
//	}
package assert

import (
	"cmp"
	"fmt"
	"log/slog"
	"runtime"
)

// Error describes one failed assertion.
type Error struct {
	// Func, File and Line locate the assertion call site.
	Func string
	File string
	Line int

	// Condition is the rendered form of what was asserted, with the
	// actual values substituted in.
	Condition string

	// Message is the caller's optional context, empty if none was given.
	Message string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("assertion failed: %s\n  at %s (%s:%d)", e.Condition, e.Func, e.File, e.Line)
	if e.Message != "" {
		msg += "\n  " + e.Message
	}
	return msg
}

// That returns an *Error unless cond is true. The message is formatted
// with fmt.Sprintf.
func That(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return newError(1, fmt.Sprintf(format, args...), "condition is false")
}

// Equals returns an *Error unless a == b.
func Equals[T comparable](a, b T) error {
	if a == b {
		return nil
	}
	return newError(1, "", fmt.Sprintf("'%v' == '%v'", a, b))
}

// NotEquals returns an *Error unless a != b.
func NotEquals[T comparable](a, b T) error {
	if a != b {
		return nil
	}
	return newError(1, "", fmt.Sprintf("'%v' != '%v'", a, b))
}

// Less returns an *Error unless a < b.
func Less[T cmp.Ordered](a, b T) error {
	if a < b {
		return nil
	}
	return newError(1, "", fmt.Sprintf("'%v' < '%v'", a, b))
}

// LessOrEqual returns an *Error unless a <= b.
func LessOrEqual[T cmp.Ordered](a, b T) error {
	if a <= b {
		return nil
	}
	return newError(1, "", fmt.Sprintf("'%v' <= '%v'", a, b))
}

// FuzzyEquals returns an *Error unless a and b differ by at most tol.
func FuzzyEquals(a, b, tol float64) error {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if diff <= tol {
		return nil
	}
	return newError(1, "",
		fmt.Sprintf("'%v' ~= '%v' (diff %v, tolerance %v)", a, b, diff, tol))
}

// LogError records a failure at the call site without returning it, for
// paths that must continue.
func LogError(format string, args ...any) {
	e := newError(1, fmt.Sprintf(format, args...), "LOG_ERROR")
	slog.Error("assert: "+e.Message, "func", e.Func, "file", e.File, "line", e.Line)
}

// newError captures the caller skip+1 frames up.
func newError(skip int, message, condition string) *Error {
	e := &Error{Condition: condition, Message: message}
	pc, file, line, ok := runtime.Caller(skip + 1)
	if ok {
		e.File = file
		e.Line = line
		if f := runtime.FuncForPC(pc); f != nil {
			e.Func = f.Name()
		}
	}
	return e
}
