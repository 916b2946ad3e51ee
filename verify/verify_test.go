package verify

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoReportWithinBudget(t *testing.T) {
	var calls atomic.Int32
	s := Start(time.Second, func(expected, observed time.Duration) {
		calls.Add(1)
	})
	s.Stop()

	assert.Zero(t, calls.Load())
}

func TestReportsOverrunOnce(t *testing.T) {
	var calls atomic.Int32
	var gotExpected, gotObserved time.Duration

	s := Start(time.Millisecond, func(expected, observed time.Duration) {
		calls.Add(1)
		gotExpected, gotObserved = expected, observed
	})
	time.Sleep(10 * time.Millisecond)
	s.Stop()
	s.Stop() // idempotent

	require.Equal(t, int32(1), calls.Load())
	assert.Equal(t, time.Millisecond, gotExpected)
	assert.GreaterOrEqual(t, gotObserved, 10*time.Millisecond)
}

func TestAbortSuppressesReport(t *testing.T) {
	var calls atomic.Int32
	s := Start(time.Millisecond, func(expected, observed time.Duration) {
		calls.Add(1)
	})
	time.Sleep(5 * time.Millisecond)
	s.Abort()
	s.Stop()

	assert.Zero(t, calls.Load())
}

func TestElapsed(t *testing.T) {
	s := Start(time.Hour, nil)
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, s.Elapsed(), 5*time.Millisecond)
	s.Stop()
}

func TestNilReporterUsesDefault(t *testing.T) {
	// Must not panic; the default reporter logs.
	s := Start(time.Nanosecond, nil)
	time.Sleep(time.Millisecond)
	s.Stop()
}
