// Copyright 2025 The sharedguard Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package barrier provides N-way rendezvous points for goroutines.
//
// Both variants block callers of Wait until n goroutines have arrived,
// then release them all and reset for the next round. Spinning is for
// short rendezvous between fewer goroutines than cores; Locking parks
// waiters on a condition variable and is the safe default otherwise.
package barrier

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Spinning is a lock-free spinning barrier.
//
// Waiters busy-loop on an atomic generation counter. When n exceeds the
// number of CPUs the spin loop yields to the scheduler on each iteration,
// otherwise the oversubscribed spinners would starve the very goroutines
// they are waiting for.
type Spinning struct {
	n     uint32
	nwait atomic.Uint32
	step  atomic.Uint32
	yield bool
}

// NewSpinning returns a barrier for n goroutines, yielding in the spin
// loop when n exceeds the number of usable CPUs.
func NewSpinning(n int) *Spinning {
	return NewSpinningYield(n, n > runtime.NumCPU())
}

// NewSpinningYield returns a barrier for n goroutines with explicit
// control over yielding.
func NewSpinningYield(n int, yield bool) *Spinning {
	return &Spinning{n: uint32(n), yield: yield}
}

// Wait blocks until n goroutines have called Wait, then releases them
// all. It returns true for exactly one of them (the last to arrive) per
// round. The step counter may wrap; that is fine.
func (b *Spinning) Wait() bool {
	step := b.step.Load()

	if b.nwait.Add(1) == b.n {
		// Last to arrive: reset and open the next generation.
		b.nwait.Store(0)
		b.step.Add(1)
		return true
	}

	for b.step.Load() == step {
		if b.yield {
			runtime.Gosched()
		}
	}
	return false
}

// Locking is a barrier that parks waiters instead of spinning.
type Locking struct {
	mu    sync.Mutex
	cv    *sync.Cond
	n     int
	nwait int
	step  int
}

// NewLocking returns a parking barrier for n goroutines.
func NewLocking(n int) *Locking {
	b := &Locking{n: n}
	b.cv = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until n goroutines have called Wait, then releases them
// all. It returns true for exactly one of them per round.
func (b *Locking) Wait() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	step := b.step
	b.nwait++
	if b.nwait == b.n {
		b.nwait = 0
		b.step++
		b.cv.Broadcast()
		return true
	}
	for b.step == step {
		b.cv.Wait()
	}
	return false
}
