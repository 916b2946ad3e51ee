// Copyright 2025 The sharedguard Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shared

import (
	"sync"
	"time"
)

// TimedRWMutex is a readers-writer mutex that supports non-blocking and
// timed acquisition in both shared and exclusive mode.
//
// The standard library sync.RWMutex offers neither TryLock-with-timeout nor
// shared timed acquisition, both of which the cell's lock protocol needs.
// TimedRWMutex builds them from a plain mutex plus a broadcast channel that
// is closed whenever the lock state changes: waiters select on the channel
// and a timer, then re-check the state.
//
// Writer preference: while a writer is blocked waiting, new readers are held
// back. Without this, a steady stream of readers can starve writers forever.
// The cost is that two back-to-back read acquisitions in one goroutine are
// not guaranteed to both succeed if a writer arrives in between; callers of
// the cell treat that as expected behavior.
//
// The zero value is an unlocked mutex.
//
// Thread Safety: all methods are safe for concurrent use.
type TimedRWMutex struct {
	mu sync.Mutex

	// readers counts goroutines currently holding the lock in shared mode.
	readers int

	// writer is true while a goroutine holds the lock exclusively.
	writer bool

	// pendingWriters counts goroutines blocked in Lock/LockFor. Readers
	// yield to them.
	pendingWriters int

	// gate is closed and replaced on every state change that could unblock
	// a waiter. Lazily allocated; nil means nobody is waiting.
	gate chan struct{}
}

// TryLock attempts to acquire the mutex exclusively without blocking.
// It returns true if the lock was acquired.
func (m *TimedRWMutex) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer || m.readers > 0 {
		return false
	}
	m.writer = true
	return true
}

// TryRLock attempts to acquire the mutex in shared mode without blocking.
// It returns true if the lock was acquired. A blocked writer causes
// TryRLock to fail even if no lock is currently held (writer preference).
func (m *TimedRWMutex) TryRLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer || m.pendingWriters > 0 {
		return false
	}
	m.readers++
	return true
}

// Lock acquires the mutex exclusively, blocking indefinitely until it is
// available.
func (m *TimedRWMutex) Lock() {
	m.lockExclusive(nil)
}

// RLock acquires the mutex in shared mode, blocking indefinitely until it
// is available.
func (m *TimedRWMutex) RLock() {
	m.lockShared(nil)
}

// LockFor acquires the mutex exclusively, blocking for at most d.
// It returns true if the lock was acquired. LockFor(0) never blocks.
func (m *TimedRWMutex) LockFor(d time.Duration) bool {
	if d <= 0 {
		return m.TryLock()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	return m.lockExclusive(t.C)
}

// RLockFor acquires the mutex in shared mode, blocking for at most d.
// It returns true if the lock was acquired. RLockFor(0) never blocks.
func (m *TimedRWMutex) RLockFor(d time.Duration) bool {
	if d <= 0 {
		return m.TryRLock()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	return m.lockShared(t.C)
}

// Unlock releases an exclusive lock. It must only be called by the
// goroutine that holds the lock exclusively.
func (m *TimedRWMutex) Unlock() {
	m.mu.Lock()
	if !m.writer {
		m.mu.Unlock()
		panic("shared: Unlock of TimedRWMutex not held exclusively")
	}
	m.writer = false
	m.broadcast()
	m.mu.Unlock()
}

// RUnlock releases one shared lock.
func (m *TimedRWMutex) RUnlock() {
	m.mu.Lock()
	if m.readers <= 0 {
		m.mu.Unlock()
		panic("shared: RUnlock of TimedRWMutex not held in shared mode")
	}
	m.readers--
	if m.readers == 0 {
		m.broadcast()
	}
	m.mu.Unlock()
}

// lockExclusive waits until the lock can be taken exclusively, or until
// expired delivers. A nil expired channel means wait forever.
func (m *TimedRWMutex) lockExclusive(expired <-chan time.Time) bool {
	m.mu.Lock()
	if !m.writer && m.readers == 0 {
		m.writer = true
		m.mu.Unlock()
		return true
	}

	m.pendingWriters++
	for m.writer || m.readers > 0 {
		gate := m.wait()
		m.mu.Unlock()

		select {
		case <-gate:
		case <-expired:
			m.mu.Lock()
			m.pendingWriters--
			if m.pendingWriters == 0 {
				// Readers held back by this writer may proceed now.
				m.broadcast()
			}
			m.mu.Unlock()
			return false
		}
		m.mu.Lock()
	}
	m.pendingWriters--
	m.writer = true
	m.mu.Unlock()
	return true
}

// lockShared waits until the lock can be taken in shared mode, or until
// expired delivers. A nil expired channel means wait forever.
func (m *TimedRWMutex) lockShared(expired <-chan time.Time) bool {
	m.mu.Lock()
	for m.writer || m.pendingWriters > 0 {
		gate := m.wait()
		m.mu.Unlock()

		select {
		case <-gate:
		case <-expired:
			return false
		}
		m.mu.Lock()
	}
	m.readers++
	m.mu.Unlock()
	return true
}

// wait returns the current gate channel, allocating it if needed.
// Caller must hold m.mu.
func (m *TimedRWMutex) wait() chan struct{} {
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
	return m.gate
}

// broadcast wakes every waiter by closing the gate. Caller must hold m.mu.
func (m *TimedRWMutex) broadcast() {
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}
