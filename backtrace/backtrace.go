// Copyright 2025 The sharedguard Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package backtrace captures call stacks cheaply and symbolizes them
// lazily.
//
// Capture only records program counters (~1 µs); turning them into
// file:line form costs much more and is deferred until String is called,
// typically when an error carrying the trace is actually printed. That
// split makes it affordable to attach a backtrace to every LockFailed.
//
// The package also keeps a global depot that deduplicates identical
// stacks by FNV-1a hash, so code paths that capture the same stack over
// and over (a hot lock that keeps timing out) pay the allocation once.
package backtrace

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
	"unsafe"
)

const (
	// MaxFrames is the maximum number of frames recorded per trace.
	// Lock diagnostics rarely need more; the interesting frames are the
	// callers closest to the acquisition.
	MaxFrames = 32
)

// Backtrace is a captured call stack. The program counters are recorded
// at Capture time; symbolization happens on the first String call and is
// cached.
type Backtrace struct {
	pcs []uintptr

	once   sync.Once
	pretty string
}

// Capture records the current call stack, skipping skip frames on top of
// the runtime internals and Capture itself. skip=0 starts the trace at
// Capture's caller.
func Capture(skip int) *Backtrace {
	var pcs [MaxFrames]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	if n == 0 {
		return &Backtrace{}
	}
	b := &Backtrace{pcs: make([]uintptr, n)}
	copy(b.pcs, pcs[:n])
	return b
}

// Frames returns the recorded program counters.
func (b *Backtrace) Frames() []uintptr { return b.pcs }

// String renders the trace as one "#i function at file:line" row per
// frame. The rendering is computed once and cached; it is safe to call
// concurrently.
func (b *Backtrace) String() string {
	b.once.Do(func() {
		if len(b.pcs) == 0 {
			b.pretty = "(no stack)"
			return
		}
		var sb strings.Builder
		frames := runtime.CallersFrames(b.pcs)
		for i := 0; ; i++ {
			frame, more := frames.Next()
			fmt.Fprintf(&sb, "#%-2d %s at %s:%d\n", i, frame.Function, frame.File, frame.Line)
			if !more {
				break
			}
		}
		b.pretty = sb.String()
	})
	return b.pretty
}

// depot deduplicates captured stacks by hash.
// Key: uint64 FNV-1a hash of the program counters.
// Value: *Backtrace.
var depot sync.Map

// Intern stores the trace in the global depot and returns its hash. A
// trace with identical frames shares a single stored instance; the hash
// is a compact handle that can be kept in per-address bookkeeping where a
// pointer per record would be too heavy.
func Intern(b *Backtrace) uint64 {
	h := hashFrames(b.pcs)
	if _, loaded := depot.Load(h); !loaded {
		depot.Store(h, b)
	}
	return h
}

// Lookup returns the interned trace for hash, or nil if no trace with
// that hash was interned.
func Lookup(hash uint64) *Backtrace {
	v, ok := depot.Load(hash)
	if !ok {
		return nil
	}
	return v.(*Backtrace)
}

// hashFrames computes the FNV-1a hash of the program counters. FNV-1a is
// fast and distributes well enough that collisions are not a practical
// concern for stack dedup.
func hashFrames(pcs []uintptr) uint64 {
	h := fnv.New64a()
	for _, pc := range pcs {
		var buf [8]byte
		*(*uintptr)(unsafe.Pointer(&buf[0])) = pc
		h.Write(buf[:])
	}
	return h.Sum64()
}
