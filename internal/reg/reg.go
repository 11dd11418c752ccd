// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package reg provides primitives for retrieving and modifying
// hardware-observable 32-bit and 16-bit registers, and for x86 I/O port
// access. All accesses use volatile semantics (sync/atomic on the 32-bit
// path) so that concurrent CPU and DMA-controller observers never see a
// torn or compiler-reordered value.
package reg

import (
	"runtime"
	"time"
)

// Wait spins until a specific register bit field matches val. Must not be
// called before the scheduler is up, as it yields with runtime.Gosched.
func Wait(addr uint32, pos int, mask int, val uint32) {
	for Get(addr, pos, mask) != val {
		runtime.Gosched()
	}
}

// WaitFor spins, until timeout expires, for a register bit field to match
// val. Returns false if the timeout elapsed first.
func WaitFor(timeout time.Duration, addr uint32, pos int, mask int, val uint32) bool {
	start := time.Now()

	for Get(addr, pos, mask) != val {
		runtime.Gosched()

		if time.Since(start) >= timeout {
			return false
		}
	}

	return true
}
