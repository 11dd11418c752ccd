// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package tick provides the kernel's monotonic time source and the
// deadline-ordered wakeup list the executor drains on every tick.
// There is no OS thread scheduler underneath this: a tick is delivered by
// whatever timer interrupt source the board wires up, and everything here
// assumes it runs with interrupts disabled or otherwise uncontended.
package tick

import "sort"

// Source is a monotonic counter of ticks elapsed since boot, advanced by
// the timer interrupt handler. Freq reports ticks per second so callers can
// convert a wall-clock duration into a tick deadline.
type Source struct {
	freq uint64
	now  uint64
}

// NewSource creates a Source advancing at freq ticks per second.
func NewSource(freq uint64) *Source {
	return &Source{freq: freq}
}

// Freq returns the source's ticks-per-second rate.
func (s *Source) Freq() uint64 { return s.freq }

// Now returns the current tick count.
func (s *Source) Now() uint64 { return s.now }

// Advance moves the clock forward by n ticks, called from the timer
// interrupt handler. It never goes backward: n is always added, never set.
func (s *Source) Advance(n uint64) {
	s.now += n
}

// Deadline converts a duration expressed in seconds from now into an
// absolute tick value.
func (s *Source) Deadline(secondsFromNow float64) uint64 {
	return s.now + uint64(secondsFromNow*float64(s.freq))
}

// waiter is one registered wakeup: fire the callback once now >= at.
type waiter struct {
	at  uint64
	seq uint64
	f   func()
}

// WakeupList holds the set of pending deadline-based wakeups. Futures
// register themselves here (directly, or via Sleep) instead of blocking a
// thread, since there is exactly one thread of execution.
type WakeupList struct {
	waiters []*waiter
	seq     uint64
}

// NewWakeupList returns an empty WakeupList.
func NewWakeupList() *WakeupList {
	return &WakeupList{}
}

// Register schedules f to run the first time OnTick observes now >= at.
// Registration order is preserved as a tie-break among equal deadlines,
// matching the order futures were polled in.
func (w *WakeupList) Register(at uint64, f func()) {
	w.waiters = append(w.waiters, &waiter{at: at, seq: w.seq, f: f})
	w.seq++
}

// OnTick fires every waiter whose deadline has passed, in deadline order
// (ties broken by registration order), then drops them from the list. A
// callback that reschedules itself via Register is picked up on a later
// OnTick, not the current pass, since it is appended after the scan begins.
func (w *WakeupList) OnTick(now uint64) {
	if len(w.waiters) == 0 {
		return
	}

	sort.SliceStable(w.waiters, func(i, j int) bool {
		if w.waiters[i].at != w.waiters[j].at {
			return w.waiters[i].at < w.waiters[j].at
		}
		return w.waiters[i].seq < w.waiters[j].seq
	})

	due := 0
	for due < len(w.waiters) && w.waiters[due].at <= now {
		due++
	}

	fire := w.waiters[:due]
	w.waiters = w.waiters[due:]

	for _, wt := range fire {
		wt.f()
	}
}

// Pending reports how many wakeups are still outstanding.
func (w *WakeupList) Pending() int {
	return len(w.waiters)
}
