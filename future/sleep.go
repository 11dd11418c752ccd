// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package future

import "github.com/barebones-os/kernel/tick"

// sleepFuture completes once the clock reaches a registered deadline.
type sleepFuture struct {
	clock      *tick.Source
	wakeups    *tick.WakeupList
	deadline   uint64
	registered bool
	fired      bool
}

// Sleep returns a Future that becomes Ready once seconds have elapsed on
// clock, registering its wakeup with wakeups the first time it is polled.
// It backs the UHCI reset and port-reset settle delays and the
// ARP-resolve-or-timeout race in kernel.Kernel; the UHCI completion poll
// registers its wakeup on the list directly instead.
func Sleep(clock *tick.Source, wakeups *tick.WakeupList, seconds float64) Future[struct{}] {
	s := &sleepFuture{clock: clock, wakeups: wakeups}
	s.deadline = clock.Deadline(seconds)
	return &FuncFuture[struct{}]{PollFunc: s.poll}
}

func (s *sleepFuture) poll() (struct{}, Status) {
	if s.fired {
		return struct{}{}, Ready
	}

	if s.clock.Now() >= s.deadline {
		return struct{}{}, Ready
	}

	if !s.registered {
		s.registered = true
		s.wakeups.Register(s.deadline, func() { s.fired = true })
	}

	return struct{}{}, Pending
}
