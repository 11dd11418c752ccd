// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package future

// Executor drives a single root Future to completion by repeatedly polling
// it and servicing the tick/interrupt sources in between: one polled root
// future, no preemption.
type Executor struct {
	// PumpEvents is called between polls to advance the tick source,
	// service pending interrupts, and run the wakeup list. It is supplied
	// by the caller (kernel.Kernel) since the executor itself knows
	// nothing about hardware.
	PumpEvents func()
}

// NewExecutor returns an Executor using pump to advance time between polls.
func NewExecutor(pump func()) *Executor {
	return &Executor{PumpEvents: pump}
}

// Run polls root until it completes, calling PumpEvents between polls that
// returned Pending. It returns once root is Ready; use RunValue to get a
// future's value.
func (e *Executor) Run(root Future[struct{}]) {
	for {
		if _, st := root.Poll(); st == Ready {
			return
		}
		if e.PumpEvents != nil {
			e.PumpEvents()
		}
	}
}

// RunValue is Run for a future producing a value, returning it once Ready.
func RunValue[T any](e *Executor, root Future[T]) T {
	for {
		if v, st := root.Poll(); st == Ready {
			return v
		}
		if e.PumpEvents != nil {
			e.PumpEvents()
		}
	}
}
