// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package future

import (
	"testing"

	"github.com/barebones-os/kernel/tick"
)

func TestMutexMutualExclusion(t *testing.T) {
	m := NewMutex()

	counter := 0
	held := 0
	maxHeld := 0

	const tasks = 5
	futs := make([]Future[struct{}], tasks)
	done := make([]bool, tasks)

	for i := 0; i < tasks; i++ {
		lock := m.Lock()
		i := i
		futs[i] = &FuncFuture[struct{}]{
			PollFunc: func() (struct{}, Status) {
				if done[i] {
					return struct{}{}, Ready
				}
				if _, st := lock.Poll(); st != Ready {
					return struct{}{}, Pending
				}

				held++
				if held > maxHeld {
					maxHeld = held
				}
				counter++
				held--
				m.Unlock()

				done[i] = true
				return struct{}{}, Ready
			},
		}
	}

	remaining := tasks
	for remaining > 0 {
		remaining = 0
		for _, f := range futs {
			if _, st := f.Poll(); st != Ready {
				remaining++
			}
		}
	}

	if counter != tasks {
		t.Fatalf("counter = %d, want %d", counter, tasks)
	}
	if maxHeld > 1 {
		t.Fatalf("maxHeld = %d, want <= 1 (mutex allowed concurrent holders)", maxHeld)
	}
}

func TestMutexFIFOOrder(t *testing.T) {
	m := NewMutex()

	var order []int
	const n = 3
	locks := make([]Future[struct{}], n)
	for i := 0; i < n; i++ {
		locks[i] = m.Lock()
	}

	for i := 0; i < n; i++ {
		for {
			if _, st := locks[i].Poll(); st == Ready {
				order = append(order, i)
				m.Unlock()
				break
			}
		}
	}

	for i := 0; i < n; i++ {
		if order[i] != i {
			t.Fatalf("lock grant order = %v, want [0 1 2]", order)
		}
	}
}

func TestSleepBecomesReadyAtDeadline(t *testing.T) {
	clock := tick.NewSource(1000)
	wakeups := tick.NewWakeupList()

	s := Sleep(clock, wakeups, 0.01)

	if _, st := s.Poll(); st == Ready {
		t.Fatal("sleep ready before any time passed")
	}

	clock.Advance(10)
	wakeups.OnTick(clock.Now())

	if _, st := s.Poll(); st != Ready {
		t.Fatal("sleep not ready after deadline reached")
	}
}

func TestSelectRacesSleepAndValue(t *testing.T) {
	clock := tick.NewSource(1000)
	wakeups := tick.NewWakeupList()

	slow := Sleep(clock, wakeups, 1.0)
	immediate := Done(42)

	sel := Select(immediate, Map(slow, func(struct{}) int { return -1 }))

	v, st := sel.Poll()
	if st != Ready || v != 42 {
		t.Fatalf("Select = (%d, %v), want (42, Ready)", v, st)
	}
}
