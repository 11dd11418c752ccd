// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package future

// Mutex is a non-reentrant, FIFO-fair async mutex: Lock returns a Future
// that becomes Ready only once every future that asked for the lock before
// it has released. There is no OS thread blocking involved — an unlocked
// waiter simply polls Pending until its turn comes up in the queue.
type Mutex struct {
	locked bool
	queue  []*lockWaiter
	next   uint64
}

type lockWaiter struct {
	ticket uint64
	ready  bool
}

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{}
}

// Lock returns a Future that resolves once the caller holds the mutex. The
// caller must call Unlock exactly once after the future resolves.
func (m *Mutex) Lock() Future[struct{}] {
	w := &lockWaiter{ticket: m.next}
	m.next++
	m.queue = append(m.queue, w)

	return &FuncFuture[struct{}]{
		PollFunc: func() (struct{}, Status) {
			m.admit()

			if w.ready {
				return struct{}{}, Ready
			}
			return struct{}{}, Pending
		},
	}
}

// admit grants the lock to the head of the queue if the mutex is free.
func (m *Mutex) admit() {
	if m.locked || len(m.queue) == 0 {
		return
	}
	if !m.queue[0].ready {
		m.queue[0].ready = true
		m.locked = true
	}
}

// Unlock releases the mutex, allowing the next queued waiter (if any) to be
// admitted on its next poll.
func (m *Mutex) Unlock() {
	if !m.locked {
		return
	}

	if len(m.queue) > 0 && m.queue[0].ready {
		m.queue = m.queue[1:]
	}

	m.locked = false
	m.admit()
}

// TryLock attempts to acquire the mutex immediately, without entering the
// fairness queue. It only succeeds when the mutex is free and the queue is
// empty, so it never jumps ahead of a waiting Lock future.
func (m *Mutex) TryLock() bool {
	if m.locked || len(m.queue) > 0 {
		return false
	}
	m.locked = true
	return true
}
