// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package future implements a cooperative single-threaded async runtime:
// since Go here targets a freestanding kernel with no preemptive
// scheduler and a single thread of control, every async operation is
// encoded as an explicit state machine with a Poll method rather than as
// a goroutine.
package future

// Status reports whether a Future has produced its value yet.
type Status int

const (
	// Pending means the future has not yet produced a value; it must be
	// polled again, normally after registering a wakeup.
	Pending Status = iota
	// Ready means the future's value is available.
	Ready
)

// Future is a single poll-based async computation. Poll must be cheap and
// non-blocking: if it cannot complete yet, it returns Pending and is
// responsible for having arranged its own later wakeup (via a tick.WakeupList
// registration, a completion interrupt, or similar) before returning.
type Future[T any] interface {
	Poll() (T, Status)
}

// FuncFuture adapts a poll function into a Future.
type FuncFuture[T any] struct {
	PollFunc func() (T, Status)
}

// Poll implements Future.
func (f *FuncFuture[T]) Poll() (T, Status) {
	return f.PollFunc()
}

// Map returns a Future that applies f to the value produced by inner.
func Map[T, U any](inner Future[T], f func(T) U) Future[U] {
	return &FuncFuture[U]{
		PollFunc: func() (U, Status) {
			v, st := inner.Poll()
			if st != Ready {
				var zero U
				return zero, Pending
			}
			return f(v), Ready
		},
	}
}

// Select polls a and b and returns the first to become Ready. If both are
// Ready on the same poll, a wins. This is the race-against-a-timeout
// pattern used to bound otherwise-unbounded waits (arptable.WaitFor against
// a Sleep deadline).
func Select[T any](a, b Future[T]) Future[T] {
	return &FuncFuture[T]{
		PollFunc: func() (T, Status) {
			if v, st := a.Poll(); st == Ready {
				return v, Ready
			}
			if v, st := b.Poll(); st == Ready {
				return v, Ready
			}
			var zero T
			return zero, Pending
		},
	}
}

// Done wraps a value that is already available.
func Done[T any](v T) Future[T] {
	return &FuncFuture[T]{
		PollFunc: func() (T, Status) { return v, Ready },
	}
}
