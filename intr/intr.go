// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package intr wraps interrupt enable/disable and dispatch for amd64,
// giving the rest of the kernel a scoped guard for the sections that must
// run without an interrupt preempting the single thread of control (the
// wakeup list scan, DMA block-list mutation, and UHCI register
// read-modify-write sequences).
package intr

// Controller toggles the CPU interrupt flag and dispatches incoming
// interrupt vectors to registered handlers.
type Controller struct {
	handlers [256]func(vector int)
	disable  func()
	enable   func()
}

// NewController returns a Controller using the given low-level enable and
// disable primitives (normally amd64 CLI/STI wrappers).
func NewController(disable, enable func()) *Controller {
	return &Controller{disable: disable, enable: enable}
}

// Register installs f as the handler for vector. Only one handler may be
// registered per vector.
func (c *Controller) Register(vector int, f func(vector int)) {
	c.handlers[vector] = f
}

// Dispatch is invoked by the low-level interrupt entry stub with the
// firing vector; it looks up and calls the registered handler, if any.
func (c *Controller) Dispatch(vector int) {
	if h := c.handlers[vector]; h != nil {
		h(vector)
	}
}

// Guard disables interrupts and returns a function that re-enables them,
// whatever the state was before. Callers use it as: defer intr.Guard(c)().
// Guards do not nest
// correctly with each other by design — there is exactly one thread of
// control, so a guard held across a call that itself guards would be a
// logic error, not a recoverable race.
func Guard(c *Controller) func() {
	c.disable()
	return c.enable
}
