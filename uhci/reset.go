// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uhci

import "github.com/barebones-os/kernel/future"

// resetState enumerates the steps of the global-then-host-controller reset
// sequence the hardware requires, each separated by a settle delay. A
// 50ms settle after the global reset was tried first and observed not to
// work reliably; 60ms does.
type resetState int

const (
	resetGlobalAsserted resetState = iota
	resetGlobalSettling
	resetClearing
	resetHostSettling
	resetHostAsserted
	resetHostSettling2
	resetDone
)

type resetFuture struct {
	c     *Controller
	state resetState
	sleep future.Future[struct{}]
}

// Reset returns a Future that drives the controller through its global
// reset and host-controller reset sequence: GRESET asserted, a 10ms
// settle, GRESET cleared, a 60ms settle, HCRESET asserted, a 10ms settle.
func (c *Controller) Reset() future.Future[struct{}] {
	r := &resetFuture{c: c, state: resetGlobalAsserted}
	return &future.FuncFuture[struct{}]{PollFunc: r.poll}
}

func (r *resetFuture) poll() (struct{}, future.Status) {
	for {
		switch r.state {
		case resetGlobalAsserted:
			r.c.io.Write16(regUSBCMD, cmdGlobalReset)
			r.sleep = future.Sleep(r.c.clock, r.c.wakeup, 0.010)
			r.state = resetGlobalSettling

		case resetGlobalSettling:
			if _, st := r.sleep.Poll(); st != future.Ready {
				return struct{}{}, future.Pending
			}
			r.state = resetClearing

		case resetClearing:
			r.c.io.Write16(regUSBCMD, 0)
			r.sleep = future.Sleep(r.c.clock, r.c.wakeup, 0.060)
			r.state = resetHostSettling

		case resetHostSettling:
			if _, st := r.sleep.Poll(); st != future.Ready {
				return struct{}{}, future.Pending
			}
			r.state = resetHostAsserted

		case resetHostAsserted:
			r.c.io.Write16(regUSBCMD, cmdHostReset)
			r.sleep = future.Sleep(r.c.clock, r.c.wakeup, 0.010)
			r.state = resetHostSettling2

		case resetHostSettling2:
			if _, st := r.sleep.Poll(); st != future.Ready {
				return struct{}{}, future.Pending
			}
			r.state = resetDone

		case resetDone:
			return struct{}{}, future.Ready
		}
	}
}
