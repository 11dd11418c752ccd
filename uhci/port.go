// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uhci

import "github.com/barebones-os/kernel/future"

// PORTSC bits.
const (
	portCurrentConnectStatus = 1 << 0
	portConnectStatusChange  = 1 << 1
	portEnabled              = 1 << 2
	portEnableChange         = 1 << 3
	portResumeDetect         = 1 << 6
	portLowSpeed             = 1 << 8
	portReset                = 1 << 9
)

// PortStatus is a decoded snapshot of a PORTSC register.
type PortStatus struct {
	Connected       bool
	ConnectChanged  bool
	Enabled         bool
	EnableChanged   bool
	LowSpeedDevice  bool
	InReset         bool
}

func decodePortStatus(raw uint16) PortStatus {
	return PortStatus{
		Connected:      raw&portCurrentConnectStatus != 0,
		ConnectChanged: raw&portConnectStatusChange != 0,
		Enabled:        raw&portEnabled != 0,
		EnableChanged:  raw&portEnableChange != 0,
		LowSpeedDevice: raw&portLowSpeed != 0,
		InReset:        raw&portReset != 0,
	}
}

// PortStatus reads and decodes port n's PORTSC register (0-indexed).
func (c *Controller) PortStatus(n int) (PortStatus, error) {
	raw, err := c.io.Read16(portOffset(n))
	if err != nil {
		return PortStatus{}, err
	}
	return decodePortStatus(raw), nil
}

type portResetState int

const (
	portResetAsserted portResetState = iota
	portResetSettling
	portResetClearing
	portResetClearSettling
	portResetAckAndEnable
	portResetEnableSettling
	portResetChecking
)

type portResetFuture struct {
	c      *Controller
	port   int
	state  portResetState
	sleep  future.Future[struct{}]
	result bool
}

// ResetPort drives port n through the reset sequence the hardware
// requires: assert reset, settle 50ms, clear reset while preserving
// whatever connect-change state is already latched (a write-1-to-clear
// bit, so writing 0 leaves it alone rather than acknowledging it early),
// settle 5ms, then acknowledge connect-change and enable the port
// together, settle 5ms, then report whether the port ended up enabled
// and connected.
func (c *Controller) ResetPort(n int) future.Future[bool] {
	f := &portResetFuture{c: c, port: n}
	return &future.FuncFuture[bool]{PollFunc: f.poll}
}

func (f *portResetFuture) poll() (bool, future.Status) {
	for {
		switch f.state {
		case portResetAsserted:
			cur, _ := f.c.io.Read16(portOffset(f.port))
			f.c.io.Write16(portOffset(f.port), cur|portReset)
			f.sleep = future.Sleep(f.c.clock, f.c.wakeup, 0.050)
			f.state = portResetSettling

		case portResetSettling:
			if _, st := f.sleep.Poll(); st != future.Ready {
				return false, future.Pending
			}
			f.state = portResetClearing

		case portResetClearing:
			// https://github.com/fysnet/FYSOS/blob/9fea9ca93a2600afdac3060e8c45b4678998abe8/main/usb/utils/gdevdesc/gd_uhci.c#L291
			// Avoid clearing connection change bit.
			cur, _ := f.c.io.Read16(portOffset(f.port))
			next := cur &^ uint16(portReset|portConnectStatusChange|portEnabled|portEnableChange|portResumeDetect|portLowSpeed)
			f.c.io.Write16(portOffset(f.port), next)
			f.sleep = future.Sleep(f.c.clock, f.c.wakeup, 0.005)
			f.state = portResetClearSettling

		case portResetClearSettling:
			if _, st := f.sleep.Poll(); st != future.Ready {
				return false, future.Pending
			}
			f.state = portResetAckAndEnable

		case portResetAckAndEnable:
			cur, _ := f.c.io.Read16(portOffset(f.port))
			acked := cur | portConnectStatusChange
			f.c.io.Write16(portOffset(f.port), acked)
			f.c.io.Write16(portOffset(f.port), acked|portEnabled)
			f.sleep = future.Sleep(f.c.clock, f.c.wakeup, 0.005)
			f.state = portResetEnableSettling

		case portResetEnableSettling:
			if _, st := f.sleep.Poll(); st != future.Ready {
				return false, future.Pending
			}
			f.state = portResetChecking

		case portResetChecking:
			status, _ := f.c.PortStatus(f.port)
			f.result = status.Enabled && status.Connected
			return f.result, future.Ready
		}
	}
}
