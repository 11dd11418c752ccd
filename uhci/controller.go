// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uhci

import (
	"fmt"

	"github.com/barebones-os/kernel/dma"
	"github.com/barebones-os/kernel/ioport"
	"github.com/barebones-os/kernel/tick"
)

// I/O register offsets within the controller's BAR4 I/O window.
const (
	regUSBCMD     = 0x00
	regUSBSTS     = 0x02
	regUSBINTR    = 0x04
	regFRNUM      = 0x06
	regFRBASEADD  = 0x08
	regSOFMOD     = 0x0C
	regPortSCBase = 0x10
)

// USBCMD bits.
const (
	cmdRun          = 1 << 0
	cmdHostReset    = 1 << 1
	cmdGlobalReset  = 1 << 2
	cmdMaxPacket64  = 1 << 7
	cmdConfigure    = 1 << 6
)

// USBSTS bits.
const (
	statusAllBits = 0x1F
)

// FrameListLen is the number of 32-bit entries in the hardware frame list.
const FrameListLen = 1024

// FrameListAlign is the hardware alignment requirement for the frame list
// base address.
const FrameListAlign = 4096

// Controller drives a single UHCI host controller: the frame list, the
// always-resident master queue head every frame entry points at, and the
// completion-polling futures built on top of its transfer descriptors.
//
// queue holds every transfer descriptor currently reachable from the
// master queue head's element link, keyed by the insertion id assigned
// when appendWork queued it. Descriptors are removed together, once their
// owning UsbFuture is polled and finds every descriptor in its chain
// complete, so queue can still hold finished descriptors whose chain has
// not resolved yet.
type Controller struct {
	io     ioport.PortIO
	dma    *dma.Region
	clock  *tick.Source
	wakeup *tick.WakeupList

	frameListAddr uint32
	masterQH      *QueueHead

	queue  map[uint64]*transferStorage
	nextID uint64
}

// New allocates the frame list and master queue head from region and
// returns a Controller bound to the controller's I/O port window io.
func New(io ioport.PortIO, region *dma.Region, clock *tick.Source, wakeup *tick.WakeupList) (*Controller, error) {
	frameListAddr, err := region.Reserve(FrameListLen*4, FrameListAlign)
	if err != nil {
		return nil, fmt.Errorf("uhci: allocating frame list: %w", err)
	}

	qhAddr, err := region.Reserve(QHSize, QHAlign)
	if err != nil {
		return nil, fmt.Errorf("uhci: allocating master queue head: %w", err)
	}

	c := &Controller{
		io:            io,
		dma:           region,
		clock:         clock,
		wakeup:        wakeup,
		frameListAddr: frameListAddr,
		masterQH:      NewQueueHead(qhAddr),
		queue:         make(map[uint64]*transferStorage),
	}

	c.masterQH.SetHeadLink(LinkPointer{Kind: LinkNone})
	c.masterQH.SetElementLink(LinkPointer{Kind: LinkNone})

	masterLink := LinkPointer{Kind: LinkQH, Addr: qhAddr}
	for i := 0; i < FrameListLen; i++ {
		c.dma.Write(frameListAddr, uint32(i*4), encodeFrameEntry(masterLink))
	}

	return c, nil
}

func encodeFrameEntry(lp LinkPointer) []byte {
	w := lp.Encode()
	return []byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)}
}

// FrameListAddr returns the physical address of the frame list, for
// programming into FRBASEADD.
func (c *Controller) FrameListAddr() uint32 { return c.frameListAddr }

// SetFrameListBase programs FRBASEADD with the controller's frame list
// address.
func (c *Controller) SetFrameListBase() error {
	return c.io.Write32(regFRBASEADD, c.frameListAddr)
}

// SetFrameNumber programs FRNUM, normally to 0 right after a reset.
func (c *Controller) SetFrameNumber(n uint16) error {
	return c.io.Write16(regFRNUM, n&0x7FF)
}

// ClearStatus acknowledges every pending status bit.
func (c *Controller) ClearStatus() error {
	return c.io.Write16(regUSBSTS, statusAllBits)
}

// Enable sets the command register to run the controller with 64-byte max
// packets and the configure flag set, matching the sequence the original
// driver runs once port/device setup is otherwise complete.
func (c *Controller) Enable() error {
	return c.io.Write16(regUSBCMD, cmdMaxPacket64|cmdConfigure|cmdRun)
}

// Halt clears the Run/Stop bit.
func (c *Controller) Halt() error {
	return c.io.Write16(regUSBCMD, 0)
}

// portOffset returns the register offset of PORTSC for 0-indexed port n.
func portOffset(n int) uint16 {
	return regPortSCBase + uint16(n)*2
}
