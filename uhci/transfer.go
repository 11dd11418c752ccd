// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uhci

import (
	"fmt"

	"github.com/barebones-os/kernel/future"
	"github.com/barebones-os/kernel/netframe"
)

// TDSpec describes one transfer descriptor to submit as part of a work
// unit: a SETUP, DATA, or STATUS stage of a control transfer, or a single
// bulk/interrupt transaction.
type TDSpec struct {
	Address    uint8
	Endpoint   uint8
	PID        uint8
	Buf        []byte
	DataToggle bool
}

// transferStorage keeps a transfer descriptor's DMA buffer address alive
// alongside the descriptor itself, for as long as the controller's queue
// map owns it.
type transferStorage struct {
	id   uint64
	td   *TransferDescriptor
	data uint32
}

// buildTD allocates a transfer descriptor and its data buffer from the
// controller's DMA region and programs the token fields for one USB
// transaction. It does not link it to anything or assign it an id; both
// are the caller's job once the whole work unit is built.
func (c *Controller) buildTD(spec TDSpec) (*transferStorage, error) {
	if len(spec.Buf) > MaxPacketLen {
		return nil, &netframe.InvalidPacketLength{Length: len(spec.Buf)}
	}

	dataAddr, err := c.dma.Alloc(spec.Buf, 4)
	if err != nil {
		return nil, fmt.Errorf("uhci: allocating transfer buffer: %w", err)
	}

	tdAddr, err := c.dma.Reserve(TDSize, TDAlign)
	if err != nil {
		c.dma.Free(dataAddr)
		return nil, fmt.Errorf("uhci: allocating transfer descriptor: %w", err)
	}

	td := NewTransferDescriptor(tdAddr)
	td.SetLink(LinkPointer{Kind: LinkNone})
	td.SetToken(spec.PID, spec.Address, spec.Endpoint, spec.DataToggle, uint32(len(spec.Buf)))
	td.SetDataPointer(dataAddr)
	td.SetErrorCounter(3)
	td.SetStatus(StatusActive)

	return &transferStorage{td: td, data: dataAddr}, nil
}

// chainTDs links each descriptor in work to the next, so the controller
// walks the whole chain in submission order once it starts servicing the
// first one.
func chainTDs(work []*transferStorage) {
	for i := 1; i < len(work); i++ {
		work[i-1].td.SetLink(LinkPointer{Kind: LinkTD, Addr: work[i].td.Addr()})
	}
}

// lastQueued returns the highest-id entry still tracked in the queue map,
// the UHCI driver's stand-in for a BTreeMap's last_entry: the tail of
// whatever work is still outstanding, or ok == false if nothing is queued.
func (c *Controller) lastQueued() (st *transferStorage, ok bool) {
	var bestID uint64
	for id, entry := range c.queue {
		if !ok || id > bestID {
			bestID = id
			st = entry
			ok = true
		}
	}
	return st, ok
}

// appendWork chains specs together, queues them under the controller's
// master queue head (after whatever work is still outstanding, or
// directly if the queue is idle), and returns a UsbFuture that resolves
// once every descriptor in the chain is no longer active, with the
// buffers returned in submission order. This is the core of the driver:
// every control, bulk, or interrupt transfer builds one chain and awaits
// one UsbFuture for it rather than awaiting each stage separately.
func (c *Controller) appendWork(specs []TDSpec) (*UsbFuture, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("uhci: appendWork called with no descriptors")
	}

	work := make([]*transferStorage, len(specs))
	for i, spec := range specs {
		st, err := c.buildTD(spec)
		if err != nil {
			return nil, err
		}
		work[i] = st
	}

	chainTDs(work)

	if last, ok := c.lastQueued(); ok && last.td.Active() {
		last.td.SetLink(LinkPointer{Kind: LinkTD, Addr: work[0].td.Addr()})
	} else {
		c.masterQH.SetElementLink(LinkPointer{Kind: LinkTD, Addr: work[0].td.Addr()})
	}

	ids := make([]uint64, len(work))
	for i, st := range work {
		st.id = c.nextID
		ids[i] = st.id
		c.queue[st.id] = st
		c.nextID++
	}

	return &UsbFuture{c: c, ids: ids}, nil
}

// UsbFuture resolves once every transfer descriptor in its chain is no
// longer marked Active by the controller, re-registering itself on the
// wakeup list roughly every 100ms until then — short transfers complete
// far faster than that, but there is no completion interrupt wired into
// this driver, only polling.
type UsbFuture struct {
	c          *Controller
	ids        []uint64
	registered bool

	done     bool
	statuses []uint8
}

// Poll implements future.Future.
func (f *UsbFuture) Poll() ([][]byte, future.Status) {
	for _, id := range f.ids {
		st := f.c.queue[id]
		if st.td.Active() {
			if !f.registered {
				f.registered = true
				deadline := f.c.clock.Deadline(0.1)
				f.c.wakeup.Register(deadline, func() { f.registered = false })
			}
			return nil, future.Pending
		}
	}

	out := make([][]byte, len(f.ids))
	f.statuses = make([]uint8, len(f.ids))
	for i, id := range f.ids {
		st := f.c.queue[id]
		buf := make([]byte, st.td.MaxLen())
		f.c.dma.Read(st.data, 0, buf)
		out[i] = buf
		f.statuses[i] = st.td.Status()
		delete(f.c.queue, id)
	}
	f.done = true

	return out, future.Ready
}

// StatusAt returns the raw status byte of the descriptor at position i in
// the chain, useful for distinguishing a short packet or stall from a
// clean completion. It reads live hardware state before the future
// resolves and a cached value afterward, once the descriptor has been
// dropped from the controller's queue map.
func (f *UsbFuture) StatusAt(i int) uint8 {
	if f.done {
		return f.statuses[i]
	}
	return f.c.queue[f.ids[i]].td.Status()
}
