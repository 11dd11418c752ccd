// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uhci

import (
	"testing"
	"unsafe"

	"github.com/barebones-os/kernel/dma"
	"github.com/barebones-os/kernel/future"
	"github.com/barebones-os/kernel/tick"
)

// controllerBacking gives the controller tests a real, address-stable
// chunk of memory to back a dma.Region, standing in for the physically
// contiguous DMA window a board bring-up routine would otherwise reserve.
var controllerBacking [3 * FrameListLen * 4]byte

func newTestRegion(t *testing.T) *dma.Region {
	t.Helper()
	base := uintptr(unsafe.Pointer(&controllerBacking[0]))
	aligned := (base + FrameListAlign - 1) &^ (FrameListAlign - 1)
	return dma.NewRegion(uint32(aligned), uint32(len(controllerBacking))-uint32(FrameListAlign))
}

func runToReady[T any](clock *tick.Source, wakeups *tick.WakeupList, f future.Future[T]) T {
	for {
		if v, st := f.Poll(); st == future.Ready {
			return v
		}
		clock.Advance(1)
		wakeups.OnTick(clock.Now())
	}
}

func TestNewControllerBuildsFrameListPointingAtMasterQH(t *testing.T) {
	io := newMockPortIO()
	region := newTestRegion(t)
	clock := tick.NewSource(1000)
	wakeups := tick.NewWakeupList()

	c, err := New(io, region, clock, wakeups)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	entry := make([]byte, 4)
	region.Read(c.FrameListAddr(), 0, entry)
	word := uint32(entry[0]) | uint32(entry[1])<<8 | uint32(entry[2])<<16 | uint32(entry[3])<<24

	lp := DecodeLinkPointer(word)
	if lp.Kind != LinkQH || lp.Addr != c.masterQH.Addr() {
		t.Fatalf("frame list entry 0 = %+v, want QH at %#x", lp, c.masterQH.Addr())
	}
}

func TestResetSequenceRunsToCompletion(t *testing.T) {
	io := newMockPortIO()
	region := newTestRegion(t)
	clock := tick.NewSource(1000)
	wakeups := tick.NewWakeupList()

	c, err := New(io, region, clock, wakeups)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var commands []uint16
	io.onWrite16 = func(off uint16, val uint16) {
		if off == regUSBCMD {
			commands = append(commands, val)
		}
	}

	runToReady(clock, wakeups, c.Reset())

	if len(commands) != 3 {
		t.Fatalf("USBCMD writes = %v, want 3 writes (global reset, clear, host reset)", commands)
	}
	if commands[0] != cmdGlobalReset {
		t.Errorf("first USBCMD write = %#x, want GRESET", commands[0])
	}
	if commands[1] != 0 {
		t.Errorf("second USBCMD write = %#x, want 0", commands[1])
	}
	if commands[2] != cmdHostReset {
		t.Errorf("third USBCMD write = %#x, want HCRESET", commands[2])
	}
}

func TestResetPortReportsConnectedDevice(t *testing.T) {
	io := newMockPortIO()
	region := newTestRegion(t)
	clock := tick.NewSource(1000)
	wakeups := tick.NewWakeupList()

	c, err := New(io, region, clock, wakeups)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Simulate a device sitting on port 0: the hardware reports connected
	// whenever software reads PORTSC, regardless of the reset dance.
	io.regs16[portOffset(0)] = portCurrentConnectStatus

	connected := runToReady(clock, wakeups, c.ResetPort(0))
	if !connected {
		t.Fatal("ResetPort(0) = false, want true for a connected device")
	}
}

func TestAppendWorkChainsUnderMasterQH(t *testing.T) {
	io := newMockPortIO()
	region := newTestRegion(t)
	clock := tick.NewSource(1000)
	wakeups := tick.NewWakeupList()

	c, err := New(io, region, clock, wakeups)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f1, err := c.appendWork([]TDSpec{{Address: 0x10, PID: PIDOut, Buf: []byte("hello")}})
	if err != nil {
		t.Fatalf("appendWork: %v", err)
	}
	td1 := c.queue[f1.ids[0]].td

	elem := c.masterQH.ElementLink()
	if elem.Kind != LinkTD || elem.Addr != td1.Addr() {
		t.Fatalf("master QH element link = %+v, want first TD", elem)
	}

	td1.SetStatus(0) // simulate hardware completion

	out, st := f1.Poll()
	if st != future.Ready {
		t.Fatal("UsbFuture not ready after clearing Active")
	}
	if len(out) != 1 || string(out[0]) != "hello" {
		t.Errorf("UsbFuture result = %q, want [\"hello\"]", out)
	}

	if _, ok := c.queue[f1.ids[0]]; ok {
		t.Error("completed descriptor should be removed from the queue map")
	}

	f2, err := c.appendWork([]TDSpec{{Address: 0x10, PID: PIDOut, Buf: []byte("world")}})
	if err != nil {
		t.Fatalf("appendWork: %v", err)
	}
	td2 := c.queue[f2.ids[0]].td

	// f1 already completed, so the new transfer replaces the master QH's
	// element link directly instead of being chained after it.
	elem2 := c.masterQH.ElementLink()
	if elem2.Kind != LinkTD || elem2.Addr != td2.Addr() {
		t.Fatalf("master QH element link = %+v, want second TD", elem2)
	}
	if td1.Link().Kind != LinkNone {
		t.Fatalf("completed first TD's own link should be unchanged: %+v", td1.Link())
	}
}

func TestAppendWorkChainsAfterStillActiveTD(t *testing.T) {
	io := newMockPortIO()
	region := newTestRegion(t)
	clock := tick.NewSource(1000)
	wakeups := tick.NewWakeupList()

	c, err := New(io, region, clock, wakeups)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f1, err := c.appendWork([]TDSpec{{Address: 0x10, PID: PIDOut, Buf: []byte("hello")}})
	if err != nil {
		t.Fatalf("appendWork: %v", err)
	}
	td1 := c.queue[f1.ids[0]].td

	// f1's descriptor is still Active (no completion simulated), so the
	// second transfer must be chained after it rather than replacing the
	// master QH's element link.
	f2, err := c.appendWork([]TDSpec{{Address: 0x10, PID: PIDOut, Buf: []byte("world")}})
	if err != nil {
		t.Fatalf("appendWork: %v", err)
	}
	td2 := c.queue[f2.ids[0]].td

	elem := c.masterQH.ElementLink()
	if elem.Kind != LinkTD || elem.Addr != td1.Addr() {
		t.Fatalf("master QH element link should still point at first TD: %+v", elem)
	}

	link := td1.Link()
	if link.Kind != LinkTD || link.Addr != td2.Addr() {
		t.Fatalf("first TD should link to second TD: %+v", link)
	}
}

// TestAppendWorkChainsMultipleTDsInSubmissionOrder covers a single work
// unit made of three chained transfer descriptors (the shape a control
// transfer's SETUP/DATA/STATUS stages or a report-descriptor read use):
// they must link forward in submission order, and the one UsbFuture
// covering the whole chain must wait for every descriptor to complete
// before returning their buffers back in that same order.
func TestAppendWorkChainsMultipleTDsInSubmissionOrder(t *testing.T) {
	io := newMockPortIO()
	region := newTestRegion(t)
	clock := tick.NewSource(1000)
	wakeups := tick.NewWakeupList()

	c, err := New(io, region, clock, wakeups)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f, err := c.appendWork([]TDSpec{
		{Address: 1, PID: PIDSetup, Buf: []byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x00, 0x12, 0x00}},
		{Address: 1, PID: PIDIn, Buf: make([]byte, 18)},
		{Address: 1, PID: PIDOut, DataToggle: true},
	})
	if err != nil {
		t.Fatalf("appendWork: %v", err)
	}
	if len(f.ids) != 3 {
		t.Fatalf("len(ids) = %d, want 3", len(f.ids))
	}

	tds := make([]*TransferDescriptor, 3)
	for i, id := range f.ids {
		tds[i] = c.queue[id].td
	}

	elem := c.masterQH.ElementLink()
	if elem.Kind != LinkTD || elem.Addr != tds[0].Addr() {
		t.Fatalf("master QH element link = %+v, want first TD in chain", elem)
	}
	if link := tds[0].Link(); link.Kind != LinkTD || link.Addr != tds[1].Addr() {
		t.Fatalf("TD0 -> TD1 link = %+v", link)
	}
	if link := tds[1].Link(); link.Kind != LinkTD || link.Addr != tds[2].Addr() {
		t.Fatalf("TD1 -> TD2 link = %+v", link)
	}

	if _, st := f.Poll(); st != future.Pending {
		t.Fatal("UsbFuture should still be pending before any descriptor completes")
	}

	// Complete the descriptors out of order to confirm Poll only resolves
	// once every one of them has stopped being Active, not just the first.
	tds[0].SetStatus(0)
	if _, st := f.Poll(); st != future.Pending {
		t.Fatal("UsbFuture should still be pending with TD1/TD2 still active")
	}
	tds[2].SetStatus(0)
	if _, st := f.Poll(); st != future.Pending {
		t.Fatal("UsbFuture should still be pending with TD1 still active")
	}

	deviceDescriptor := make([]byte, 18)
	deviceDescriptor[17] = 1 // bNumConfigurations, arbitrary nonzero marker
	c.dma.Write(c.queue[f.ids[1]].data, 0, deviceDescriptor)
	tds[1].SetStatus(0)

	out, st := f.Poll()
	if st != future.Ready {
		t.Fatal("UsbFuture should resolve once all three descriptors complete")
	}
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if len(out[1]) != 18 || out[1][17] != 1 {
		t.Errorf("out[1] = %v, want the 18-byte device descriptor in submission order", out[1])
	}

	for _, id := range f.ids {
		if _, ok := c.queue[id]; ok {
			t.Errorf("id %d should have been removed from the queue map on completion", id)
		}
	}
}
