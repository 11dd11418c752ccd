// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uhci

import (
	"testing"
	"unsafe"

	"github.com/barebones-os/kernel/internal/reg"
)

// tdBacking gives the TD tests a 16-byte-aligned, address-stable block of
// memory to decode against, standing in for the DMA region a real
// TransferDescriptorStorage would come from. On the amd64 freestanding
// target this address always fits in 32 bits, since DMA buffers live below
// the 4GiB physical boundary UHCI itself can address.
var tdBacking [64]byte

func tdTestAddr() uint32 {
	base := uintptr(unsafe.Pointer(&tdBacking[0]))
	aligned := (base + TDAlign - 1) &^ (TDAlign - 1)
	return uint32(aligned)
}

func TestTDGoldenDecode(t *testing.T) {
	addr := tdTestAddr()

	reg.Write(addr+0, 0xdeadbeef&^0xF)
	reg.Write(addr+4, (1<<26)|(3<<27)|(0x80<<16))
	reg.Write(addr+8, (7<<21)|((0x23&0x7F)<<8)|0x2D)
	reg.Write(addr+12, 4096)

	td := NewTransferDescriptor(addr)

	if td.MaxLen() != 8 {
		t.Errorf("MaxLen = %d, want 8", td.MaxLen())
	}
	if td.DataToggle() {
		t.Error("DataToggle = true, want false")
	}
	if td.ShortPacketDetect() {
		t.Error("ShortPacketDetect = true, want false")
	}
	if td.ErrorCounter() != 3 {
		t.Errorf("ErrorCounter = %d, want 3", td.ErrorCounter())
	}
	if !td.LowSpeed() {
		t.Error("LowSpeed = false, want true")
	}
	if td.Status() != 0x80 {
		t.Errorf("Status = %#x, want 0x80", td.Status())
	}
	if td.ActualLength() != 0 {
		t.Errorf("ActualLength = %d, want 0", td.ActualLength())
	}
	if td.Endpoint() != 0 {
		t.Errorf("Endpoint = %d, want 0", td.Endpoint())
	}
	if td.Address() != 0x23 {
		t.Errorf("Address = %#x, want 0x23", td.Address())
	}
	if td.PID() != 0x2D {
		t.Errorf("PID = %#x, want 0x2d", td.PID())
	}
	if td.DataPointer() != 4096 {
		t.Errorf("DataPointer = %d, want 4096", td.DataPointer())
	}

	link := td.Link()
	if link.Kind != LinkTD || link.Addr != 0xdeadbee0 {
		t.Errorf("Link = %+v, want TD 0xdeadbee0", link)
	}
}

func TestTDMaxLenRoundTrip(t *testing.T) {
	addr := tdTestAddr()
	td := NewTransferDescriptor(addr)

	cases := []uint32{1280, 0, 1, 300}

	for _, want := range cases {
		td.SetToken(PIDIn, 0x10, 2, false, want)
		got := td.MaxLen()
		if got != want {
			t.Errorf("MaxLen round trip for %d: got %d", want, got)
		}
	}
}

func TestTDTokenFieldRoundTrip(t *testing.T) {
	addr := tdTestAddr()
	td := NewTransferDescriptor(addr)

	td.SetToken(PIDSetup, 0x23, 5, true, 64)

	if td.PID() != PIDSetup {
		t.Errorf("PID = %#x, want %#x", td.PID(), PIDSetup)
	}
	if td.Address() != 0x23 {
		t.Errorf("Address = %#x, want 0x23", td.Address())
	}
	if td.Endpoint() != 5 {
		t.Errorf("Endpoint = %d, want 5", td.Endpoint())
	}
	if !td.DataToggle() {
		t.Error("DataToggle = false, want true")
	}
	if td.MaxLen() != 64 {
		t.Errorf("MaxLen = %d, want 64", td.MaxLen())
	}
}

func TestTDStatusAndFlagsRoundTrip(t *testing.T) {
	addr := tdTestAddr()
	td := NewTransferDescriptor(addr)

	td.SetStatus(StatusActive)
	td.SetIOC(true)
	td.SetLowSpeed(true)
	td.SetErrorCounter(2)
	td.SetShortPacketDetect(true)
	td.SetIsochronous(false)

	if !td.Active() {
		t.Error("Active = false, want true")
	}
	if !td.IOC() {
		t.Error("IOC = false, want true")
	}
	if !td.LowSpeed() {
		t.Error("LowSpeed = false, want true")
	}
	if td.ErrorCounter() != 2 {
		t.Errorf("ErrorCounter = %d, want 2", td.ErrorCounter())
	}
	if !td.ShortPacketDetect() {
		t.Error("ShortPacketDetect = false, want true")
	}
	if td.Isochronous() {
		t.Error("Isochronous = true, want false")
	}

	td.SetStatus(0)
	if td.Active() {
		t.Error("Active = true after clearing status, want false")
	}
}

func TestTDLinkRoundTrip(t *testing.T) {
	addr := tdTestAddr()
	td := NewTransferDescriptor(addr)

	td.SetLink(LinkPointer{Kind: LinkQH, Addr: 0x1000})

	got := td.Link()
	if got.Kind != LinkQH || got.Addr != 0x1000 {
		t.Errorf("Link round trip = %+v, want QH 0x1000", got)
	}

	td.SetLink(LinkPointer{Kind: LinkNone})
	if td.Link().Kind != LinkNone {
		t.Error("Link round trip did not preserve terminate")
	}
}
