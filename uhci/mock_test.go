// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uhci

import "github.com/barebones-os/kernel/ioport"

// mockPortIO is a software stand-in for a UHCI controller's I/O port
// window: register writes land in a plain map, and a scripted set of
// behaviors can react to them (e.g. flipping a TD's status to Complete
// once a port reset sequence is observed), enough to drive the driver's
// state machines without real hardware.
type mockPortIO struct {
	regs16 map[uint16]uint16
	regs32 map[uint16]uint32
	regs8  map[uint16]uint8

	onWrite16 func(off uint16, val uint16)
}

func newMockPortIO() *mockPortIO {
	return &mockPortIO{
		regs16: make(map[uint16]uint16),
		regs32: make(map[uint16]uint32),
		regs8:  make(map[uint16]uint8),
	}
}

func (m *mockPortIO) Read8(off uint16) (uint8, error)  { return m.regs8[off], nil }
func (m *mockPortIO) Write8(off uint16, v uint8) error { m.regs8[off] = v; return nil }

func (m *mockPortIO) Read16(off uint16) (uint16, error) { return m.regs16[off], nil }
func (m *mockPortIO) Write16(off uint16, v uint16) error {
	m.regs16[off] = v
	if m.onWrite16 != nil {
		m.onWrite16(off, v)
	}
	return nil
}

func (m *mockPortIO) Read32(off uint16) (uint32, error) { return m.regs32[off], nil }
func (m *mockPortIO) Write32(off uint16, v uint32) error { m.regs32[off] = v; return nil }

var _ ioport.PortIO = (*mockPortIO)(nil)
