// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pcibus implements PCI configuration-space access through the
// legacy CONFIG_ADDRESS/CONFIG_DATA I/O ports, used to locate the UHCI
// controller and read its BAR4 I/O-space base address.
package pcibus

import (
	"github.com/barebones-os/kernel/bits"
	"github.com/barebones-os/kernel/internal/reg"
)

const (
	configAddress = 0xCF8
	configData    = 0xCFC
)

// Device identifies one PCI function by its location on the bus.
type Device struct {
	Bus    uint8
	Slot   uint8
	Func   uint8
	Vendor uint16
	Device uint16
}

func address(bus, slot, fn uint8, off uint8) uint32 {
	return uint32(1)<<31 |
		uint32(bus)<<16 |
		uint32(slot)<<11 |
		uint32(fn)<<8 |
		uint32(off&0xFC)
}

// Read returns the 32-bit configuration-space value at byte offset off.
func (d *Device) Read(off uint8) uint32 {
	reg.Out32(configAddress, address(d.Bus, d.Slot, d.Func, off))
	return reg.In32(configData)
}

// Write stores val at configuration-space byte offset off.
func (d *Device) Write(off uint8, val uint32) {
	reg.Out32(configAddress, address(d.Bus, d.Slot, d.Func, off))
	reg.Out32(configData, val)
}

// baseAddressOffset is the configuration-space offset of BAR n (0-5).
func baseAddressOffset(n int) uint8 {
	return uint8(0x10 + n*4)
}

// BaseAddress decodes BAR n, returning the I/O port base if it is an
// I/O-space BAR (bit 0 set), or the memory address with its low flag bits
// masked off otherwise.
func (d *Device) BaseAddress(n int) (addr uint32, isIO bool) {
	bar := d.Read(baseAddressOffset(n))

	isIO = bits.GetBool(&bar, 0)
	if isIO {
		return bar &^ 0x3, true
	}

	return bar &^ 0xF, false
}

func probe(bus, slot, fn uint8) *Device {
	d := &Device{Bus: bus, Slot: slot, Func: fn}

	id := d.Read(0)
	vendor := uint16(id & 0xFFFF)
	if vendor == 0xFFFF {
		return nil
	}

	d.Vendor = vendor
	d.Device = uint16(id >> 16)

	return d
}

// Probe searches bus for a single function matching vendor/device.
func Probe(bus uint8, vendor, device uint16) *Device {
	for _, d := range Devices(bus) {
		if d.Vendor == vendor && d.Device == device {
			return d
		}
	}
	return nil
}

// Devices enumerates every present function on bus across all 32 slots and
// their 8 functions.
func Devices(bus uint8) []*Device {
	var found []*Device

	for slot := uint8(0); slot < 32; slot++ {
		for fn := uint8(0); fn < 8; fn++ {
			d := probe(bus, slot, fn)
			if d == nil {
				if fn == 0 {
					break
				}
				continue
			}
			found = append(found, d)
		}
	}

	return found
}
