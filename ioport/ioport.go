// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ioport allocates non-overlapping x86 I/O port ranges to device
// drivers (the UHCI controller's BAR4-mapped register window, in
// particular) and bounds every access to the range a driver was actually
// granted.
package ioport

import (
	"fmt"

	"github.com/barebones-os/kernel/internal/reg"
)

// PortIO is the register-access surface a device driver needs from its
// assigned I/O port window. *Range implements it against real hardware;
// tests substitute a fake to exercise driver logic without real ports.
type PortIO interface {
	Read8(off uint16) (uint8, error)
	Write8(off uint16, val uint8) error
	Read16(off uint16) (uint16, error)
	Write16(off uint16, val uint16) error
	Read32(off uint16) (uint32, error)
	Write32(off uint16, val uint32) error
}

// Range is a contiguous, exclusively-owned span of I/O port space.
type Range struct {
	base uint16
	size uint16
}

// PortConflict reports an attempt to reserve a range overlapping one
// already allocated.
type PortConflict struct {
	Base, Size uint16
}

func (e *PortConflict) Error() string {
	return fmt.Sprintf("ioport: range [%#x, %#x) already allocated", e.Base, e.Base+e.Size)
}

// OutOfRange reports an access beyond the bounds of a Range.
type OutOfRange struct {
	Offset uint16
	Size   uint16
}

func (e *OutOfRange) Error() string {
	return fmt.Sprintf("ioport: offset %#x out of range (size %#x)", e.Offset, e.Size)
}

// Allocator tracks the I/O port ranges handed out to drivers so two
// drivers can never be granted overlapping windows.
type Allocator struct {
	ranges []Range
}

// NewAllocator returns an empty Allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Reserve grants exclusive use of [base, base+size) as a Range, failing if
// it overlaps a previously reserved range.
func (a *Allocator) Reserve(base, size uint16) (*Range, error) {
	for _, r := range a.ranges {
		if base < r.base+r.size && r.base < base+size {
			return nil, &PortConflict{Base: base, Size: size}
		}
	}

	r := Range{base: base, size: size}
	a.ranges = append(a.ranges, r)
	return &r, nil
}

func (r *Range) check(off uint16, width uint16) error {
	if uint32(off)+uint32(width) > uint32(r.size) {
		return &OutOfRange{Offset: off, Size: r.size}
	}
	return nil
}

// Read8 reads an 8-bit value at offset off within the range.
func (r *Range) Read8(off uint16) (uint8, error) {
	if err := r.check(off, 1); err != nil {
		return 0, err
	}
	return reg.In8(r.base + off), nil
}

// Write8 writes an 8-bit value at offset off within the range.
func (r *Range) Write8(off uint16, val uint8) error {
	if err := r.check(off, 1); err != nil {
		return err
	}
	reg.Out8(r.base+off, val)
	return nil
}

// Read16 reads a 16-bit value at offset off within the range.
func (r *Range) Read16(off uint16) (uint16, error) {
	if err := r.check(off, 2); err != nil {
		return 0, err
	}
	return reg.In16(r.base + off), nil
}

// Write16 writes a 16-bit value at offset off within the range.
func (r *Range) Write16(off uint16, val uint16) error {
	if err := r.check(off, 2); err != nil {
		return err
	}
	reg.Out16(r.base+off, val)
	return nil
}

// Read32 reads a 32-bit value at offset off within the range.
func (r *Range) Read32(off uint16) (uint32, error) {
	if err := r.check(off, 4); err != nil {
		return 0, err
	}
	return reg.In32(r.base + off), nil
}

// Write32 writes a 32-bit value at offset off within the range.
func (r *Range) Write32(off uint16, val uint32) error {
	if err := r.check(off, 4); err != nil {
		return err
	}
	reg.Out32(r.base+off, val)
	return nil
}

// Base returns the range's starting port.
func (r *Range) Base() uint16 { return r.base }

// Size returns the range's width in ports.
func (r *Range) Size() uint16 { return r.size }
