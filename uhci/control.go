// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uhci

import (
	"encoding/binary"

	"github.com/barebones-os/kernel/future"
)

// Standard USB descriptor types, for the wValue high byte of a GET
// DESCRIPTOR request.
const (
	DescriptorTypeDevice        = 1
	DescriptorTypeConfiguration = 2
)

// setupPacket builds the 8-byte SETUP stage payload for a control
// transfer.
func setupPacket(bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16) []byte {
	p := make([]byte, 8)
	p[0] = bmRequestType
	p[1] = bRequest
	binary.LittleEndian.PutUint16(p[2:4], wValue)
	binary.LittleEndian.PutUint16(p[4:6], wIndex)
	binary.LittleEndian.PutUint16(p[6:8], wLength)
	return p
}

// controlTransfer chains a SETUP stage, an optional DATA stage, and a
// STATUS stage into one work unit for appendWork, the same shape the
// original driver's get_descriptor/set_address build by hand: a SETUP TD,
// an IN or OUT data TD when wLength is nonzero, and an ACK TD carrying
// the opposite PID with the data toggle forced to one.
func (c *Controller) controlTransfer(address uint8, bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16) (*UsbFuture, error) {
	dataIn := bmRequestType&0x80 != 0

	specs := []TDSpec{
		{Address: address, PID: PIDSetup, Buf: setupPacket(bmRequestType, bRequest, wValue, wIndex, wLength)},
	}

	if wLength > 0 {
		dataPID := uint8(PIDOut)
		buf := []byte(nil)
		if dataIn {
			dataPID = PIDIn
			buf = make([]byte, wLength)
		}
		specs = append(specs, TDSpec{Address: address, PID: dataPID, Buf: buf})
	}

	statusPID := uint8(PIDIn)
	if dataIn {
		statusPID = PIDOut
	}
	specs = append(specs, TDSpec{Address: address, PID: statusPID, DataToggle: true})

	return c.appendWork(specs)
}

// controlResultFuture extracts the data-stage result (if any) from a
// controlTransfer's chained UsbFuture once it resolves.
type controlResultFuture struct {
	inner   future.Future[[][]byte]
	dataIdx int // -1 when there is no data stage
}

// Poll implements future.Future.
func (f *controlResultFuture) Poll() ([]byte, future.Status) {
	v, st := f.inner.Poll()
	if st != future.Ready {
		return nil, future.Pending
	}
	if f.dataIdx < 0 {
		return nil, future.Ready
	}
	return v[f.dataIdx], future.Ready
}

func (c *Controller) controlRequest(address uint8, bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16) (future.Future[[]byte], error) {
	inner, err := c.controlTransfer(address, bmRequestType, bRequest, wValue, wIndex, wLength)
	if err != nil {
		return nil, err
	}
	dataIdx := -1
	if wLength > 0 {
		dataIdx = 1
	}
	return &controlResultFuture{inner: inner, dataIdx: dataIdx}, nil
}

// GetDescriptor issues a standard GET DESCRIPTOR control request.
func (c *Controller) GetDescriptor(address uint8, descType uint8, index uint8, length uint16) (future.Future[[]byte], error) {
	return c.controlRequest(address, 0x80, 6, uint16(descType)<<8|uint16(index), 0, length)
}

// SetAddress issues a standard SET ADDRESS control request.
func (c *Controller) SetAddress(currentAddress uint8, newAddress uint8) (future.Future[[]byte], error) {
	return c.controlRequest(currentAddress, 0x00, 5, uint16(newAddress), 0, 0)
}

// SetConfiguration issues a standard SET CONFIGURATION control request.
func (c *Controller) SetConfiguration(address uint8, configValue uint8) (future.Future[[]byte], error) {
	return c.controlRequest(address, 0x00, 9, uint16(configValue), 0, 0)
}

// GetConfiguration issues a standard GET CONFIGURATION control request.
func (c *Controller) GetConfiguration(address uint8) (future.Future[[]byte], error) {
	return c.controlRequest(address, 0x80, 8, 0, 0, 1)
}

// EnumerateConfigurationsFuture walks every configuration descriptor a
// device reports, by its bNumConfigurations field (byte 17 of the device
// descriptor), returning one raw descriptor blob per configuration index.
type EnumerateConfigurationsFuture struct {
	c         *Controller
	address   uint8
	total     uint8
	index     uint8
	results   [][]byte
	pending   future.Future[[]byte]
	err       error
	awaitingN bool
}

// EnumerateConfigurations starts the enumeration walk for address, first
// reading the device descriptor to learn how many configurations exist.
func (c *Controller) EnumerateConfigurations(address uint8) *EnumerateConfigurationsFuture {
	e := &EnumerateConfigurationsFuture{c: c, address: address, awaitingN: true}
	e.pending, e.err = c.GetDescriptor(address, DescriptorTypeDevice, 0, 18)
	return e
}

// Poll drives the enumeration walk, returning the full set of
// configuration descriptor blobs once every one has been read.
func (e *EnumerateConfigurationsFuture) Poll() ([][]byte, future.Status) {
	if e.err != nil {
		return nil, future.Ready
	}

	for {
		v, st := e.pending.Poll()
		if st != future.Ready {
			return nil, future.Pending
		}

		if e.awaitingN {
			e.awaitingN = false

			if len(v) < 18 {
				return nil, future.Ready
			}
			e.total = v[17]

			if e.index >= e.total {
				return e.results, future.Ready
			}

			e.pending, e.err = e.c.GetDescriptor(e.address, DescriptorTypeConfiguration, e.index, 9)
			if e.err != nil {
				return nil, future.Ready
			}
			continue
		}

		e.results = append(e.results, v)
		e.index++

		if e.index >= e.total {
			return e.results, future.Ready
		}

		e.pending, e.err = e.c.GetDescriptor(e.address, DescriptorTypeConfiguration, e.index, 9)
		if e.err != nil {
			return nil, future.Ready
		}
	}
}

// Err returns any error encountered while issuing the enumeration walk's
// descriptor requests.
func (e *EnumerateConfigurationsFuture) Err() error { return e.err }
