// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uhci

import "github.com/barebones-os/kernel/internal/reg"

// TD PID values (USB token packet identifiers), as placed in the token
// dword's low byte.
const (
	PIDSetup = 0x2D
	PIDIn    = 0x69
	PIDOut   = 0xE1
)

// MaxPacketLen is the largest buffer a single transfer descriptor can
// describe.
const MaxPacketLen = 1024

// TDSize is the footprint of one transfer descriptor in DMA memory: 4
// hardware dwords plus 4 reserved software dwords, padded to a 32-byte,
// 16-byte-aligned block.
const (
	TDSize  = 32
	TDAlign = 16
	QHAlign = 16
)

const (
	tdWordLink    = 0
	tdWordControl = 1
	tdWordToken   = 2
	tdWordBuffer  = 3
)

// Control/status dword (word 1) bit layout.
const (
	ctrlActLenPos   = 0
	ctrlActLenMask  = 0x7FF
	ctrlStatusPos   = 16
	ctrlStatusMask  = 0xFF
	ctrlIOCPos      = 24
	ctrlIsoPos      = 25
	ctrlLowSpeedPos = 26
	ctrlErrCntPos   = 27
	ctrlErrCntMask  = 0x3
	ctrlSPDPos      = 29
)

// Status byte bit positions within the status field (bits 16-23 of word 1).
const (
	StatusBitstuffError = 1 << 1
	StatusCRCTimeout    = 1 << 2
	StatusNAK           = 1 << 3
	StatusBabble        = 1 << 4
	StatusDataBufferErr = 1 << 5
	StatusStalled       = 1 << 6
	StatusActive        = 1 << 7
)

// Token dword (word 2) bit layout.
const (
	tokenPIDPos     = 0
	tokenPIDMask    = 0xFF
	tokenAddrPos    = 8
	tokenAddrMask   = 0x7F
	tokenEndpPos    = 15
	tokenEndpMask   = 0xF
	tokenTogglePos  = 19
	tokenMaxLenPos  = 21
	tokenMaxLenMask = 0x7FF
)

// TransferDescriptor is a view over a 32-byte DMA-resident transfer
// descriptor. Every accessor performs a volatile load or read-modify-write
// against the backing memory, since the controller can update the status
// and actual-length fields at any time.
type TransferDescriptor struct {
	addr uint32
}

// NewTransferDescriptor wraps the TD stored at addr.
func NewTransferDescriptor(addr uint32) *TransferDescriptor {
	return &TransferDescriptor{addr: addr}
}

// Addr returns the descriptor's own physical address.
func (t *TransferDescriptor) Addr() uint32 { return t.addr }

func (t *TransferDescriptor) wordAddr(word int) uint32 {
	return t.addr + uint32(word*4)
}

func getField(word uint32, pos int, mask int) uint32 {
	return (word >> pos) & uint32(mask)
}

func setField(word uint32, pos int, mask int, val uint32) uint32 {
	word &^= uint32(mask) << pos
	word |= (val & uint32(mask)) << pos
	return word
}

// Link returns the descriptor's link pointer to the next TD or QH.
func (t *TransferDescriptor) Link() LinkPointer {
	return ReadLinkPointer(t.wordAddr(tdWordLink))
}

// SetLink sets the descriptor's link pointer.
func (t *TransferDescriptor) SetLink(lp LinkPointer) {
	WriteLinkPointer(t.wordAddr(tdWordLink), lp)
}

// ActualLength returns the number of bytes the controller actually
// transferred.
func (t *TransferDescriptor) ActualLength() uint32 {
	return getField(reg.Read(t.wordAddr(tdWordControl)), ctrlActLenPos, ctrlActLenMask)
}

// Status returns the raw status byte (bits 16-23 of the control dword).
func (t *TransferDescriptor) Status() uint8 {
	return uint8(getField(reg.Read(t.wordAddr(tdWordControl)), ctrlStatusPos, ctrlStatusMask))
}

// Active reports whether the controller still owns this descriptor.
func (t *TransferDescriptor) Active() bool {
	return t.Status()&StatusActive != 0
}

// SetStatus writes the raw status byte, normally 0x80 (Active) when
// submitting a descriptor to the controller.
func (t *TransferDescriptor) SetStatus(status uint8) {
	addr := t.wordAddr(tdWordControl)
	reg.ReadModifyWrite(addr, func(w uint32) uint32 {
		return setField(w, ctrlStatusPos, ctrlStatusMask, uint32(status))
	})
}

// IOC reports the Interrupt On Complete flag.
func (t *TransferDescriptor) IOC() bool {
	return getField(reg.Read(t.wordAddr(tdWordControl)), ctrlIOCPos, 1) != 0
}

// SetIOC sets or clears the Interrupt On Complete flag.
func (t *TransferDescriptor) SetIOC(v bool) {
	t.setControlBit(ctrlIOCPos, v)
}

// LowSpeed reports the Low Speed Device flag.
func (t *TransferDescriptor) LowSpeed() bool {
	return getField(reg.Read(t.wordAddr(tdWordControl)), ctrlLowSpeedPos, 1) != 0
}

// SetLowSpeed sets or clears the Low Speed Device flag.
func (t *TransferDescriptor) SetLowSpeed(v bool) {
	t.setControlBit(ctrlLowSpeedPos, v)
}

// ErrorCounter returns the 2-bit error counter field.
func (t *TransferDescriptor) ErrorCounter() uint32 {
	return getField(reg.Read(t.wordAddr(tdWordControl)), ctrlErrCntPos, ctrlErrCntMask)
}

// SetErrorCounter writes the 2-bit error counter field.
func (t *TransferDescriptor) SetErrorCounter(v uint32) {
	addr := t.wordAddr(tdWordControl)
	reg.ReadModifyWrite(addr, func(w uint32) uint32 {
		return setField(w, ctrlErrCntPos, ctrlErrCntMask, v)
	})
}

// ShortPacketDetect reports the Short Packet Detect flag.
func (t *TransferDescriptor) ShortPacketDetect() bool {
	return getField(reg.Read(t.wordAddr(tdWordControl)), ctrlSPDPos, 1) != 0
}

// SetShortPacketDetect sets or clears the Short Packet Detect flag.
func (t *TransferDescriptor) SetShortPacketDetect(v bool) {
	t.setControlBit(ctrlSPDPos, v)
}

// Isochronous reports the Isochronous Select flag.
func (t *TransferDescriptor) Isochronous() bool {
	return getField(reg.Read(t.wordAddr(tdWordControl)), ctrlIsoPos, 1) != 0
}

// SetIsochronous sets or clears the Isochronous Select flag.
func (t *TransferDescriptor) SetIsochronous(v bool) {
	t.setControlBit(ctrlIsoPos, v)
}

func (t *TransferDescriptor) setControlBit(pos int, v bool) {
	addr := t.wordAddr(tdWordControl)
	reg.ReadModifyWrite(addr, func(w uint32) uint32 {
		if v {
			return w | (1 << pos)
		}
		return w &^ (1 << pos)
	})
}

// PID returns the token packet identifier (Setup/In/Out).
func (t *TransferDescriptor) PID() uint8 {
	return uint8(getField(reg.Read(t.wordAddr(tdWordToken)), tokenPIDPos, tokenPIDMask))
}

// Address returns the target device's USB address.
func (t *TransferDescriptor) Address() uint8 {
	return uint8(getField(reg.Read(t.wordAddr(tdWordToken)), tokenAddrPos, tokenAddrMask))
}

// Endpoint returns the target endpoint number.
func (t *TransferDescriptor) Endpoint() uint8 {
	return uint8(getField(reg.Read(t.wordAddr(tdWordToken)), tokenEndpPos, tokenEndpMask))
}

// DataToggle reports the data toggle bit (DATA0/DATA1).
func (t *TransferDescriptor) DataToggle() bool {
	return getField(reg.Read(t.wordAddr(tdWordToken)), tokenTogglePos, 1) != 0
}

// MaxLen returns the decoded maximum transfer length. The field is stored
// as (length-1) mod 2048, so a stored value of 0x7FF decodes to 0.
func (t *TransferDescriptor) MaxLen() uint32 {
	raw := getField(reg.Read(t.wordAddr(tdWordToken)), tokenMaxLenPos, tokenMaxLenMask)
	return (raw + 1) & tokenMaxLenMask
}

// SetToken writes the full token dword from its component fields in one
// pass. maxLen is the actual intended length in bytes.
func (t *TransferDescriptor) SetToken(pid uint8, address uint8, endpoint uint8, toggle bool, maxLen uint32) {
	raw := uint32(0)
	raw = setField(raw, tokenPIDPos, tokenPIDMask, uint32(pid))
	raw = setField(raw, tokenAddrPos, tokenAddrMask, uint32(address))
	raw = setField(raw, tokenEndpPos, tokenEndpMask, uint32(endpoint))
	if toggle {
		raw |= 1 << tokenTogglePos
	}
	maxLenRaw := (maxLen - 1) & tokenMaxLenMask
	raw = setField(raw, tokenMaxLenPos, tokenMaxLenMask, maxLenRaw)

	reg.Write(t.wordAddr(tdWordToken), raw)
}

// DataPointer returns the physical address of this descriptor's data
// buffer.
func (t *TransferDescriptor) DataPointer() uint32 {
	return reg.Read(t.wordAddr(tdWordBuffer))
}

// SetDataPointer sets the physical address of this descriptor's data
// buffer.
func (t *TransferDescriptor) SetDataPointer(addr uint32) {
	reg.Write(t.wordAddr(tdWordBuffer), addr)
}
