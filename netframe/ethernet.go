// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package netframe

import "encoding/binary"

// MacAddr is a 6-byte Ethernet hardware address.
type MacAddr [6]byte

const (
	ethMinLength  = 64
	ethCRCSize    = 4
	ethDot1qTPID  = 0x8100
	ethDot1qBytes = 4
)

// EthernetFrame is a view over a byte slice holding an Ethernet II frame,
// with an optional 802.1Q tag between the source address and ether type.
type EthernetFrame struct {
	packet []byte
}

// NewEthernetFrame validates packet as an Ethernet frame and returns a view
// over it. packet is not copied.
func NewEthernetFrame(packet []byte) (*EthernetFrame, error) {
	if len(packet) < 14 {
		return nil, &InvalidEthernetFrame{Length: len(packet)}
	}

	f := &EthernetFrame{packet: packet}

	if f.HasDot1Q() && len(packet) < 18 {
		return nil, &InvalidEthernetFrame{Length: len(packet)}
	}

	if len(packet)-ethCRCSize <= f.payloadOffsetUnchecked() {
		return nil, &InvalidEthernetFrame{Length: len(packet)}
	}

	return f, nil
}

// HasDot1Q reports whether bytes 12-13 carry the 802.1Q tag protocol
// identifier (0x8100).
func (f *EthernetFrame) HasDot1Q() bool {
	return binary.BigEndian.Uint16(f.packet[12:14]) == ethDot1qTPID
}

// DestinationMAC returns the frame's destination hardware address.
func (f *EthernetFrame) DestinationMAC() MacAddr {
	var m MacAddr
	copy(m[:], f.packet[0:6])
	return m
}

// SourceMAC returns the frame's source hardware address.
func (f *EthernetFrame) SourceMAC() MacAddr {
	var m MacAddr
	copy(m[:], f.packet[6:12])
	return m
}

// Tag returns the 802.1Q tag control information, if present.
func (f *EthernetFrame) Tag() (uint16, bool) {
	if !f.HasDot1Q() {
		return 0, false
	}
	return binary.BigEndian.Uint16(f.packet[14:16]), true
}

func (f *EthernetFrame) etherTypeOffset() int {
	if f.HasDot1Q() {
		return 16
	}
	return 12
}

// EtherType returns the frame's payload protocol identifier.
func (f *EthernetFrame) EtherType() uint16 {
	off := f.etherTypeOffset()
	return binary.BigEndian.Uint16(f.packet[off : off+2])
}

func (f *EthernetFrame) payloadOffsetUnchecked() int {
	return f.etherTypeOffset() + 2
}

// PayloadOffset returns the byte offset where the payload begins.
func (f *EthernetFrame) PayloadOffset() int {
	return f.payloadOffsetUnchecked()
}

// Payload returns the frame's payload, excluding the trailing CRC.
func (f *EthernetFrame) Payload() []byte {
	off := f.PayloadOffset()
	return f.packet[off : len(f.packet)-ethCRCSize]
}

// CRC returns the frame check sequence carried in the last 4 bytes.
func (f *EthernetFrame) CRC() uint32 {
	n := len(f.packet)
	return binary.BigEndian.Uint32(f.packet[n-ethCRCSize : n])
}

// EthernetFrameParams describes an Ethernet frame to build.
type EthernetFrameParams struct {
	Destination MacAddr
	Source      MacAddr
	Tag         *uint16
	EtherType   uint16
	Payload     []byte
}

// GenerateEthernetFrame serializes params into a complete frame, padding
// the payload up to the 64-byte minimum frame length (less the 4-byte CRC,
// i.e. 60 bytes before the CRC is appended) and computing the trailing FCS.
func GenerateEthernetFrame(params EthernetFrameParams) []byte {
	var header []byte
	header = append(header, params.Destination[:]...)
	header = append(header, params.Source[:]...)

	if params.Tag != nil {
		tagBuf := make([]byte, 2)
		binary.BigEndian.PutUint16(tagBuf, ethDot1qTPID)
		header = append(header, tagBuf...)

		ctrlBuf := make([]byte, 2)
		binary.BigEndian.PutUint16(ctrlBuf, *params.Tag)
		header = append(header, ctrlBuf...)
	}

	etBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(etBuf, params.EtherType)
	header = append(header, etBuf...)

	body := append(header, params.Payload...)

	for len(body) < ethMinLength-ethCRCSize {
		body = append(body, 0)
	}

	crc := EthernetCRC32(body)
	crcBuf := make([]byte, ethCRCSize)
	binary.BigEndian.PutUint32(crcBuf, crc)

	return append(body, crcBuf...)
}
