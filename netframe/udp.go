// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package netframe

import "encoding/binary"

const udpHeaderLength = 8

// UdpFrame is a view over a UDP datagram.
type UdpFrame struct {
	packet []byte
}

// NewUdpFrame validates packet as a UDP datagram: it must be at least 8
// bytes, and at least as long as its own declared length field.
func NewUdpFrame(packet []byte) (*UdpFrame, error) {
	if len(packet) < udpHeaderLength {
		return nil, &InvalidUdpFrame{Length: len(packet)}
	}

	f := &UdpFrame{packet: packet}
	if int(f.Length()) > len(packet) {
		return nil, &InvalidUdpFrame{Length: len(packet)}
	}

	return f, nil
}

func (f *UdpFrame) SourcePort() uint16 { return binary.BigEndian.Uint16(f.packet[0:2]) }
func (f *UdpFrame) DestPort() uint16   { return binary.BigEndian.Uint16(f.packet[2:4]) }

// Length returns the datagram length (header + data) declared in bytes
// 4-6.
func (f *UdpFrame) Length() uint16 {
	return binary.BigEndian.Uint16(f.packet[4:6])
}

func (f *UdpFrame) Checksum() uint16 { return binary.BigEndian.Uint16(f.packet[6:8]) }

// Data returns the datagram's payload, up to its declared length.
func (f *UdpFrame) Data() []byte {
	return f.packet[udpHeaderLength:f.Length()]
}

// GenerateUdpFrame serializes a UDP datagram. Checksum is left zero
// (optional for IPv4 UDP); callers that need a verified checksum must set
// it from a transport that covers the IPv4 pseudo-header.
func GenerateUdpFrame(srcPort, dstPort uint16, data []byte) []byte {
	packet := make([]byte, udpHeaderLength+len(data))

	binary.BigEndian.PutUint16(packet[0:2], srcPort)
	binary.BigEndian.PutUint16(packet[2:4], dstPort)
	binary.BigEndian.PutUint16(packet[4:6], uint16(udpHeaderLength+len(data)))
	binary.BigEndian.PutUint16(packet[6:8], 0)
	copy(packet[udpHeaderLength:], data)

	return packet
}
