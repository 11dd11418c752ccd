// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package netframe

import "encoding/binary"

// IPAddr is a 4-byte IPv4 address.
type IPAddr [4]byte

// ArpOperation distinguishes ARP requests from replies.
type ArpOperation uint16

const (
	ArpRequest ArpOperation = 1
	ArpReply   ArpOperation = 2
)

// ParseArpOperation converts a raw ARP opcode, rejecting anything other
// than request or reply.
func ParseArpOperation(v uint16) (ArpOperation, error) {
	switch ArpOperation(v) {
	case ArpRequest, ArpReply:
		return ArpOperation(v), nil
	default:
		return 0, &UnknownArpOperation{Operation: v}
	}
}

const arpFrameLength = 28

// ArpFrame is a view over a fixed-layout IPv4-over-Ethernet ARP message.
type ArpFrame struct {
	packet []byte
}

// NewArpFrame validates packet as a 28-byte ARP message.
func NewArpFrame(packet []byte) (*ArpFrame, error) {
	if len(packet) < arpFrameLength {
		return nil, &InvalidArpFrame{Length: len(packet)}
	}
	return &ArpFrame{packet: packet}, nil
}

func (f *ArpFrame) HType() uint16 { return binary.BigEndian.Uint16(f.packet[0:2]) }
func (f *ArpFrame) PType() uint16 { return binary.BigEndian.Uint16(f.packet[2:4]) }
func (f *ArpFrame) HardwareAddressLength() uint8 { return f.packet[4] }
func (f *ArpFrame) ProtocolAddressLength() uint8 { return f.packet[5] }

// Operation returns the parsed ARP opcode.
func (f *ArpFrame) Operation() (ArpOperation, error) {
	return ParseArpOperation(binary.BigEndian.Uint16(f.packet[6:8]))
}

func (f *ArpFrame) SenderHardwareAddress() MacAddr {
	var m MacAddr
	copy(m[:], f.packet[8:14])
	return m
}

func (f *ArpFrame) SenderProtocolAddress() IPAddr {
	var a IPAddr
	copy(a[:], f.packet[14:18])
	return a
}

func (f *ArpFrame) TargetHardwareAddress() MacAddr {
	var m MacAddr
	copy(m[:], f.packet[18:24])
	return m
}

func (f *ArpFrame) TargetProtocolAddress() IPAddr {
	var a IPAddr
	copy(a[:], f.packet[24:28])
	return a
}

// ArpFrameParams describes an ARP message to build.
type ArpFrameParams struct {
	Operation             ArpOperation
	SenderHardwareAddress MacAddr
	SenderProtocolAddress IPAddr
	TargetHardwareAddress MacAddr
	TargetProtocolAddress IPAddr
}

// GenerateArpFrame serializes params into a 28-byte IPv4-over-Ethernet ARP
// message (HTYPE=1 Ethernet, PTYPE=0x0800 IPv4, fixed address lengths 6/4).
func GenerateArpFrame(params ArpFrameParams) []byte {
	packet := make([]byte, arpFrameLength)

	binary.BigEndian.PutUint16(packet[0:2], 1)      // HTYPE: Ethernet
	binary.BigEndian.PutUint16(packet[2:4], 0x0800)  // PTYPE: IPv4
	packet[4] = 6                                    // hardware address length
	packet[5] = 4                                    // protocol address length
	binary.BigEndian.PutUint16(packet[6:8], uint16(params.Operation))

	copy(packet[8:14], params.SenderHardwareAddress[:])
	copy(packet[14:18], params.SenderProtocolAddress[:])
	copy(packet[18:24], params.TargetHardwareAddress[:])
	copy(packet[24:28], params.TargetProtocolAddress[:])

	return packet
}
