// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package netframe

// Ipv4Protocol identifies the protocol carried in an IPv4 payload.
type Ipv4Protocol int

const (
	Ipv4ProtocolUDP Ipv4Protocol = iota
	Ipv4ProtocolUnknown
)

const ipv4ProtoUDP = 0x11

// Ipv4Frame is a view over an IPv4 packet.
type Ipv4Frame struct {
	packet []byte
}

// NewIpv4Frame validates packet as an IPv4 datagram: it must be non-empty
// and at least as long as its own declared header length (IHL * 4).
func NewIpv4Frame(packet []byte) (*Ipv4Frame, error) {
	if len(packet) == 0 {
		return nil, &InvalidIpv4Frame{Length: len(packet)}
	}

	f := &Ipv4Frame{packet: packet}
	if int(f.Length()) > len(packet) {
		return nil, &InvalidIpv4Frame{Length: len(packet)}
	}

	return f, nil
}

// IHL returns the header length field (low nibble of byte 0), in 32-bit
// words.
func (f *Ipv4Frame) IHL() uint8 {
	return f.packet[0] & 0x0F
}

// Length returns the IPv4 header length in bytes (IHL * 4).
func (f *Ipv4Frame) Length() uint8 {
	return f.IHL() * 4
}

// ProtocolRaw returns the raw protocol number carried in byte 9.
func (f *Ipv4Frame) ProtocolRaw() uint8 {
	return f.packet[9]
}

// Protocol classifies the protocol number.
func (f *Ipv4Frame) Protocol() Ipv4Protocol {
	if f.ProtocolRaw() == ipv4ProtoUDP {
		return Ipv4ProtocolUDP
	}
	return Ipv4ProtocolUnknown
}

// Payload returns the bytes following the IPv4 header.
func (f *Ipv4Frame) Payload() []byte {
	return f.packet[f.Length():]
}

// ParsedIpv4Frame carries the result of parsing an IPv4 payload by
// protocol.
type ParsedIpv4Frame struct {
	Udp     *UdpFrame
	Unknown uint8
}

// ParseIpv4 parses an IPv4 frame's payload according to its protocol
// field.
func ParseIpv4(f *Ipv4Frame) (*ParsedIpv4Frame, error) {
	switch f.Protocol() {
	case Ipv4ProtocolUDP:
		udp, err := NewUdpFrame(f.Payload())
		if err != nil {
			return nil, err
		}
		return &ParsedIpv4Frame{Udp: udp}, nil
	default:
		return &ParsedIpv4Frame{Unknown: f.ProtocolRaw()}, nil
	}
}
