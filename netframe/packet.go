// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package netframe

const (
	etherTypeARP  = 0x0806
	etherTypeIPv4 = 0x0800
)

// ParsedPacket is the result of dispatching an Ethernet payload by ether
// type.
type ParsedPacket struct {
	Arp     *ArpFrame
	Ipv4    *Ipv4Frame
	Unknown uint16
}

// ParsePacket dispatches an Ethernet frame's payload to the ARP or IPv4
// parser according to its ether type, leaving anything else as Unknown.
func ParsePacket(f *EthernetFrame) (*ParsedPacket, error) {
	switch f.EtherType() {
	case etherTypeARP:
		arp, err := NewArpFrame(f.Payload())
		if err != nil {
			return nil, err
		}
		return &ParsedPacket{Arp: arp}, nil
	case etherTypeIPv4:
		ip, err := NewIpv4Frame(f.Payload())
		if err != nil {
			return nil, err
		}
		return &ParsedPacket{Ipv4: ip}, nil
	default:
		return &ParsedPacket{Unknown: f.EtherType()}, nil
	}
}
