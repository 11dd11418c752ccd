// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package nicchannel adapts the raw Ethernet frames produced and consumed
// by the UHCI driver's bulk endpoints to a gvisor tcpip link.Endpoint, so
// the rest of the kernel can hand the controller's frames to a netframe
// parser (or, eventually, a tcpip.Stack) through a single boundary.
package nicchannel

import (
	"github.com/barebones-os/kernel/netframe"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/buffer"
	"gvisor.dev/gvisor/pkg/tcpip/header"
	"gvisor.dev/gvisor/pkg/tcpip/link/channel"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
)

// Endpoint wraps a channel.Endpoint bound to a single Ethernet hardware
// address, bridging it to raw frame bytes coming from or going to the USB
// transfer buffers.
type Endpoint struct {
	mac  netframe.MacAddr
	link *channel.Endpoint
}

// New creates an Endpoint for mac with the given outbound queue depth and
// MTU, matching the qdisc depth the upstream driver exposes on its own
// transmit path.
func New(mac netframe.MacAddr, queueLen int, mtu uint32) *Endpoint {
	return &Endpoint{
		mac:  mac,
		link: channel.New(queueLen, mtu, tcpip.LinkAddress(mac[:])),
	}
}

// GetMac returns the hardware address this endpoint represents.
func (e *Endpoint) GetMac() netframe.MacAddr {
	return e.mac
}

// LinkEndpoint exposes the underlying stack.LinkEndpoint for attaching to a
// tcpip.Stack NIC.
func (e *Endpoint) LinkEndpoint() stack.LinkEndpoint {
	return e.link
}

// DeliverInbound hands a raw Ethernet frame received from the controller
// to the link, as the upstream driver's receive-completion handler does
// for its USB endpoint.
func (e *Endpoint) DeliverInbound(frame []byte) {
	pkt := stack.NewPacketBuffer(stack.PacketBufferOptions{
		Payload: buffer.MakeWithData(append([]byte(nil), frame...)),
	})
	defer pkt.DecRef()

	e.link.InjectInbound(header.EthernetProtocolAll, pkt)
}

// Outbound drains one queued outbound frame as raw Ethernet bytes, ready to
// hand to a UHCI bulk-out transfer, or reports none pending.
func (e *Endpoint) Outbound() ([]byte, bool) {
	pkt := e.link.Read()
	if pkt.IsNil() {
		return nil, false
	}
	defer pkt.DecRef()

	views := pkt.AsSlices()
	var out []byte
	for _, v := range views {
		out = append(out, v...)
	}

	return out, true
}
