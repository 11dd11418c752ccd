// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package kernel wires the tick source, executor, ARP table, packet
// parsers, and NIC transport together into the packet-handling loop
// described by the design: receive a frame, classify it, answer ARP
// requests addressed to us, learn ARP replies, and dispatch IPv4/UDP
// payloads to whatever is listening.
package kernel

import (
	"log"

	"github.com/barebones-os/kernel/arptable"
	"github.com/barebones-os/kernel/future"
	"github.com/barebones-os/kernel/netframe"
	"github.com/barebones-os/kernel/nicchannel"
	"github.com/barebones-os/kernel/tick"
)

// StaticIP is the address this kernel answers to until a DHCP client (out
// of scope, see Non-goals) exists.
var StaticIP = netframe.IPAddr{192, 168, 2, 2}

// ExitCommand is the UDP payload that requests the kernel halt, matching
// the bring-up convenience the bare-metal demo used before a real shell
// existed.
const ExitCommand = "exit\n"

// Kernel holds the long-lived state the packet-handling loop needs across
// calls: the clock and wakeup list the executor pumps, the learned ARP
// table, and the transmit path frames generated here go out through.
type Kernel struct {
	Clock   *tick.Source
	Wakeups *tick.WakeupList
	Arp     *arptable.Table

	// Nic is the gvisor-backed boundary every inbound frame is also
	// delivered to, so a tcpip.Stack attached to it can serve protocols
	// (TCP, in particular) this driver does not parse itself.
	Nic *nicchannel.Endpoint

	// Send transmits a raw Ethernet frame onto the wire, normally bound to
	// a UHCI bulk-out transfer by whoever constructs the Kernel.
	Send func(frame []byte)

	mac netframe.MacAddr
}

// New returns a Kernel bound to nic, answering ARP as mac, transmitting
// generated frames through send.
func New(clock *tick.Source, wakeups *tick.WakeupList, nic *nicchannel.Endpoint, send func(frame []byte)) *Kernel {
	return &Kernel{
		Clock:   clock,
		Wakeups: wakeups,
		Arp:     arptable.New(),
		Nic:     nic,
		Send:    send,
		mac:     nic.GetMac(),
	}
}

// PumpEvents advances the clock by one tick and drains due wakeups; it is
// the callback a future.Executor running this kernel's main loop uses
// between polls.
func (k *Kernel) PumpEvents() {
	k.Clock.Advance(1)
	k.Wakeups.OnTick(k.Clock.Now())
}

// HandleArpFrame answers unsolicited ARP requests addressed to StaticIP
// and records replies (or gratuitous requests) into the ARP table.
func (k *Kernel) HandleArpFrame(f *netframe.ArpFrame) {
	op, err := f.Operation()
	if err != nil {
		log.Printf("kernel: dropping arp frame: %v", err)
		return
	}

	sender := f.SenderProtocolAddress()
	senderMAC := f.SenderHardwareAddress()
	k.Arp.WriteMac(sender, senderMAC)

	if op != netframe.ArpRequest {
		return
	}

	if f.TargetProtocolAddress() != StaticIP {
		return
	}

	reply := netframe.GenerateArpFrame(netframe.ArpFrameParams{
		Operation:             netframe.ArpReply,
		SenderHardwareAddress: k.mac,
		SenderProtocolAddress: StaticIP,
		TargetHardwareAddress: senderMAC,
		TargetProtocolAddress: sender,
	})

	frame := netframe.GenerateEthernetFrame(netframe.EthernetFrameParams{
		Destination: senderMAC,
		Source:      k.mac,
		EtherType:   0x0806,
		Payload:     reply,
	})

	if k.Send != nil {
		k.Send(frame)
	}
}

// HandlePacket classifies f's payload and handles ARP/IPv4 frames,
// reporting whether the caller should exit (an "exit\n" UDP payload was
// received, the bring-up shutdown convenience).
func (k *Kernel) HandlePacket(f *netframe.EthernetFrame) (shouldExit bool) {
	parsed, err := netframe.ParsePacket(f)
	if err != nil {
		log.Printf("kernel: dropping frame: %v", err)
		return false
	}

	switch {
	case parsed.Arp != nil:
		k.HandleArpFrame(parsed.Arp)

	case parsed.Ipv4 != nil:
		ip, err := netframe.ParseIpv4(parsed.Ipv4)
		if err != nil {
			log.Printf("kernel: dropping ipv4 frame: %v", err)
			return false
		}
		if ip.Udp != nil && string(ip.Udp.Data()) == ExitCommand {
			return true
		}

	default:
		log.Printf("kernel: unknown ether type %#x", parsed.Unknown)
	}

	return false
}

// HandleInbound processes one raw Ethernet frame just received from the
// wire: it is parsed and handled directly, and a copy is also delivered
// to the gvisor endpoint so a stack listening on it sees the same
// traffic.
func (k *Kernel) HandleInbound(raw []byte) (shouldExit bool) {
	k.Nic.DeliverInbound(raw)

	f, err := netframe.NewEthernetFrame(raw)
	if err != nil {
		log.Printf("kernel: dropping malformed frame: %v", err)
		return false
	}

	return k.HandlePacket(f)
}

// RecvLoop hands each frame in frames to HandleInbound until the slice is
// exhausted or one requests shutdown.
func (k *Kernel) RecvLoop(frames [][]byte) (shouldExit bool) {
	for _, raw := range frames {
		if k.HandleInbound(raw) {
			return true
		}
	}
	return false
}

// ResolveOrTimeout waits for ip to appear in the ARP table, bounded by a
// timeoutSeconds sleep, so a caller sending to an unreachable host does
// not wait forever.
func (k *Kernel) ResolveOrTimeout(ip netframe.IPAddr, timeoutSeconds float64) future.Future[*netframe.MacAddr] {
	resolve := k.Arp.WaitFor(ip)
	timeout := future.Sleep(k.Clock, k.Wakeups, timeoutSeconds)

	resolved := future.Map(resolve, func(mac netframe.MacAddr) *netframe.MacAddr { return &mac })
	timedOut := future.Map(timeout, func(struct{}) *netframe.MacAddr { return nil })

	return future.Select(resolved, timedOut)
}

// SendUDP builds and transmits a UDP/IPv4-in-Ethernet datagram to dstMAC,
// the low-level building block ResolveOrTimeout's caller uses once an
// address has resolved.
func (k *Kernel) SendUDP(dstMAC netframe.MacAddr, dstIP netframe.IPAddr, srcPort, dstPort uint16, data []byte) {
	udp := netframe.GenerateUdpFrame(srcPort, dstPort, data)

	ipHeader := make([]byte, 20)
	ipHeader[0] = 0x45
	ipHeader[9] = 0x11 // UDP
	ipv4 := append(ipHeader, udp...)

	frame := netframe.GenerateEthernetFrame(netframe.EthernetFrameParams{
		Destination: dstMAC,
		Source:      k.mac,
		EtherType:   0x0800,
		Payload:     ipv4,
	})

	if k.Send != nil {
		k.Send(frame)
	}
}
