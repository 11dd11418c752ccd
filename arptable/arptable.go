// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package arptable holds the kernel's learned IPv4-to-MAC mappings and
// gives callers a Future-based way to wait for one to appear, standing in
// for a condition variable in a world without OS threads to block.
package arptable

import (
	"github.com/barebones-os/kernel/future"
	"github.com/barebones-os/kernel/netframe"
)

// Table maps IPv4 addresses to Ethernet hardware addresses. All access
// happens from the kernel's single thread of control polling futures in
// turn, so no locking is needed between a lookup, a write, and a waiting
// future's poll.
type Table struct {
	entries map[netframe.IPAddr]netframe.MacAddr
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		entries: make(map[netframe.IPAddr]netframe.MacAddr),
	}
}

// WriteMac records the mapping learned from an ARP reply or gratuitous
// request. It is synchronous: the kernel's receive loop is the single
// writer and never contends with itself.
func (t *Table) WriteMac(ip netframe.IPAddr, mac netframe.MacAddr) {
	t.entries[ip] = mac
}

// Lookup returns the MAC for ip, if known.
func (t *Table) Lookup(ip netframe.IPAddr) (netframe.MacAddr, bool) {
	mac, ok := t.entries[ip]
	return mac, ok
}

// WaitFor returns a Future that becomes Ready with ip's MAC address once it
// appears in the table. Pair it with future.Select against a future.Sleep
// deadline to bound how long the caller waits.
func (t *Table) WaitFor(ip netframe.IPAddr) future.Future[netframe.MacAddr] {
	return &future.FuncFuture[netframe.MacAddr]{
		PollFunc: func() (netframe.MacAddr, future.Status) {
			if mac, ok := t.entries[ip]; ok {
				return mac, future.Ready
			}
			var zero netframe.MacAddr
			return zero, future.Pending
		},
	}
}
