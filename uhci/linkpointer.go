// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package uhci implements a driver for a UHCI (Universal Host Controller
// Interface) USB 1.1 controller: the frame list, queue heads, and transfer
// descriptors it shares with the hardware over DMA, and the cooperative
// future-based completion polling built on top of them.
package uhci

import "github.com/barebones-os/kernel/internal/reg"

// LinkKind distinguishes what a LinkPointer refers to.
type LinkKind int

const (
	// LinkNone marks a terminated link (bit 0 set): there is nothing to
	// follow.
	LinkNone LinkKind = iota
	LinkTD
	LinkQH
)

// LinkPointer is the decoded form of a 32-bit hardware link word: bit 0 is
// the Terminate flag, bit 1 selects between TD and QH, and bits 4-31 hold
// the target's physical address shifted right by 4 (every linked structure
// is at least 16-byte aligned).
type LinkPointer struct {
	Kind LinkKind
	Addr uint32
}

// Encode packs a LinkPointer into its hardware word representation.
func (lp LinkPointer) Encode() uint32 {
	if lp.Kind == LinkNone {
		return 1
	}

	word := lp.Addr &^ 0xF

	if lp.Kind == LinkQH {
		word |= 1 << 1
	}

	return word
}

// DecodeLinkPointer unpacks a hardware link word into a LinkPointer.
func DecodeLinkPointer(word uint32) LinkPointer {
	if word&1 != 0 {
		return LinkPointer{Kind: LinkNone}
	}

	lp := LinkPointer{Addr: word &^ 0xF}
	if word&(1<<1) != 0 {
		lp.Kind = LinkQH
	} else {
		lp.Kind = LinkTD
	}

	return lp
}

// WriteLinkPointer performs a volatile read-modify-write of the link word
// at addr, setting it to lp while preserving bits 2-3, the only bits of the
// word LinkPointer does not model.
func WriteLinkPointer(addr uint32, lp LinkPointer) {
	reg.ReadModifyWrite(addr, func(w uint32) uint32 {
		return (w & 0xC) | lp.Encode()
	})
}

// ReadLinkPointer performs a volatile read of the link word at addr,
// matching the hardware's own re-read-after-write discipline for fields it
// can mutate concurrently (status bytes in a TD, not link words
// themselves, but the same volatile discipline applies uniformly).
func ReadLinkPointer(addr uint32) LinkPointer {
	return DecodeLinkPointer(reg.Read(addr))
}
