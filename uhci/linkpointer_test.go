// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uhci

import "testing"

func TestLinkPointerRoundTripTD(t *testing.T) {
	lp := LinkPointer{Kind: LinkTD, Addr: 0xDEADBE00}
	word := lp.Encode()

	if word != 0xDEADBE00 {
		t.Fatalf("Encode(TD) = %#x, want 0xdeadbe00", word)
	}

	got := DecodeLinkPointer(word)
	if got.Kind != LinkTD || got.Addr != 0xDEADBE00 {
		t.Fatalf("DecodeLinkPointer = %+v, want TD 0xdeadbe00", got)
	}
}

func TestLinkPointerRoundTripQH(t *testing.T) {
	lp := LinkPointer{Kind: LinkQH, Addr: 0xDEADBE00}
	word := lp.Encode()

	if word != 0xDEADBE02 {
		t.Fatalf("Encode(QH) = %#x, want 0xdeadbe02", word)
	}

	got := DecodeLinkPointer(word)
	if got.Kind != LinkQH || got.Addr != 0xDEADBE00 {
		t.Fatalf("DecodeLinkPointer = %+v, want QH 0xdeadbe00", got)
	}
}

func TestLinkPointerRoundTripNone(t *testing.T) {
	lp := LinkPointer{Kind: LinkNone}
	word := lp.Encode()

	if word != 0x1 {
		t.Fatalf("Encode(None) = %#x, want 0x1", word)
	}

	got := DecodeLinkPointer(word)
	if got.Kind != LinkNone {
		t.Fatalf("DecodeLinkPointer = %+v, want None", got)
	}
}

func TestLinkPointerMasksLowAddressBits(t *testing.T) {
	lp := LinkPointer{Kind: LinkTD, Addr: 0xDEADBEEF}
	word := lp.Encode()

	if word&0xF != 0 {
		t.Fatalf("Encode did not clear low 4 bits: %#x", word)
	}

	got := DecodeLinkPointer(word)
	if got.Addr != 0xDEADBEE0 {
		t.Fatalf("Addr = %#x, want 0xdeadbee0", got.Addr)
	}
}
