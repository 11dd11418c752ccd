// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ioport

import "testing"

func TestReserveRejectsOverlap(t *testing.T) {
	a := NewAllocator()

	if _, err := a.Reserve(0xC000, 32); err != nil {
		t.Fatalf("first Reserve failed: %v", err)
	}

	if _, err := a.Reserve(0xC010, 16); err == nil {
		t.Fatal("overlapping Reserve should fail")
	}

	if _, err := a.Reserve(0xC020, 16); err != nil {
		t.Fatalf("adjacent non-overlapping Reserve failed: %v", err)
	}
}

func TestRangeBoundsCheck(t *testing.T) {
	a := NewAllocator()
	r, err := a.Reserve(0xC000, 4)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if err := r.check(0, 4); err != nil {
		t.Fatalf("offset 0 width 4 should fit exactly in a 4-byte window: %v", err)
	}
	if err := r.check(2, 2); err != nil {
		t.Fatalf("offset 2 width 2 should be in range: %v", err)
	}
	if err := r.check(3, 2); err == nil {
		t.Fatal("offset 3 width 2 should be out of range")
	}
}
