// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package intr

import "testing"

func TestDispatchCallsRegisteredHandler(t *testing.T) {
	c := NewController(func() {}, func() {})

	fired := -1
	c.Register(32, func(vector int) { fired = vector })

	c.Dispatch(32)
	if fired != 32 {
		t.Fatalf("fired = %d, want 32", fired)
	}
}

func TestDispatchIgnoresUnregisteredVector(t *testing.T) {
	c := NewController(func() {}, func() {})
	c.Dispatch(200) // must not panic
}

func TestGuardTogglesState(t *testing.T) {
	var disabled, enabled bool
	c := NewController(func() { disabled = true }, func() { enabled = true })

	restore := Guard(c)
	if !disabled {
		t.Fatal("Guard did not disable interrupts")
	}
	if enabled {
		t.Fatal("Guard should not enable before restore")
	}

	restore()
	if !enabled {
		t.Fatal("restore did not re-enable interrupts")
	}
}
