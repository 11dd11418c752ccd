// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

// In8/Out8/In16/Out16/In32/Out32 are the x86 IN/OUT instruction primitives
// backing the I/O-port allocator (see ../../ioport). Defined in
// port_amd64.s.
func In8(port uint16) (val uint8)
func Out8(port uint16, val uint8)
func In16(port uint16) (val uint16)
func Out16(port uint16, val uint16)
func In32(port uint16) (val uint32)
func Out32(port uint16, val uint32)
