// barebones kernel core
// Copyright (c) The Barebones Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dma provides a first-fit allocator for physically contiguous,
// address-stable buffers suitable for hardware DMA: the UHCI frame list,
// queue heads, and transfer descriptors all come from here rather than
// from the Go heap, because the Go runtime offers no guarantee that a heap
// object's address stays fixed or that its physical address fits in 32
// bits.
package dma

import (
	"container/list"
	"fmt"
	"sync"
	"unsafe"
)

// block tracks one contiguous span of a Region, either on the free list or
// keyed by address in usedBlocks.
type block struct {
	addr uint32
	size uint32
}

// Region represents a pool of memory set aside for DMA buffer allocation.
// The caller (board bring-up) must guarantee the backing range is never
// used by anything else.
type Region struct {
	mu sync.Mutex

	start uint32
	size  uint32

	freeBlocks *list.List
	usedBlocks map[uint32]*block
}

// NewRegion initializes a Region covering [start, start+size).
func NewRegion(start uint32, size uint32) *Region {
	r := &Region{
		start: start,
		size:  size,
	}

	r.freeBlocks = list.New()
	r.freeBlocks.PushFront(&block{addr: start, size: size})
	r.usedBlocks = make(map[uint32]*block)

	return r
}

// Start returns the region's base physical address.
func (r *Region) Start() uint32 { return r.start }

// End returns the region's exclusive upper bound.
func (r *Region) End() uint32 { return r.start + r.size }

// Alloc copies buf into a newly allocated, physically contiguous block
// aligned to align bytes (0 meaning no alignment is applied)
// and returns the block's physical address. The returned address remains
// valid, and the block's contents unmoved, until Free is called with it —
// this is the "stable-address owned object" contract required by
// TransferDescriptorStorage and the frame list.
func (r *Region) Alloc(buf []byte, align uint32) (addr uint32, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.alloc(uint32(len(buf)), align)
	if err != nil {
		return 0, err
	}

	r.usedBlocks[b.addr] = b
	r.write(b.addr, 0, buf)

	return b.addr, nil
}

// Reserve allocates size bytes of zeroed, aligned, physically contiguous
// space without copying from a source buffer — used for the frame list and
// for TD/QH storage the controller writes into directly.
func (r *Region) Reserve(size uint32, align uint32) (addr uint32, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.alloc(size, align)
	if err != nil {
		return 0, err
	}

	r.usedBlocks[b.addr] = b

	zero := make([]byte, size)
	r.write(b.addr, 0, zero)

	return b.addr, nil
}

// Read copies len(buf) bytes starting at addr+off out of the region.
func (r *Region) Read(addr uint32, off uint32, buf []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.read(addr, off, buf)
}

// Write copies buf into the region at addr+off.
func (r *Region) Write(addr uint32, off uint32, buf []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.write(addr, off, buf)
}

// Free releases a block returned by Alloc or Reserve back to the region,
// merging it with adjacent free blocks.
func (r *Region) Free(addr uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.usedBlocks[addr]
	if !ok {
		return
	}

	delete(r.usedBlocks, addr)
	r.free(b)
}

func (r *Region) read(addr uint32, off uint32, buf []byte) {
	var mem []byte

	ptr := unsafe.Pointer(uintptr(addr + off))
	mem = unsafe.Slice((*byte)(ptr), len(buf))

	copy(buf, mem)
}

func (r *Region) write(addr uint32, off uint32, buf []byte) {
	var mem []byte

	ptr := unsafe.Pointer(uintptr(addr + off))
	mem = unsafe.Slice((*byte)(ptr), len(buf))

	copy(mem, buf)
}

// alloc finds a free block of at least size bytes honoring align, splitting
// off the remainder back onto the free list (first-fit).
func (r *Region) alloc(size uint32, align uint32) (*block, error) {
	want := size
	if align > 0 {
		want += align
	}

	var e *list.Element
	var found *block

	for e = r.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)
		if b.size >= want {
			found = b
			break
		}
	}

	if found == nil {
		return nil, fmt.Errorf("dma: out of memory allocating %d bytes (align %d)", size, align)
	}

	r.freeBlocks.Remove(e)

	if want < found.size {
		r.freeBlocks.PushBack(&block{addr: found.addr + want, size: found.size - want})
		found.size = want
	}

	if align > 0 {
		if rem := found.addr % align; rem != 0 {
			pad := align - rem
			r.freeBlocks.PushBack(&block{addr: found.addr, size: pad})
			found.addr += pad
			found.size -= pad
		}

		if found.size > size {
			r.freeBlocks.PushBack(&block{addr: found.addr + size, size: found.size - size})
			found.size = size
		}
	}

	return found, nil
}

// free returns a block to the free list and coalesces adjacent spans.
func (r *Region) free(used *block) {
	r.freeBlocks.PushBack(used)
	r.defrag()
}

func (r *Region) defrag() {
	for moved := true; moved; {
		moved = false

		for e := r.freeBlocks.Front(); e != nil; e = e.Next() {
			b := e.Value.(*block)

			for o := e.Next(); o != nil; o = o.Next() {
				ob := o.Value.(*block)

				if b.addr+b.size == ob.addr {
					b.size += ob.size
					r.freeBlocks.Remove(o)
					moved = true
					break
				}
				if ob.addr+ob.size == b.addr {
					ob.size += b.size
					r.freeBlocks.Remove(e)
					moved = true
					break
				}
			}

			if moved {
				break
			}
		}
	}
}
