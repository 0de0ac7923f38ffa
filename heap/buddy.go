// Package heap implements the kernel's guest-physical-memory allocator
//: a two-tier design, a buddy heap spanning orders 3..33
// bytes (8 bytes .. 8GiB) feeding per-size-class free lists for the
// small, hot allocation sizes, plus the back-pressure drain heuristic
// that returns tier-2 memory to the buddy heap under contention.
package heap

import (
	"sync"

	"github.com/quark-hypervisor/qkernel/qerrors"
)

// MinOrder and MaxOrder bound the buddy heap's block sizes: 1<<MinOrder
// bytes to 1<<MaxOrder bytes.
const (
	MinOrder = 3
	MaxOrder = 33
)

// block is one free buddy-heap node.
type block struct {
	addr uintptr
	next *block
}

// Buddy is a classic power-of-two buddy allocator over a single
// contiguous address range. It never talks to the OS itself; Insert
// is given address ranges obtained elsewhere (e.g. from an mmap'd
// guest-physical region or, in tests, a synthetic arena) and chops
// them into blocks no larger than 1<<MaxOrder.
type Buddy struct {
	mu    sync.Mutex
	free  [MaxOrder + 1]*block // free[order] is a free-list head
	total uint64
	avail uint64
}

// NewBuddy returns an empty buddy heap.
func NewBuddy() *Buddy {
	return &Buddy{}
}

// Insert donates [addr, addr+size) to the heap, splitting it into
// naturally aligned power-of-two blocks no larger than 1<<MaxOrder
// bytes (8GiB). It does not split a range into 1GiB chunks.
func (b *Buddy) Insert(addr uintptr, size uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total += size
	b.avail += size

	for size > 0 {
		order := MaxOrder
		for order > MinOrder {
			blockSize := uint64(1) << uint(order)
			aligned := addr%uintptr(blockSize) == 0
			if aligned && blockSize <= size {
				break
			}
			order--
		}
		blockSize := uint64(1) << uint(order)
		b.push(order, addr)
		addr += uintptr(blockSize)
		size -= blockSize
	}
}

func (b *Buddy) push(order int, addr uintptr) {
	blk := &block{addr: addr, next: b.free[order]}
	b.free[order] = blk
}

func (b *Buddy) pop(order int) (uintptr, bool) {
	blk := b.free[order]
	if blk == nil {
		return 0, false
	}
	b.free[order] = blk.next
	return blk.addr, true
}

// orderFor returns the smallest order whose block size is >= size.
func orderFor(size uint64) int {
	order := MinOrder
	for (uint64(1) << uint(order)) < size {
		order++
	}
	return order
}

// Alloc returns a block of at least size bytes, splitting a larger
// free block if no exact-order block is free. Returns
// qerrors.Fatal-worthy ErrOOM if the heap has no block large enough.
func (b *Buddy) Alloc(size uint64) (uintptr, error) {
	order := orderFor(size)
	if order > MaxOrder {
		return 0, ErrOOM
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	addr, err := b.allocOrderLocked(order)
	if err != nil {
		return 0, err
	}
	b.avail -= uint64(1) << uint(order)
	return addr, nil
}

// allocOrderLocked returns a free block of exactly the given order,
// splitting the next larger order if needed. It does not touch
// b.avail: splitting a block changes its granularity, not the total
// bytes available, so only the top-level Alloc/Free calls adjust it.
func (b *Buddy) allocOrderLocked(order int) (uintptr, error) {
	if addr, ok := b.pop(order); ok {
		return addr, nil
	}
	if order >= MaxOrder {
		return 0, ErrOOM
	}
	parent, err := b.allocOrderLocked(order + 1)
	if err != nil {
		return 0, err
	}
	half := uintptr(1) << uint(order)
	buddy := parent + half
	b.push(order, buddy)
	return parent, nil
}

// Free returns a block of the given size to the heap, coalescing with
// its buddy when possible. size must match the size originally passed
// to Alloc.
func (b *Buddy) Free(addr uintptr, size uint64) {
	order := orderFor(size)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.avail += uint64(1) << uint(order)
	b.freeOrderLocked(order, addr)
}

func (b *Buddy) freeOrderLocked(order int, addr uintptr) {
	if order >= MaxOrder {
		b.push(order, addr)
		return
	}
	blockSize := uintptr(1) << uint(order)
	buddyAddr := addr ^ blockSize
	if b.removeFree(order, buddyAddr) {
		parent := addr
		if buddyAddr < addr {
			parent = buddyAddr
		}
		b.freeOrderLocked(order+1, parent)
		return
	}
	b.push(order, addr)
}

func (b *Buddy) removeFree(order int, addr uintptr) bool {
	var prev *block
	cur := b.free[order]
	for cur != nil {
		if cur.addr == addr {
			if prev == nil {
				b.free[order] = cur.next
			} else {
				prev.next = cur.next
			}
			return true
		}
		prev = cur
		cur = cur.next
	}
	return false
}

// Stats reports total and currently-available bytes.
func (b *Buddy) Stats() (total, avail uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total, b.avail
}

// ErrOOM is returned when the buddy heap cannot satisfy an allocation.
var ErrOOM = qerrors.SysError(-12) // ENOMEM
