// Package sharespace implements the process-wide ShareSpace structure
// mapped at an address visible to both guest
// and host: the QInput/QOutput SPSC rings, the host I/O thread state
// machine, the atomic message counters, and the guest side of the
// eventfd wakeup protocol.
//
// The ring mechanics mirror the teacher's io_uring SQ/CQ bookkeeping
// (github.com/quark-hypervisor/qkernel/uring): a fixed-size backing
// array, a power-of-two mask, and acquire/release atomics on a head and
// a tail index. What differs is the payload — a MSG_QLEN-sized array of
// tagged Msg/Event descriptors instead of SQE/CQE structs — and that
// both ends live in the same process rather than being drained by a
// kernel.
package sharespace

import (
	"errors"
	"sync/atomic"
)

// ErrRingEmpty is returned by Pop when no entry is queued.
var ErrRingEmpty = errors.New("sharespace: ring empty")

// MsgQLen is the number of slots in each ShareSpace ring.
// Must be a power of two so index masking replaces a modulo.
const MsgQLen = 1024

// Ring is a single-producer/single-consumer lock-free ring buffer of T.
// Wait-freedom comes from the same acquire/release discipline the
// teacher's io_uring ring uses: the producer publishes entries before
// bumping tail with Release, the consumer observes tail with Acquire
// before reading.
type Ring[T any] struct {
	entries [MsgQLen]T
	mask    uint32

	head atomic.Uint32 // consumer-owned
	tail atomic.Uint32 // producer-owned
}

// NewRing constructs an empty ring. MsgQLen is fixed at compile time so
// every ShareSpace ring has identical, fixed capacity.
func NewRing[T any]() *Ring[T] {
	return &Ring[T]{mask: MsgQLen - 1}
}

// Len returns the current occupancy.
func (r *Ring[T]) Len() uint32 {
	return r.tail.Load() - r.head.Load()
}

// IsFull reports whether the ring has no free slot.
func (r *Ring[T]) IsFull() bool {
	return r.Len() >= MsgQLen
}

// IsEmpty reports whether the ring has no pending entry.
func (r *Ring[T]) IsEmpty() bool {
	return r.head.Load() == r.tail.Load()
}

// TryPush publishes v if there is space, reporting whether it succeeded.
// Only the single designated producer may call TryPush; concurrent
// producers must serialize by spinning on TryPush themselves.
func (r *Ring[T]) TryPush(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() >= MsgQLen {
		return false
	}
	r.entries[tail&r.mask] = v
	r.tail.Store(tail + 1) // Release: publish entry before advancing tail
	return true
}

// Push busy-retries TryPush until it succeeds, matching the "busy-retry
// on full" behavior requires of a Call push onto QOutput.
func (r *Ring[T]) Push(v T) {
	for !r.TryPush(v) {
	}
}

// TryPop consumes the oldest entry if one is available.
func (r *Ring[T]) TryPop() (T, bool) {
	head := r.head.Load()
	if head == r.tail.Load() { // Acquire: observe producer's publish
		var zero T
		return zero, false
	}
	v := r.entries[head&r.mask]
	r.head.Store(head + 1)
	return v, true
}

// Pop consumes the oldest entry, returning ErrRingEmpty if none is
// pending. Callers that need to block until an entry arrives compose
// this with the scheduler's blocker, not with a spin loop.
func (r *Ring[T]) Pop() (T, error) {
	v, ok := r.TryPop()
	if !ok {
		return v, ErrRingEmpty
	}
	return v, nil
}
