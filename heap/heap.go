package heap

import "github.com/quark-hypervisor/qkernel/qlog"

// OOMHandler is invoked when the heap cannot satisfy an allocation
// after a drain attempt. Production wires this to the OOM hypercall so
// the host learns about guest memory pressure before the guest panics;
// tests can substitute a handler that just records the call.
type OOMHandler func(requested uint64)

// Heap is the top-level allocator: a Buddy heap
// for large/cold allocations feeding a Tier2 set of size-class free
// lists for the hot small-object path, with an automatic drain when
// tier-2 occupancy crosses the back-pressure threshold.
type Heap struct {
	Buddy *Buddy
	Tier2 *Tier2
	onOOM OOMHandler
}

// New returns a heap with an empty buddy arena; call Buddy.Insert to
// donate address ranges before allocating.
func New(onOOM OOMHandler) *Heap {
	b := NewBuddy()
	return &Heap{
		Buddy: b,
		Tier2: NewTier2(b),
		onOOM: onOOM,
	}
}

// Alloc serves size bytes from the appropriate tier, draining tier-2
// back-pressure first if the buddy heap looks tight, and invoking
// onOOM before surfacing ErrOOM to the caller.
func (h *Heap) Alloc(size uint64) (uintptr, error) {
	total, free := h.Buddy.Stats()
	if NeedFree(total, free, free) {
		h.Tier2.Drain()
	}

	addr, err := h.Tier2.Alloc(size)
	if err != nil {
		if h.onOOM != nil {
			h.onOOM(size)
		}
		qlog.Component("heap").Error().Uint64("size", size).Msg("allocation failed")
		return 0, err
	}
	return addr, nil
}

// Free returns size bytes at addr to the appropriate tier.
func (h *Heap) Free(size uint64, addr uintptr) {
	h.Tier2.Free(size, addr)
}

// Stats reports the underlying buddy heap's total and available bytes.
func (h *Heap) Stats() (total, avail uint64) {
	return h.Buddy.Stats()
}
