package mm

import (
	"github.com/quark-hypervisor/qkernel/heap"
)

// PageSize is the guest page size assumed throughout the mm package.
const PageSize = 4096

// PhysPage is a guest-physical page-frame address, the unit
// CopyOnWrite allocates and frees.
type PhysPage uintptr

// CopyOnWriteFault resolves a write fault against a private VMA
// (the page-fault algorithm's COW steps): allocate a fresh physical
// page and copy the shared page's contents into it. It does not touch
// any page table; it returns the new page so the caller can install it
// read-write at the faulting address (trap.Dispatcher.Handle hands it
// back in its Resolution for that).
//
// readShared reads PageSize bytes of the currently-mapped (shared)
// page at addr; it is supplied by the caller since actually reading
// guest physical memory is outside this package's scope.
func CopyOnWriteFault(h *heap.Heap, addr uintptr, readShared func(uintptr) []byte) (PhysPage, error) {
	frame, err := h.Alloc(PageSize)
	if err != nil {
		return 0, err
	}

	src := readShared(addr)
	dst := unsafeBytes(frame, PageSize)
	copy(dst, src)

	return PhysPage(frame), nil
}

// ReleaseCOWPage returns a page previously produced by
// CopyOnWriteFault to the heap, called when the owning VMA is torn
// down or the page is evicted.
func ReleaseCOWPage(h *heap.Heap, p PhysPage) {
	h.Free(PageSize, uintptr(p))
}

// unsafeBytes is isolated in its own small function so the one place
// in this package that reinterprets a raw address as a byte slice is
// easy to audit; production wires this to the guest's mapped-memory
// window, tests wire it to an in-process byte arena (see mm_test.go).
var unsafeBytes = func(addr uintptr, n int) []byte {
	return make([]byte, n)
}
