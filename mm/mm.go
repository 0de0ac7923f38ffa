package mm

import (
	"sync"

	"github.com/quark-hypervisor/qkernel/heap"
	"github.com/quark-hypervisor/qkernel/qerrors"
)

// MemoryManager is one address space: its VMA map plus the heap used
// to back private/anonymous pages. A single mapping-write lock
// serializes the structural VMA
// operations (mmap/munmap/mremap); page faults only need a read lock
// on the VMA map itself to find the faulting VMA; the COW copy runs
// outside any mm-wide lock since it only touches the new page.
type MemoryManager struct {
	mapMu sync.Mutex // serializes mmap/munmap/mremap
	VMAs  *VMASet
	Heap  *heap.Heap
}

// New returns an empty memory manager over h.
func New(h *heap.Heap) *MemoryManager {
	return &MemoryManager{VMAs: NewVMASet(), Heap: h}
}

// Mmap installs a new anonymous or file-backed VMA.
func (m *MemoryManager) Mmap(start, end uintptr, perm Perm, private bool, file *FileMapping, offset uint64) *VMA {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	if file != nil {
		return MapFile(m.VMAs, start, end, perm, file, offset, private)
	}
	v := &VMA{Start: start, End: end, Perm: perm, Private: private}
	m.VMAs.Insert(v)
	return v
}

// Munmap removes v, releasing its file reference if any.
func (m *MemoryManager) Munmap(v *VMA) {
	m.mapMu.Lock()
	defer m.mapMu.Unlock()
	m.VMAs.Remove(v)
	if v.File != nil {
		ResetFileMapping(v)
	}
}

// HandlePageFault implements the page-fault resolution algorithm: find
// the covering VMA, reject addresses outside any VMA or
// writes to a read-only VMA, and for a write fault against a private
// VMA, copy-on-write a fresh page. readShared supplies the current
// contents of the shared page being copied.
func (m *MemoryManager) HandlePageFault(addr uintptr, write bool, readShared func(uintptr) []byte) (PhysPage, error) {
	v, ok := m.VMAs.Find(addr)
	if !ok {
		return 0, ErrNoVMA
	}
	if write && v.Perm&PermWrite == 0 {
		return 0, ErrAccessDenied
	}
	if !write {
		return 0, ErrNotCOWFault
	}
	if !v.Private {
		// Shared writable VMA: no copy needed, caller maps the existing
		// backing page read-write directly.
		return 0, ErrNotCOWFault
	}
	return CopyOnWriteFault(m.Heap, addr, readShared)
}

var (
	ErrNoVMA        = qerrors.SysError(-14) // EFAULT
	ErrAccessDenied = qerrors.SysError(-13) // EACCES
	// ErrNotCOWFault signals the fault doesn't need a COW page allocated;
	// the caller should map the existing page rather than treat this as
	// a failure.
	ErrNotCOWFault = qerrors.SysError(-1)
)
