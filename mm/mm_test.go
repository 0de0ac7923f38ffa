package mm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quark-hypervisor/qkernel/heap"
)

func newTestMM() *MemoryManager {
	h := heap.New(nil)
	h.Buddy.Insert(1<<20, 1<<20)
	return New(h)
}

func readSharedStub(uintptr) []byte { return make([]byte, PageSize) }

func TestHandlePageFaultNoVMA(t *testing.T) {
	m := newTestMM()
	_, err := m.HandlePageFault(0x1000, false, readSharedStub)
	require.ErrorIs(t, err, ErrNoVMA)
}

func TestHandlePageFaultAccessDenied(t *testing.T) {
	m := newTestMM()
	m.Mmap(0x1000, 0x2000, PermRead, true, nil, 0)

	_, err := m.HandlePageFault(0x1500, true, readSharedStub)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestHandlePageFaultReadIsNotCOW(t *testing.T) {
	m := newTestMM()
	m.Mmap(0x1000, 0x2000, PermRead|PermWrite, true, nil, 0)

	_, err := m.HandlePageFault(0x1500, false, readSharedStub)
	require.ErrorIs(t, err, ErrNotCOWFault)
}

func TestHandlePageFaultSharedWriteIsNotCOW(t *testing.T) {
	m := newTestMM()
	m.Mmap(0x1000, 0x2000, PermRead|PermWrite, false, nil, 0)

	_, err := m.HandlePageFault(0x1500, true, readSharedStub)
	require.ErrorIs(t, err, ErrNotCOWFault)
}

func TestHandlePageFaultPrivateWriteCopiesOnWrite(t *testing.T) {
	m := newTestMM()
	m.Mmap(0x1000, 0x2000, PermRead|PermWrite, true, nil, 0)

	page, err := m.HandlePageFault(0x1500, true, readSharedStub)
	require.NoError(t, err)
	require.NotZero(t, page)
}

func TestMunmapRemovesVMA(t *testing.T) {
	m := newTestMM()
	v := m.Mmap(0x1000, 0x2000, PermRead, false, nil, 0)
	m.Munmap(v)

	_, ok := m.VMAs.Find(0x1500)
	require.False(t, ok)
}
