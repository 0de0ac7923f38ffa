package trap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quark-hypervisor/qkernel/heap"
	"github.com/quark-hypervisor/qkernel/mm"
)

func newTestMM() *mm.MemoryManager {
	h := heap.New(nil)
	h.Buddy.Insert(1<<20, 1<<20)
	return mm.New(h)
}

func readSharedStub(uintptr) []byte { return make([]byte, mm.PageSize) }

func TestHandlePageFaultNoVMASignals(t *testing.T) {
	m := newTestMM()
	res := HandlePageFault(m, Fault{Addr: 0x1000}, readSharedStub)
	require.Equal(t, OutcomeSignal, res.Outcome)
	require.Equal(t, SIGSEGV, res.Signal)
	require.Equal(t, SegvMapErr, res.Code)
}

func TestHandlePageFaultAccessDeniedSignals(t *testing.T) {
	m := newTestMM()
	m.Mmap(0x1000, 0x2000, mm.PermRead, true, nil, 0)

	res := HandlePageFault(m, Fault{Addr: 0x1500, Write: true}, readSharedStub)
	require.Equal(t, OutcomeSignal, res.Outcome)
	require.Equal(t, SegvAccErr, res.Code)
}

func TestHandlePageFaultReadResolvesWithoutPage(t *testing.T) {
	m := newTestMM()
	m.Mmap(0x1000, 0x2000, mm.PermRead|mm.PermWrite, true, nil, 0)

	res := HandlePageFault(m, Fault{Addr: 0x1500}, readSharedStub)
	require.Equal(t, OutcomeResolved, res.Outcome)
	require.Zero(t, res.Page)
}

func TestHandlePageFaultPrivateWriteAllocatesPage(t *testing.T) {
	m := newTestMM()
	m.Mmap(0x1000, 0x2000, mm.PermRead|mm.PermWrite, true, nil, 0)

	res := HandlePageFault(m, Fault{Addr: 0x1500, Write: true}, readSharedStub)
	require.Equal(t, OutcomeResolved, res.Outcome)
	require.NotZero(t, res.Page)
}

func TestHandlePageFaultOOMIsFatal(t *testing.T) {
	h := heap.New(nil)
	h.Buddy.Insert(0, 64) // too small to ever serve a COW page
	m := mm.New(h)
	m.Mmap(0x1000, 0x2000, mm.PermRead|mm.PermWrite, true, nil, 0)

	res := HandlePageFault(m, Fault{Addr: 0x1500, Write: true}, readSharedStub)
	require.Equal(t, OutcomeFatal, res.Outcome)
}
