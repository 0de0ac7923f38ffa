package mm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quark-hypervisor/qkernel/heap"
)

func TestCopyOnWriteFaultCopiesSharedPage(t *testing.T) {
	h := heap.New(nil)
	h.Buddy.Insert(0, 1<<20)

	frames := make(map[uintptr][]byte)
	orig := unsafeBytes
	unsafeBytes = func(addr uintptr, n int) []byte {
		if b, ok := frames[addr]; ok {
			return b
		}
		b := make([]byte, n)
		frames[addr] = b
		return b
	}
	defer func() { unsafeBytes = orig }()

	shared := make([]byte, PageSize)
	shared[0] = 0xAB
	readShared := func(addr uintptr) []byte { return shared }

	page, err := CopyOnWriteFault(h, 0x1000, readShared)
	require.NoError(t, err)

	copied := frames[uintptr(page)]
	require.Equal(t, byte(0xAB), copied[0])

	ReleaseCOWPage(h, page)
	total, avail := h.Stats()
	require.Equal(t, total, avail)
}

func TestCopyOnWriteFaultPropagatesAllocError(t *testing.T) {
	h := heap.New(nil)
	h.Buddy.Insert(0, 64) // too small for a PageSize frame

	_, err := CopyOnWriteFault(h, 0x1000, func(uintptr) []byte {
		return make([]byte, PageSize)
	})
	require.Error(t, err)
}
