package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeapAllocFreeRoundTrip(t *testing.T) {
	h := New(nil)
	h.Buddy.Insert(0, 1<<16)

	addr, err := h.Alloc(64)
	require.NoError(t, err)

	h.Free(64, addr)
	total, avail := h.Stats()
	require.Equal(t, total, avail)
}

func TestHeapInvokesOOMHandler(t *testing.T) {
	h := New(nil)
	h.Buddy.Insert(0, 64)

	var calledWith uint64
	h.onOOM = func(requested uint64) { calledWith = requested }

	_, err := h.Alloc(1 << 20)
	require.Error(t, err)
	require.Equal(t, uint64(1<<20), calledWith)
}
