package sharespace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quark-hypervisor/qkernel/config"
)

func TestNotifyOnlyWakesOnWaitingEdge(t *testing.T) {
	s := New()
	s.Init(config.New(), 7)
	require.Equal(t, IOThreadWaiting, s.IOThreadStateLoad())

	wakes := 0
	wake := func(eventfdID int32) {
		wakes++
		require.Equal(t, int32(7), eventfdID)
	}

	s.Notify(wake)
	require.Equal(t, 1, wakes)
	require.Equal(t, IOThreadRunning, s.IOThreadStateLoad())

	// Already running: a second Notify must not wake again.
	s.Notify(wake)
	require.Equal(t, 1, wakes)

	s.MarkWaiting()
	s.Notify(wake)
	require.Equal(t, 2, wakes)
}

func TestHostMsgCountWraps(t *testing.T) {
	s := New()
	s.Init(config.New(), 0)
	require.Equal(t, uint64(0), s.HostMsgCount())

	s.IncHostMsgCount()
	s.IncHostMsgCount()
	require.Equal(t, uint64(2), s.HostMsgCount())

	s.DecHostMsgCount()
	require.Equal(t, uint64(1), s.HostMsgCount())
}
