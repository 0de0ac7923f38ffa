//go:build linux

package uring

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quark-hypervisor/qkernel/timer"
	"github.com/quark-hypervisor/qkernel/waiter"
)

func skipIfNoIOURing(t *testing.T) {
	t.Helper()
	ring, err := New(4)
	if err != nil {
		if err == syscall.ENOSYS {
			t.Skip("io_uring not supported on this kernel")
		}
		if err == syscall.EPERM {
			t.Skip("io_uring blocked by seccomp or permissions")
		}
		t.Skipf("io_uring unavailable: %v", err)
	}
	ring.Close()
}

func TestNewRingStartsInLocalMode(t *testing.T) {
	skipIfNoIOURing(t)

	ring, err := New(32)
	require.NoError(t, err)
	defer ring.Close()

	require.Equal(t, LocalMode, ring.mode)
	require.Greater(t, ring.Fd(), 0)
}

func TestBufSockReadWriteRoundTrip(t *testing.T) {
	skipIfNoIOURing(t)

	ring, err := New(32)
	require.NoError(t, err)
	defer ring.Close()

	f, err := os.CreateTemp("", "qkernel_bufsock")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	defer f.Close()

	out := []byte("hello from the buffered socket path")
	require.NoError(t, ring.PrepBufSockWrite(int(f.Fd()), out, 0, 0xAAAA))
	_, err = ring.SubmitAndWait(1)
	require.NoError(t, err)

	var writeRes int32
	ring.ForEachCQE(func(userData uint64, res int32, flags uint32) bool {
		require.Equal(t, uint64(0xAAAA), userData)
		writeRes = res
		return true
	})
	require.Equal(t, int32(len(out)), writeRes)

	in := make([]byte, len(out))
	require.NoError(t, ring.PrepBufSockRead(int(f.Fd()), in, 0, 0xBBBB))
	_, err = ring.SubmitAndWait(1)
	require.NoError(t, err)

	var readRes int32
	ring.ForEachCQE(func(userData uint64, res int32, flags uint32) bool {
		require.Equal(t, uint64(0xBBBB), userData)
		readRes = res
		return true
	})
	require.Equal(t, int32(len(out)), readRes)
	require.Equal(t, out, in)
}

func TestFsyncCompletes(t *testing.T) {
	skipIfNoIOURing(t)

	ring, err := New(32)
	require.NoError(t, err)
	defer ring.Close()

	f, err := os.CreateTemp("", "qkernel_fsync")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	defer f.Close()

	require.NoError(t, ring.PrepFsync(int(f.Fd()), 0, 0xCCCC))
	_, err = ring.SubmitAndWait(1)
	require.NoError(t, err)

	n := ring.ForEachCQE(func(userData uint64, res int32, flags uint32) bool {
		require.Equal(t, uint64(0xCCCC), userData)
		require.NoError(t, ResultError(res))
		return true
	})
	require.Equal(t, 1, n)
}

func TestProbeReportsBridgeOps(t *testing.T) {
	skipIfNoIOURing(t)

	ring, err := New(32)
	require.NoError(t, err)
	defer ring.Close()

	p, err := ring.Probe()
	require.NoError(t, err)

	missing := p.UnsupportedBridgeOps()
	require.Empty(t, missing, "host kernel missing bridge ops: %v", missing)
}

func TestGuestModeSubmitUsesKickerNotSyscall(t *testing.T) {
	skipIfNoIOURing(t)

	ring, err := New(32)
	require.NoError(t, err)
	defer ring.Close()

	kicked := 0
	ring.SetKicker(func() { kicked++ })

	require.NoError(t, ring.PrepNop(0x1))
	n, err := ring.Submit()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, kicked)
	require.Equal(t, uint32(0), ring.SQReady())
}

func TestBridgeArmTimerSubmitsRealTimeoutSQE(t *testing.T) {
	skipIfNoIOURing(t)

	ring, err := New(32)
	require.NoError(t, err)
	defer ring.Close()

	b := NewBridge(ring)
	q := waiter.NewQueue()
	fired := 0
	e := waiter.NewEntry()
	e.SetMask(timer.FireMask)
	e.SetContext(bridgeFireRecorder{n: &fired})
	q.EventRegister(e)

	tm := timer.NewTimer(42, q)
	_, err = b.ArmTimer(tm, 5*time.Millisecond)
	require.NoError(t, err)

	_, err = ring.SubmitAndWait(1)
	require.NoError(t, err)

	n := b.Pump()
	require.Equal(t, 1, n)
	require.Equal(t, 1, fired)

	_, armed := tm.Deadline()
	require.False(t, armed)
}

func TestBridgeCancelTimerSubmitsTimeoutRemove(t *testing.T) {
	skipIfNoIOURing(t)

	ring, err := New(32)
	require.NoError(t, err)
	defer ring.Close()

	b := NewBridge(ring)
	q := waiter.NewQueue()
	tm := timer.NewTimer(43, q)

	seq, err := b.ArmTimer(tm, time.Hour)
	require.NoError(t, err)

	require.NoError(t, b.CancelTimer(tm, seq))

	_, armed := tm.Deadline()
	require.False(t, armed)
}
