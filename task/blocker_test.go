package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quark-hypervisor/qkernel/qerrors"
	"github.com/quark-hypervisor/qkernel/timer"
	"github.com/quark-hypervisor/qkernel/waiter"
)

func TestBlockGeneralWakesOnTrigger(t *testing.T) {
	reg := NewRegistry()
	tk := New(reg, nil)

	done := make(chan error, 1)
	go func() {
		done <- tk.Blocker.BlockGeneral(tk.Interrupted())
	}()

	time.Sleep(time.Millisecond)
	tk.Blocker.Trigger(tk.ID())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("BlockGeneral never returned after Trigger")
	}
}

func TestBlockGeneralInterrupted(t *testing.T) {
	reg := NewRegistry()
	tk := New(reg, nil)

	done := make(chan error, 1)
	go func() {
		done <- tk.Blocker.BlockGeneral(tk.Interrupted())
	}()

	time.Sleep(time.Millisecond)
	tk.Interrupt()

	select {
	case err := <-done:
		require.ErrorIs(t, err, qerrors.ErrInterrupted)
	case <-time.After(time.Second):
		t.Fatal("BlockGeneral never returned after Interrupt")
	}
}

func TestBlockGeneralIgnoresOtherTasksTrigger(t *testing.T) {
	reg := NewRegistry()
	tk := New(reg, nil)

	done := make(chan error, 1)
	go func() {
		done <- tk.Blocker.BlockGeneral(tk.Interrupted())
	}()

	time.Sleep(time.Millisecond)
	tk.Blocker.Trigger(tk.ID() + 1)

	select {
	case <-done:
		t.Fatal("BlockGeneral returned after a mismatched trigger")
	case <-time.After(20 * time.Millisecond):
	}

	tk.Blocker.Trigger(tk.ID())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("BlockGeneral never returned after the correct trigger")
	}
}

func TestBlockWithMonoTimerWakesOnTrigger(t *testing.T) {
	reg := NewRegistry()
	tk := New(reg, nil)
	q := waiter.NewQueue()
	clock := &timer.FakeClock{}
	store := timer.NewTimerStore(clock)

	done := make(chan error, 1)
	go func() {
		done <- tk.Blocker.BlockWithMonoTimer(clock, store, q, tk.ID(), time.Hour)
	}()

	time.Sleep(time.Millisecond)
	require.Equal(t, 1, store.Len())
	tk.Blocker.Trigger(tk.ID())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("BlockWithMonoTimer never returned after Trigger")
	}
	require.Equal(t, 0, store.Len())
}

func TestBlockWithMonoTimerWakesOnExpiry(t *testing.T) {
	reg := NewRegistry()
	tk := New(reg, nil)
	q := waiter.NewQueue()
	clock := &timer.FakeClock{}
	store := timer.NewTimerStore(clock)

	done := make(chan error, 1)
	go func() {
		done <- tk.Blocker.BlockWithMonoTimer(clock, store, q, tk.ID(), 100)
	}()

	time.Sleep(time.Millisecond)
	clock.Advance(200)
	store.ProcessExpired(clock.Now())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("BlockWithMonoTimer never returned after timer expiry")
	}
}
