package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quark-hypervisor/qkernel/waiter"
)

func TestTimerStoreAddAndProcessExpired(t *testing.T) {
	clock := &FakeClock{}
	store := NewTimerStore(clock)
	q := waiter.NewQueue()

	fired := 0
	e := waiter.NewEntry()
	e.SetMask(FireMask)
	e.SetContext(fireRecorder{n: &fired})
	q.EventRegister(e)

	tm := NewTimer(1, q)
	store.Add(tm, 100*time.Millisecond)
	require.Equal(t, 1, store.Len())

	n := store.ProcessExpired(50 * time.Millisecond)
	require.Equal(t, 0, n)
	require.Equal(t, 0, fired)

	n = store.ProcessExpired(100 * time.Millisecond)
	require.Equal(t, 1, n)
	require.Equal(t, 1, fired)
	require.Equal(t, 0, store.Len())
}

func TestTimerStoreProcessTimeLookahead(t *testing.T) {
	store := NewTimerStore(&FakeClock{})
	q := waiter.NewQueue()
	fired := 0
	e := waiter.NewEntry()
	e.SetMask(FireMask)
	e.SetContext(fireRecorder{n: &fired})
	q.EventRegister(e)

	tm := NewTimer(1, q)
	store.Add(tm, 100)

	// Within the lookahead window, the timer fires early.
	n := store.ProcessExpired(100 - ProcessTime/2)
	require.Equal(t, 1, n)
	require.Equal(t, 1, fired)
}

func TestTimerStoreRemove(t *testing.T) {
	store := NewTimerStore(&FakeClock{})
	q := waiter.NewQueue()
	fired := 0
	e := waiter.NewEntry()
	e.SetMask(FireMask)
	e.SetContext(fireRecorder{n: &fired})
	q.EventRegister(e)

	tm := NewTimer(1, q)
	store.Add(tm, 100)
	store.Remove(tm)
	require.Equal(t, 0, store.Len())

	n := store.ProcessExpired(1000)
	require.Equal(t, 0, n)
	require.Equal(t, 0, fired)
}

func TestTimerStoreNextDeadlineIsEarliest(t *testing.T) {
	store := NewTimerStore(&FakeClock{})
	q := waiter.NewQueue()

	t1 := NewTimer(1, q)
	t2 := NewTimer(2, q)
	t3 := NewTimer(3, q)
	store.Add(t1, 300)
	store.Add(t2, 100)
	store.Add(t3, 200)

	d, ok := store.NextDeadline()
	require.True(t, ok)
	require.Equal(t, t2.deadline, d)
}

func TestTimerStoreFiresBothTimersSharingADeadline(t *testing.T) {
	store := NewTimerStore(&FakeClock{})
	q := waiter.NewQueue()

	fired := 0
	e := waiter.NewEntry()
	e.SetMask(FireMask)
	e.SetContext(fireRecorder{n: &fired})
	q.EventRegister(e)

	t1 := NewTimer(5, q)
	t2 := NewTimer(1, q)
	store.Add(t1, 100)
	store.Add(t2, 100)

	n := store.ProcessExpired(100)
	require.Equal(t, 2, n)
	require.Equal(t, 2, fired)
}
