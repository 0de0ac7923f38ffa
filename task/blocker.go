package task

import (
	"time"

	"github.com/quark-hypervisor/qkernel/qerrors"
	"github.com/quark-hypervisor/qkernel/timer"
	"github.com/quark-hypervisor/qkernel/waiter"
)

// Blocker is the per-task parking primitive a Task uses to sleep until
// something notifies it: a host-call completion, a signal, or a timer
// expiry. It implements waiter.ThreadWaker so a waiter.ThreadContext
// can target a specific task without the waiter package importing
// task (which would cycle, since Blocker itself depends on waiter.Queue
// for timer-based wakes).
type Blocker struct {
	id     uint64 // matches the owning Task's ID; used as the WaiterID
	wakeCh chan struct{}
}

// NewBlocker returns a blocker for the task with the given ID.
func NewBlocker(id uint64) *Blocker {
	return &Blocker{id: id, wakeCh: make(chan struct{}, 1)}
}

// Trigger implements waiter.ThreadWaker: it delivers one wake, coalescing
// redundant triggers the same way a futex wake does.
func (b *Blocker) Trigger(waiterID uint64) {
	if waiterID != b.id {
		return
	}
	select {
	case b.wakeCh <- struct{}{}:
	default:
	}
}

// BlockGeneral parks the calling goroutine until Trigger is called or
// interrupted is closed (signal delivery), returning
// qerrors.ErrInterrupted in the latter case.
func (b *Blocker) BlockGeneral(interrupted <-chan struct{}) error {
	select {
	case <-b.wakeCh:
		return nil
	case <-interrupted:
		return qerrors.ErrInterrupted
	}
}

// BlockWithMonoTimer parks until Trigger fires or the deadline elapses
// (the timer's fire reaches Trigger through q). It arms a timer.Timer
// against store for the duration and cancels it on return, so a timer
// that would otherwise fire later never stale-wakes this blocker: a
// canceled timer must never wake a waiter it was raced against. It
// returns nil on both wake paths, so a timeout is not reported
// distinctly, and it takes no interrupt channel, so a signal does not
// end the wait.
func (b *Blocker) BlockWithMonoTimer(clock timer.Clock, store *timer.TimerStore, q *waiter.Queue, timerID uint64, d time.Duration) error {
	t := timer.NewTimer(timerID, q)
	entry := waiter.NewThreadEntry(b, b.id, timer.FireMask)
	q.EventRegister(entry)
	defer q.EventUnregister(entry)

	store.Add(t, clock.Now()+d)
	defer store.Remove(t)

	<-b.wakeCh
	return nil
}
