package uring

import (
	"time"

	"github.com/quark-hypervisor/qkernel/internal/sys"
	"github.com/quark-hypervisor/qkernel/timer"
	"github.com/quark-hypervisor/qkernel/waiter"
)

// userData categories: the top byte of a CQE's user_data field selects
// which subsystem owns the completion, the same way the teacher keys
// its own test SQEs by an opaque uint64 it round-trips through
// user_data.
const (
	categoryTimer byte = 1
	categoryEntry byte = 2
)

// EncodeTimerUserData packs a timer ID and arm sequence number into a
// CQE user_data value for a PrepTimeout SQE.
func EncodeTimerUserData(timerID uint32, seq uint32) uint64 {
	return uint64(categoryTimer)<<56 | uint64(timerID)<<24 | uint64(seq&0xFFFFFF)
}

// EncodeEntryUserData packs a waiter mask into a user_data value for
// an SQE whose completion should directly notify a waiter.Queue.
func EncodeEntryUserData(mask uint32) uint64 {
	return uint64(categoryEntry)<<56 | uint64(mask)
}

// Bridge wires io_uring CQE completions to the timer and waiter
// subsystems: every other kernel component that wants a completion
// delivered goes through Bridge.Pump rather than touching a Ring's
// CQE queue directly.
type Bridge struct {
	ring       *Ring
	timers     map[uint32]*timer.Timer
	entryQueue *waiter.Queue
	fallback   func(userData uint64, res int32, flags uint32)
}

// NewBridge returns a bridge pumping completions from ring.
func NewBridge(ring *Ring) *Bridge {
	return &Bridge{ring: ring, timers: make(map[uint32]*timer.Timer)}
}

// RegisterTimer makes t resolvable from a CQE encoding its ID, so a
// Raw-mode PrepTimeout completion can be routed back to the right
// Timer.Fire call.
func (b *Bridge) RegisterTimer(t *timer.Timer) {
	b.timers[uint32(t.ID())] = t
}

// UnregisterTimer removes a timer once it's been canceled or retired.
func (b *Bridge) UnregisterTimer(id uint64) {
	delete(b.timers, uint32(id))
}

// SetFallback installs a handler for CQEs this bridge doesn't
// recognize (ordinary file/socket I/O completions, which the rest of
// the kernel's syscall-completion plumbing handles directly rather
// than through timer/waiter dispatch).
//
// TODO: tmpfs-backed file reads currently have no io_uring-native path
// (tmpfs doesn't support O_DIRECT/registered buffers the way a real
// block device does) and fall all the way through to this handler as
// ordinary buffered I/O; a dedicated tmpfs fast path that bypasses
// io_uring entirely would avoid the round trip for the common
// container-root-overlay case.
func (b *Bridge) SetFallback(fn func(userData uint64, res int32, flags uint32)) {
	b.fallback = fn
}

// Pump drains every completion currently available on the ring,
// routing timer and waiter-entry completions to their subsystems and
// everything else to the fallback handler. Returns the count
// processed.
func (b *Bridge) Pump() int {
	return b.ring.ForEachCQE(func(userData uint64, res int32, flags uint32) bool {
		category := byte(userData >> 56)
		switch category {
		case categoryTimer:
			id := uint32(userData>>24) & 0xFFFFFFFF
			seq := uint32(userData & 0xFFFFFF)
			if t, ok := b.timers[id]; ok {
				t.Fire(uint64(seq))
			}
		case categoryEntry:
			mask := uint32(userData)
			if b.entryQueue != nil {
				b.entryQueue.Notify(waiter.EventMask(mask))
			}
		default:
			if b.fallback != nil {
				b.fallback(userData, res, flags)
			}
		}
		return true
	})
}

// SetEntryQueue installs the queue categoryEntry CQEs should notify;
// separated from the constructor so tests can wire it in only when
// exercising that path.
func (b *Bridge) SetEntryQueue(q *waiter.Queue) {
	b.entryQueue = q
}

// ArmTimer is the Raw-mode timer strategy: instead of TimerStore's
// single aggregate software-clock timeout, t gets its own PrepTimeout
// SQE that fires after wait elapses. The returned sequence number is
// what Timer.Fire must be presented to honor the eventual completion;
// RegisterTimer is called automatically so Pump can resolve the CQE
// back to t.
func (b *Bridge) ArmTimer(t *timer.Timer, wait time.Duration) (uint64, error) {
	seq := t.Arm(wait)
	b.RegisterTimer(t)

	ts := &sys.Timespec{
		Sec:  int64(wait / time.Second),
		Nsec: int64(wait % time.Second),
	}
	userData := EncodeTimerUserData(uint32(t.ID()), uint32(seq))
	if err := b.ring.PrepTimeout(ts, 0, 0, userData); err != nil {
		return seq, err
	}
	_, err := b.ring.Submit()
	return seq, err
}

// CancelTimer disarms t and submits a PrepTimeoutRemove for the SQE
// ArmTimer last submitted on its behalf, so a host that hasn't fired
// the completion yet drops it instead of later routing a stale wake.
func (b *Bridge) CancelTimer(t *timer.Timer, seq uint64) error {
	t.Cancel()
	b.UnregisterTimer(t.ID())

	userData := EncodeTimerUserData(uint32(t.ID()), uint32(seq))
	if err := b.ring.PrepTimeoutRemove(userData, 0); err != nil {
		return err
	}
	_, err := b.ring.Submit()
	return err
}
