package timer

import (
	"sync"
	"time"

	"github.com/quark-hypervisor/qkernel/waiter"
)

// FireMask is the event bit a timer fires on its registered queue.
const FireMask waiter.EventMask = 1

// Timer is a single countdown in Raw mode: each instance owns its own
// io_uring TIMEOUT SQE (submitted by the uring bridge, not by this
// package) and notifies q when it expires or is explicitly Fired.
type Timer struct {
	mu       sync.Mutex
	id       uint64
	deadline time.Duration
	armed    bool
	seq      uint64 // bumped on every rearm, rejects stale completions
	q        *waiter.Queue
}

// NewTimer returns a timer notifying q on expiry.
func NewTimer(id uint64, q *waiter.Queue) *Timer {
	return &Timer{id: id, q: q}
}

func (t *Timer) ID() uint64 { return t.id }

// Arm schedules the timer for deadline and returns the sequence number
// the eventual completion must present to be honored.
func (t *Timer) Arm(deadline time.Duration) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = deadline
	t.armed = true
	t.seq++
	return t.seq
}

// Cancel disarms the timer. A completion for a now-stale sequence
// number that arrives after Cancel is rejected by Fire.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = false
	t.seq++
}

// Deadline returns the current scheduled deadline and whether the
// timer is armed.
func (t *Timer) Deadline() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline, t.armed
}

// Fire is called by the uring bridge when a CQE completes this timer's
// SQE. seq must match the sequence returned by the Arm call that
// produced the completion; a mismatch means the timer was rearmed or
// canceled after submission and the completion is discarded: a stale
// timer fire must never observably wake a waiter.
func (t *Timer) Fire(seq uint64) {
	t.mu.Lock()
	if !t.armed || seq != t.seq {
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.mu.Unlock()
	t.q.Notify(FireMask)
}
