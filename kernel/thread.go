package kernel

import "sync/atomic"

// SignalMask is a bitmask of blocked/pending signals.
type SignalMask uint64

// SignalState tracks one task's signal disposition: which signals are
// blocked and which are pending delivery. The task package's
// Task.Interrupt/ClearInterrupt handle the actual blocking-call
// abort; SignalState is the bookkeeping a syscall like rt_sigprocmask
// or kill reads and writes.
type SignalState struct {
	blocked atomic.Uint64
	pending atomic.Uint64
}

// Block adds mask to the set of blocked signals, returning the prior
// mask (the signature real sigprocmask(2) callers rely on to restore
// it later).
func (s *SignalState) Block(mask SignalMask) SignalMask {
	old := s.blocked.Or(uint64(mask))
	return SignalMask(old)
}

// SetBlocked replaces the blocked-signal mask outright.
func (s *SignalState) SetBlocked(mask SignalMask) {
	s.blocked.Store(uint64(mask))
}

// Blocked returns the current blocked-signal mask.
func (s *SignalState) Blocked() SignalMask {
	return SignalMask(s.blocked.Load())
}

// Raise marks sig pending delivery, returning true if it wasn't
// already pending.
func (s *SignalState) Raise(sig uint64) bool {
	for {
		old := s.pending.Load()
		if old&sig != 0 {
			return false
		}
		if s.pending.CompareAndSwap(old, old|sig) {
			return true
		}
	}
}

// Deliverable returns the pending signals not currently blocked —
// the set a task should act on the next time it checks for signals.
func (s *SignalState) Deliverable() SignalMask {
	return SignalMask(s.pending.Load() &^ s.blocked.Load())
}

// Ack clears sig from the pending set once delivered.
func (s *SignalState) Ack(sig uint64) {
	for {
		old := s.pending.Load()
		if s.pending.CompareAndSwap(old, old&^sig) {
			return
		}
	}
}
