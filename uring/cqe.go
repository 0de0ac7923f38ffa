//go:build linux

package uring

import (
	"sync/atomic"
	"syscall"
)

// ForEachCQE iterates over all completions currently in the CQ ring.
// The callback receives userData, result, and flags for each CQE; it
// returns false to stop iteration early. This is Bridge.Pump's only
// way of draining completions back out to timer.Fire/waiter.Notify —
// the CQ head is advanced once, after the whole batch is processed.
func (r *Ring) ForEachCQE(fn func(userData uint64, res int32, flags uint32) bool) int {
	head := atomic.LoadUint32(r.cqHead)
	tail := atomic.LoadUint32(r.cqTail)
	count := 0

	for head != tail {
		idx := head & r.cqMask
		cqe := &r.cqes[idx]

		if !fn(cqe.UserData, cqe.Res, cqe.Flags) {
			break
		}

		head++
		count++
	}

	if count > 0 {
		atomic.StoreUint32(r.cqHead, head)
	}

	return count
}

// ResultError converts a CQE result to an error if negative.
// Returns nil if the result is non-negative.
func ResultError(res int32) error {
	if res >= 0 {
		return nil
	}
	return syscall.Errno(-res)
}
