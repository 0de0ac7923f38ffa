package timer

import (
	"sync"
	"time"

	"github.com/google/btree"
)

// ProcessTime is the lookahead window used by Batched mode: deadlines
// within ProcessTime of "now" are fired eagerly rather than waiting for
// a later ProcessExpired call, trading a small amount of early-fire
// slack for fewer passes over the store.
const ProcessTime = 30 * time.Microsecond

// entryKey orders TimerStore entries by (expiry, id) so btree gives a
// stable total order even when two timers share a deadline.
type entryKey struct {
	expiry time.Duration
	id     uint64
}

func (a entryKey) Less(than btree.Item) bool {
	b := than.(entryKey)
	if a.expiry != b.expiry {
		return a.expiry < b.expiry
	}
	return a.id < b.id
}

// TimerStore is the Batched-mode timer strategy: every armed timer is a key in one sorted
// set, so one ProcessExpired call can settle many logical timers. The
// store submits no io_uring timeout itself: NextDeadline reports the
// earliest deadline, and timers fire only when a caller invokes
// ProcessExpired.
type TimerStore struct {
	mu      sync.Mutex
	tree    *btree.BTree
	byID    map[uint64]*Timer
	clock   Clock
	nextSeq uint64
}

// NewTimerStore returns an empty batched timer store.
func NewTimerStore(clock Clock) *TimerStore {
	return &TimerStore{
		tree:  btree.New(32),
		byID:  make(map[uint64]*Timer),
		clock: clock,
	}
}

// Add registers t at deadline. Returns the sequence number the
// eventual aggregate-completion processing must present to fire it.
func (s *TimerStore) Add(t *Timer, deadline time.Duration) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := t.Arm(deadline)
	s.nextSeq++
	s.tree.ReplaceOrInsert(entryKey{expiry: deadline, id: t.ID()})
	s.byID[t.ID()] = t
	return seq
}

// Remove cancels and removes t from the store.
func (s *TimerStore) Remove(t *Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deadline, armed := t.Deadline(); armed {
		s.tree.Delete(entryKey{expiry: deadline, id: t.ID()})
	}
	delete(s.byID, t.ID())
	t.Cancel()
}

// NextDeadline returns the earliest scheduled deadline in the store.
func (s *TimerStore) NextDeadline() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found entryKey
	ok := false
	s.tree.Ascend(func(it btree.Item) bool {
		found = it.(entryKey)
		ok = true
		return false
	})
	return found.expiry, ok
}

// ProcessExpired fires every timer whose deadline is at or before
// now+ProcessTime, removing each from the store as it fires.
func (s *TimerStore) ProcessExpired(now time.Duration) int {
	cutoff := now + ProcessTime
	s.mu.Lock()
	var due []*Timer
	var keys []entryKey
	s.tree.Ascend(func(it btree.Item) bool {
		k := it.(entryKey)
		if k.expiry > cutoff {
			return false
		}
		keys = append(keys, k)
		if t, ok := s.byID[k.id]; ok {
			due = append(due, t)
		}
		return true
	})
	for _, k := range keys {
		s.tree.Delete(k)
		delete(s.byID, k.id)
	}
	s.mu.Unlock()

	for _, t := range due {
		if _, armed := t.Deadline(); armed {
			t.mu.Lock()
			seq := t.seq
			t.mu.Unlock()
			t.Fire(seq)
		}
	}
	return len(due)
}

// Len returns the number of timers currently tracked.
func (s *TimerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Len()
}
