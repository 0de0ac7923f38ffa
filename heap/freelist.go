package heap

import "sync"

// DrainBatch is how many blocks Drain returns to the buddy heap per
// pass when a size class is over the drain heuristic's back-pressure
// threshold.
const DrainBatch = 10

// classList is one tier-2 per-size-class free list: a simple LIFO
// stack of previously-freed blocks of exactly this size, so the
// common case of repeatedly allocating/freeing the same small size
// never touches the buddy heap's locking and splitting at all.
type classList struct {
	mu      sync.Mutex
	size    uint64
	free    []uintptr
	reserve int // blocks kept even when draining
}

// Tier2 holds one classList per registered small-object size class,
// backed by a shared Buddy heap for overflow allocation and for
// draining excess blocks back under memory pressure.
type Tier2 struct {
	buddy   *Buddy
	mu      sync.RWMutex
	classes map[uint64]*classList
}

// NewTier2 returns an empty tier-2 allocator over buddy.
func NewTier2(buddy *Buddy) *Tier2 {
	return &Tier2{buddy: buddy, classes: make(map[uint64]*classList)}
}

// RegisterClass declares a size class with the given reserve count
// (the minimum number of blocks NeedFree/Drain will never reclaim).
func (t *Tier2) RegisterClass(size uint64, reserve int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.classes[size]; ok {
		return
	}
	t.classes[size] = &classList{size: size, reserve: reserve}
}

func (t *Tier2) classFor(size uint64) *classList {
	t.mu.RLock()
	c := t.classes[size]
	t.mu.RUnlock()
	return c
}

// Alloc returns a block of the given size class, falling back to the
// buddy heap when the class's free list is empty.
func (t *Tier2) Alloc(size uint64) (uintptr, error) {
	c := t.classFor(size)
	if c == nil {
		return t.buddy.Alloc(size)
	}
	c.mu.Lock()
	if n := len(c.free); n > 0 {
		addr := c.free[n-1]
		c.free = c.free[:n-1]
		c.mu.Unlock()
		return addr, nil
	}
	c.mu.Unlock()
	return t.buddy.Alloc(size)
}

// Free returns a block to its size class's tier-2 free list.
func (t *Tier2) Free(size uint64, addr uintptr) {
	c := t.classFor(size)
	if c == nil {
		t.buddy.Free(addr, size)
		return
	}
	c.mu.Lock()
	c.free = append(c.free, addr)
	c.mu.Unlock()
}

// NeedFree reports whether the buddy heap is under the back-pressure
// threshold that should trigger a drain: free space is
// under 30% of total, and the candidate class's held memory is more
// than half of what remains free. bufSize is the class's total held
// bytes (len(free) * size).
func NeedFree(total, free, bufSize uint64) bool {
	if total == 0 {
		return false
	}
	return free*10 < total*3 && bufSize*2 > free
}

// Drain returns up to DrainBatch blocks from the largest-held class
// first back to the buddy heap, honoring each class's reserve count,
// until the heap is no longer under back-pressure or there is nothing
// left to drain.
func (t *Tier2) Drain() int {
	total, free := t.buddy.Stats()

	t.mu.RLock()
	classes := make([]*classList, 0, len(t.classes))
	for _, c := range t.classes {
		classes = append(classes, c)
	}
	t.mu.RUnlock()

	drained := 0
	for {
		var target *classList
		var targetHeld uint64
		for _, c := range classes {
			c.mu.Lock()
			held := uint64(len(c.free)) * c.size
			c.mu.Unlock()
			if !NeedFree(total, free, held) {
				continue
			}
			if held > targetHeld {
				target = c
				targetHeld = held
			}
		}
		if target == nil {
			return drained
		}

		n := 0
		target.mu.Lock()
		for n < DrainBatch && len(target.free) > target.reserve {
			last := len(target.free) - 1
			addr := target.free[last]
			target.free = target.free[:last]
			target.mu.Unlock()
			t.buddy.Free(addr, target.size)
			n++
			target.mu.Lock()
		}
		target.mu.Unlock()

		if n == 0 {
			return drained
		}
		drained += n
		total, free = t.buddy.Stats()
	}
}
