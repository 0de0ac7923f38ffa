package waiter

import "sync"

// QLock is the kernel's task-blocking mutex,
// distinct from a spinlock: a contended Lock call parks the calling
// goroutine instead of spinning, and Unlock wakes every parked waiter
// so exactly one of them wins the re-acquisition race. This mirrors
// the "wake all, let one win" discipline many futex-based mutexes use
// rather than handing the lock directly to a chosen successor.
type QLock struct {
	mu      sync.Mutex
	locked  bool
	waiters []chan struct{}
}

// NewQLock returns an unlocked QLock.
func NewQLock() *QLock { return &QLock{} }

// Lock blocks until the lock is acquired.
func (l *QLock) Lock() {
	for {
		l.mu.Lock()
		if !l.locked {
			l.locked = true
			l.mu.Unlock()
			return
		}
		ch := make(chan struct{})
		l.waiters = append(l.waiters, ch)
		l.mu.Unlock()
		<-ch
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *QLock) TryLock() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked {
		return false
	}
	l.locked = true
	return true
}

// Unlock releases the lock and wakes every parked waiter; exactly one
// of them will observe locked == false and win the re-acquisition.
func (l *QLock) Unlock() {
	l.mu.Lock()
	l.locked = false
	woken := l.waiters
	l.waiters = nil
	l.mu.Unlock()

	for _, ch := range woken {
		close(ch)
	}
}
