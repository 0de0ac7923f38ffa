package waiter

import "sync"

// Queue is an intrusive doubly-linked list of Entry, notified together
// when the event they watch fires. Registration and notification both
// take the queue lock; Notify releases it before invoking callbacks so
// a callback that re-enters the queue (e.g. to re-register itself)
// does not deadlock.
type Queue struct {
	mu   sync.Mutex
	head *Entry
	tail *Entry
}

// NewQueue returns an empty queue.
func NewQueue() *Queue { return &Queue{} }

// EventRegister links e into the queue. e must not already be linked
// into any queue.
func (q *Queue) EventRegister(e *Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e.prev = q.tail
	e.next = nil
	if q.tail != nil {
		q.tail.next = e
	} else {
		q.head = e
	}
	q.tail = e
}

// EventUnregister removes e from the queue. No-op if e is not linked.
func (q *Queue) EventUnregister(e *Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e.prev != nil {
		e.prev.next = e.next
	} else if q.head == e {
		q.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else if q.tail == e {
		q.tail = e.prev
	}
	e.Reset()
}

// Notify walks the queue under lock to snapshot the entries, releases
// the lock, then invokes each entry's callback whose mask overlaps
// mask. Returns the count of entries actually notified.
func (q *Queue) Notify(mask EventMask) int {
	q.mu.Lock()
	entries := make([]*Entry, 0, 4)
	for e := q.head; e != nil; e = e.next {
		entries = append(entries, e)
	}
	q.mu.Unlock()

	n := 0
	for _, e := range entries {
		if e.Notify(mask) {
			n++
		}
	}
	return n
}

// Empty reports whether the queue currently has no registered entries.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head == nil
}
