// Package waiter implements the wait-entry/queue primitives: a
// WaitEntry carries an event-mask filter plus one of a
// closed set of dispatch contexts (thread wake, epoll poll-entry
// callback, file-async notifier, or none), and a Queue is a list of
// entries notified together when an event fires.
package waiter

import "sync"

// EventMask is a bitmask of events a WaitEntry is interested in.
type EventMask uint64

// ContextKind discriminates the WaitEntry dispatch contexts named in
// ("WaitEntry / Queue"). Modeled as a small closed interface
// rather than an inheritance hierarchy, per the guidance
// for "dynamic dispatch over many shapes".
type ContextKind int

const (
	ContextNone ContextKind = iota
	ContextThread
	ContextEpoll
	ContextFileAsync
)

// DispatchContext is implemented by each of the four WaitEntry dispatch
// shapes. CallBack is invoked by Notify when the entry's mask overlaps
// the fired event mask.
type DispatchContext interface {
	Kind() ContextKind
	CallBack()
}

// noneContext is the zero-value dispatch context: Notify is a no-op.
type noneContext struct{}

func (noneContext) Kind() ContextKind { return ContextNone }
func (noneContext) CallBack()         {}

// ThreadWaker is implemented by the blocker-facing waiter so a
// ThreadContext can trigger it without waiter importing the task
// package (which would create an import cycle: task depends on waiter
// for its Blocker).
type ThreadWaker interface {
	Trigger(waiterID uint64)
}

// ThreadContext wakes a specific blocked thread/task via its Waiter.
type ThreadContext struct {
	WaiterID uint64
	Waiter   ThreadWaker
	// Tid is set for futex waits so a PI-mutex waiter can be identified
	// by thread id rather than by WaiterID alone.
	Tid uint32
}

func (c *ThreadContext) Kind() ContextKind { return ContextThread }
func (c *ThreadContext) CallBack()         { c.Waiter.Trigger(c.WaiterID) }

// EpollCallback is implemented by an epoll poll-entry.
type EpollCallback interface {
	Notify()
}

// EpollContext routes the notification into the epoll poll-entry
// callback.
type EpollContext struct {
	Entry EpollCallback
}

func (c *EpollContext) Kind() ContextKind { return ContextEpoll }
func (c *EpollContext) CallBack()         { c.Entry.Notify() }

// FileAsyncCallback is implemented by a file's SIGIO-style async
// notifier.
type FileAsyncCallback interface {
	Callback()
}

// FileAsyncContext delivers SIGIO-style async I/O notification.
type FileAsyncContext struct {
	Notifier FileAsyncCallback
}

func (c *FileAsyncContext) Kind() ContextKind { return ContextFileAsync }
func (c *FileAsyncContext) CallBack()         { c.Notifier.Callback() }

// Entry is one node of a Queue's doubly-linked list: an event-mask
// filter plus a dispatch context. The invariant from is
// preserved here with a mutex instead of the original's interior
// mutability cell, since Go entries are shared across goroutines, not
// just across aliases on one thread.
type Entry struct {
	mu   sync.Mutex
	next *Entry
	prev *Entry
	mask EventMask
	ctx  DispatchContext
}

// NewEntry returns an entry with no dispatch context (Notify is a
// no-op until SetContext is called).
func NewEntry() *Entry {
	return &Entry{ctx: noneContext{}}
}

// NewThreadEntry returns an entry wired to wake a specific task/thread
// waiter.
func NewThreadEntry(waiter ThreadWaker, waiterID uint64, mask EventMask) *Entry {
	return &Entry{
		mask: mask,
		ctx:  &ThreadContext{WaiterID: waiterID, Waiter: waiter},
	}
}

// SetMask updates the entry's event-mask filter.
func (e *Entry) SetMask(mask EventMask) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mask = mask
}

// Mask returns the entry's current event-mask filter.
func (e *Entry) Mask() EventMask {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mask
}

// SetContext replaces the entry's dispatch context.
func (e *Entry) SetContext(ctx DispatchContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx = ctx
}

// Notify invokes the entry's callback iff mask overlaps the entry's
// filter; zero overlap is a no-op.
func (e *Entry) Notify(mask EventMask) bool {
	e.mu.Lock()
	m, ctx := e.mask, e.ctx
	e.mu.Unlock()
	if mask&m == 0 {
		return false
	}
	ctx.CallBack()
	return true
}

// Reset clears the entry's queue linkage, used after Unregister so a
// reused entry starts from a known state.
func (e *Entry) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next = nil
	e.prev = nil
}

// InitState reports whether the entry is not currently linked into any
// queue.
func (e *Entry) InitState() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.next == nil && e.prev == nil
}
