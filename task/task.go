package task

import (
	"sync"
	"sync/atomic"
)

// State is the coarse run state of a Task.
type State int32

const (
	StateRunnable State = iota
	StateRunning
	StateBlocked
	StateExited
)

// Credentials mirrors the uid/gid/capability set a task runs with.
type Credentials struct {
	UID, GID   uint32
	EUID, EGID uint32
	Caps       uint64
}

// Task is one schedulable unit of execution. The Scheduler invokes its
// RunFunc for a Task on one of the vCPU goroutines, and the Task blocks
// that goroutine directly via its Blocker rather than yielding to a
// cooperative trampoline.
type Task struct {
	id      uint64
	state   atomic.Int32
	Blocker *Blocker

	mu       sync.Mutex
	parent   *Task
	children map[uint64]*Task

	Creds      Credentials
	ExitStatus int32

	// interrupted is closed when a pending signal should abort the
	// task's current blocking call.
	interrupted chan struct{}
}

// New allocates a task ID from reg and constructs a Task for it.
// Callers must call reg.Register(t) once the task is fully
// constructed and before it can be looked up by other tasks.
func New(reg *Registry, parent *Task) *Task {
	id := reg.Alloc()
	t := &Task{
		id:          id,
		children:    make(map[uint64]*Task),
		parent:      parent,
		interrupted: make(chan struct{}),
	}
	t.Blocker = NewBlocker(id)
	t.state.Store(int32(StateRunnable))
	if parent != nil {
		parent.mu.Lock()
		parent.children[id] = t
		parent.mu.Unlock()
	}
	return t
}

func (t *Task) ID() uint64 { return t.id }

func (t *Task) State() State { return State(t.state.Load()) }

func (t *Task) setState(s State) { t.state.Store(int32(s)) }

// Interrupted returns the channel a blocking call selects on to detect
// signal-delivered interruption.
func (t *Task) Interrupted() <-chan struct{} { return t.interrupted }

// Interrupt aborts any in-progress blocking call on this task, the Go
// realization of delivering a pending signal to a blocked thread.
func (t *Task) Interrupt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.interrupted:
		// already interrupted; next blocking call will need a fresh
		// channel, rearmed by ClearInterrupt.
	default:
		close(t.interrupted)
	}
}

// ClearInterrupt rearms the interrupt channel after a signal has been
// consumed, so a subsequent blocking call isn't immediately aborted.
func (t *Task) ClearInterrupt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interrupted = make(chan struct{})
}

// Parent returns the task's parent, or nil for the init task.
func (t *Task) Parent() *Task { return t.parent }

// Children returns a snapshot of the task's child IDs.
func (t *Task) Children() []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]uint64, 0, len(t.children))
	for id := range t.children {
		ids = append(ids, id)
	}
	return ids
}

// Exit marks the task exited with the given status and detaches it
// from its parent's child set.
func (t *Task) Exit(status int32) {
	t.ExitStatus = status
	t.setState(StateExited)
	if t.parent != nil {
		t.parent.mu.Lock()
		delete(t.parent.children, t.id)
		t.parent.mu.Unlock()
	}
}
