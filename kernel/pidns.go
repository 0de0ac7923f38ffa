// Package kernel groups the process/thread-group identity layer above
// an individual task: PID namespaces, thread groups, and per-thread
// signal state (SignalState). Modeled on gVisor's
// pkg/sentry/kernel PIDNamespace/ThreadGroup split (the example pack's
// katexochen-gvisor checkout), adapted to qkernel's task package.
package kernel

import "sync"

// PIDNamespace maps PIDs/TIDs to tasks and thread groups within one
// namespace, and vends fresh IDs on task/group creation. A child
// namespace made by NewChild keeps its own independent table: its
// tasks are not registered in, and cannot be looked up through, any
// ancestor namespace.
type PIDNamespace struct {
	mu       sync.RWMutex
	parent   *PIDNamespace
	nextPID  int32
	tasks    map[int32]TaskRef
	groups   map[int32]*ThreadGroup
}

// TaskRef is the minimal task identity a PIDNamespace needs; kept as
// an interface rather than importing *task.Task directly to avoid a
// kernel<->task import cycle (task will eventually want to look up
// the namespace a task's PID lives in).
type TaskRef interface {
	ID() uint64
}

// NewPIDNamespace returns a root PID namespace with no parent.
func NewPIDNamespace() *PIDNamespace {
	return &PIDNamespace{
		tasks:  make(map[int32]TaskRef),
		groups: make(map[int32]*ThreadGroup),
	}
}

// NewChild returns a namespace nested inside ns.
func (ns *PIDNamespace) NewChild() *PIDNamespace {
	child := NewPIDNamespace()
	child.parent = ns
	return child
}

// AllocPID assigns the next unused PID within this namespace and
// records t against it.
func (ns *PIDNamespace) AllocPID(t TaskRef) int32 {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.nextPID++
	pid := ns.nextPID
	ns.tasks[pid] = t
	return pid
}

// ReleasePID removes a task's PID once it has exited and been reaped.
func (ns *PIDNamespace) ReleasePID(pid int32) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	delete(ns.tasks, pid)
}

// TaskWithPID resolves a PID to its task within this namespace.
func (ns *PIDNamespace) TaskWithPID(pid int32) (TaskRef, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	t, ok := ns.tasks[pid]
	return t, ok
}

// NewThreadGroup allocates a PID for tg and records it as a group
// leader within this namespace.
func (ns *PIDNamespace) NewThreadGroup(tg *ThreadGroup) int32 {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.nextPID++
	pid := ns.nextPID
	ns.groups[pid] = tg
	return pid
}

// ThreadGroupWithPID resolves a PID to its thread group.
func (ns *PIDNamespace) ThreadGroupWithPID(pid int32) (*ThreadGroup, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	tg, ok := ns.groups[pid]
	return tg, ok
}
