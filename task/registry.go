// Package task implements the cooperative task runtime.
// The original kernel identifies a task by the address of its own
// stack and recovers a *Task pointer by masking the current stack
// pointer down to that stack's base — a trick with no Go equivalent,
// since goroutine stacks move and their addresses aren't something Go
// code may compute from a register. This package instead realizes
// "stack as identity" as a task handle: every Task gets a numeric ID
// at creation, callers thread that ID (or the *Task itself) through
// calls explicitly, and Registry is the lookup table a stack-address
// mask would otherwise have made unnecessary. This also matches how
// gVisor's own Go sentry identifies tasks: by explicit *Task value,
// not by stack inspection.
package task

import "sync"

// Registry is the process-wide task lookup table.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uint64]*Task
	nextID uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint64]*Task)}
}

// Alloc reserves a fresh task ID without yet registering a Task for
// it (used by New, which must assign t.id before Register can key on
// it).
func (r *Registry) Alloc() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID
}

// Register makes t visible to Lookup by its ID.
func (r *Registry) Register(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID()] = t
}

// Unregister removes a task, called once it has fully exited.
func (r *Registry) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// Lookup resolves a task handle to its Task, mirroring what the
// original's stack-pointer mask would have produced.
func (r *Registry) Lookup(id uint64) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// Len reports the number of currently registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
