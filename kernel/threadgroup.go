package kernel

import "sync"

// ThreadGroup is the POSIX process abstraction: a set of tasks sharing
// a PID, signal disposition table, and exit status, exactly one of
// which is the group leader.
type ThreadGroup struct {
	mu       sync.Mutex
	pid      int32
	ns       *PIDNamespace
	leader   TaskRef
	members  map[uint64]TaskRef
	exited   bool
	exitCode int32
}

// NewThreadGroup creates a thread group led by leader, allocating its
// PID from ns.
func NewThreadGroup(ns *PIDNamespace, leader TaskRef) *ThreadGroup {
	tg := &ThreadGroup{
		ns:      ns,
		leader:  leader,
		members: map[uint64]TaskRef{leader.ID(): leader},
	}
	tg.pid = ns.NewThreadGroup(tg)
	return tg
}

func (tg *ThreadGroup) PID() int32 { return tg.pid }

func (tg *ThreadGroup) Leader() TaskRef { return tg.leader }

// AddMember records t as a new member of the thread group (e.g. a
// pthread_create-style additional task sharing the same PID).
func (tg *ThreadGroup) AddMember(t TaskRef) {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	tg.members[t.ID()] = t
}

// RemoveMember drops t from the thread group once it has exited.
func (tg *ThreadGroup) RemoveMember(id uint64) {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	delete(tg.members, id)
}

// Members returns a snapshot of the thread group's current members.
func (tg *ThreadGroup) Members() []TaskRef {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	out := make([]TaskRef, 0, len(tg.members))
	for _, t := range tg.members {
		out = append(out, t)
	}
	return out
}

// SetExited records the group's collective exit status once every
// member has exited; subsequent calls are no-ops (first exit wins, as
// with a real process's exit code).
func (tg *ThreadGroup) SetExited(code int32) {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	if tg.exited {
		return
	}
	tg.exited = true
	tg.exitCode = code
}

// ExitStatus reports whether the group has exited and its code.
func (tg *ThreadGroup) ExitStatus() (int32, bool) {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return tg.exitCode, tg.exited
}
