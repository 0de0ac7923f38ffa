package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTask struct{ id uint64 }

func (f fakeTask) ID() uint64 { return f.id }

func TestPIDNamespaceAllocAndRelease(t *testing.T) {
	ns := NewPIDNamespace()
	pid := ns.AllocPID(fakeTask{id: 1})
	require.Equal(t, int32(1), pid)

	got, ok := ns.TaskWithPID(pid)
	require.True(t, ok)
	require.Equal(t, uint64(1), got.ID())

	ns.ReleasePID(pid)
	_, ok = ns.TaskWithPID(pid)
	require.False(t, ok)
}

func TestPIDNamespaceChildIsIndependent(t *testing.T) {
	root := NewPIDNamespace()
	root.AllocPID(fakeTask{id: 1})
	child := root.NewChild()

	pid := child.AllocPID(fakeTask{id: 2})
	require.Equal(t, int32(1), pid)
	got, ok := root.TaskWithPID(pid)
	require.True(t, ok)
	require.Equal(t, uint64(1), got.ID(), "a child allocation must not overwrite the parent's entry")
}

func TestThreadGroupPIDAllocation(t *testing.T) {
	ns := NewPIDNamespace()
	tg := NewThreadGroup(ns, fakeTask{id: 1})
	require.Equal(t, int32(1), tg.PID())

	got, ok := ns.ThreadGroupWithPID(tg.PID())
	require.True(t, ok)
	require.Same(t, tg, got)
}
