package waiter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type countingContext struct {
	kind  ContextKind
	calls int
}

func (c *countingContext) Kind() ContextKind { return c.kind }
func (c *countingContext) CallBack()         { c.calls++ }

func TestQueueNotifyMaskIntersection(t *testing.T) {
	q := NewQueue()
	ctx := &countingContext{kind: ContextThread}
	e := NewEntry()
	e.SetMask(0b0010)
	e.SetContext(ctx)
	q.EventRegister(e)

	n := q.Notify(0b0100)
	require.Equal(t, 0, n)
	require.Equal(t, 0, ctx.calls)

	n = q.Notify(0b0011)
	require.Equal(t, 1, n)
	require.Equal(t, 1, ctx.calls)
}

func TestQueueUnregister(t *testing.T) {
	q := NewQueue()
	ctx := &countingContext{kind: ContextThread}
	e := NewEntry()
	e.SetMask(1)
	e.SetContext(ctx)
	q.EventRegister(e)
	q.EventUnregister(e)

	require.True(t, q.Empty())
	n := q.Notify(1)
	require.Equal(t, 0, n)
	require.Equal(t, 0, ctx.calls)
}

func TestQueueMultipleEntries(t *testing.T) {
	q := NewQueue()
	ctxs := make([]*countingContext, 3)
	for i := range ctxs {
		ctxs[i] = &countingContext{kind: ContextThread}
		e := NewEntry()
		e.SetMask(1)
		e.SetContext(ctxs[i])
		q.EventRegister(e)
	}

	n := q.Notify(1)
	require.Equal(t, 3, n)
	for _, c := range ctxs {
		require.Equal(t, 1, c.calls)
	}
}
