package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsEnqueuedTasks(t *testing.T) {
	reg := NewRegistry()
	var ran atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	sched := NewScheduler(reg, 2, func(ctx context.Context, tk *Task) {
		ran.Add(1)
		tk.Exit(0)
		wg.Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	for i := 0; i < 3; i++ {
		Spawn(reg, sched, nil)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all spawned tasks ran")
	}
	require.Equal(t, int32(3), ran.Load())
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	reg := NewRegistry()
	sched := NewScheduler(reg, 1, func(ctx context.Context, tk *Task) {})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- sched.Run(ctx)
	}()

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
