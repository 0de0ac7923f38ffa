package task

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/quark-hypervisor/qkernel/qlog"
)

// RunFunc is the body a Scheduler invokes for each runnable Task. It
// returns when the task either blocks (having already parked itself
// through its Blocker before returning) or exits.
type RunFunc func(ctx context.Context, t *Task)

// Scheduler realizes the vCPU concurrency model: NumVCPU goroutines each pull a runnable Task off a shared
// channel and invoke RunFunc for it. This bounds the number of tasks
// making forward progress at once to NumVCPU, matching the real
// kernel's one-hardware-thread-per-vCPU constraint. There is no
// goroutine per task: a task that blocks inside RunFunc occupies the
// vCPU goroutine running it until RunFunc returns.
type Scheduler struct {
	reg     *Registry
	runq    chan *Task
	numVCPU int
	run     RunFunc
}

// NewScheduler returns a scheduler with the given vCPU count and a
// runnable-queue depth sized to the registry's typical task count.
func NewScheduler(reg *Registry, numVCPU int, run RunFunc) *Scheduler {
	return &Scheduler{
		reg:     reg,
		runq:    make(chan *Task, 4096),
		numVCPU: numVCPU,
		run:     run,
	}
}

// Enqueue marks t runnable and makes it visible to the vCPU pool.
func (s *Scheduler) Enqueue(t *Task) {
	t.setState(StateRunnable)
	s.runq <- t
}

// Run drives numVCPU worker goroutines until ctx is canceled. Each
// worker loops: pull a task, mark it StateRunning, invoke RunFunc,
// repeat. A task that needs to keep running after an await point
// re-enqueues itself via Enqueue rather than relying on the same vCPU
// goroutine resuming it.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	log := qlog.Component("task.scheduler")
	for i := 0; i < s.numVCPU; i++ {
		vcpuID := i
		g.Go(func() error {
			log.Debug().Int("vcpu", vcpuID).Msg("vcpu loop starting")
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case t := <-s.runq:
					t.setState(StateRunning)
					s.run(ctx, t)
				}
			}
		})
	}
	return g.Wait()
}

// Spawn creates a new task as a child of parent, registers it, and
// enqueues it on sched's runq. It starts no goroutine of its own; the
// task's instruction stream is driven by RunFunc each time a vCPU
// goroutine picks it up.
func Spawn(reg *Registry, sched *Scheduler, parent *Task) *Task {
	t := New(reg, parent)
	reg.Register(t)
	sched.Enqueue(t)
	return t
}
