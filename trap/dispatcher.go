package trap

import (
	"github.com/quark-hypervisor/qkernel/mm"
	"github.com/quark-hypervisor/qkernel/qlog"
)

// SignalRaiser is implemented by whatever owns a task's pending-signal
// state (kernel.SignalState in production); kept as an interface here
// to avoid trap importing kernel.
type SignalRaiser interface {
	Raise(sig uint64) bool
}

// Dispatcher routes a Fault to its resolution and, if the fault maps
// to a delivered signal, raises it on the faulting task. It holds no
// mutable state of its own beyond the memory manager and read hook it
// is constructed with; one Dispatcher is shared by every task in an
// address space.
type Dispatcher struct {
	mm         *mm.MemoryManager
	readShared func(uintptr) []byte
}

// NewDispatcher returns a dispatcher over m, reading shared page
// contents via readShared (see mm.CopyOnWriteFault).
func NewDispatcher(m *mm.MemoryManager, readShared func(uintptr) []byte) *Dispatcher {
	return &Dispatcher{mm: m, readShared: readShared}
}

// Handle resolves f and, for a signal outcome, raises it on raiser.
// It returns the Resolution so the caller can install a freshly
// allocated COW page into the guest page table when Outcome is
// OutcomeResolved and Page is non-zero.
//
// TODO: a KindPageFault against a tmpfs-backed file mapping that has
// been truncated underneath the guest currently resolves as
// ErrNoVMA/SEGV_MAPERR like any other unmapped access; a file truncate
// racing an active mmap should raise SIGBUS instead, which needs a
// dedicated mm error distinct from "no VMA at all".
func (d *Dispatcher) Handle(f Fault, raiser SignalRaiser) Resolution {
	if f.Kind != KindPageFault {
		signal, code, ok := Classify(f.Kind)
		if !ok {
			qlog.Component("trap").Error().Int("kind", int(f.Kind)).Msg("unclassified exception, treating as fatal")
			return Resolution{Outcome: OutcomeFatal}
		}
		raiser.Raise(uint64(1) << uint(signal))
		return Resolution{Outcome: OutcomeSignal, Signal: signal, Code: code}
	}

	res := HandlePageFault(d.mm, f, d.readShared)
	if res.Outcome == OutcomeSignal {
		raiser.Raise(uint64(1) << uint(res.Signal))
	}
	if res.Outcome == OutcomeFatal {
		// TODO: surface fatal page-fault-resolution failures (COW OOM)
		// through the OOM hypercall path before panicking, rather than
		// panicking directly here; needs a handle back to hostcall.Transport
		// which Dispatcher does not currently hold.
		qlog.Component("trap").Error().Uintptr("addr", f.Addr).Msg("unrecoverable page fault")
	}
	return res
}
