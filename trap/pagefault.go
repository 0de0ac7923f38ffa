package trap

import (
	"github.com/quark-hypervisor/qkernel/mm"
)

// Outcome is what the dispatcher should do after resolving a fault.
type Outcome int

const (
	OutcomeResolved  Outcome = iota // fault handled, guest resumes
	OutcomeSignal                  // deliver Signal/SigCode to the task
	OutcomeFatal                   // unrecoverable, surfaces as a kernel panic
)

// Resolution is the result of HandlePageFault.
type Resolution struct {
	Outcome Outcome
	Page    mm.PhysPage
	Signal  Signal
	Code    SigCode
}

// HandlePageFault implements the page-fault resolution steps:
//  1. Look up the VMA covering the faulting address.
//  2. No VMA covers it: SIGSEGV/SEGV_MAPERR.
//  3. VMA found but the access violates its permissions: SIGSEGV/SEGV_ACCERR.
//  4. Read fault against a valid VMA: nothing to do, map existing page.
//  5. Write fault against a shared VMA: nothing to do, map existing page r/w.
//  6. Write fault against a private VMA: copy-on-write a fresh page.
func HandlePageFault(m *mm.MemoryManager, f Fault, readShared func(uintptr) []byte) Resolution {
	page, err := m.HandlePageFault(f.Addr, f.Write, readShared)
	switch err {
	case nil:
		return Resolution{Outcome: OutcomeResolved, Page: page}
	case mm.ErrNotCOWFault:
		return Resolution{Outcome: OutcomeResolved}
	case mm.ErrNoVMA:
		return Resolution{Outcome: OutcomeSignal, Signal: SIGSEGV, Code: SegvMapErr}
	case mm.ErrAccessDenied:
		return Resolution{Outcome: OutcomeSignal, Signal: SIGSEGV, Code: SegvAccErr}
	default:
		// A COW page allocation failure (OOM) is not something a signal
		// can paper over: the guest has no more memory to give this
		// fault, so it surfaces fatally rather than as SIGSEGV.
		return Resolution{Outcome: OutcomeFatal}
	}
}
