// Package trap models the exception/fault dispatch plane:
// the policy table mapping a hardware exception to a guest-visible
// signal, and the page-fault resolution entry point that bridges a
// trap into the mm package's COW logic. The original IDT/swapgs
// hardware mechanics have no Go analogue and are deliberately not
// modeled; trap.Dispatcher only represents the *policy* a real IDT
// handler would apply once the hypervisor has already delivered the
// vCPU exit to guest code.
package trap

// Fault is a value-type description of one hardware exception,
// standing in for an IDT vector in the original design: everything
// Dispatcher's policy needs to decide how to handle the exception, and
// nothing about how it was actually raised.
type Fault struct {
	Kind    Kind
	Addr    uintptr // faulting address, for page faults
	Write   bool    // faulting access was a write
	IP      uintptr // instruction pointer at fault time
	ErrCode uint64  // raw hardware error code, passed through for logging
}

// Kind enumerates the exception kinds the dispatcher policy table
// covers.
type Kind int

const (
	KindPageFault Kind = iota
	KindGeneralProtection
	KindDivideError
	KindInvalidOpcode
	KindBreakpoint
	KindDebug
)

// Signal is the guest-visible signal number a Kind maps to.
type Signal int

const (
	SIGSEGV Signal = 11
	SIGFPE  Signal = 8
	SIGILL  Signal = 4
	SIGTRAP Signal = 5
)

// SigCode carries the si_code detail alongside a Signal, e.g.
// SEGV_MAPERR vs SEGV_ACCERR.
type SigCode int

const (
	SegvMapErr SigCode = 1
	SegvAccErr SigCode = 2
)

// policy maps each non-page-fault Kind to the signal/code it raises.
// Page faults are handled separately by HandlePageFault
// since they may be resolved in-kernel (COW) rather than delivered as
// a signal at all.
var policy = map[Kind]struct {
	Signal Signal
	Code   SigCode
}{
	KindGeneralProtection: {SIGSEGV, SegvAccErr},
	KindDivideError:       {SIGFPE, 0},
	KindInvalidOpcode:     {SIGILL, 0},
	KindBreakpoint:        {SIGTRAP, 0},
	KindDebug:             {SIGTRAP, 0},
}

// Classify returns the signal/code a non-page-fault exception should
// raise, and false if Kind has no policy entry (a fault the kernel
// cannot classify, which Dispatcher treats as fatal).
func Classify(k Kind) (Signal, SigCode, bool) {
	p, ok := policy[k]
	return p.Signal, p.Code, ok
}
