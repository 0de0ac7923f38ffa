package sharespace

import (
	"sync/atomic"

	"github.com/quark-hypervisor/qkernel/config"
)

// IOThreadState is the host I/O thread's coarse run state, shared with
// the guest so it knows whether writing the eventfd trigger is necessary.
type IOThreadState int32

const (
	IOThreadWaiting IOThreadState = iota
	IOThreadRunning
)

// Item is the fixed-size tagged union carried by both ShareSpace rings.
// Input and output items share the Go type here (both are 8-byte tag +
// payload) but occupy logically distinct tag spaces, matching the layout's
// HostInputMsg/HostOutputMsg split; callers keep the two separate by
// using QInput for host->guest and QOutput for guest->host exclusively.
type Item struct {
	Tag     uint64
	Payload [48]byte // enough for the largest ring-entry payload
}

// Scratchpad is the 16x2 atomic per-vCPU scratch area in the ShareSpace
// layout, used by the host and guest to exchange small values
// (e.g. vcpu frequency, wake counters) without going through a ring.
type Scratchpad [16][2]atomic.Uint64

// ShareSpace is the single process-wide structure mapped at an address
// visible to both guest and host. Initialization order is
// fixed by the chosen design: ShareSpace must exist (from the INIT
// hypercall) before the heap allocator or any other global state.
type ShareSpace struct {
	QInput  *Ring[Item] // host -> guest
	QOutput *Ring[Item] // guest -> host

	EventfdID    int32
	triggerWord  atomic.Uint32
	ioThreadState atomic.Int32

	hostMsgCount atomic.Uint64 // incremented on every async host-bound message

	Scratch Scratchpad
	Config  config.Config // immutable after Init

	// LogStream is the guest's log byte-stream descriptor; production
	// boot points this at the shared log region, tests point it at an
	// in-memory buffer via qlog.SetOutput.
	LogStream []byte
}

// New constructs an empty ShareSpace. Init must be called once, exactly
// as the INIT hypercall would populate it on a real boot, before any
// other component touches it.
func New() *ShareSpace {
	return &ShareSpace{
		QInput:  NewRing[Item](),
		QOutput: NewRing[Item](),
	}
}

// Init freezes the configuration record and records the eventfd used to
// wake the host I/O thread. Must run before the heap allocator per the
// component initialization order in the chosen design.
func (s *ShareSpace) Init(cfg config.Config, eventfdID int32) {
	s.Config = cfg
	s.EventfdID = eventfdID
	s.ioThreadState.Store(int32(IOThreadWaiting))
}

// IOThreadStateLoad returns the host I/O thread's current run state.
func (s *ShareSpace) IOThreadStateLoad() IOThreadState {
	return IOThreadState(s.ioThreadState.Load())
}

// Notify is the sole mechanism for edge-triggered host notification:
// it atomically swaps IOThreadState to RUNNING, and if the
// prior value was WAITING it writes the eventfd trigger word to wake the
// sleeping host thread. wakeFn performs the actual eventfd write (or, in
// tests, a channel send); it is only invoked on the WAITING->RUNNING
// edge, never on every call.
func (s *ShareSpace) Notify(wakeFn func(eventfdID int32)) {
	prev := s.ioThreadState.Swap(int32(IOThreadRunning))
	if IOThreadState(prev) == IOThreadWaiting {
		s.triggerWord.Add(1)
		if wakeFn != nil {
			wakeFn(s.EventfdID)
		}
	}
}

// MarkWaiting transitions the host thread state back to WAITING. Only
// the host side calls this; it is exposed here so the in-process
// loopback transport (used by every test in this repo) can emulate the
// host I/O thread faithfully.
func (s *ShareSpace) MarkWaiting() {
	s.ioThreadState.Store(int32(IOThreadWaiting))
}

// HostMsgCount returns the current value of the monotonic (modulo wrap)
// async-message counter.
func (s *ShareSpace) HostMsgCount() uint64 {
	return s.hostMsgCount.Load()
}

// IncHostMsgCount is called by the guest on every asynchronous
// host-bound message push.
func (s *ShareSpace) IncHostMsgCount() {
	s.hostMsgCount.Add(1)
}

// DecHostMsgCount is called by the host on every message it consumes.
func (s *ShareSpace) DecHostMsgCount() {
	s.hostMsgCount.Add(^uint64(0)) // -1, wraps the same way the Rust u64 does
}
