//go:build linux

// Package uring implements the guest side of the io_uring bridge: a
// ring whose SQ/CQE memory is either a real local io_uring instance
// (LocalMode, used by this package's own tests and by tools that want a
// working ring without a hypervisor) or a region the host VMM has already
// set up and shared with the guest (GuestMode, used by the kernel
// runtime). In GuestMode the guest never calls io_uring_enter itself —
// see Ring.SetKicker — the host does that on the guest's behalf once it
// observes the SQ ring is non-empty.
package uring

import (
	"errors"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/quark-hypervisor/qkernel/internal/sys"
)

// Common errors
var (
	ErrRingClosed   = errors.New("iouring: ring closed")
	ErrSQFull       = errors.New("iouring: submission queue full")
	ErrNotSupported = errors.New("iouring: operation not supported on this kernel")
)

// Timespec is a time specification for timeout operations.
type Timespec = sys.Timespec

// Ring represents an io_uring instance restricted to the fixed op set
// a guest bridge submits: NOP, buffered-socket READ/WRITE, FSYNC,
// TIMEOUT, and TIMEOUT_REMOVE. It carries no SQPOLL/IOPOLL/fixed-file
// setup because no component in this kernel drives those modes.
type Ring struct {
	fd       int
	params   sys.Params
	features uint32

	// Submission queue
	sqRing    []byte    // mmap'd SQ ring
	sqEntries uint32    // Number of SQ entries
	sqMask    uint32    // SQ ring mask
	sqHead    *uint32   // Pointer into mmap'd region
	sqTail    *uint32   // Pointer into mmap'd region
	sqFlags   *uint32   // Pointer into mmap'd region
	sqDropped *uint32   // Pointer into mmap'd region
	sqArray   []uint32  // SQ index array (into sqes)
	sqes      []sys.SQE // SQE array
	sqesMmap  []byte    // mmap'd SQE region

	// Completion queue
	cqRing     []byte    // mmap'd CQ ring (may share with sqRing)
	cqEntries  uint32    // Number of CQ entries
	cqMask     uint32    // CQ ring mask
	cqHead     *uint32   // Pointer into mmap'd region
	cqTail     *uint32   // Pointer into mmap'd region
	cqFlags    *uint32   // Pointer into mmap'd region
	cqOverflow *uint32   // Pointer into mmap'd region
	cqes       []sys.CQE // CQE array (view into mmap)

	// Internal state
	sqLock    sync.Mutex // Protects SQ access for concurrent use
	sqPending uint32     // Number of SQEs pending submission
	closed    atomic.Bool

	mode   Mode
	kicker func() // GuestMode: notifies the host instead of a syscall
}

// Mode selects who drives io_uring_enter for this ring.
type Mode int

const (
	// LocalMode calls io_uring_enter directly; used by tests and by
	// standalone tools that own a real io_uring instance.
	LocalMode Mode = iota
	// GuestMode defers to the kick function installed by SetKicker
	// instead of issuing the enter syscall: the host owns the
	// io_uring instance and enters on the guest's behalf.
	GuestMode
)

// SetKicker installs the function invoked in place of io_uring_enter
// when the ring is in GuestMode, for example a closure that calls
// sharespace.ShareSpace.Notify to wake the host I/O thread.
func (r *Ring) SetKicker(kick func()) {
	r.mode = GuestMode
	r.kicker = kick
}

// New creates a new io_uring instance sized for at least entries
// submission queue entries (rounded up to a power of 2 by the kernel).
// No setup flags are requested: the bridge's fixed op set needs
// neither SQPOLL nor fixed files.
func New(entries uint32) (*Ring, error) {
	if entries == 0 {
		return nil, syscall.EINVAL
	}

	params := sys.Params{}

	fd, err := sys.Setup(entries, &params)
	if err != nil {
		return nil, err
	}

	r := &Ring{
		fd:       fd,
		params:   params,
		features: params.Features,
	}

	if err := r.mapRings(); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	return r, nil
}

// mapRings maps the SQ, CQ, and SQE arrays into memory.
func (r *Ring) mapRings() error {
	p := &r.params

	sqRingSize := p.SQOff.Array + p.SQEntries*4
	cqRingSize := p.CQOff.CQEs + p.CQEntries*uint32(unsafe.Sizeof(sys.CQE{}))

	singleMmap := p.Features&sys.IORING_FEAT_SINGLE_MMAP != 0
	if singleMmap {
		if cqRingSize > sqRingSize {
			sqRingSize = cqRingSize
		}
	}

	var err error
	r.sqRing, err = sys.Mmap(r.fd, sys.IORING_OFF_SQ_RING, int(sqRingSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		return err
	}

	if singleMmap {
		r.cqRing = r.sqRing
	} else {
		r.cqRing, err = sys.Mmap(r.fd, sys.IORING_OFF_CQ_RING, int(cqRingSize),
			syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
		if err != nil {
			sys.Munmap(r.sqRing)
			return err
		}
	}

	sqeSize := p.SQEntries * uint32(unsafe.Sizeof(sys.SQE{}))
	r.sqesMmap, err = sys.Mmap(r.fd, sys.IORING_OFF_SQES, int(sqeSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		if !singleMmap {
			sys.Munmap(r.cqRing)
		}
		sys.Munmap(r.sqRing)
		return err
	}

	r.sqEntries = *(*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.RingEntries]))
	r.sqMask = *(*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.RingMask]))
	r.sqHead = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Head]))
	r.sqTail = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Tail]))
	r.sqFlags = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Flags]))
	r.sqDropped = (*uint32)(unsafe.Pointer(&r.sqRing[p.SQOff.Dropped]))

	sqArrayPtr := unsafe.Pointer(&r.sqRing[p.SQOff.Array])
	r.sqArray = unsafe.Slice((*uint32)(sqArrayPtr), r.sqEntries)

	sqesPtr := unsafe.Pointer(&r.sqesMmap[0])
	r.sqes = unsafe.Slice((*sys.SQE)(sqesPtr), p.SQEntries)

	r.cqEntries = *(*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.RingEntries]))
	r.cqMask = *(*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.RingMask]))
	r.cqHead = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Head]))
	r.cqTail = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Tail]))
	r.cqFlags = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Flags]))
	r.cqOverflow = (*uint32)(unsafe.Pointer(&r.cqRing[p.CQOff.Overflow]))

	cqesPtr := unsafe.Pointer(&r.cqRing[p.CQOff.CQEs])
	r.cqes = unsafe.Slice((*sys.CQE)(cqesPtr), r.cqEntries)

	return nil
}

// Close closes the ring and releases all resources.
func (r *Ring) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	if r.params.Features&sys.IORING_FEAT_SINGLE_MMAP == 0 && r.cqRing != nil {
		sys.Munmap(r.cqRing)
	}

	if r.sqRing != nil {
		sys.Munmap(r.sqRing)
	}
	if r.sqesMmap != nil {
		sys.Munmap(r.sqesMmap)
	}

	return syscall.Close(r.fd)
}

// Fd returns the ring file descriptor.
func (r *Ring) Fd() int {
	return r.fd
}

// Features returns the feature flags from io_uring_params.
func (r *Ring) Features() uint32 {
	return r.features
}

// HasFeature checks if a specific feature is supported.
func (r *Ring) HasFeature(feat uint32) bool {
	return r.features&feat != 0
}

// SQReady returns the number of SQEs ready for submission.
func (r *Ring) SQReady() uint32 {
	return r.sqPending
}

// CQReady returns the number of CQEs ready for consumption.
func (r *Ring) CQReady() uint32 {
	head := atomic.LoadUint32(r.cqHead)
	tail := atomic.LoadUint32(r.cqTail)
	return tail - head
}

// Submit submits all pending SQEs to the kernel. Returns the number of
// SQEs submitted.
func (r *Ring) Submit() (int, error) {
	if r.closed.Load() {
		return 0, ErrRingClosed
	}

	r.sqLock.Lock()
	submitted := r.sqPending
	if submitted == 0 {
		r.sqLock.Unlock()
		return 0, nil
	}

	tail := atomic.LoadUint32(r.sqTail)
	atomic.StoreUint32(r.sqTail, tail+submitted)
	r.sqPending = 0
	r.sqLock.Unlock()

	if r.mode == GuestMode {
		if r.kicker != nil {
			r.kicker()
		}
		return int(submitted), nil
	}

	n, err := sys.Enter(r.fd, submitted, 0, 0, nil)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// SubmitAndWait submits pending SQEs and waits for at least n completions.
// LocalMode only: a GuestMode ring never blocks its own goroutine on the
// kernel, it submits and lets the calling task suspend via its blocker
// (see uring.Bridge) until a CQE drain wakes it.
func (r *Ring) SubmitAndWait(n uint32) (int, error) {
	if r.closed.Load() {
		return 0, ErrRingClosed
	}

	r.sqLock.Lock()
	submitted := r.sqPending
	if submitted > 0 {
		tail := atomic.LoadUint32(r.sqTail)
		atomic.StoreUint32(r.sqTail, tail+submitted)
		r.sqPending = 0
	}
	r.sqLock.Unlock()

	result, err := sys.Enter(r.fd, submitted, n, sys.IORING_ENTER_GETEVENTS, nil)
	if err != nil {
		return 0, err
	}
	return result, nil
}

// RegisterEventfd registers an eventfd for completion notification. The
// bridge uses this to hand the ring the same fd hostcall.NewHostEventfd
// created, so the host's I/O thread wakes via epoll instead of polling
// the CQ ring.
func (r *Ring) RegisterEventfd(eventfd int) error {
	return sys.RegisterEventfd(r.fd, eventfd)
}

// UnregisterEventfd removes the registered eventfd.
func (r *Ring) UnregisterEventfd() error {
	return sys.UnregisterEventfd(r.fd)
}
