// Package sys provides low-level io_uring syscall wrappers and types.
package sys

// Syscall numbers for io_uring (x86_64)
const (
	SYS_IO_URING_SETUP    = 425
	SYS_IO_URING_ENTER    = 426
	SYS_IO_URING_REGISTER = 427
)

// Op is an IORING_OP_* opcode. The values are the kernel's own numbering
// rather than a local enumeration, because an opcode travels inside an
// SQE across the guest/host boundary and must match what the host's
// io_uring decodes. Only the ops the bridge actually submits are named;
// see Ring.Probe for how an unsupported op is detected at boot.
type Op uint8

const (
	IORING_OP_NOP            Op = 0
	IORING_OP_FSYNC          Op = 3
	IORING_OP_TIMEOUT        Op = 11
	IORING_OP_TIMEOUT_REMOVE Op = 12
	IORING_OP_READ           Op = 22
	IORING_OP_WRITE          Op = 23

	// IORING_OP_LAST bounds Probe.Ops; it is the kernel's own count of
	// assigned opcodes, not the subset this package exercises, so a
	// probe response from a newer kernel still decodes without truncation.
	IORING_OP_LAST = 58
)

// Enter flags (IORING_ENTER_*). Only GETEVENTS is needed: the bridge
// never runs with SQPOLL and never waits via the ext_arg timeout form.
const (
	IORING_ENTER_GETEVENTS uint32 = 1 << 0
)

// Feature flags (IORING_FEAT_*). SINGLE_MMAP is the one bit mapRings
// actually branches on; everything else the kernel may advertise (fixed
// files, SQPOLL variants, extended CQEs) is outside what the bridge uses.
const (
	IORING_FEAT_SINGLE_MMAP uint32 = 1 << 0
)

// Register opcodes (IORING_REGISTER_*/IORING_UNREGISTER_*). Only PROBE
// (capability discovery) and EVENTFD (host wakeup, see
// hostcall.NewHostEventfd) are ever issued against a ring.
const (
	IORING_REGISTER_EVENTFD   uint32 = 4
	IORING_UNREGISTER_EVENTFD uint32 = 5
	IORING_REGISTER_PROBE     uint32 = 8
)

// Fsync flags (IORING_FSYNC_*). DATASYNC selects fdatasync semantics
// instead of a full fsync.
const (
	IORING_FSYNC_DATASYNC uint32 = 1 << 0
)

// mmap offsets for the ring buffers (IORING_OFF_*).
const (
	IORING_OFF_SQ_RING uint64 = 0
	IORING_OFF_CQ_RING uint64 = 0x8000000
	IORING_OFF_SQES    uint64 = 0x10000000
)
