package hostcall

// Msg is implemented by every delegated-syscall payload carried across
// the ShareSpace rings. Kind is a cheap discriminator so
// a Transport can route/log a Msg without a type switch on every hop;
// the concrete Go type still carries the full payload for the type
// switch that actually executes the call host-side.
type Msg interface {
	Kind() Kind
}

// Kind enumerates the Msg taxonomy. Naming follows the syscalls each
// variant delegates, grouped the way the original qCall dispatcher
// groups them: file, socket, memory, time, signal, process.
type Kind int

const (
	_ Kind = iota

	// File I/O
	KindOpenAt
	KindClose
	KindRead
	KindReadv
	KindWrite
	KindWritev
	KindPRead
	KindPWrite
	KindFstat
	KindFstatat
	KindFsync
	KindFdatasync
	KindFtruncate
	KindUnlinkAt
	KindMkdirAt
	KindRenameAt
	KindGetdents64
	KindReadlinkAt
	KindFcntl
	KindIoctl
	KindFallocate
	KindStatfs

	// Sockets
	KindSocket
	KindBind
	KindListen
	KindAccept
	KindConnect
	KindSendTo
	KindRecvFrom
	KindSendMsg
	KindRecvMsg
	KindShutdown
	KindGetSockOpt
	KindSetSockOpt
	KindGetSockName
	KindGetPeerName

	// Memory
	KindMMap
	KindMUnmap
	KindMRemap
	KindMProtect
	KindMAdvise

	// Time
	KindClockGetTime
	KindClockGetRes
	KindNanoSleep

	// Signals
	KindRtSigAction
	KindRtSigProcMask
	KindRtSigReturn
	KindKill
	KindTgKill

	// Process/thread
	KindExitGroup
	KindClone
	KindWait4
	KindSchedYield
	KindGetPid
	KindGetTid
	KindSetITimer

	// Kernel/control
	KindInit
	KindPrint
	KindOOM
	KindPanic
)

// FileMsg covers openat/read/write-shaped calls sharing an fd + buffer
// + offset layout; distinct Kind values select the actual operation.
type FileMsg struct {
	MsgKind Kind
	FD      int32
	Buf     []byte
	Offset  int64
	Flags   int32
	Path    string
}

func (m FileMsg) Kind() Kind { return m.MsgKind }

// SocketMsg covers socket(2)-family calls.
type SocketMsg struct {
	MsgKind  Kind
	FD       int32
	Domain   int32
	Type     int32
	Protocol int32
	Addr     []byte
	Buf      []byte
	Flags    int32
}

func (m SocketMsg) Kind() Kind { return m.MsgKind }

// MMapMsg covers mmap/munmap/mremap/mprotect.
type MMapMsg struct {
	MsgKind Kind
	Addr    uintptr
	Length  uint64
	Prot    int32
	Flags   int32
	FD      int32
	Offset  int64
}

func (m MMapMsg) Kind() Kind { return m.MsgKind }

// TimeMsg covers clock_gettime/nanosleep.
type TimeMsg struct {
	MsgKind  Kind
	ClockID  int32
	Seconds  int64
	Nanos    int64
}

func (m TimeMsg) Kind() Kind { return m.MsgKind }

// SignalMsg covers rt_sigaction/rt_sigprocmask/kill/tgkill.
type SignalMsg struct {
	MsgKind Kind
	Pid     int32
	Tid     int32
	Signal  int32
	Mask    uint64
}

func (m SignalMsg) Kind() Kind { return m.MsgKind }

// ProcessMsg covers exit_group/clone/wait4/sched_yield/getpid/setitimer.
type ProcessMsg struct {
	MsgKind    Kind
	Pid        int32
	ExitStatus int32
	CloneFlags uint64
}

func (m ProcessMsg) Kind() Kind { return m.MsgKind }

// InitMsg is the INIT hypercall message: the ShareSpace address and
// vCPU count. It carries no other configuration.
type InitMsg struct {
	ShareSpaceAddr uintptr
	VCPUCount      int32
}

func (m InitMsg) Kind() Kind { return KindInit }

// PrintMsg carries a log line destined for the host's console, used
// when config.SlowPrint routes prints through a hypercall instead of
// the buffered ShareSpace log stream.
type PrintMsg struct {
	Text string
}

func (m PrintMsg) Kind() Kind { return KindPrint }

// OOMMsg notifies the host the guest allocator could not satisfy an
// allocation, before the guest decides whether to panic.
type OOMMsg struct {
	Requested uint64
}

func (m OOMMsg) Kind() Kind { return KindOOM }

// PanicMsg carries a fatal-error report to the host immediately before
// the guest halts.
type PanicMsg struct {
	Reason string
}

func (m PanicMsg) Kind() Kind { return KindPanic }
