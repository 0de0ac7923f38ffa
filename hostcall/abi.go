// Package hostcall implements the guest<->host call transport: the Msg
// taxonomy every delegated syscall is encoded as, the Event envelope
// carrying a Msg across the ShareSpace rings, and the Transport
// interface with its three dispatch strategies (Call, HCall, AQCall).
package hostcall

// Op is the hypercall vector number trapped into the host VMM,
// distinct from the in-band Msg tag carried over the ShareSpace rings:
// Op identifies *how* control reaches the host, Msg identifies *what*
// it should do once there.
type Op uint8

const (
	OpInit       Op = 1
	OpPanic      Op = 2
	OpOOM        Op = 4
	OpMsg        Op = 5
	OpU64        Op = 6
	OpPrint      Op = 8
	OpExit       Op = 9
	OpWakeup     Op = 10
	OpGetTime    Op = 11
	OpHlt        Op = 13
	OpUringWake  Op = 14
	OpHCall      Op = 15
	OpIOWait     Op = 16
	OpWakeupVCPU Op = 17
	OpExitVM     Op = 18
	OpVCPUFreq   Op = 19
	OpVCPUYield  Op = 20
)
