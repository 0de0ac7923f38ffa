package hostcall

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/quark-hypervisor/qkernel/qerrors"
	"github.com/quark-hypervisor/qkernel/sharespace"
	"github.com/quark-hypervisor/qkernel/uring"
)

// Transport is how a task reaches the host VMM to service a delegated
// syscall. The three methods realize the three dispatch strategies
// names:
//
//   - Call: the default path. Queue the Msg on QOutput, notify the
//     host if it was waiting, then block the calling task until the
//     host completes it. May be promoted to an HCall transparently by
//     the implementation if the host is observed idle, trading a
//     trap for lower latency.
//   - HCall: always a synchronous hypercall trap; used for calls that
//     must not be reordered behind queued ones (e.g. during boot,
//     before QOutput has a consumer).
//   - AQCall: fire-and-forget. Queue the Msg and return immediately
//     without waiting for a result; used for notifications the guest
//     doesn't need an answer to (e.g. PrintMsg).
type Transport interface {
	Call(taskID uint64, msg Msg) (int64, error)
	HCall(msg Msg) (int64, error)
	AQCall(msg Msg)
}

// WakeFunc performs the actual host wakeup (an eventfd write in
// production, a channel send in the loopback transport).
type WakeFunc func(eventfdID int32)

// Codec turns a Msg into the fixed-size sharespace.Item payload and
// back. The only implementation in this repository is InlineCodec
// (loopback.go), which keeps the live Msg value in-process keyed by
// Tag instead of serializing it.
type Codec interface {
	Encode(tag uint64, msg Msg) sharespace.Item
	Decode(item sharespace.Item) (tag uint64, result int64)
}

// VMCallTransport is the production Transport: it drives one
// ShareSpace's QOutput/QInput ring pair plus a hypercall trap function
// for HCall.
type VMCallTransport struct {
	space *sharespace.ShareSpace
	wake  WakeFunc
	hcall func(op Op, msg Msg) int64
	codec Codec

	nextTag atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]*Event

	bridge *uring.Bridge
}

// SetBridge wires the guest-side io_uring bridge into this transport's
// completion loop: buffered-socket, fsync, and Raw-mode timer SQEs the
// rest of the kernel submits through bridge's ring get drained by the
// same PumpCompletions call that drains QInput, instead of being a
// second, separately-driven completion source.
func (t *VMCallTransport) SetBridge(b *uring.Bridge) {
	t.bridge = b
}

// NewVMCallTransport returns a transport over space. hcall performs
// the actual vmexit trap for HCall-class calls (VMCALL/hypercall
// instruction in production).
func NewVMCallTransport(space *sharespace.ShareSpace, wake WakeFunc, hcall func(op Op, msg Msg) int64, codec Codec) *VMCallTransport {
	return &VMCallTransport{
		space:   space,
		wake:    wake,
		hcall:   hcall,
		codec:   codec,
		pending: make(map[uint64]*Event),
	}
}

// Call queues msg, notifies the host, and blocks until the host
// completes it.
func (t *VMCallTransport) Call(taskID uint64, msg Msg) (int64, error) {
	ev := NewEvent(taskID, msg)
	tag := t.nextTag.Add(1)

	t.mu.Lock()
	t.pending[tag] = ev
	t.mu.Unlock()

	t.space.IncHostMsgCount()
	t.space.QOutput.Push(t.codec.Encode(tag, msg))
	t.space.Notify(t.wake)

	<-ev.Done()
	return ev.Result, nil
}

// HCall performs a synchronous hypercall trap, bypassing the ring.
func (t *VMCallTransport) HCall(msg Msg) (int64, error) {
	return t.hcall(OpHCall, msg), nil
}

// HCallRetry performs HCall, retrying with exponential backoff while the
// result is an EAGAIN-shaped errno (e.g. a host-side resource the call
// needs is momentarily busy). Bounded to maxElapsed so a persistently
// busy host surfaces the errno rather than retrying forever.
func (t *VMCallTransport) HCallRetry(msg Msg, maxElapsed time.Duration) (int64, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxElapsedTime = maxElapsed

	var result int64
	err := backoff.Retry(func() error {
		result = t.hcall(OpHCall, msg)
		if result < 0 && qerrors.IsRetryable(qerrors.SysError(result)) {
			return qerrors.SysError(result)
		}
		return nil
	}, b)
	if err != nil {
		return result, err
	}
	return result, nil
}

// AQCall queues msg without waiting for completion.
func (t *VMCallTransport) AQCall(msg Msg) {
	t.space.IncHostMsgCount()
	t.space.QOutput.Push(t.codec.Encode(0, msg))
	t.space.Notify(t.wake)
}

// DeliverCompletion resolves the pending Call whose tag matches a
// completion item popped from QInput. Called by PumpCompletions, the
// guest's own completion loop; a tag with no pending event (an AQCall's tag 0, or a stale/duplicate
// completion) is silently dropped.
func (t *VMCallTransport) DeliverCompletion(item sharespace.Item) {
	tag, result := t.codec.Decode(item)
	t.mu.Lock()
	ev, ok := t.pending[tag]
	if ok {
		delete(t.pending, tag)
	}
	t.mu.Unlock()
	if ok {
		t.space.DecHostMsgCount()
		ev.Complete(result)
	}
}

// PumpCompletions drains every completion currently queued on QInput,
// plus every io_uring CQE on the bridge's ring if SetBridge installed
// one, returning the total count delivered. Called from the guest's
// own completion-processing loop (distinct from the host I/O thread
// that produces them).
func (t *VMCallTransport) PumpCompletions() int {
	n := 0
	for {
		item, ok := t.space.QInput.TryPop()
		if !ok {
			break
		}
		t.DeliverCompletion(item)
		n++
	}
	if t.bridge != nil {
		n += t.bridge.Pump()
	}
	return n
}
