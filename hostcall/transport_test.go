package hostcall

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quark-hypervisor/qkernel/config"
	"github.com/quark-hypervisor/qkernel/sharespace"
)

func newTestTransport(handle func(Msg) int64) (*VMCallTransport, *LoopbackHost) {
	space := sharespace.New()
	space.Init(config.New(), 0)
	codec := NewInlineCodec()
	host := NewLoopbackHost(space, codec, handle)
	transport := NewVMCallTransport(space, host.Wake, func(op Op, msg Msg) int64 { return 0 }, codec)
	return transport, host
}

func TestCallRoundTripsThroughLoopbackHost(t *testing.T) {
	transport, host := newTestTransport(func(msg Msg) int64 {
		require.Equal(t, KindGetPid, msg.Kind())
		return 42
	})
	go host.Run()
	defer host.Stop()

	// The host answers on QInput; the guest side drains it into the
	// pending Call through PumpCompletions.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				transport.PumpCompletions()
			}
		}
	}()

	result, err := transport.Call(1, ProcessMsg{MsgKind: KindGetPid})
	require.NoError(t, err)
	require.Equal(t, int64(42), result)
}

func TestAQCallDoesNotBlock(t *testing.T) {
	handled := make(chan struct{}, 1)
	transport, host := newTestTransport(func(msg Msg) int64 {
		handled <- struct{}{}
		return 0
	})
	go host.Run()
	defer host.Stop()

	transport.AQCall(PrintMsg{Text: "hi"})

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("loopback host never handled the AQCall message")
	}
}

func TestHCallBypassesRing(t *testing.T) {
	space := sharespace.New()
	space.Init(config.New(), 0)
	codec := NewInlineCodec()
	var gotOp Op
	transport := NewVMCallTransport(space, func(int32) {}, func(op Op, msg Msg) int64 {
		gotOp = op
		return 7
	}, codec)

	result, err := transport.HCall(ProcessMsg{MsgKind: KindGetPid})
	require.NoError(t, err)
	require.Equal(t, int64(7), result)
	require.Equal(t, OpHCall, gotOp)
}

func TestHCallRetryRetriesOnEAGAIN(t *testing.T) {
	space := sharespace.New()
	space.Init(config.New(), 0)
	codec := NewInlineCodec()

	attempts := 0
	transport := NewVMCallTransport(space, func(int32) {}, func(op Op, msg Msg) int64 {
		attempts++
		if attempts < 3 {
			return -11 // EAGAIN
		}
		return 99
	}, codec)

	result, err := transport.HCallRetry(ProcessMsg{MsgKind: KindGetPid}, time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(99), result)
	require.Equal(t, 3, attempts)
}

func TestHCallRetryGivesUpOnPersistentEAGAIN(t *testing.T) {
	space := sharespace.New()
	space.Init(config.New(), 0)
	codec := NewInlineCodec()

	transport := NewVMCallTransport(space, func(int32) {}, func(op Op, msg Msg) int64 {
		return -11 // EAGAIN, forever
	}, codec)

	_, err := transport.HCallRetry(ProcessMsg{MsgKind: KindGetPid}, 20*time.Millisecond)
	require.Error(t, err)
}

func TestPumpCompletionsDeliversAllQueued(t *testing.T) {
	space := sharespace.New()
	space.Init(config.New(), 0)
	codec := NewInlineCodec()
	transport := NewVMCallTransport(space, func(int32) {}, nil, codec)

	done := make(chan int64, 2)
	go func() {
		r, _ := transport.Call(1, ProcessMsg{MsgKind: KindGetPid})
		done <- r
	}()
	go func() {
		r, _ := transport.Call(2, ProcessMsg{MsgKind: KindGetTid})
		done <- r
	}()

	// Wait for both Calls to have queued their items before responding,
	// since nothing else drives QOutput in this test.
	require.Eventually(t, func() bool {
		return space.QOutput.Len() == 2
	}, time.Second, time.Millisecond)

	queued := 0
	for {
		item, ok := space.QOutput.TryPop()
		if !ok {
			break
		}
		space.QInput.Push(encodeCompletion(codec, item.Tag, int64(item.Tag)*10))
		queued++
	}
	require.Equal(t, 2, queued)
	require.Equal(t, 2, transport.PumpCompletions())

	results := []int64{<-done, <-done}
	require.ElementsMatch(t, []int64{10, 20}, results)
}

func encodeCompletion(codec *InlineCodec, tag uint64, result int64) sharespace.Item {
	var item sharespace.Item
	item.Tag = tag
	binary.LittleEndian.PutUint64(item.Payload[0:8], tag)
	binary.LittleEndian.PutUint64(item.Payload[8:16], uint64(result))
	return item
}
