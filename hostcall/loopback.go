package hostcall

import (
	"encoding/binary"

	"github.com/quark-hypervisor/qkernel/sharespace"
)

// InlineCodec is a test-facing Codec that keeps the live Msg value
// in-process via a side table instead of actually serializing it,
// mirroring how the teacher's own ring tests push plain integers
// rather than real SQE payloads. Production would replace this with a
// real wire encoding; nothing in Transport depends on which one is
// used.
type InlineCodec struct {
	msgs map[uint64]Msg
}

// NewInlineCodec returns an empty codec.
func NewInlineCodec() *InlineCodec {
	return &InlineCodec{msgs: make(map[uint64]Msg)}
}

func (c *InlineCodec) Encode(tag uint64, msg Msg) sharespace.Item {
	c.msgs[tag] = msg
	var item sharespace.Item
	item.Tag = tag
	binary.LittleEndian.PutUint64(item.Payload[:8], tag)
	return item
}

func (c *InlineCodec) Decode(item sharespace.Item) (tag uint64, result int64) {
	tag = binary.LittleEndian.Uint64(item.Payload[:8])
	result = int64(binary.LittleEndian.Uint64(item.Payload[8:16]))
	return tag, result
}

// Msg looks up the Msg value a tag was encoded from, used by the
// loopback host loop below to decide how to "service" a call.
func (c *InlineCodec) Msg(tag uint64) (Msg, bool) {
	m, ok := c.msgs[tag]
	return m, ok
}

// LoopbackHost is a minimal in-process stand-in for the host VMM used
// by every test in this repo that needs a Transport without an actual
// hypervisor: it drains QOutput on its own goroutine, "handles" each
// Msg via a caller-supplied function, and posts the result back onto
// QInput.
type LoopbackHost struct {
	space  *sharespace.ShareSpace
	codec  *InlineCodec
	handle func(Msg) int64
	wakeCh chan struct{}
	stopCh chan struct{}
}

// NewLoopbackHost returns a host loop over space, driven by handle.
func NewLoopbackHost(space *sharespace.ShareSpace, codec *InlineCodec, handle func(Msg) int64) *LoopbackHost {
	return &LoopbackHost{
		space:  space,
		codec:  codec,
		handle: handle,
		wakeCh: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// Wake is passed as the Transport's WakeFunc: it signals the host loop
// that QOutput has new work, the loopback analogue of writing the
// eventfd.
func (h *LoopbackHost) Wake(eventfdID int32) {
	select {
	case h.wakeCh <- struct{}{}:
	default:
	}
}

// Run drives the loop until Stop is called. Intended to be run on its
// own goroutine, standing in for the host's I/O thread.
func (h *LoopbackHost) Run() {
	for {
		select {
		case <-h.stopCh:
			return
		case <-h.wakeCh:
		}
		h.space.MarkWaiting()
		for {
			item, ok := h.space.QOutput.TryPop()
			if !ok {
				break
			}
			tag := item.Tag
			msg, _ := h.codec.Msg(tag)
			result := h.handle(msg)

			var resp sharespace.Item
			resp.Tag = tag
			binary.LittleEndian.PutUint64(resp.Payload[:8], tag)
			binary.LittleEndian.PutUint64(resp.Payload[8:16], uint64(result))
			h.space.QInput.Push(resp)
		}
	}
}

// Stop ends the host loop.
func (h *LoopbackHost) Stop() { close(h.stopCh) }
