//go:build linux

package uring

import (
	"github.com/quark-hypervisor/qkernel/internal/sys"
)

// BridgeOps is the fixed set of opcodes the guest bridge ever submits.
// A host kernel missing one of these cannot run a Bridge at all, so
// boot checks this set once via Probe.UnsupportedBridgeOps rather than
// exposing a generic per-feature query surface nothing else needs.
var BridgeOps = []sys.Op{
	sys.IORING_OP_NOP,
	sys.IORING_OP_READ,
	sys.IORING_OP_WRITE,
	sys.IORING_OP_FSYNC,
	sys.IORING_OP_TIMEOUT,
	sys.IORING_OP_TIMEOUT_REMOVE,
}

// Probe reports which of BridgeOps the host's io_uring actually
// supports.
type Probe struct {
	probe    sys.Probe
	features uint32
}

// Probe queries the kernel for supported operations.
func (r *Ring) Probe() (*Probe, error) {
	p := &Probe{
		features: r.features,
	}
	if err := sys.RegisterProbe(r.fd, &p.probe); err != nil {
		return nil, err
	}
	return p, nil
}

// Supports reports whether the host's io_uring supports op.
func (p *Probe) Supports(op sys.Op) bool {
	if uint8(op) > p.probe.LastOp {
		return false
	}
	return p.probe.Ops[op].Flags&sys.IO_URING_OP_SUPPORTED != 0
}

// UnsupportedBridgeOps returns the subset of BridgeOps this host does
// not support, so boot can refuse to hand out a Bridge that would
// EINVAL on its first real submission instead of failing loudly up
// front.
func (p *Probe) UnsupportedBridgeOps() []sys.Op {
	var missing []sys.Op
	for _, op := range BridgeOps {
		if !p.Supports(op) {
			missing = append(missing, op)
		}
	}
	return missing
}

// HasFeature returns true if the ring has the given feature.
func (p *Probe) HasFeature(feature uint32) bool {
	return p.features&feature != 0
}
