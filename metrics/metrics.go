// Package metrics exposes kernel-internal counters (ShareSpace ring
// occupancy, host message backlog, heap allocator pressure) as
// Prometheus metrics for the host to scrape alongside its own VMM
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quark-hypervisor/qkernel/heap"
	"github.com/quark-hypervisor/qkernel/sharespace"
)

// Registry groups every gauge/counter this package exports, so a
// caller can register them all against one prometheus.Registerer
// without reaching for package-level global state.
type Registry struct {
	HostMsgCount   prometheus.Gauge
	QInputLen      prometheus.Gauge
	QOutputLen     prometheus.Gauge
	HeapTotalBytes prometheus.Gauge
	HeapAvailBytes prometheus.Gauge
	DrainedBlocks  prometheus.Counter
}

// NewRegistry constructs and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		HostMsgCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qkernel",
			Name:      "host_msg_count",
			Help:      "Outstanding asynchronous host-bound messages.",
		}),
		QInputLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qkernel",
			Name:      "qinput_len",
			Help:      "Pending entries on the host->guest ring.",
		}),
		QOutputLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qkernel",
			Name:      "qoutput_len",
			Help:      "Pending entries on the guest->host ring.",
		}),
		HeapTotalBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qkernel",
			Name:      "heap_total_bytes",
			Help:      "Total bytes donated to the buddy heap.",
		}),
		HeapAvailBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "qkernel",
			Name:      "heap_avail_bytes",
			Help:      "Bytes currently free in the buddy heap.",
		}),
		DrainedBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qkernel",
			Name:      "heap_drained_blocks_total",
			Help:      "Blocks returned from tier-2 free lists to the buddy heap.",
		}),
	}
	reg.MustRegister(r.HostMsgCount, r.QInputLen, r.QOutputLen,
		r.HeapTotalBytes, r.HeapAvailBytes, r.DrainedBlocks)
	return r
}

// SampleShareSpace updates the ring/message-count gauges from the
// current state of space. Called periodically by whatever drives the
// kernel's main loop, not on every ring operation.
func (r *Registry) SampleShareSpace(space *sharespace.ShareSpace) {
	r.HostMsgCount.Set(float64(space.HostMsgCount()))
	r.QInputLen.Set(float64(space.QInput.Len()))
	r.QOutputLen.Set(float64(space.QOutput.Len()))
}

// SampleHeap updates the heap gauges from h's current statistics.
func (r *Registry) SampleHeap(h *heap.Heap) {
	total, avail := h.Stats()
	r.HeapTotalBytes.Set(float64(total))
	r.HeapAvailBytes.Set(float64(avail))
}

// RecordDrain adds n to the drained-block counter, called after
// heap.Tier2.Drain runs.
func (r *Registry) RecordDrain(n int) {
	r.DrainedBlocks.Add(float64(n))
}
