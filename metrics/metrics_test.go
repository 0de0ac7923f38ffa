package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/quark-hypervisor/qkernel/config"
	"github.com/quark-hypervisor/qkernel/heap"
	"github.com/quark-hypervisor/qkernel/sharespace"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestSampleShareSpace(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	space := sharespace.New()
	space.Init(config.New(), 0)
	space.IncHostMsgCount()
	space.IncHostMsgCount()

	r.SampleShareSpace(space)
	require.Equal(t, float64(2), gaugeValue(t, r.HostMsgCount))
}

func TestSampleHeap(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	h := heap.New(nil)
	h.Buddy.Insert(0, 4096)

	r.SampleHeap(h)
	require.Equal(t, float64(4096), gaugeValue(t, r.HeapTotalBytes))
	require.Equal(t, float64(4096), gaugeValue(t, r.HeapAvailBytes))
}

func TestRecordDrain(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	r.RecordDrain(3)
	r.RecordDrain(2)
	require.Equal(t, float64(5), counterValue(t, r.DrainedBlocks))
}
