package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPromProvider_CounterIncrementsAndIsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPromProvider(reg)

	c := p.Counter(TasksCreated)
	c.Add(3)
	c.Add(2)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	var found bool
	for _, mf := range mfs {
		if mf.GetName() == TasksCreated {
			found = true
			require.Equal(t, float64(5), mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	require.True(t, found, "expected %s to be registered", TasksCreated)
}

func TestPromProvider_UpDownCounterTracksBridgeInflight(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPromProvider(reg)

	g := p.UpDownCounter(BridgeInflight)
	g.Add(1)
	g.Add(1)
	g.Add(-1)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range mfs {
		if mf.GetName() == BridgeInflight {
			found = true
			require.Equal(t, float64(1), mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	require.True(t, found, "expected %s to be registered", BridgeInflight)
}

func TestPromProvider_ReusesInstrumentForSameName(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPromProvider(reg)

	h1 := p.Histogram(WaitDurationSeconds)
	h1.Record(0.5)
	h2 := p.Histogram(WaitDurationSeconds)
	h2.Record(1.5)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == WaitDurationSeconds {
			require.Equal(t, uint64(2), mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
}
