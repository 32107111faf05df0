package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	labels := map[string]string{LabelChain: "8453", LabelToken: "USDC"}
	r.IncCounter("settlement_paid", labels)
	r.IncCounter("settlement_paid", labels)
	r.IncCounter("settlement_failed", map[string]string{LabelChain: "56"})
	r.ObserveLatency("settlement", 1500*time.Millisecond, labels)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.counters.WithLabelValues("settlement_paid", "8453", "USDC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.counters.WithLabelValues("settlement_failed", "56", "")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.histogram))

	_, err = NewPrometheusRecorder(reg)
	assert.Error(t, err, "collectors are already registered")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncCounter("x", nil)
	r.ObserveLatency("x", time.Second, nil)
}
