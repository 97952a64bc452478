package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordRotation("USER")
	m.RecordGateDenial("BANNED")
	m.RecordBanTransition("USER", "ban")
}

func TestMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordGateDenial("BANNED")
	m.RecordGateDenial("BANNED")
	m.RecordBanTransition("COMPANY", "ban")
	m.RecordRotation("USER")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gateDenials.WithLabelValues("BANNED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.banTransitions.WithLabelValues("COMPANY", "ban")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rotations.WithLabelValues("USER")))
}
