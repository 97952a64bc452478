package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marketplace"

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	rotations       *prometheus.CounterVec
	gateDenials     *prometheus.CounterVec
	banTransitions  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Errors rendered by the error middleware, by code.",
		}, []string{"path", "method", "code"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_token_rotations_total",
			Help:      "Access tokens issued silently by the principal resolver.",
		}, []string{"kind"}),
		gateDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_gate_denials_total",
			Help:      "Write attempts refused by the ban gate, by reason code.",
		}, []string{"code"}),
		banTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ban_transitions_total",
			Help:      "Ban ledger transitions, by principal kind and action.",
		}, []string{"kind", "action"}),
	}
	if reg != nil {
		reg.MustRegister(m.requestCount, m.requestDuration, m.errorCount, m.rotations, m.gateDenials, m.banTransitions)
	}
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordRotation counts a silent access token rotation.
func (m *Metrics) RecordRotation(kind string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(kind).Inc()
}

// RecordGateDenial counts a refused write.
func (m *Metrics) RecordGateDenial(code string) {
	if m == nil {
		return
	}
	m.gateDenials.WithLabelValues(code).Inc()
}

// RecordBanTransition counts a ban or unban.
func (m *Metrics) RecordBanTransition(kind, action string) {
	if m == nil {
		return
	}
	m.banTransitions.WithLabelValues(kind, action).Inc()
}
