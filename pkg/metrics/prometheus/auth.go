package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/metrics"
)

func init() {
	metrics.RegisterAuthMetricsConstructor(NewAuthMetrics)
}

// authMetrics is the Prometheus implementation of auth.Metrics.
type authMetrics struct {
	attempts        *prometheus.CounterVec
	ownerMismatches prometheus.Counter
	backendDuration *prometheus.HistogramVec
	backendErrors   *prometheus.CounterVec
}

// NewAuthMetrics creates a Prometheus-backed auth.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewAuthMetrics() auth.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &authMetrics{
		attempts: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpgate_auth_attempts_total",
				Help: "Authentication attempts by scheme and result",
			},
			[]string{"scheme", "result"}, // scheme: basic, form; result: success, failure, no_credentials
		)),
		ownerMismatches: register(reg, prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "httpgate_owner_mismatch_total",
				Help: "Authenticated principals rejected because they are not the cluster owner",
			},
		)),
		backendDuration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "httpgate_backend_duration_seconds",
				Help: "Latency of credential backend calls",
				Buckets: []float64{
					0.001, // 1ms - static file, plain text
					0.01,  // 10ms
					0.05,  // 50ms - bcrypt cost 10
					0.1,   // 100ms
					0.25,  // 250ms - directory round trip
					0.5,
					1,
					2.5,
					5,
					10, // default directory timeout
				},
			},
			[]string{"backend"},
		)),
		backendErrors: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpgate_backend_errors_total",
				Help: "Credential backend calls that did not yield a principal",
			},
			[]string{"backend"},
		)),
	}
}

func (m *authMetrics) RecordAttempt(scheme, result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(scheme, result).Inc()
}

func (m *authMetrics) ObserveBackend(backend string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		m.backendErrors.WithLabelValues(backend).Inc()
	}
}

func (m *authMetrics) RecordOwnerMismatch() {
	if m == nil {
		return
	}
	m.ownerMismatches.Inc()
}
