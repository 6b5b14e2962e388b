package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/httpgate/pkg/metrics"
	"github.com/marmos91/httpgate/pkg/session"
)

func init() {
	metrics.RegisterSessionMetricsConstructor(NewSessionMetrics)
}

// sessionMetrics is the Prometheus implementation of session.Metrics.
type sessionMetrics struct {
	created prometheus.Counter
	expired prometheus.Counter
}

// NewSessionMetrics creates a Prometheus-backed session.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSessionMetrics() session.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &sessionMetrics{
		created: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpgate_sessions_created_total",
			Help: "Sessions bound after a successful authentication",
		})),
		expired: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpgate_sessions_expired_total",
			Help: "Sessions removed after exceeding the inactivity timeout",
		})),
	}
}

func (m *sessionMetrics) RecordCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

func (m *sessionMetrics) RecordExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expired.Add(float64(n))
}
