package metrics

import (
	"time"

	"github.com/marmos91/httpgate/pkg/auth"
)

// NewAuthMetrics returns the Prometheus auth.Metrics, or nil when metrics
// are disabled.
func NewAuthMetrics() auth.Metrics {
	if !IsEnabled() || newPrometheusAuthMetrics == nil {
		return nil
	}
	return newPrometheusAuthMetrics()
}

var newPrometheusAuthMetrics func() auth.Metrics

// RegisterAuthMetricsConstructor is called by pkg/metrics/prometheus during
// package initialization.
func RegisterAuthMetricsConstructor(constructor func() auth.Metrics) {
	newPrometheusAuthMetrics = constructor
}

// RecordAttempt counts an authentication attempt. m may be nil.
func RecordAttempt(m auth.Metrics, scheme, result string) {
	if m != nil {
		m.RecordAttempt(scheme, result)
	}
}

// ObserveBackend records one backend call. m may be nil.
func ObserveBackend(m auth.Metrics, backend string, duration time.Duration, err error) {
	if m != nil {
		m.ObserveBackend(backend, duration, err)
	}
}

// RecordOwnerMismatch counts an owner-constraint rejection. m may be nil.
func RecordOwnerMismatch(m auth.Metrics) {
	if m != nil {
		m.RecordOwnerMismatch()
	}
}
