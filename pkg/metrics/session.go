package metrics

import "github.com/marmos91/httpgate/pkg/session"

// NewSessionMetrics returns the Prometheus session.Metrics, or nil when
// metrics are disabled.
func NewSessionMetrics() session.Metrics {
	if !IsEnabled() || newPrometheusSessionMetrics == nil {
		return nil
	}
	return newPrometheusSessionMetrics()
}

var newPrometheusSessionMetrics func() session.Metrics

// RegisterSessionMetricsConstructor is called by pkg/metrics/prometheus
// during package initialization.
func RegisterSessionMetricsConstructor(constructor func() session.Metrics) {
	newPrometheusSessionMetrics = constructor
}
