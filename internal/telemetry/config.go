package telemetry

// Config holds OpenTelemetry tracing configuration.
type Config struct {
	Enabled bool

	// ServiceName is reported as service.name on every span.
	ServiceName string

	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// SampleRate is the head sampling ratio in [0, 1].
	SampleRate float64
}

// DefaultConfig returns tracing disabled with collector defaults filled in.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "httpgate",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
