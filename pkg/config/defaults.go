package config

import (
	"strings"
	"time"
)

// Defaults.
const (
	DefaultListenPort       = 54321
	DefaultContextPath      = "/"
	DefaultRealm            = "httpgate"
	DefaultDirectoryTimeout = 10 * time.Second
	DefaultShutdownTimeout  = 30 * time.Second
	DefaultReadHeader       = 10 * time.Second
	DefaultIdleTimeout      = 2 * time.Minute
	DefaultRedisKeyPrefix   = "httpgate:session:"
	DefaultMaxSessions      = 10000
)

// ApplyDefaults fills zero-valued fields. Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	ApplyServerDefaults(&cfg.Server)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// ApplyServerDefaults fills the pipeline defaults and canonicalizes values
// that have more than one spelling.
func ApplyServerDefaults(cfg *ServerConfig) {
	cfg.ContextPath = NormalizeContextPath(cfg.ContextPath)

	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = DefaultReadHeader
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	if m, ok := ParseAuthMode(string(cfg.Auth.Mode)); ok {
		cfg.Auth.Mode = m
	}
	if cfg.Auth.Realm == "" {
		cfg.Auth.Realm = DefaultRealm
	}
	if cfg.Auth.DirectoryTimeout == 0 {
		cfg.Auth.DirectoryTimeout = DefaultDirectoryTimeout
	}
	if cfg.Auth.MaxSessions == 0 {
		cfg.Auth.MaxSessions = DefaultMaxSessions
	}

	if cfg.Auth.SessionStore.Type == "" {
		cfg.Auth.SessionStore.Type = SessionStoreMemory
	}
	if cfg.Auth.SessionStore.Type == SessionStoreRedis {
		if cfg.Auth.SessionStore.Redis.Addr == "" {
			cfg.Auth.SessionStore.Redis.Addr = "localhost:6379"
		}
		if cfg.Auth.SessionStore.Redis.KeyPrefix == "" {
			cfg.Auth.SessionStore.Redis.KeyPrefix = DefaultRedisKeyPrefix
		}
	}
}

// GetDefaultConfig returns a configuration with every default applied:
// plaintext on DefaultListenPort with authentication disabled.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{ListenPort: DefaultListenPort},
	}
	ApplyDefaults(cfg)
	return cfg
}
