package logger

import (
	"log/slog"
	"time"
)

// Field keys shared by every log statement so that aggregators can query
// across components.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// HTTP request
	KeyRequestID = "request_id"
	KeyClientIP  = "client_ip"
	KeyMethod    = "method"
	KeyPath      = "path"
	KeyStatus    = "status"
	KeyBytes     = "bytes"
	KeyScheme    = "scheme"
	KeyAddress   = "address"

	// Authentication
	KeyPrincipal     = "principal"
	KeyUsername      = "username"
	KeyAuthMode      = "auth_mode"
	KeyAuthScheme    = "auth_scheme"
	KeyBackend       = "backend"
	KeyExpectedOwner = "expected_owner"
	KeyRealm         = "realm"

	// Sessions
	KeySessionID = "session_id"
	KeyStore     = "store"
	KeyEvicted   = "evicted"

	// Files
	KeyFile = "file"

	// Generic
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// TraceID returns a slog.Attr for an OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for an OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// RequestID returns a slog.Attr for the chi request ID.
func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }

// ClientIP returns a slog.Attr for the remote address.
func ClientIP(ip string) slog.Attr { return slog.String(KeyClientIP, ip) }

// Method returns a slog.Attr for the HTTP method.
func Method(m string) slog.Attr { return slog.String(KeyMethod, m) }

// Path returns a slog.Attr for the request path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Status returns a slog.Attr for the response status code.
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }

// Bytes returns a slog.Attr for a response size.
func Bytes(n int) slog.Attr { return slog.Int(KeyBytes, n) }

// Principal returns a slog.Attr for an authenticated login name.
func Principal(name string) slog.Attr { return slog.String(KeyPrincipal, name) }

// Username returns a slog.Attr for a presented, not yet verified, login name.
func Username(name string) slog.Attr { return slog.String(KeyUsername, name) }

// AuthMode returns a slog.Attr for the configured credential backend mode.
func AuthMode(mode string) slog.Attr { return slog.String(KeyAuthMode, mode) }

// AuthScheme returns a slog.Attr for basic or form.
func AuthScheme(scheme string) slog.Attr { return slog.String(KeyAuthScheme, scheme) }

// Backend returns a slog.Attr for the credential backend name.
func Backend(name string) slog.Attr { return slog.String(KeyBackend, name) }

// ExpectedOwner returns a slog.Attr for the configured cluster owner.
func ExpectedOwner(name string) slog.Attr { return slog.String(KeyExpectedOwner, name) }

// SessionID returns a slog.Attr for a session's public identifier.
func SessionID(id string) slog.Attr { return slog.String(KeySessionID, id) }

// Evicted returns a slog.Attr for an eviction count.
func Evicted(n int) slog.Attr { return slog.Int(KeyEvicted, n) }

// File returns a slog.Attr for a file path.
func File(path string) slog.Attr { return slog.String(KeyFile, path) }

// DurationMs returns a slog.Attr for an elapsed time in milliseconds.
func DurationMs(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(d.Microseconds())/1000.0)
}

// Err returns a slog.Attr for an error. A nil error yields an empty Attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
