package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow the OpenTelemetry semantic conventions.
const (
	AttrClientIP      = "client.address"
	AttrHTTPMethod    = "http.request.method"
	AttrHTTPRoute     = "http.route"
	AttrHTTPStatus    = "http.response.status_code"
	AttrURLPath       = "url.path"
	AttrURLScheme     = "url.scheme"
	AttrUsername      = "user.name"
	AttrAuthScheme    = "auth.scheme"
	AttrAuthBackend   = "auth.backend"
	AttrAuthResult    = "auth.result"
	AttrExpectedOwner = "auth.expected_owner"
	AttrSessionID     = "session.id"
)

// Span names.
const (
	SpanHTTPRequest    = "http.request"
	SpanAuthenticate   = "auth.authenticate"
	SpanBackendVerify  = "auth.backend.verify"
	SpanOwnerCheck     = "auth.owner_check"
	SpanSessionBind    = "session.bind"
	SpanSessionSweep   = "session.sweep"
	SpanRealmReload    = "realm.reload"
	SpanDirectoryLogin = "directory.login"
)

func ClientIP(ip string) attribute.KeyValue      { return attribute.String(AttrClientIP, ip) }
func HTTPMethod(m string) attribute.KeyValue     { return attribute.String(AttrHTTPMethod, m) }
func HTTPStatus(code int) attribute.KeyValue     { return attribute.Int(AttrHTTPStatus, code) }
func URLPath(p string) attribute.KeyValue        { return attribute.String(AttrURLPath, p) }
func URLScheme(s string) attribute.KeyValue      { return attribute.String(AttrURLScheme, s) }
func Username(name string) attribute.KeyValue    { return attribute.String(AttrUsername, name) }
func AuthScheme(s string) attribute.KeyValue     { return attribute.String(AttrAuthScheme, s) }
func AuthBackend(name string) attribute.KeyValue { return attribute.String(AttrAuthBackend, name) }
func AuthResult(r string) attribute.KeyValue     { return attribute.String(AttrAuthResult, r) }
func ExpectedOwner(o string) attribute.KeyValue  { return attribute.String(AttrExpectedOwner, o) }
func SessionID(id string) attribute.KeyValue     { return attribute.String(AttrSessionID, id) }

// StartHTTPSpan starts a server span for an inbound request, continuing any
// trace propagated in the request headers.
func StartHTTPSpan(ctx context.Context, carrier propagation.TextMapCarrier, method, path string) (context.Context, trace.Span) {
	ctx = Propagator.Extract(ctx, carrier)
	return StartSpan(ctx, SpanHTTPRequest,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(HTTPMethod(method), URLPath(path)),
	)
}

// StartAuthSpan starts the span covering one authentication attempt.
func StartAuthSpan(ctx context.Context, scheme, username string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{AuthScheme(scheme), Username(username)}, attrs...)
	return StartSpan(ctx, SpanAuthenticate, trace.WithAttributes(all...))
}

// StartBackendSpan starts a client span around a credential backend call.
func StartBackendSpan(ctx context.Context, backend, username string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanBackendVerify,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(AuthBackend(backend), Username(username)),
	)
}
