package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var requestContextKey = contextKey{}

// RequestContext carries the per-request fields appended by the *Ctx helpers.
// It is installed once per request by the access-log middleware and filled in
// as the request moves through the authentication chain.
type RequestContext struct {
	TraceID   string
	SpanID    string
	RequestID string
	ClientIP  string
	Method    string
	Path      string
	Principal string
	SessionID string
	StartTime time.Time
}

// WithContext stores rc in ctx.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// FromContext returns the RequestContext stored in ctx, or nil.
func FromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}

// NewRequestContext starts a RequestContext for one HTTP request.
func NewRequestContext(requestID, clientIP, method, path string) *RequestContext {
	return &RequestContext{
		RequestID: requestID,
		ClientIP:  clientIP,
		Method:    method,
		Path:      path,
		StartTime: time.Now(),
	}
}

// Clone returns a copy of rc.
func (rc *RequestContext) Clone() *RequestContext {
	if rc == nil {
		return nil
	}
	c := *rc
	return &c
}

// SetPrincipal records the authenticated principal in place so that the
// access log written after the handler returns carries it.
func (rc *RequestContext) SetPrincipal(name, sessionID string) {
	if rc == nil {
		return
	}
	rc.Principal = name
	rc.SessionID = sessionID
}

// WithTrace returns a copy with trace identifiers set.
func (rc *RequestContext) WithTrace(traceID, spanID string) *RequestContext {
	c := rc.Clone()
	if c != nil {
		c.TraceID = traceID
		c.SpanID = spanID
	}
	return c
}

// DurationMs returns the time since StartTime in milliseconds.
func (rc *RequestContext) DurationMs() float64 {
	if rc == nil || rc.StartTime.IsZero() {
		return 0
	}
	return Duration(rc.StartTime)
}
