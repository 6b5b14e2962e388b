// Package middleware provides the request chain of the gate: request
// logging, server identity hiding, session resolution, Basic and form
// authentication, and the owner constraint.
package middleware

import (
	"context"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/session"
)

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session bound to the request, or nil.
func SessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey{}).(*session.Session)
	return s
}

// authenticated attaches p (and s, when bound) to ctx for handlers and for
// the request log.
func authenticated(ctx context.Context, p *auth.Principal, s *session.Session) context.Context {
	ctx = auth.WithPrincipal(ctx, p)

	sid := ""
	if s != nil {
		ctx = WithSession(ctx, s)
		sid = s.ID
	}
	logger.FromContext(ctx).SetPrincipal(p.Name, sid)
	return ctx
}
