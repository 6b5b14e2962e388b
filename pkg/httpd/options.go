package httpd

import (
	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/session"
)

type options struct {
	backend        auth.Backend
	store          session.Store
	authMetrics    auth.Metrics
	sessionMetrics session.Metrics
}

// Option customizes a Server.
type Option func(*options)

// WithBackend uses b instead of building a backend from the
// configuration. The server closes b on Stop.
func WithBackend(b auth.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithSessionStore uses store instead of the configured session store.
// The server closes it on Stop.
func WithSessionStore(store session.Store) Option {
	return func(o *options) { o.store = store }
}

// WithAuthMetrics reports authentication outcomes to m.
func WithAuthMetrics(m auth.Metrics) Option {
	return func(o *options) { o.authMetrics = m }
}

// WithSessionMetrics reports session lifecycle events to m.
func WithSessionMetrics(m session.Metrics) Option {
	return func(o *options) { o.sessionMetrics = m }
}
