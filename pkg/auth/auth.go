package auth

import (
	"context"
	"errors"
	"slices"
	"time"
)

// Backend verifies credentials presented by a client.
//
// Thread safety: implementations must be safe for concurrent use.
type Backend interface {
	// Name identifies the backend in logs and metrics, e.g. "static_file".
	Name() string

	// Authenticate verifies username/password. It returns a Principal on
	// success and an error wrapping ErrAuthFailed otherwise. It must honor
	// ctx cancellation.
	Authenticate(ctx context.Context, username, password string) (*Principal, error)

	// Close releases watchers, connections and other resources.
	Close() error
}

// Principal is an authenticated identity. Name is the login name as the
// client presented it.
type Principal struct {
	Name    string
	Roles   []string
	Backend string
}

// HasRole reports whether p carries role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// Metrics records authentication outcomes. A nil Metrics disables
// instrumentation; use the helpers in pkg/metrics rather than calling it
// directly.
type Metrics interface {
	// RecordAttempt counts one attempt; scheme is basic or form and result
	// is success, failure or no_credentials.
	RecordAttempt(scheme, result string)

	// ObserveBackend records the latency of one backend call.
	ObserveBackend(backend string, duration time.Duration, err error)

	// RecordOwnerMismatch counts a rejection by the owner constraint.
	RecordOwnerMismatch()
}

// Attempt results reported through Metrics.
const (
	ResultSuccess       = "success"
	ResultFailure       = "failure"
	ResultNoCredentials = "no_credentials"
	ResultOwnerMismatch = "owner_mismatch"
)

// Standard authentication errors.
var (
	// ErrAuthFailed indicates that credentials were checked and rejected, or
	// that the backend could not reach a verdict (network, timeout).
	ErrAuthFailed = errors.New("auth: authentication failed")

	// ErrNoCredentials indicates that the request carried no credentials.
	ErrNoCredentials = errors.New("auth: no credentials")

	// ErrInvalidCredentials indicates credentials that cannot be parsed
	// (distinct from wrong credentials).
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrOwnershipMismatch indicates an authenticated principal that is not
	// the configured owner.
	ErrOwnershipMismatch = errors.New("auth: principal does not match owner")
)

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the Principal attached by the authentication
// chain, or nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
