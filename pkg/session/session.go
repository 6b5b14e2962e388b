// Package session tracks authenticated clients across requests.
//
// A Session is created once a request authenticates, identified to the
// client by an opaque bearer token carried in a cookie, refreshed on every
// request that presents it, and destroyed on inactivity, logout, owner
// mismatch or shutdown. Storage is pluggable: MemoryStore keeps sessions in
// process, RedisStore shares them between gate instances.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/httpgate/pkg/auth"
)

// tokenBytes is the amount of entropy in a session token.
const tokenBytes = 32

// ErrNotFound is returned by a Store for unknown or expired tokens.
var ErrNotFound = errors.New("session: not found")

// Session is the server-side state behind a session cookie.
//
// ID is safe to log. Token is the bearer secret and must never be logged.
type Session struct {
	ID         string
	Token      string
	Principal  auth.Principal
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Idle returns how long the session has been inactive at now.
func (s *Session) Idle(now time.Time) time.Duration {
	return now.Sub(s.LastSeenAt)
}

// Expired reports whether the session exceeded timeout at now. A zero
// timeout never expires.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && s.Idle(now) > timeout
}

// Store persists sessions keyed by token. Implementations must be safe for
// concurrent use and must return copies so callers cannot mutate stored
// state.
type Store interface {
	// Put stores s. ttl > 0 lets stores with native expiry drop the entry
	// after ttl of inactivity.
	Put(ctx context.Context, s *Session, ttl time.Duration) error

	// Get returns the session for token or ErrNotFound.
	Get(ctx context.Context, token string) (*Session, error)

	// Touch sets LastSeenAt to now and returns the updated session, or
	// ErrNotFound.
	Touch(ctx context.Context, token string, now time.Time, ttl time.Duration) (*Session, error)

	// Delete removes token. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// Expire removes token only if it was last seen before cutoff, as one
	// step with respect to Touch. It reports whether the session was
	// removed; unknown tokens report false.
	Expire(ctx context.Context, token string, cutoff time.Time) (bool, error)

	// DeleteIdle removes every session last seen before cutoff and returns
	// how many were removed.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int, error)

	// Len returns the number of stored sessions.
	Len(ctx context.Context) (int, error)

	// Clear removes every session.
	Clear(ctx context.Context) error

	// Close releases connections.
	Close() error
}

// NativeExpiry is implemented by stores that expire entries themselves, so
// the background sweeper is unnecessary.
type NativeExpiry interface {
	ExpiresNatively() bool
}

// Evicter is implemented by stores that can drop their least recently
// seen sessions to stay under a size cap.
type Evicter interface {
	// EvictOldest removes the n sessions with the oldest LastSeenAt and
	// returns how many were removed.
	EvictOldest(ctx context.Context, n int) (int, error)
}

// Metrics records session lifecycle events. A nil Metrics disables
// instrumentation.
type Metrics interface {
	RecordCreated()
	RecordExpired(n int)
}

// newToken returns a base64url-encoded random token.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// newSession builds a fresh session for p.
func newSession(p *auth.Principal, now time.Time) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:         uuid.NewString(),
		Token:      token,
		Principal:  clonePrincipal(p),
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

func clonePrincipal(p *auth.Principal) auth.Principal {
	if p == nil {
		return auth.Principal{}
	}
	c := *p
	if p.Roles != nil {
		c.Roles = append([]string(nil), p.Roles...)
	}
	return c
}

func (s *Session) clone() *Session {
	c := *s
	c.Principal = clonePrincipal(&s.Principal)
	return &c
}
