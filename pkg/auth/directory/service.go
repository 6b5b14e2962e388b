// Package directory adapts the LDAP, Kerberos and PAM realms to the
// auth.Backend interface.
//
// Every call is bounded by a timeout and by a cap on concurrent calls.
// gokrb5 and libpam do not observe contexts, so each Login runs in its own
// goroutine raced against the deadline; a call that outlives its deadline
// keeps its concurrency slot until it actually returns.
package directory

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/config"
)

// Realm is one directory technology.
type Realm interface {
	Login(ctx context.Context, username, password string) (*auth.Principal, error)
	Close() error
}

// Service is an auth.Backend over a Realm.
type Service struct {
	kind    config.AuthMode
	realm   Realm
	timeout time.Duration
	sem     *semaphore.Weighted
}

var _ auth.Backend = (*Service)(nil)

// New loads the login configuration at path and opens the realm for kind.
// All failures are *config.ConfigError.
func New(kind config.AuthMode, path string, timeout time.Duration) (*Service, error) {
	if !kind.IsDirectory() {
		return nil, config.ConfigErrorf(config.ErrUnknownAuthMode, "%q is not a directory mode", kind)
	}

	lc, err := LoadLoginConfig(path)
	if err != nil {
		return nil, err
	}

	realm, err := lc.Open(kind)
	if err != nil {
		return nil, err
	}

	logger.Info("Directory realm ready",
		logger.AuthMode(kind.String()), logger.File(path),
		"timeout", timeout.String(), "max_concurrent", lc.MaxConcurrent)
	return NewWithRealm(kind, realm, timeout, lc.MaxConcurrent), nil
}

// NewWithRealm wraps an already constructed realm. maxConcurrent <= 0 uses
// DefaultMaxConcurrent and timeout <= 0 disables the per-call bound.
func NewWithRealm(kind config.AuthMode, realm Realm, timeout time.Duration, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Service{
		kind:    kind,
		realm:   realm,
		timeout: timeout,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Name implements auth.Backend.
func (s *Service) Name() string { return s.kind.String() }

type loginResult struct {
	principal *auth.Principal
	err       error
}

// Authenticate implements auth.Backend. Any failure, including timeouts and
// network errors, wraps auth.ErrAuthFailed.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*auth.Principal, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, s.fail(err)
	}

	done := make(chan loginResult, 1)
	go func() {
		defer s.sem.Release(1)
		p, err := s.realm.Login(ctx, username, password)
		done <- loginResult{principal: p, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, s.fail(res.err)
		}
		if res.principal == nil {
			return nil, s.fail(fmt.Errorf("realm returned no principal"))
		}
		return res.principal, nil
	case <-ctx.Done():
		return nil, s.fail(ctx.Err())
	}
}

// Close implements auth.Backend.
func (s *Service) Close() error {
	return s.realm.Close()
}

func (s *Service) fail(err error) error {
	return fmt.Errorf("%w: %s: %w", auth.ErrAuthFailed, s.kind, err)
}
