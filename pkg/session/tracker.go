package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/internal/telemetry"
	"github.com/marmos91/httpgate/pkg/auth"
)

// maxSweepInterval caps the delay between two background sweeps.
const maxSweepInterval = time.Minute

// Tracker binds principals to sessions and enforces the inactivity timeout.
type Tracker struct {
	store       Store
	timeout     time.Duration
	maxSessions int
	metrics     Metrics
	now         func() time.Time

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMetrics reports lifecycle events to m.
func WithMetrics(m Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithMaxSessions caps the number of stored sessions. Binding beyond the
// cap first drops expired sessions, then the least recently seen ones. The
// cap applies to stores implementing Evicter; Redis bounds itself through
// key TTLs and its maxmemory policy. n <= 0 disables the cap.
func WithMaxSessions(n int) Option {
	return func(t *Tracker) { t.maxSessions = n }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker returns a Tracker over store. timeout <= 0 disables expiry.
func NewTracker(store Store, timeout time.Duration, opts ...Option) *Tracker {
	if timeout < 0 {
		timeout = 0
	}
	t := &Tracker{store: store, timeout: timeout, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Timeout returns the inactivity timeout; zero means none.
func (t *Tracker) Timeout() time.Duration { return t.timeout }

// Bind creates a session for p.
func (t *Tracker) Bind(ctx context.Context, p *auth.Principal) (*Session, error) {
	if p == nil {
		return nil, errors.New("session: bind requires a principal")
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSessionBind)
	defer span.End()

	s, err := newSession(p, t.now())
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	t.makeRoom(ctx)
	if err := t.store.Put(ctx, s, t.timeout); err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("session: store: %w", err)
	}
	telemetry.SetAttributes(ctx, telemetry.SessionID(s.ID), telemetry.Username(p.Name))

	if t.metrics != nil {
		t.metrics.RecordCreated()
	}
	logger.DebugCtx(ctx, "Session created", logger.SessionID(s.ID), logger.Principal(p.Name))
	return s, nil
}

// Lookup returns the live session for token. Expired sessions are deleted
// and reported absent, as are store failures.
func (t *Tracker) Lookup(ctx context.Context, token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}

	s, err := t.store.Get(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.WarnCtx(ctx, "Session lookup failed", logger.Err(err))
		}
		return nil, false
	}

	now := t.now()
	if !s.Expired(now, t.timeout) {
		return s, true
	}

	// A Touch racing with this lookup may have refreshed the session since
	// it was read; Expire only removes it if it is still idle.
	removed, err := t.store.Expire(ctx, token, now.Add(-t.timeout))
	if err != nil {
		logger.WarnCtx(ctx, "Session expiry failed", logger.SessionID(s.ID), logger.Err(err))
		return nil, false
	}
	if !removed {
		fresh, err := t.store.Get(ctx, token)
		if err != nil || fresh.Expired(now, t.timeout) {
			return nil, false
		}
		return fresh, true
	}

	if t.metrics != nil {
		t.metrics.RecordExpired(1)
	}
	logger.DebugCtx(ctx, "Session expired", logger.SessionID(s.ID), logger.Principal(s.Principal.Name))
	return nil, false
}

// makeRoom keeps the store below the session cap before a new session is
// added. Failures are logged; the bind proceeds.
func (t *Tracker) makeRoom(ctx context.Context) {
	ev, ok := t.store.(Evicter)
	if t.maxSessions <= 0 || !ok {
		return
	}

	n, err := t.store.Len(ctx)
	if err != nil || n < t.maxSessions {
		return
	}
	n -= t.ExpireSweep(ctx)
	if n < t.maxSessions {
		return
	}

	evicted, err := ev.EvictOldest(ctx, n-t.maxSessions+1)
	if err != nil {
		logger.WarnCtx(ctx, "Session eviction failed", logger.Err(err))
		return
	}
	if t.metrics != nil {
		t.metrics.RecordExpired(evicted)
	}
	logger.DebugCtx(ctx, "Evicted least recently seen sessions", logger.Evicted(evicted))
}

// Touch records activity on s and updates s.LastSeenAt.
func (t *Tracker) Touch(ctx context.Context, s *Session) error {
	updated, err := t.store.Touch(ctx, s.Token, t.now(), t.timeout)
	if err != nil {
		return err
	}
	s.LastSeenAt = updated.LastSeenAt
	return nil
}

// Invalidate destroys the session for token, if any.
func (t *Tracker) Invalidate(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := t.store.Delete(ctx, token); err != nil {
		logger.WarnCtx(ctx, "Session invalidation failed", logger.Err(err))
	}
}

// ExpireSweep removes every session idle for longer than the timeout and
// returns how many were removed.
func (t *Tracker) ExpireSweep(ctx context.Context) int {
	if t.timeout <= 0 {
		return 0
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSessionSweep)
	defer span.End()

	n, err := t.store.DeleteIdle(ctx, t.now().Add(-t.timeout))
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.Warn("Session sweep failed", logger.Err(err))
	}
	if n > 0 {
		if t.metrics != nil {
			t.metrics.RecordExpired(n)
		}
		logger.Debug("Expired idle sessions", logger.Evicted(n))
	}
	return n
}

// SweepInterval is the delay between background sweeps: half the timeout,
// at most one minute.
func (t *Tracker) SweepInterval() time.Duration {
	return min(t.timeout/2, maxSweepInterval)
}

// Run sweeps expired sessions until ctx is done. It returns immediately
// when expiry is disabled or the store expires entries itself.
func (t *Tracker) Run(ctx context.Context) {
	if t.timeout <= 0 {
		return
	}
	if ne, ok := t.store.(NativeExpiry); ok && ne.ExpiresNatively() {
		return
	}

	interval := t.SweepInterval()
	if interval <= 0 {
		interval = t.timeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.ExpireSweep(ctx)
		}
	}
}

// Len returns the number of stored sessions, or 0 when the store fails.
func (t *Tracker) Len(ctx context.Context) int {
	n, err := t.store.Len(ctx)
	if err != nil {
		return 0
	}
	return n
}

// Close clears all sessions and closes the store. Safe to call more than
// once.
func (t *Tracker) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		t.closeErr = errors.Join(t.store.Clear(ctx), t.store.Close())
	})
	return t.closeErr
}
