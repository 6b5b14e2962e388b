package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpgate/pkg/auth"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingMetrics struct {
	created atomic.Int32
	expired atomic.Int32
}

func (m *countingMetrics) RecordCreated()      { m.created.Add(1) }
func (m *countingMetrics) RecordExpired(n int) { m.expired.Add(int32(n)) }

var alice = &auth.Principal{Name: "alice", Roles: []string{"user"}, Backend: "static_file"}

func TestBindLookupRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := &countingMetrics{}
	tr := NewTracker(NewMemoryStore(), 30*time.Minute, WithMetrics(m))

	s, err := tr.Bind(ctx, alice)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Len(t, s.Token, 43, "32 bytes base64url without padding")
	assert.Equal(t, "alice", s.Principal.Name)
	assert.Equal(t, int32(1), m.created.Load())

	got, ok := tr.Lookup(ctx, s.Token)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, alice.Name, got.Principal.Name)

	_, ok = tr.Lookup(ctx, "unknown")
	assert.False(t, ok)
	_, ok = tr.Lookup(ctx, "")
	assert.False(t, ok)
}

func TestBindRejectsNilPrincipal(t *testing.T) {
	tr := NewTracker(NewMemoryStore(), time.Minute)
	_, err := tr.Bind(context.Background(), nil)
	assert.Error(t, err)
}

func TestTokensAreUnique(t *testing.T) {
	tr := NewTracker(NewMemoryStore(), 0)
	seen := make(map[string]bool)
	for range 100 {
		s, err := tr.Bind(context.Background(), alice)
		require.NoError(t, err)
		require.False(t, seen[s.Token])
		seen[s.Token] = true
	}
	assert.Equal(t, 100, tr.Len(context.Background()))
}

func TestLookupExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := &countingMetrics{}
	tr := NewTracker(NewMemoryStore(), 10*time.Minute, WithClock(clock.Now), WithMetrics(m))

	s, err := tr.Bind(ctx, alice)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, ok := tr.Lookup(ctx, s.Token)
	assert.True(t, ok, "idle time equal to the timeout is still live")

	clock.Advance(time.Second)
	_, ok = tr.Lookup(ctx, s.Token)
	assert.False(t, ok)
	assert.Equal(t, int32(1), m.expired.Load())
	assert.Zero(t, tr.Len(ctx), "expired session is deleted on lookup")
}

func TestTouchExtendsSession(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := NewTracker(NewMemoryStore(), 10*time.Minute, WithClock(clock.Now))

	s, err := tr.Bind(ctx, alice)
	require.NoError(t, err)

	for range 5 {
		clock.Advance(8 * time.Minute)
		got, ok := tr.Lookup(ctx, s.Token)
		require.True(t, ok)
		require.NoError(t, tr.Touch(ctx, got))
		assert.Equal(t, clock.Now(), got.LastSeenAt)
	}
}

func TestZeroTimeoutNeverExpires(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := NewTracker(NewMemoryStore(), 0, WithClock(clock.Now))

	s, err := tr.Bind(ctx, alice)
	require.NoError(t, err)

	clock.Advance(365 * 24 * time.Hour)
	_, ok := tr.Lookup(ctx, s.Token)
	assert.True(t, ok)
	assert.Zero(t, tr.ExpireSweep(ctx))
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), time.Minute)

	s, err := tr.Bind(ctx, alice)
	require.NoError(t, err)

	tr.Invalidate(ctx, s.Token)
	tr.Invalidate(ctx, "")
	_, ok := tr.Lookup(ctx, s.Token)
	assert.False(t, ok)
}

func TestExpireSweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := &countingMetrics{}
	tr := NewTracker(NewMemoryStore(), 5*time.Minute, WithClock(clock.Now), WithMetrics(m))

	old, err := tr.Bind(ctx, alice)
	require.NoError(t, err)
	clock.Advance(4 * time.Minute)
	fresh, err := tr.Bind(ctx, alice)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, tr.ExpireSweep(ctx))
	assert.Equal(t, int32(1), m.expired.Load())

	_, ok := tr.Lookup(ctx, old.Token)
	assert.False(t, ok)
	_, ok = tr.Lookup(ctx, fresh.Token)
	assert.True(t, ok)
}

func TestMaxSessionsEvictsLeastRecentlySeen(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	m := &countingMetrics{}
	tr := NewTracker(NewMemoryStore(), 0, WithClock(clock.Now), WithMaxSessions(3), WithMetrics(m))

	bind := func() *Session {
		t.Helper()
		s, err := tr.Bind(ctx, alice)
		require.NoError(t, err)
		clock.Advance(time.Second)
		return s
	}
	a, b, c := bind(), bind(), bind()

	got, ok := tr.Lookup(ctx, a.Token)
	require.True(t, ok)
	require.NoError(t, tr.Touch(ctx, got))

	d := bind()
	assert.Equal(t, 3, tr.Len(ctx))
	assert.Equal(t, int32(1), m.expired.Load())

	_, ok = tr.Lookup(ctx, b.Token)
	assert.False(t, ok, "least recently seen session is evicted")
	for _, s := range []*Session{a, c, d} {
		_, ok = tr.Lookup(ctx, s.Token)
		assert.True(t, ok)
	}
}

func TestMaxSessionsDropsExpiredFirst(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := NewTracker(NewMemoryStore(), 5*time.Minute, WithClock(clock.Now), WithMaxSessions(2))

	old, err := tr.Bind(ctx, alice)
	require.NoError(t, err)
	clock.Advance(6 * time.Minute)
	fresh, err := tr.Bind(ctx, alice)
	require.NoError(t, err)
	newest, err := tr.Bind(ctx, alice)
	require.NoError(t, err)

	assert.Equal(t, 2, tr.Len(ctx))
	_, ok := tr.Lookup(ctx, old.Token)
	assert.False(t, ok)
	_, ok = tr.Lookup(ctx, fresh.Token)
	assert.True(t, ok)
	_, ok = tr.Lookup(ctx, newest.Token)
	assert.True(t, ok)
}

func TestCookielessBindsStayUnderCap(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), 0, WithMaxSessions(10))

	for range 50 {
		_, err := tr.Bind(ctx, alice)
		require.NoError(t, err)
	}
	assert.Equal(t, 10, tr.Len(ctx))
}

// touchingStore refreshes a session just before the tracker expires it,
// as a concurrent request would.
type touchingStore struct {
	*MemoryStore
	at func() time.Time
}

func (s *touchingStore) Expire(ctx context.Context, token string, cutoff time.Time) (bool, error) {
	if _, err := s.Touch(ctx, token, s.at(), 0); err != nil {
		return false, err
	}
	return s.MemoryStore.Expire(ctx, token, cutoff)
}

func TestLookupKeepsSessionTouchedAtExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &touchingStore{MemoryStore: NewMemoryStore(), at: clock.Now}
	m := &countingMetrics{}
	tr := NewTracker(store, 10*time.Minute, WithClock(clock.Now), WithMetrics(m))

	s, err := tr.Bind(ctx, alice)
	require.NoError(t, err)
	clock.Advance(11 * time.Minute)

	got, ok := tr.Lookup(ctx, s.Token)
	require.True(t, ok)
	assert.Equal(t, clock.Now(), got.LastSeenAt)
	assert.Zero(t, m.expired.Load())
	assert.Equal(t, 1, tr.Len(ctx))
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, 30*time.Second, NewTracker(NewMemoryStore(), time.Minute).SweepInterval())
	assert.Equal(t, time.Minute, NewTracker(NewMemoryStore(), 30*time.Minute).SweepInterval())
}

func TestRunSweepsInBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := NewTracker(NewMemoryStore(), 40*time.Millisecond)
	_, err := tr.Bind(ctx, alice)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return tr.Len(ctx) == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReturnsWithoutTimeout(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewTracker(NewMemoryStore(), 0).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when expiry is disabled")
	}
}

func TestCloseClearsSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tr := NewTracker(store, time.Minute)

	_, err := tr.Bind(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, tr.Close(ctx))
	require.NoError(t, tr.Close(ctx))
	n, _ := store.Len(ctx)
	assert.Zero(t, n)
}

func TestConcurrentTouch(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(NewMemoryStore(), time.Minute)
	s, err := tr.Bind(ctx, alice)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := tr.Lookup(ctx, s.Token)
			if ok {
				_ = tr.Touch(ctx, got)
			}
		}()
	}
	wg.Wait()

	_, ok := tr.Lookup(ctx, s.Token)
	assert.True(t, ok)
}

func TestCookies(t *testing.T) {
	c := NewCookie("tok", CookieOptions{Path: "/app", Secure: true})
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "/app", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	assert.Equal(t, "/", NewCookie("tok", CookieOptions{}).Path)

	gone := ExpiredCookie(CookieOptions{Path: "/app"})
	assert.Equal(t, -1, gone.MaxAge)
	assert.Empty(t, gone.Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(req))
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "abc"})
	assert.Equal(t, "abc", TokenFromRequest(req))
}
