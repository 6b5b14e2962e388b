package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	principal *Principal
	err       error
	closed    bool
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Authenticate(context.Context, string, string) (*Principal, error) {
	return s.principal, s.err
}

func (s *stubBackend) Close() error {
	s.closed = true
	return nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	calls    []string
	errs     []error
	mismatch int
}

func (m *recordingMetrics) RecordAttempt(scheme, result string) {}

func (m *recordingMetrics) ObserveBackend(backend string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, backend)
	m.errs = append(m.errs, err)
}

func (m *recordingMetrics) RecordOwnerMismatch() { m.mismatch++ }

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, PrincipalFromContext(ctx))

	p := &Principal{Name: "alice", Roles: []string{"admin"}}
	ctx = WithPrincipal(ctx, p)
	assert.Same(t, p, PrincipalFromContext(ctx))
	assert.True(t, p.HasRole("admin"))
	assert.False(t, p.HasRole("user"))

	var nilP *Principal
	assert.False(t, nilP.HasRole("admin"))
}

func TestNoneBackend(t *testing.T) {
	var b Backend = NoneBackend{}
	assert.Equal(t, "none", b.Name())

	p, err := b.Authenticate(context.Background(), "alice", "pw")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.NoError(t, b.Close())
}

func TestInstrumentSuccess(t *testing.T) {
	m := &recordingMetrics{}
	inner := &stubBackend{principal: &Principal{Name: "alice"}}
	b := Instrument(inner, m)

	p, err := b.Authenticate(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Name)
	assert.Equal(t, "stub", p.Backend)
	assert.Equal(t, []string{"stub"}, m.calls)
	assert.Nil(t, m.errs[0])

	require.NoError(t, b.Close())
	assert.True(t, inner.closed)
}

func TestInstrumentFailureWrapsAuthFailed(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	b := Instrument(&stubBackend{err: cause}, nil)

	p, err := b.Authenticate(context.Background(), "alice", "pw")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.ErrorIs(t, err, cause)
}
