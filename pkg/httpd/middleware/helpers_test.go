package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/session"
)

// stubBackend accepts the users in its table.
type stubBackend struct {
	users map[string]string
}

func (b stubBackend) Name() string { return "stub" }

func (b stubBackend) Authenticate(_ context.Context, username, password string) (*auth.Principal, error) {
	if pw, ok := b.users[username]; ok && pw == password {
		return &auth.Principal{Name: username, Roles: []string{"user"}, Backend: "stub"}, nil
	}
	return nil, auth.ErrAuthFailed
}

func (b stubBackend) Close() error { return nil }

func newTestTracker(t *testing.T) *session.Tracker {
	t.Helper()
	tr := session.NewTracker(session.NewMemoryStore(), 30*time.Minute)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })
	return tr
}

// principalEcho writes the authenticated principal's name.
func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFromContext(r.Context())
		if p == nil {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(p.Name))
	})
}

func responseCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func requireNoCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) {
	t.Helper()
	require.Nil(t, responseCookie(t, rec, name), "unexpected %s cookie", name)
}
