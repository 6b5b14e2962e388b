package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/session"
)

func TestSessions(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)
	h := Sessions(tr, session.CookieOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFromContext(r.Context())
		s := SessionFromContext(r.Context())
		if p == nil || s == nil {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(p.Name + "/" + s.ID))
	}))

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "anonymous", rec.Body.String())
		requireNoCookie(t, rec, session.CookieName)
	})

	t.Run("live session", func(t *testing.T) {
		s, err := tr.Bind(ctx, &auth.Principal{Name: "alice"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(session.NewCookie(s.Token, session.CookieOptions{}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "alice/"+s.ID, rec.Body.String())
	})

	t.Run("unknown token is cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(session.NewCookie("forged", session.CookieOptions{}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "anonymous", rec.Body.String())
		c := responseCookie(t, rec, session.CookieName)
		require.NotNil(t, c)
		assert.Negative(t, c.MaxAge)
	})
}

func TestSessionSkipsBasicAuthentication(t *testing.T) {
	ctx := context.Background()
	a, tr := newBasicAuthenticator(t)

	var calls int
	a.cfg.Backend = countingBackend{Backend: a.cfg.Backend, calls: &calls}

	h := Sessions(tr, session.CookieOptions{})(a.Middleware(principalEcho()))

	s, err := tr.Bind(ctx, &auth.Principal{Name: "alice"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(session.NewCookie(s.Token, session.CookieOptions{}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())
	assert.Zero(t, calls)
}

type countingBackend struct {
	auth.Backend
	calls *int
}

func (b countingBackend) Authenticate(ctx context.Context, username, password string) (*auth.Principal, error) {
	*b.calls++
	return b.Backend.Authenticate(ctx, username, password)
}
