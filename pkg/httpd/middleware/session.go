package middleware

import (
	"net/http"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/pkg/session"
)

// Sessions resolves the session cookie. A live session attaches its
// principal to the request, which lets the Authenticator pass it through,
// and is touched to extend its lifetime. Unknown or expired tokens are
// cleared from the client.
func Sessions(tracker *session.Tracker, cookie session.CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := session.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			s, ok := tracker.Lookup(ctx, token)
			if !ok {
				http.SetCookie(w, session.ExpiredCookie(cookie))
				next.ServeHTTP(w, r)
				return
			}

			if err := tracker.Touch(ctx, s); err != nil {
				logger.WarnCtx(ctx, "Session touch failed", logger.SessionID(s.ID), logger.Err(err))
			}

			p := s.Principal
			next.ServeHTTP(w, r.WithContext(authenticated(ctx, &p, s)))
		})
	}
}
