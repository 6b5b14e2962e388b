package session

import (
	"net/http"
	"time"
)

// CookieName carries the session token.
const CookieName = "httpgate_session"

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	// Path scopes the cookie; normally the context path.
	Path string

	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// NewCookie returns the cookie that hands token to the client. It is a
// browser-session cookie; the server enforces inactivity expiry.
func NewCookie(token string, opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     cookiePath(opts.Path),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie returns a cookie that deletes the session cookie.
func ExpiredCookie(opts CookieOptions) *http.Cookie {
	c := NewCookie("", opts)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

// TokenFromRequest returns the session token carried by r, if any.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func cookiePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
