package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/metrics"
	"github.com/marmos91/httpgate/pkg/session"
)

// ReturnCookieName remembers the page that triggered the login redirect.
const ReturnCookieName = "httpgate_return"

// returnCookieMaxAge bounds how long a pending login remembers its target.
const returnCookieMaxAge = 300

// maxLoginFormBytes caps the login POST body.
const maxLoginFormBytes = 64 << 10

// redirectToLogin stores the requested URI and sends the client to the
// login page.
func (a *Authenticator) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	metrics.RecordAttempt(a.cfg.Metrics, SchemeForm, auth.ResultNoCredentials)

	if target := r.URL.RequestURI(); isSafeReturn(target) {
		http.SetCookie(w, &http.Cookie{
			Name:     ReturnCookieName,
			Value:    url.QueryEscape(target),
			Path:     cookiePath(a.cfg.ContextPath),
			MaxAge:   returnCookieMaxAge,
			HttpOnly: true,
			Secure:   a.cfg.Cookie.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, a.pages.loginURL, http.StatusFound)
}

// LoginPage renders the login form.
func (a *Authenticator) LoginPage(w http.ResponseWriter, r *http.Request) {
	a.pages.render(w, r, http.StatusOK, loginTemplate)
}

// LoginErrorPage renders the failed-login page.
func (a *Authenticator) LoginErrorPage(w http.ResponseWriter, r *http.Request) {
	a.pages.render(w, r, http.StatusOK, loginErrorTemplate)
}

// Login handles the login form POST: on success it binds a session and
// redirects to the remembered page, on failure to the error page. A
// principal rejected by the owner constraint gets 401 and no session.
func (a *Authenticator) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginFormBytes)
	if err := r.ParseForm(); err != nil {
		a.recordFailure(ctx, SchemeForm, "", auth.ErrInvalidCredentials)
		http.Redirect(w, r, a.pages.errorURL, http.StatusSeeOther)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		a.recordFailure(ctx, SchemeForm, username, errEmptyCredentials)
		http.Redirect(w, r, a.pages.errorURL, http.StatusSeeOther)
		return
	}

	p, err := a.verify(ctx, SchemeForm, username, password)
	if err != nil {
		http.Redirect(w, r, a.pages.errorURL, http.StatusSeeOther)
		return
	}

	if a.cfg.Owner != nil {
		if err := a.cfg.Owner.Check(p); err != nil {
			a.cfg.Owner.Reject(w, r, p)
			return
		}
	}

	s := a.bind(ctx, p)
	if s == nil && a.cfg.Tracker != nil {
		http.Redirect(w, r, a.pages.errorURL, http.StatusSeeOther)
		return
	}
	if s != nil {
		http.SetCookie(w, session.NewCookie(s.Token, a.cfg.Cookie))
		logger.InfoCtx(ctx, "Form login succeeded", logger.Principal(p.Name), logger.SessionID(s.ID))
	}

	target := a.pages.rootURL
	if c, err := r.Cookie(ReturnCookieName); err == nil {
		if saved, err := url.QueryUnescape(c.Value); err == nil && isSafeReturn(saved) {
			target = saved
		}
		http.SetCookie(w, &http.Cookie{
			Name:   ReturnCookieName,
			Path:   cookiePath(a.cfg.ContextPath),
			MaxAge: -1,
		})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// isSafeReturn accepts only same-site absolute paths, rejecting
// protocol-relative and backslash tricks that browsers treat as hosts.
func isSafeReturn(target string) bool {
	if !strings.HasPrefix(target, "/") {
		return false
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return false
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func cookiePath(contextPath string) string {
	if contextPath == "" {
		return "/"
	}
	return contextPath
}
