package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/internal/telemetry"
	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/metrics"
	"github.com/marmos91/httpgate/pkg/session"
)

// Authentication schemes reported in logs and metrics.
const (
	SchemeBasic = "basic"
	SchemeForm  = "form"
)

// Form authentication paths, relative to the context path.
const (
	LoginPath      = "/login"
	LoginErrorPath = "/loginError"
	LogoutPath     = "/logout"
)

// AuthenticatorConfig configures an Authenticator.
type AuthenticatorConfig struct {
	// Backend verifies credentials.
	Backend auth.Backend

	// Tracker binds sessions on success. nil disables sessions.
	Tracker *session.Tracker

	// Owner is consulted by the form login before a session is bound.
	// nil admits every principal.
	Owner *OwnerConstraint

	// Realm is announced in the Basic challenge.
	Realm string

	// FormAuth enables the login form for requests without an
	// Authorization header.
	FormAuth bool

	// ContextPath prefixes the login, error and logout URLs.
	ContextPath string

	// Cookie sets the session and return cookie attributes.
	Cookie session.CookieOptions

	Metrics auth.Metrics
}

// Authenticator challenges unauthenticated requests with Basic or, in
// composite mode, with the login form.
//
// Each request moves from unchallenged to either authenticated (the
// principal is attached to the context and the next handler runs) or
// rejected (401 or a redirect to the login page).
type Authenticator struct {
	cfg       AuthenticatorConfig
	challenge string
	pages     *pages
}

// NewAuthenticator returns an Authenticator for cfg.
func NewAuthenticator(cfg AuthenticatorConfig) *Authenticator {
	cfg.ContextPath = strings.TrimSuffix(cfg.ContextPath, "/")
	return &Authenticator{
		cfg:       cfg,
		challenge: fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", cfg.Realm),
		pages:     newPages(cfg.ContextPath),
	}
}

// Middleware admits requests that already carry a principal and
// authenticates the rest. With form auth enabled, requests carrying an
// Authorization header take the Basic branch and all others the form
// branch.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.PrincipalFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.FormAuth && r.Header.Get("Authorization") == "" {
			a.redirectToLogin(w, r)
			return
		}
		a.basic(w, r, next)
	})
}

func (a *Authenticator) basic(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ctx := r.Context()

	if r.Header.Get("Authorization") == "" {
		metrics.RecordAttempt(a.cfg.Metrics, SchemeBasic, auth.ResultNoCredentials)
		a.unauthorized(w)
		return
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		a.recordFailure(ctx, SchemeBasic, "", auth.ErrInvalidCredentials)
		a.unauthorized(w)
		return
	}

	p, err := a.verify(ctx, SchemeBasic, username, password)
	if err != nil {
		a.unauthorized(w)
		return
	}

	s := a.bind(ctx, p)
	if s != nil {
		http.SetCookie(w, session.NewCookie(s.Token, a.cfg.Cookie))
	}
	next.ServeHTTP(w, r.WithContext(authenticated(ctx, p, s)))
}

// verify runs one backend check inside an auth span and records its
// outcome.
func (a *Authenticator) verify(ctx context.Context, scheme, username, password string) (*auth.Principal, error) {
	ctx, span := telemetry.StartAuthSpan(ctx, scheme, username)
	defer span.End()

	p, err := a.cfg.Backend.Authenticate(ctx, username, password)
	if err != nil {
		a.recordFailure(ctx, scheme, username, err)
		return nil, err
	}

	telemetry.SetAttributes(ctx, telemetry.AuthResult(auth.ResultSuccess))
	metrics.RecordAttempt(a.cfg.Metrics, scheme, auth.ResultSuccess)
	logger.DebugCtx(ctx, "Authentication succeeded", logger.AuthScheme(scheme), logger.Principal(p.Name))
	return p, nil
}

func (a *Authenticator) recordFailure(ctx context.Context, scheme, username string, err error) {
	telemetry.RecordError(ctx, err)
	telemetry.SetAttributes(ctx, telemetry.AuthResult(auth.ResultFailure))
	metrics.RecordAttempt(a.cfg.Metrics, scheme, auth.ResultFailure)
	logger.WarnCtx(ctx, "Authentication failed",
		logger.AuthScheme(scheme), logger.Username(username), logger.Backend(a.cfg.Backend.Name()), logger.Err(err))
}

// bind creates a session for p. A store failure is logged and the request
// proceeds without a session.
func (a *Authenticator) bind(ctx context.Context, p *auth.Principal) *session.Session {
	if a.cfg.Tracker == nil {
		return nil
	}
	s, err := a.cfg.Tracker.Bind(ctx, p)
	if err != nil {
		logger.ErrorCtx(ctx, "Session bind failed", logger.Principal(p.Name), logger.Err(err))
		return nil
	}
	return s
}

func (a *Authenticator) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", a.challenge)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

// Logout destroys the request's session and clears its cookie. Form mode
// redirects to the login page.
func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if token := session.TokenFromRequest(r); token != "" && a.cfg.Tracker != nil {
		a.cfg.Tracker.Invalidate(ctx, token)
	}
	http.SetCookie(w, session.ExpiredCookie(a.cfg.Cookie))

	if p := auth.PrincipalFromContext(ctx); p != nil {
		logger.InfoCtx(ctx, "Logged out", logger.Principal(p.Name))
	}

	if a.cfg.FormAuth {
		http.Redirect(w, r, a.pages.loginURL, http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Logged out\n"))
}

var errEmptyCredentials = errors.New("username and password are required")
