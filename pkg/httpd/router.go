package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/httpd/middleware"
	"github.com/marmos91/httpgate/pkg/session"
)

// newRouter assembles the chain. Order matters:
//
//	RequestID → RealIP → RequestLogger → Recoverer → HideServerIdentity
//	  → [context path]
//	    → login pages (form auth only, public)
//	    → Sessions → logout
//	      → Authenticator → OwnerConstraint → routes, 404 and 405
//
// With authentication disabled the routes are mounted directly under the
// context path.
func (s *Server) newRouter(backend auth.Backend, tracker *session.Tracker) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.HideServerIdentity)

	mount := func(sub chi.Router) {
		if !s.cfg.Auth.Mode.Enabled() {
			s.routes.RegisterRoutes(sub)
			return
		}
		s.mountProtected(sub, backend, tracker)
	}

	if s.cfg.ContextPath == "/" {
		mount(r)
	} else {
		r.Route(s.cfg.ContextPath, mount)
	}
	return r
}

func (s *Server) mountProtected(r chi.Router, backend auth.Backend, tracker *session.Tracker) {
	cookie := session.CookieOptions{Path: s.cfg.ContextPath, Secure: s.cfg.Scheme() == "https"}

	owner := middleware.NewOwnerConstraint(s.cfg.Auth.Mode, s.cfg.Auth.ExpectedOwner, tracker, cookie, s.opts.authMetrics)
	authn := middleware.NewAuthenticator(middleware.AuthenticatorConfig{
		Backend:     backend,
		Tracker:     tracker,
		Owner:       owner,
		Realm:       s.cfg.Auth.Realm,
		FormAuth:    s.cfg.Auth.FormAuth,
		ContextPath: s.cfg.ContextPath,
		Cookie:      cookie,
		Metrics:     s.opts.authMetrics,
	})

	if s.cfg.Auth.FormAuth {
		r.Get(middleware.LoginPath, authn.LoginPage)
		r.Post(middleware.LoginPath, authn.Login)
		r.Get(middleware.LoginErrorPath, authn.LoginErrorPage)
	}

	// The guarded router's NotFound and MethodNotAllowed handlers run
	// inside its middleware, so unmatched paths and methods are
	// authenticated like any route.
	guarded := chi.NewRouter()
	guarded.Use(authn.Middleware)
	guarded.Use(owner.Middleware)
	s.routes.RegisterRoutes(guarded)

	protected := chi.NewRouter()
	protected.Use(middleware.Sessions(tracker, cookie))
	protected.Get(middleware.LogoutPath, authn.Logout)
	protected.Post(middleware.LogoutPath, authn.Logout)
	protected.Mount("/", guarded)

	r.Mount("/", protected)
}
