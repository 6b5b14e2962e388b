package httpd

import (
	"fmt"
	"net/http"

	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/httpd/middleware"
)

// Whoami describes the caller on /whoami.
type Whoami struct {
	Authenticated bool     `json:"authenticated"`
	Name          string   `json:"name,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Backend       string   `json:"backend,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
}

// DefaultRoutes is the route table served by `httpgate start`:
//
//	GET /         greeting naming the caller
//	GET /whoami   the caller's principal as JSON
//	GET /healthz  liveness
func DefaultRoutes(version string) Routes {
	return Routes{
		{Method: http.MethodGet, Pattern: "/", Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := "anonymous"
			if p := auth.PrincipalFromContext(r.Context()); p != nil {
				name = p.Name
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = fmt.Fprintf(w, "httpgate %s\nHello, %s\n", version, name)
		})},
		{Method: http.MethodGet, Pattern: "/whoami", Handler: http.HandlerFunc(whoami)},
		{Method: http.MethodGet, Pattern: "/healthz", Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			JSON(w, http.StatusOK, OKResponse(nil))
		})},
	}
}

func whoami(w http.ResponseWriter, r *http.Request) {
	var resp Whoami
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		resp = Whoami{Authenticated: true, Name: p.Name, Roles: p.Roles, Backend: p.Backend}
	}
	if s := middleware.SessionFromContext(r.Context()); s != nil {
		resp.SessionID = s.ID
	}
	JSON(w, http.StatusOK, OKResponse(resp))
}
