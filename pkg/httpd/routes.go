package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteRegistrar installs the business routes. The router it receives is
// mounted under the context path behind the authentication chain, so every
// route it registers is protected.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// RouteFunc adapts a function to RouteRegistrar.
type RouteFunc func(r chi.Router)

// RegisterRoutes implements RouteRegistrar.
func (f RouteFunc) RegisterRoutes(r chi.Router) { f(r) }

// Route binds a handler to a pattern. An empty Method matches every
// method.
type Route struct {
	Method  string
	Pattern string
	Handler http.Handler
}

// Routes is an ordered route table.
type Routes []Route

// RegisterRoutes implements RouteRegistrar.
func (rs Routes) RegisterRoutes(r chi.Router) {
	for _, rt := range rs {
		if rt.Method == "" {
			r.Handle(rt.Pattern, rt.Handler)
			continue
		}
		r.Method(rt.Method, rt.Pattern, rt.Handler)
	}
}
