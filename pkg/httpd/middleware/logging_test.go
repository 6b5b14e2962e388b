package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/pkg/auth"
)

func TestRequestLoggerInstallsContext(t *testing.T) {
	var rc *logger.RequestContext
	h := middleware.RequestID(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc = logger.FromContext(r.Context())
		_ = authenticated(r.Context(), &auth.Principal{Name: "alice"}, nil)
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	if assert.NotNil(t, rc) {
		assert.NotEmpty(t, rc.RequestID)
		assert.Equal(t, "192.0.2.10", rc.ClientIP)
		assert.Equal(t, http.MethodGet, rc.Method)
		assert.Equal(t, "/reports", rc.Path)
		assert.Equal(t, "alice", rc.Principal)
	}
}

func TestIsHealthPath(t *testing.T) {
	assert.True(t, isHealthPath("/healthz"))
	assert.True(t, isHealthPath("/app/healthz"))
	assert.False(t, isHealthPath("/app/reports"))
}
