package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/propagation"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/internal/telemetry"
)

// RequestLogger opens the server span, installs the per-request log
// context and logs each completed request. It must run after
// middleware.RequestID and middleware.RealIP.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx, span := telemetry.StartHTTPSpan(r.Context(), propagation.HeaderCarrier(r.Header), r.Method, r.URL.Path)
		defer span.End()
		telemetry.SetAttributes(ctx, telemetry.ClientIP(clientIP(r)), telemetry.URLScheme(scheme(r)))

		rc := logger.NewRequestContext(middleware.GetReqID(ctx), clientIP(r), r.Method, r.URL.Path)
		rc = rc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
		ctx = logger.WithContext(ctx, rc)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		telemetry.SetAttributes(ctx, telemetry.HTTPStatus(status))

		args := []any{
			logger.Status(status),
			logger.Bytes(ww.BytesWritten()),
			logger.DurationMs(time.Since(start)),
		}
		if isHealthPath(r.URL.Path) {
			logger.DebugCtx(ctx, "Request completed", args...)
		} else {
			logger.InfoCtx(ctx, "Request completed", args...)
		}
	})
}

func isHealthPath(p string) bool {
	return strings.HasSuffix(p, "/healthz")
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
