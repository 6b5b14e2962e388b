package middleware

import (
	"net/http"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/internal/telemetry"
	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/config"
	"github.com/marmos91/httpgate/pkg/metrics"
	"github.com/marmos91/httpgate/pkg/session"
)

// OwnerMismatchMessage is the body of the 401 sent on owner mismatch.
const OwnerMismatchMessage = "Login name does not match cluster owner name"

// OwnerConstraint admits only the configured owner. It is active for the
// directory modes and a no-op otherwise, since directory realms can
// authenticate every account in an organization.
type OwnerConstraint struct {
	expected string
	enabled  bool
	tracker  *session.Tracker
	cookie   session.CookieOptions
	metrics  auth.Metrics
}

// NewOwnerConstraint returns the filter for mode. tracker may be nil when
// sessions are not in use; m may be nil.
func NewOwnerConstraint(mode config.AuthMode, expected string, tracker *session.Tracker, cookie session.CookieOptions, m auth.Metrics) *OwnerConstraint {
	return &OwnerConstraint{
		expected: expected,
		enabled:  mode.IsDirectory(),
		tracker:  tracker,
		cookie:   cookie,
		metrics:  m,
	}
}

// Enabled reports whether the filter rejects anything.
func (o *OwnerConstraint) Enabled() bool { return o.enabled }

// Check returns auth.ErrOwnershipMismatch when p is not the owner.
func (o *OwnerConstraint) Check(p *auth.Principal) error {
	if !o.enabled {
		return nil
	}
	if p == nil || p.Name != o.expected {
		return auth.ErrOwnershipMismatch
	}
	return nil
}

// Middleware rejects requests whose principal is not the owner, destroying
// the session they arrived with. Requests without a principal are left to
// the Authenticator, which always runs first.
func (o *OwnerConstraint) Middleware(next http.Handler) http.Handler {
	if !o.enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := telemetry.StartSpan(r.Context(), telemetry.SpanOwnerCheck)
		p := auth.PrincipalFromContext(ctx)
		err := o.Check(p)
		span.End()

		if err == nil {
			next.ServeHTTP(w, r)
			return
		}

		o.Reject(w, r, p)
	})
}

// Reject audits the mismatch, destroys the request's session and answers
// 401.
func (o *OwnerConstraint) Reject(w http.ResponseWriter, r *http.Request, p *auth.Principal) {
	ctx := r.Context()

	name := ""
	if p != nil {
		name = p.Name
	}
	logger.WarnCtx(ctx, OwnerMismatchMessage, logger.Principal(name), logger.ExpectedOwner(o.expected))
	telemetry.AddEvent(ctx, "owner_mismatch", telemetry.Username(name), telemetry.ExpectedOwner(o.expected))
	metrics.RecordOwnerMismatch(o.metrics)

	if s := SessionFromContext(ctx); s != nil && o.tracker != nil {
		o.tracker.Invalidate(ctx, s.Token)
		http.SetCookie(w, session.ExpiredCookie(o.cookie))
	}
	http.Error(w, OwnerMismatchMessage, http.StatusUnauthorized)
}
