package auth

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/internal/telemetry"
)

// instrumented decorates a Backend with tracing, metrics and debug logging.
type instrumented struct {
	Backend
	metrics Metrics
}

// Instrument wraps b so every Authenticate call opens a span and reports its
// latency to m. m may be nil.
func Instrument(b Backend, m Metrics) Backend {
	return &instrumented{Backend: b, metrics: m}
}

func (i *instrumented) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	ctx, span := telemetry.StartBackendSpan(ctx, i.Name(), username)
	defer span.End()

	start := time.Now()
	p, err := i.Backend.Authenticate(ctx, username, password)
	elapsed := time.Since(start)

	if i.metrics != nil {
		i.metrics.ObserveBackend(i.Name(), elapsed, err)
	}

	if err != nil {
		telemetry.RecordError(ctx, err)
		if !errors.Is(err, ErrAuthFailed) {
			err = errors.Join(ErrAuthFailed, err)
		}
		logger.DebugCtx(ctx, "Credential check failed",
			logger.Backend(i.Name()), logger.Username(username), logger.DurationMs(elapsed), logger.Err(err))
		return nil, err
	}

	if p.Backend == "" {
		p.Backend = i.Name()
	}
	logger.DebugCtx(ctx, "Credential check passed",
		logger.Backend(i.Name()), logger.Principal(p.Name), logger.DurationMs(elapsed))
	return p, nil
}
