// Package metrics owns the Prometheus registry and the constructors for the
// optional metrics recorders consumed by pkg/auth and pkg/session.
//
// Metrics are opt-in. Until InitRegistry is called every constructor
// returns nil, and consumers treat a nil recorder as "disabled" with zero
// overhead:
//
//	metrics.InitRegistry()
//	authMetrics := metrics.NewAuthMetrics()     // nil when disabled
//	backend = auth.Instrument(backend, authMetrics)
//
// The Prometheus implementations live in pkg/metrics/prometheus and
// register themselves here at init time, which keeps this package free of
// imports on its consumers' implementations.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/httpgate/internal/logger"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection with a fresh registry holding the
// Go runtime and process collectors. Calling it again replaces the
// registry.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mu.Lock()
	registry = reg
	mu.Unlock()
	return reg
}

// Reset disables metrics collection.
func Reset() {
	mu.Lock()
	registry = nil
	mu.Unlock()
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the active registry, or nil when disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Server exposes /metrics on its own port so scraping never passes through
// the authentication chain.
type Server struct {
	server *http.Server
	once   sync.Once
}

// NewServer returns a metrics server for port, or nil when metrics are
// disabled.
func NewServer(port int) *Server {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &Server{
		server: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(port)),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until ctx is done or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", s.server.Addr, err)
	}
	logger.Info("Metrics server listening", logger.KeyAddress, ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.Background())
	}()

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Stop shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		err = s.server.Shutdown(ctx)
	})
	return err
}
