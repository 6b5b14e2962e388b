// Package httpd is the request pipeline of the gate. It binds the listener
// produced by pkg/transport and serves the business routes behind the
// session, authentication and owner-constraint chain selected by a
// config.ServerConfig.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/auth/realm"
	"github.com/marmos91/httpgate/pkg/config"
	"github.com/marmos91/httpgate/pkg/session"
	"github.com/marmos91/httpgate/pkg/transport"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("httpd: server already started")

// Server serves a route table behind the authentication chain.
//
// The server is created stopped. Start validates the configuration, builds
// the credential backend and session tracker, binds the socket and begins
// serving; any failure up to that point is a *config.ConfigError and
// leaves nothing bound. Stop is idempotent and a no-op before Start.
type Server struct {
	cfg    config.ServerConfig
	routes RouteRegistrar
	opts   options

	mu       sync.Mutex
	started  bool
	stopped  bool
	server   *http.Server
	listener *transport.Listener
	backend  auth.Backend
	tracker  *session.Tracker
	cancel   context.CancelFunc
	tasks    sync.WaitGroup
	done     chan struct{}
	serveErr error
}

// New returns a stopped Server. cfg is copied, so later changes by the
// caller have no effect.
func New(cfg config.ServerConfig, routes RouteRegistrar, opts ...Option) *Server {
	config.ApplyServerDefaults(&cfg)
	if routes == nil {
		routes = Routes(nil)
	}

	s := &Server{cfg: cfg, routes: routes, done: make(chan struct{})}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Start brings the server up and returns once it is accepting
// connections. ctx bounds startup only.
func (s *Server) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	if err := config.ValidateServer(s.cfg); err != nil {
		return err
	}
	mode := s.cfg.Auth.Mode

	// Release whatever was built if a later step fails.
	var cleanup []func() error
	defer func() {
		if err != nil {
			for i := len(cleanup) - 1; i >= 0; i-- {
				_ = cleanup[i]()
			}
		}
	}()

	backend := s.opts.backend
	if backend == nil {
		if backend, err = NewBackend(s.cfg); err != nil {
			return err
		}
	}
	cleanup = append(cleanup, backend.Close)

	var tracker *session.Tracker
	if mode.Enabled() {
		store, err := s.sessionStore(ctx)
		if err != nil {
			return err
		}
		tracker = session.NewTracker(store, s.cfg.Auth.SessionTimeout(),
			session.WithMetrics(s.opts.sessionMetrics),
			session.WithMaxSessions(s.cfg.Auth.MaxSessions))
		cleanup = append(cleanup, func() error { return tracker.Close(context.Background()) })
	}

	ln, err := transport.NewFactory(s.cfg).Listen(ctx)
	if err != nil {
		return err
	}

	s.backend = backend
	s.tracker = tracker
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.newRouter(auth.Instrument(backend, s.opts.authMetrics), tracker),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	bg, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.startBackground(bg)

	go s.serve()
	s.started = true

	logger.Info("HTTP gate started",
		logger.AuthMode(mode.String()),
		logger.KeyAddress, s.url(),
		"form_auth", s.cfg.Auth.FormAuth,
		"session_timeout", s.cfg.Auth.SessionTimeout().String())
	return nil
}

func (s *Server) sessionStore(ctx context.Context) (session.Store, error) {
	if s.opts.store != nil {
		return s.opts.store, nil
	}
	if s.cfg.Auth.SessionStore.Type != config.SessionStoreRedis {
		return session.NewMemoryStore(), nil
	}

	rc := s.cfg.Auth.SessionStore.Redis
	store, err := session.NewRedisStore(ctx, session.RedisOptions{
		Addr:      rc.Addr,
		Username:  rc.Username,
		Password:  rc.Password,
		DB:        rc.DB,
		KeyPrefix: rc.KeyPrefix,
	})
	if err != nil {
		return nil, config.NewConfigError(config.ErrSessionStoreFailure, err)
	}
	logger.Info("Using Redis session store", logger.KeyAddress, rc.Addr)
	return store, nil
}

// startBackground launches the session sweeper and, when configured, the
// realm file watcher.
func (s *Server) startBackground(ctx context.Context) {
	if s.tracker != nil {
		s.tasks.Add(1)
		go func() {
			defer s.tasks.Done()
			s.tracker.Run(ctx)
		}()
	}

	if r, ok := s.backend.(*realm.Realm); ok && s.cfg.Auth.WatchConfig {
		if err := r.Watch(ctx, nil); err != nil {
			logger.Warn("Realm file watch disabled", logger.File(r.Path()), logger.Err(err))
		}
	}
}

func (s *Server) serve() {
	defer close(s.done)

	err := s.server.Serve(s.listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server failed", logger.Err(err))
		s.serveErr = fmt.Errorf("serve: %w", err)
	}
}

// Wait blocks until the server stops serving and returns the serve error,
// if any. It returns immediately when the server was never started.
func (s *Server) Wait() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}
	<-s.done
	return s.serveErr
}

// Stop stops accepting connections, waits for in-flight requests until ctx
// is done and then closes them, stops background tasks, destroys all
// sessions and closes the backend. Calling Stop again, or before Start,
// does nothing.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return nil
	}
	s.stopped = true

	var errs []error
	if err := s.server.Shutdown(ctx); err != nil {
		logger.Warn("Graceful shutdown interrupted, closing connections", logger.Err(err))
		errs = append(errs, s.server.Close())
	}
	<-s.done

	s.cancel()
	s.tasks.Wait()

	if s.tracker != nil {
		errs = append(errs, s.tracker.Close(ctx))
	}
	errs = append(errs, s.backend.Close())

	logger.Info("HTTP gate stopped")
	return errors.Join(errs...)
}

// Scheme returns "https" when a keystore is configured, else "http".
func (s *Server) Scheme() string {
	return s.cfg.Scheme()
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the base URL including the context path, or "" before
// Start.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.url()
}

func (s *Server) url() string {
	return s.listener.Scheme() + "://" + s.listener.Addr().String() + strings.TrimSuffix(s.cfg.ContextPath, "/")
}

// Config returns the normalized configuration.
func (s *Server) Config() config.ServerConfig {
	return s.cfg
}
