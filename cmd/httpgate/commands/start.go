package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/internal/telemetry"
	"github.com/marmos91/httpgate/pkg/config"
	"github.com/marmos91/httpgate/pkg/httpd"
	"github.com/marmos91/httpgate/pkg/metrics"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/httpgate/pkg/metrics/prometheus"
)

// startFlags mirrors the server settings that can be overridden on the
// command line.
type startFlags struct {
	ip               string
	port             int
	contextPath      string
	keystore         string
	keystorePassword string
	authMode         string
	loginConf        string
	formAuth         bool
	sessionTimeout   int
	owner            string
}

var startOpts startFlags

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gate in the foreground",
	Long: `Start httpgate and serve the built-in routes (/, /whoami, /healthz) behind
the configured authentication chain.

Flags override the configuration file and HTTPGATE_* environment variables.
A configuration error is logged and the process exits with status 1.

Examples:
  # Plaintext, no authentication
  httpgate start --port 8080

  # TLS with a static realm and the login form
  httpgate start --keystore gate.p12 --keystore-password changeit \
    --auth-mode static_file --login-conf realm.properties --form-auth

  # LDAP, admitting only alice
  httpgate start --auth-mode ldap --login-conf login.yaml --owner alice

  # With environment variable overrides
  HTTPGATE_LOGGING_LEVEL=DEBUG httpgate start`,
	RunE: runStart,
}

func init() {
	f := startCmd.Flags()
	f.StringVar(&startOpts.ip, "ip", "", "Bind address (default: all interfaces)")
	f.IntVar(&startOpts.port, "port", config.DefaultListenPort, "Bind port (0 picks a free port)")
	f.StringVar(&startOpts.contextPath, "context-path", config.DefaultContextPath, "URL prefix for all routes")
	f.StringVar(&startOpts.keystore, "keystore", "", "Keystore enabling TLS (JKS, PKCS#12 or PEM)")
	f.StringVar(&startOpts.keystorePassword, "keystore-password", "", "Keystore password (env: "+config.EnvKeystorePassword+")")
	f.StringVar(&startOpts.authMode, "auth-mode", string(config.AuthNone), "none, static_file, ldap, kerberos or pam")
	f.StringVar(&startOpts.loginConf, "login-conf", "", "Realm file (static_file) or login configuration (directory modes)")
	f.BoolVar(&startOpts.formAuth, "form-auth", false, "Enable the HTML login form alongside Basic")
	f.IntVar(&startOpts.sessionTimeout, "session-timeout", 0, "Session inactivity timeout in minutes (0 disables expiry)")
	f.StringVar(&startOpts.owner, "owner", "", "Only principal admitted in directory modes")
}

// applyStartFlags copies every flag the user set onto cfg.
func applyStartFlags(flags *pflag.FlagSet, opts startFlags, cfg *config.ServerConfig) {
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}

	set("ip", func() { cfg.ListenIP = opts.ip })
	set("port", func() { cfg.ListenPort = opts.port })
	set("context-path", func() { cfg.ContextPath = opts.contextPath })
	set("keystore", func() { cfg.TLS.KeystorePath = opts.keystore })
	set("keystore-password", func() { cfg.TLS.KeystorePassword = opts.keystorePassword })
	set("auth-mode", func() { cfg.Auth.Mode = config.AuthMode(opts.authMode) })
	set("login-conf", func() { cfg.Auth.ConfigPath = opts.loginConf })
	set("form-auth", func() { cfg.Auth.FormAuth = opts.formAuth })
	set("session-timeout", func() { cfg.Auth.SessionTimeoutMinutes = opts.sessionTimeout })
	set("owner", func() { cfg.Auth.ExpectedOwner = opts.owner })

	config.ApplyServerDefaults(cfg)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	applyStartFlags(cmd.Flags(), startOpts, &cfg.Server)

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "httpgate",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "httpgate",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	var opts []httpd.Option
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		opts = append(opts,
			httpd.WithAuthMetrics(metrics.NewAuthMetrics()),
			httpd.WithSessionMetrics(metrics.NewSessionMetrics()))
	}

	srv := httpd.New(cfg.Server, httpd.DefaultRoutes(Version), opts...)
	if err := srv.Start(ctx); err != nil {
		if config.IsConfigError(err) {
			logger.Error("Configuration error", logger.Err(err))
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if ms := metrics.NewServer(cfg.Metrics.Port); ms != nil {
		g.Go(func() error { return ms.Start(gctx) })
	}

	g.Go(func() error {
		if err := srv.Wait(); err != nil {
			return err
		}
		// Stopped without an error; unblock the shutdown goroutine.
		return errServerStopped
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	logger.Info("Server is running. Press Ctrl+C to stop.")

	start := time.Now()
	err = g.Wait()
	logger.Info("Server stopped", "uptime", time.Since(start).Round(time.Second).String())

	if errors.Is(err, errServerStopped) {
		return nil
	}
	return err
}

var errServerStopped = errors.New("server stopped")
