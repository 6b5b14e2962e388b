package commands

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpgate/pkg/config"
)

func parseStartFlags(t *testing.T, args ...string) (*pflag.FlagSet, startFlags) {
	t.Helper()
	var opts startFlags
	fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
	fs.StringVar(&opts.ip, "ip", "", "")
	fs.IntVar(&opts.port, "port", config.DefaultListenPort, "")
	fs.StringVar(&opts.contextPath, "context-path", "/", "")
	fs.StringVar(&opts.keystore, "keystore", "", "")
	fs.StringVar(&opts.keystorePassword, "keystore-password", "", "")
	fs.StringVar(&opts.authMode, "auth-mode", "none", "")
	fs.StringVar(&opts.loginConf, "login-conf", "", "")
	fs.BoolVar(&opts.formAuth, "form-auth", false, "")
	fs.IntVar(&opts.sessionTimeout, "session-timeout", 0, "")
	fs.StringVar(&opts.owner, "owner", "", "")
	require.NoError(t, fs.Parse(args))
	return fs, opts
}

func TestApplyStartFlagsOverrides(t *testing.T) {
	cfg := config.GetDefaultConfig().Server
	fs, opts := parseStartFlags(t,
		"--ip", "127.0.0.1",
		"--port", "8443",
		"--context-path", "gate",
		"--keystore", "gate.p12",
		"--keystore-password", "changeit",
		"--auth-mode", "hash",
		"--login-conf", "realm.properties",
		"--form-auth",
		"--session-timeout", "15",
		"--owner", "alice",
	)

	applyStartFlags(fs, opts, &cfg)

	assert.Equal(t, "127.0.0.1", cfg.ListenIP)
	assert.Equal(t, 8443, cfg.ListenPort)
	assert.Equal(t, "/gate", cfg.ContextPath)
	assert.Equal(t, "gate.p12", cfg.TLS.KeystorePath)
	assert.Equal(t, "changeit", cfg.TLS.KeystorePassword)
	assert.Equal(t, config.AuthStaticFile, cfg.Auth.Mode)
	assert.Equal(t, "realm.properties", cfg.Auth.ConfigPath)
	assert.True(t, cfg.Auth.FormAuth)
	assert.Equal(t, 15, cfg.Auth.SessionTimeoutMinutes)
	assert.Equal(t, "alice", cfg.Auth.ExpectedOwner)
	assert.Equal(t, "https", cfg.Scheme())
}

func TestApplyStartFlagsKeepsUnsetValues(t *testing.T) {
	cfg := config.GetDefaultConfig().Server
	cfg.Auth.Mode = config.AuthLDAP
	cfg.Auth.ExpectedOwner = "bob"
	cfg.ListenPort = 9000

	fs, opts := parseStartFlags(t, "--form-auth")
	applyStartFlags(fs, opts, &cfg)

	assert.Equal(t, config.AuthLDAP, cfg.Auth.Mode)
	assert.Equal(t, "bob", cfg.Auth.ExpectedOwner)
	assert.Equal(t, 9000, cfg.ListenPort)
	assert.True(t, cfg.Auth.FormAuth)
}

func TestStartFlagsRegistered(t *testing.T) {
	for _, name := range []string{"ip", "port", "context-path", "keystore", "keystore-password",
		"auth-mode", "login-conf", "form-auth", "session-timeout", "owner"} {
		assert.NotNil(t, startCmd.Flags().Lookup(name), name)
	}
}

func TestGetConfigSource(t *testing.T) {
	assert.Equal(t, "/etc/httpgate/config.yaml", getConfigSource("/etc/httpgate/config.yaml"))
}
