package config

import (
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/httpgate/internal/logger"
)

// EnvKeystorePassword overrides TLSConfig.KeystorePassword when set.
const EnvKeystorePassword = "HTTPGATE_KEYSTORE_PASSWORD"

// AuthMode selects the credential backend.
type AuthMode string

const (
	AuthNone       AuthMode = "none"
	AuthStaticFile AuthMode = "static_file"
	AuthLDAP       AuthMode = "ldap"
	AuthKerberos   AuthMode = "kerberos"
	AuthPAM        AuthMode = "pam"
)

// authModeAliases maps alternative spellings onto canonical modes.
var authModeAliases = map[string]AuthMode{
	"":            AuthNone,
	"none":        AuthNone,
	"hash":        AuthStaticFile,
	"static":      AuthStaticFile,
	"static_file": AuthStaticFile,
	"ldap":        AuthLDAP,
	"kerberos":    AuthKerberos,
	"pam":         AuthPAM,
}

// ParseAuthMode returns the canonical mode for s, or false if s names no mode.
func ParseAuthMode(s string) (AuthMode, bool) {
	m, ok := authModeAliases[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

// IsDirectory reports whether the mode delegates to an external directory
// service. Only these modes enforce the owner constraint.
func (m AuthMode) IsDirectory() bool {
	return m == AuthLDAP || m == AuthKerberos || m == AuthPAM
}

// Enabled reports whether requests must be authenticated.
func (m AuthMode) Enabled() bool {
	return m != AuthNone && m != ""
}

func (m AuthMode) String() string { return string(m) }

// SessionStoreType selects where sessions live.
type SessionStoreType string

const (
	SessionStoreMemory SessionStoreType = "memory"
	SessionStoreRedis  SessionStoreType = "redis"
)

// ServerConfig is the immutable snapshot the request pipeline is built from.
type ServerConfig struct {
	// ListenIP is the bind address. Empty binds all interfaces.
	ListenIP string `mapstructure:"bind_address" validate:"omitempty,ip" yaml:"bind_address" json:"bind_address,omitempty"`

	// ListenPort is the TCP port. 0 picks an ephemeral port.
	ListenPort int `mapstructure:"bind_port" validate:"gte=0,lte=65535" yaml:"bind_port" json:"bind_port"`

	// ContextPath is the URL prefix every route is mounted under.
	// Default: "/"
	ContextPath string `mapstructure:"context_path" yaml:"context_path" json:"context_path,omitempty"`

	TLS TLSConfig `mapstructure:"tls" yaml:"tls" json:"tls"`

	Auth AuthConfig `mapstructure:"auth" yaml:"auth" json:"auth"`

	// HTTP server timeouts.
	ReadTimeout       time.Duration `mapstructure:"read_timeout" validate:"gte=0" yaml:"read_timeout" json:"read_timeout,omitempty"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gte=0" yaml:"read_header_timeout" json:"read_header_timeout,omitempty"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" validate:"gte=0" yaml:"write_timeout" json:"write_timeout,omitempty"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" validate:"gte=0" yaml:"idle_timeout" json:"idle_timeout,omitempty"`
}

// TLSConfig names the keystore holding the server certificate chain and
// private key. JKS, PKCS#12 and PEM bundles are accepted.
type TLSConfig struct {
	KeystorePath string `mapstructure:"keystore" yaml:"keystore,omitempty" json:"keystore,omitempty"`

	// KeystorePassword unlocks the keystore.
	// Override: HTTPGATE_KEYSTORE_PASSWORD
	KeystorePassword string `mapstructure:"keystore_password" yaml:"keystore_password,omitempty" json:"keystore_password,omitempty"`
}

// AuthConfig selects and parameterizes request authentication.
type AuthConfig struct {
	// Mode is one of none, static_file (alias hash), ldap, kerberos, pam.
	Mode AuthMode `mapstructure:"mode" yaml:"mode" json:"mode" jsonschema:"enum=none,enum=static_file,enum=hash,enum=ldap,enum=kerberos,enum=pam"`

	// ConfigPath is the realm file for static_file, or the login
	// configuration for directory modes.
	ConfigPath string `mapstructure:"login_config" yaml:"login_config,omitempty" json:"login_config,omitempty"`

	// FormAuth enables the HTML login form alongside Basic.
	FormAuth bool `mapstructure:"form_auth" yaml:"form_auth" json:"form_auth"`

	// SessionTimeoutMinutes is the inactivity timeout. 0 disables expiry.
	SessionTimeoutMinutes int `mapstructure:"session_timeout" validate:"gte=0" yaml:"session_timeout" json:"session_timeout"`

	// MaxSessions caps the in-memory session table; the least recently
	// seen sessions are evicted beyond it. Clients that ignore cookies
	// create a session per request.
	// Default: 10000
	MaxSessions int `mapstructure:"max_sessions" validate:"gte=0" yaml:"max_sessions" json:"max_sessions,omitempty"`

	// ExpectedOwner is the only principal admitted in directory modes.
	ExpectedOwner string `mapstructure:"expected_owner" yaml:"expected_owner,omitempty" json:"expected_owner,omitempty"`

	// Realm is the Basic challenge realm.
	// Default: "httpgate"
	Realm string `mapstructure:"realm" yaml:"realm" json:"realm,omitempty"`

	// DirectoryTimeout bounds each call to a directory service.
	// Default: 10s
	DirectoryTimeout time.Duration `mapstructure:"directory_timeout" validate:"gte=0" yaml:"directory_timeout" json:"directory_timeout,omitempty"`

	// WatchConfig reloads the static realm file when it changes on disk.
	WatchConfig bool `mapstructure:"watch_config" yaml:"watch_config" json:"watch_config"`

	SessionStore SessionStoreConfig `mapstructure:"session_store" yaml:"session_store" json:"session_store"`
}

// SessionStoreConfig selects the session backend.
type SessionStoreConfig struct {
	// Type is memory or redis.
	// Default: memory
	Type SessionStoreType `mapstructure:"type" validate:"omitempty,oneof=memory redis" yaml:"type" json:"type,omitempty" jsonschema:"enum=memory,enum=redis"`

	Redis RedisConfig `mapstructure:"redis" yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr,omitempty" json:"addr,omitempty"`
	Username  string `mapstructure:"username" yaml:"username,omitempty" json:"username,omitempty"`
	Password  string `mapstructure:"password" yaml:"password,omitempty" json:"password,omitempty"`
	DB        int    `mapstructure:"db" validate:"gte=0" yaml:"db,omitempty" json:"db,omitempty"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty" json:"key_prefix,omitempty"`
}

// Scheme returns "https" when a keystore is configured, else "http".
func (c ServerConfig) Scheme() string {
	if c.TLS.KeystorePath != "" {
		return "https"
	}
	return "http"
}

// Address returns the host:port the listener binds.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.ListenIP, strconv.Itoa(c.ListenPort))
}

// SessionTimeout returns the inactivity timeout as a duration.
func (c AuthConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

// GetKeystorePassword returns the keystore password, preferring the
// environment override.
func (c TLSConfig) GetKeystorePassword() string {
	if env := os.Getenv(EnvKeystorePassword); env != "" {
		if c.KeystorePassword != "" && c.KeystorePassword != env {
			logger.Warn("Keystore password from environment variable overrides config file value",
				"env_var", EnvKeystorePassword)
		}
		return env
	}
	return c.KeystorePassword
}

// NormalizeContextPath returns p with a single leading slash and no trailing
// slash. The root is returned as "/".
func NormalizeContextPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	p = path.Clean("/" + p)
	return p
}
