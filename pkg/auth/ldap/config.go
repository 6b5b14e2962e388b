package ldap

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// UsernamePlaceholder is substituted in UserDNTemplate and UserFilter.
const UsernamePlaceholder = "{username}"

// Defaults applied by ApplyDefaults.
const (
	DefaultUserFilter    = "(uid={username})"
	DefaultRoleAttribute = "memberOf"
	DefaultDialTimeout   = 5 * time.Second
)

// Config is the ldap section of the login configuration.
type Config struct {
	// URL is ldap://host[:port] or ldaps://host[:port].
	URL string `yaml:"url" json:"url" validate:"required,url"`

	// StartTLS upgrades an ldap:// connection before binding.
	StartTLS bool `yaml:"start_tls" json:"start_tls,omitempty"`

	// InsecureSkipVerify disables server certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" json:"insecure_skip_verify,omitempty"`

	// CAFile is a PEM bundle used instead of the system roots.
	CAFile string `yaml:"ca_file" json:"ca_file,omitempty"`

	// UserDNTemplate enables direct bind, e.g.
	// uid={username},ou=people,dc=example,dc=org
	UserDNTemplate string `yaml:"user_dn_template" json:"user_dn_template,omitempty"`

	// BindDN and BindPassword authenticate the search in search-then-bind
	// mode. Empty means anonymous search.
	BindDN       string `yaml:"bind_dn" json:"bind_dn,omitempty"`
	BindPassword string `yaml:"bind_password" json:"bind_password,omitempty"`

	// BaseDN is the search root in search-then-bind mode.
	BaseDN string `yaml:"base_dn" json:"base_dn,omitempty"`

	// UserFilter selects the user entry.
	// Default: (uid={username})
	UserFilter string `yaml:"user_filter" json:"user_filter,omitempty"`

	// RoleAttribute lists the user's groups.
	// Default: memberOf
	RoleAttribute string `yaml:"role_attribute" json:"role_attribute,omitempty"`

	// DialTimeout bounds connection setup.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout,omitempty"`
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.UserFilter == "" {
		c.UserFilter = DefaultUserFilter
	}
	if c.RoleAttribute == "" {
		c.RoleAttribute = DefaultRoleAttribute
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
}

// Validate checks the combination of lookup settings.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("ldap: url is required")
	}
	if !strings.HasPrefix(c.URL, "ldap://") && !strings.HasPrefix(c.URL, "ldaps://") {
		return fmt.Errorf("ldap: url %q must use ldap:// or ldaps://", c.URL)
	}
	if c.StartTLS && strings.HasPrefix(c.URL, "ldaps://") {
		return errors.New("ldap: start_tls cannot be combined with ldaps://")
	}

	switch {
	case c.UserDNTemplate != "":
		if !strings.Contains(c.UserDNTemplate, UsernamePlaceholder) {
			return fmt.Errorf("ldap: user_dn_template must contain %s", UsernamePlaceholder)
		}
	case c.BaseDN != "":
		if c.UserFilter != "" && !strings.Contains(c.UserFilter, UsernamePlaceholder) {
			return fmt.Errorf("ldap: user_filter must contain %s", UsernamePlaceholder)
		}
	default:
		return errors.New("ldap: either user_dn_template or base_dn is required")
	}

	if (c.BindDN == "") != (c.BindPassword == "") {
		return errors.New("ldap: bind_dn and bind_password must be set together")
	}
	return nil
}

// tlsConfig builds the client TLS settings for ldaps:// and StartTLS.
func (c *Config) tlsConfig(host string) (*tls.Config, error) {
	tc := &tls.Config{
		ServerName:         host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.InsecureSkipVerify, //nolint:gosec // opt-in
	}
	if c.CAFile == "" {
		return tc, nil
	}

	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("ldap: read ca_file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ldap: no certificates in %s", c.CAFile)
	}
	tc.RootCAs = pool
	return tc, nil
}
