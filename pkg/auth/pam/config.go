// Package pam implements the PAM directory realm. It is available on Linux
// builds with cgo; elsewhere New fails so a misconfigured deployment stops
// at startup instead of rejecting every login.
package pam

import "errors"

// BackendName identifies this realm in principals and logs.
const BackendName = "pam"

// DefaultService is the PAM stack consulted when none is configured.
const DefaultService = "login"

var errEmptyPassword = errors.New("empty password")

// Config is the pam section of the login configuration.
type Config struct {
	// Service names the stack under /etc/pam.d.
	// Default: login
	Service string `yaml:"service" json:"service,omitempty"`

	// SkipAccountCheck disables pam_acct_mgmt (expired or locked accounts
	// are then admitted).
	SkipAccountCheck bool `yaml:"skip_account_check" json:"skip_account_check,omitempty"`
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Service == "" {
		c.Service = DefaultService
	}
}
