package directory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/httpgate/pkg/auth/kerberos"
	"github.com/marmos91/httpgate/pkg/auth/ldap"
	"github.com/marmos91/httpgate/pkg/auth/pam"
	"github.com/marmos91/httpgate/pkg/config"
)

// DefaultMaxConcurrent bounds simultaneous directory calls when the login
// configuration does not.
const DefaultMaxConcurrent = 16

// LoginConfig is the YAML file named by auth.login_config in directory
// modes. Only the section matching the selected mode is read.
//
//	max_concurrent: 16
//	ldap:
//	  url: ldaps://dir.example.org
//	  base_dn: dc=example,dc=org
//	kerberos:
//	  krb5_conf: /etc/krb5.conf
//	pam:
//	  service: httpgate
type LoginConfig struct {
	// MaxConcurrent caps in-flight directory calls.
	// Default: 16
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent,omitempty" validate:"gte=0"`

	LDAP     *ldap.Config     `yaml:"ldap" json:"ldap,omitempty"`
	Kerberos *kerberos.Config `yaml:"kerberos" json:"kerberos,omitempty"`
	PAM      *pam.Config      `yaml:"pam" json:"pam,omitempty"`
}

// LoadLoginConfig reads and validates the login configuration at path.
// Every failure is a *config.ConfigError.
func LoadLoginConfig(path string) (*LoginConfig, error) {
	if strings.TrimSpace(path) == "" {
		return nil, config.ConfigErrorf(config.ErrMissingLoginConfig, "directory mode requires a login configuration file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, config.ConfigErrorf(config.ErrMissingLoginConfig, "login configuration %s not found", path)
		}
		return nil, config.NewConfigError(config.ErrInvalidLoginConfig, err)
	}

	var lc LoginConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&lc); err != nil && !errors.Is(err, io.EOF) {
		return nil, config.ConfigErrorf(config.ErrInvalidLoginConfig, "parse %s: %w", path, err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&lc); err != nil {
		return nil, config.ConfigErrorf(config.ErrInvalidLoginConfig, "%s: %w", path, err)
	}

	if lc.MaxConcurrent == 0 {
		lc.MaxConcurrent = DefaultMaxConcurrent
	}
	return &lc, nil
}

// Open builds the realm for kind from its section. A missing section is
// ErrMissingLoginConfig; a section the realm rejects is
// ErrInvalidLoginConfig.
func (lc *LoginConfig) Open(kind config.AuthMode) (Realm, error) {
	switch kind {
	case config.AuthLDAP:
		if lc.LDAP == nil {
			return nil, missingSection(kind)
		}
		r, err := ldap.New(*lc.LDAP)
		if err != nil {
			return nil, config.NewConfigError(config.ErrInvalidLoginConfig, err)
		}
		return r, nil

	case config.AuthKerberos:
		if lc.Kerberos == nil {
			return nil, missingSection(kind)
		}
		r, err := kerberos.New(*lc.Kerberos)
		if err != nil {
			return nil, config.NewConfigError(config.ErrInvalidLoginConfig, err)
		}
		return r, nil

	case config.AuthPAM:
		if lc.PAM == nil {
			return nil, missingSection(kind)
		}
		r, err := pam.New(*lc.PAM)
		if err != nil {
			return nil, config.NewConfigError(config.ErrInvalidLoginConfig, err)
		}
		return r, nil

	default:
		return nil, config.ConfigErrorf(config.ErrUnknownAuthMode, "%q is not a directory mode", kind)
	}
}

func missingSection(kind config.AuthMode) error {
	return config.NewConfigError(config.ErrMissingLoginConfig, fmt.Errorf("login configuration has no %s section", kind))
}
