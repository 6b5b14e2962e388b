package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints and the cross-field rules of the server
// section. Every failure is a *ConfigError.
func Validate(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		return NewConfigError(ErrInvalidConfig, describeValidation(err))
	}
	return ValidateServer(cfg.Server)
}

// ValidateServer checks the rules that must hold before the pipeline binds
// a socket or contacts a credential backend.
func ValidateServer(cfg ServerConfig) error {
	if err := structValidator().Struct(cfg); err != nil {
		return NewConfigError(ErrInvalidConfig, describeValidation(err))
	}

	mode, ok := ParseAuthMode(string(cfg.Auth.Mode))
	if !ok {
		return ConfigErrorf(ErrUnknownAuthMode, "%q (expected none, static_file, ldap, kerberos or pam)", cfg.Auth.Mode)
	}

	if mode.Enabled() && strings.TrimSpace(cfg.Auth.ConfigPath) == "" {
		return ConfigErrorf(ErrMissingLoginConfig, "auth mode %s requires login_config", mode)
	}

	if mode.IsDirectory() && strings.TrimSpace(cfg.Auth.ExpectedOwner) == "" {
		return ConfigErrorf(ErrMissingOwner, "auth mode %s requires expected_owner", mode)
	}

	if cfg.TLS.KeystorePath == "" && cfg.TLS.KeystorePassword != "" {
		return ConfigErrorf(ErrInvalidKeystore, "keystore_password set without keystore")
	}

	if cfg.Auth.SessionStore.Type == SessionStoreRedis && cfg.Auth.SessionStore.Redis.Addr == "" {
		return ConfigErrorf(ErrInvalidConfig, "redis session store requires an address")
	}

	return nil
}

// describeValidation turns validator errors into one readable message.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
