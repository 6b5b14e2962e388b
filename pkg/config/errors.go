package config

import (
	"errors"
	"fmt"
)

// Fatal configuration error kinds. Match them with errors.Is.
var (
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInvalidKeystore     = errors.New("invalid keystore")
	ErrBindFailure         = errors.New("bind failure")
	ErrMissingLoginConfig  = errors.New("missing login configuration")
	ErrInvalidLoginConfig  = errors.New("invalid login configuration")
	ErrUnknownAuthMode     = errors.New("unknown authentication mode")
	ErrMissingOwner        = errors.New("missing expected owner")
	ErrSessionStoreFailure = errors.New("session store unavailable")
)

// ConfigError is a startup failure that must halt the process. Kind is one
// of the Err* sentinels above and Err, when set, is the underlying cause.
type ConfigError struct {
	Kind error
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewConfigError builds a ConfigError of the given kind wrapping err.
func NewConfigError(kind, err error) *ConfigError {
	return &ConfigError{Kind: kind, Err: err}
}

// ConfigErrorf builds a ConfigError whose cause is a formatted message.
func ConfigErrorf(kind error, format string, args ...any) *ConfigError {
	return &ConfigError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
