//go:build !linux || !cgo

package pam

import (
	"context"
	"errors"

	"github.com/marmos91/httpgate/pkg/auth"
)

// Supported reports whether this build can talk to PAM.
const Supported = false

// ErrUnsupported is returned by New on builds without PAM.
var ErrUnsupported = errors.New("pam: not supported on this platform (requires linux and cgo)")

// Realm is unavailable on this platform.
type Realm struct {
	cfg Config
}

// New always fails on this platform.
func New(Config) (*Realm, error) {
	return nil, ErrUnsupported
}

// Login always fails on this platform.
func (r *Realm) Login(context.Context, string, string) (*auth.Principal, error) {
	return nil, ErrUnsupported
}

// Close is a no-op.
func (r *Realm) Close() error { return nil }
