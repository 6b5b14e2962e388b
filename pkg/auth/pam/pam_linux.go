//go:build linux && cgo

package pam

import (
	"context"
	"errors"
	"fmt"

	"github.com/msteinert/pam/v2"

	"github.com/marmos91/httpgate/pkg/auth"
)

// Supported reports whether this build can talk to PAM.
const Supported = true

// Realm verifies passwords through a PAM stack.
type Realm struct {
	cfg Config
}

// New returns a Realm for cfg.Service.
func New(cfg Config) (*Realm, error) {
	cfg.ApplyDefaults()
	return &Realm{cfg: cfg}, nil
}

// Login runs pam_authenticate and, unless disabled, pam_acct_mgmt. libpam
// calls cannot be interrupted, so ctx is only checked between steps.
func (r *Realm) Login(ctx context.Context, username, password string) (*auth.Principal, error) {
	if password == "" {
		return nil, errEmptyPassword
	}

	tx, err := pam.StartFunc(r.cfg.Service, username, conversation(password))
	if err != nil {
		return nil, fmt.Errorf("pam: start %s: %w", r.cfg.Service, err)
	}
	defer tx.End()

	if err := tx.Authenticate(pam.Silent); err != nil {
		return nil, fmt.Errorf("pam: authenticate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.cfg.SkipAccountCheck {
		if err := tx.AcctMgmt(pam.Silent); err != nil {
			return nil, fmt.Errorf("pam: account: %w", err)
		}
	}

	return &auth.Principal{Name: username, Backend: BackendName}, nil
}

// Close is a no-op.
func (r *Realm) Close() error { return nil }

// conversation answers the password prompt and ignores informational
// messages.
func conversation(password string) func(pam.Style, string) (string, error) {
	return func(style pam.Style, msg string) (string, error) {
		switch style {
		case pam.PromptEchoOff:
			return password, nil
		case pam.ErrorMsg, pam.TextInfo:
			return "", nil
		default:
			return "", errors.New("pam: unsupported prompt: " + msg)
		}
	}
}
