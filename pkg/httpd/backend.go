package httpd

import (
	"github.com/marmos91/httpgate/pkg/auth"
	"github.com/marmos91/httpgate/pkg/auth/directory"
	"github.com/marmos91/httpgate/pkg/auth/realm"
	"github.com/marmos91/httpgate/pkg/config"
)

// NewBackend builds the credential backend selected by cfg.Auth.Mode.
// Every failure is a *config.ConfigError.
func NewBackend(cfg config.ServerConfig) (auth.Backend, error) {
	mode, ok := config.ParseAuthMode(string(cfg.Auth.Mode))
	if !ok {
		return nil, config.ConfigErrorf(config.ErrUnknownAuthMode, "%q", cfg.Auth.Mode)
	}

	switch {
	case mode == config.AuthNone:
		return auth.NoneBackend{}, nil
	case mode == config.AuthStaticFile:
		r, err := realm.Load(cfg.Auth.ConfigPath)
		if err != nil {
			return nil, err
		}
		return r, nil
	case mode.IsDirectory():
		svc, err := directory.New(mode, cfg.Auth.ConfigPath, cfg.Auth.DirectoryTimeout)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, config.ConfigErrorf(config.ErrUnknownAuthMode, "%q", cfg.Auth.Mode)
	}
}
