// Package transport creates the listening socket for the gate: plaintext
// TCP, or TLS with the certificate and key taken from a keystore.
//
// The keystore is loaded before the socket is bound, so a bad keystore
// never leaves a port open.
package transport

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/pkg/config"
)

// Listener is a bound socket plus the URL scheme it serves.
type Listener struct {
	net.Listener
	scheme string
}

// Scheme returns "http" or "https".
func (l *Listener) Scheme() string { return l.scheme }

// Factory binds listeners for a ServerConfig.
type Factory struct {
	cfg config.ServerConfig
}

// NewFactory returns a factory for cfg.
func NewFactory(cfg config.ServerConfig) *Factory {
	return &Factory{cfg: cfg}
}

// TLSConfig returns the server TLS settings, or nil for plaintext.
// Failures are ErrInvalidKeystore config errors.
func (f *Factory) TLSConfig() (*tls.Config, error) {
	if f.cfg.TLS.KeystorePath == "" {
		return nil, nil
	}

	cert, err := LoadKeystore(f.cfg.TLS.KeystorePath, f.cfg.TLS.GetKeystorePassword())
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"h2", "http/1.1"},
	}, nil
}

// Listen binds the configured address. Keystore problems are
// ErrInvalidKeystore and bind problems ErrBindFailure config errors.
func (f *Factory) Listen(ctx context.Context) (*Listener, error) {
	tlsCfg, err := f.TLSConfig()
	if err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", f.cfg.Address())
	if err != nil {
		return nil, config.NewConfigError(config.ErrBindFailure, err)
	}

	if tlsCfg == nil {
		logger.Info("Listening", logger.KeyScheme, "http", logger.KeyAddress, ln.Addr().String())
		return &Listener{Listener: ln, scheme: "http"}, nil
	}

	logger.Info("Listening", logger.KeyScheme, "https", logger.KeyAddress, ln.Addr().String(),
		logger.KeyStore, f.cfg.TLS.KeystorePath)
	return &Listener{Listener: tls.NewListener(ln, tlsCfg), scheme: "https"}, nil
}
