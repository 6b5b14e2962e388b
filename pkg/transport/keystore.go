package transport

import (
	"bytes"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/marmos91/httpgate/pkg/config"
)

// KeystoreFormat identifies a keystore encoding.
type KeystoreFormat string

const (
	FormatJKS    KeystoreFormat = "jks"
	FormatPKCS12 KeystoreFormat = "pkcs12"
	FormatPEM    KeystoreFormat = "pem"
)

var (
	jksMagic   = []byte{0xFE, 0xED, 0xFE, 0xED}
	jceksMagic = []byte{0xCE, 0xCE, 0xCE, 0xCE}
)

// DetectFormat guesses the keystore encoding from its first bytes.
func DetectFormat(data []byte) (KeystoreFormat, error) {
	switch {
	case bytes.HasPrefix(data, jksMagic):
		return FormatJKS, nil
	case bytes.HasPrefix(data, jceksMagic):
		return "", errors.New("JCEKS keystores are not supported, convert to PKCS#12")
	case bytes.Contains(data, []byte("-----BEGIN")):
		return FormatPEM, nil
	case len(data) > 0 && data[0] == 0x30:
		return FormatPKCS12, nil
	default:
		return "", errors.New("unrecognized keystore format")
	}
}

// LoadKeystore reads the server certificate chain and private key from
// path. Every failure is a *config.ConfigError of kind ErrInvalidKeystore.
func LoadKeystore(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, config.NewConfigError(config.ErrInvalidKeystore, err)
	}

	format, err := DetectFormat(data)
	if err != nil {
		return tls.Certificate{}, config.ConfigErrorf(config.ErrInvalidKeystore, "%s: %w", path, err)
	}

	var cert tls.Certificate
	switch format {
	case FormatJKS:
		cert, err = parseJKS(data, password)
	case FormatPKCS12:
		cert, err = parsePKCS12(data, password)
	case FormatPEM:
		cert, err = parsePEM(data, password)
	}
	if err != nil {
		return tls.Certificate{}, config.ConfigErrorf(config.ErrInvalidKeystore, "%s (%s): %w", path, format, err)
	}
	return cert, nil
}

func parsePKCS12(data []byte, password string) (tls.Certificate, error) {
	key, leaf, cas, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return tls.Certificate{}, err
	}
	return buildCertificate(key, append([]*x509.Certificate{leaf}, cas...))
}

// parseJKS uses the first private key entry; its key password must equal
// the store password.
func parseJKS(data []byte, password string) (tls.Certificate, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return tls.Certificate{}, err
	}

	for _, alias := range ks.Aliases() {
		if !ks.IsPrivateKeyEntry(alias) {
			continue
		}
		entry, err := ks.GetPrivateKeyEntry(alias, []byte(password))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("alias %s: %w", alias, err)
		}

		key, err := x509.ParsePKCS8PrivateKey(entry.PrivateKey)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("alias %s: parse key: %w", alias, err)
		}
		chain := make([]*x509.Certificate, 0, len(entry.CertificateChain))
		for _, c := range entry.CertificateChain {
			cert, err := x509.ParseCertificate(c.Content)
			if err != nil {
				return tls.Certificate{}, fmt.Errorf("alias %s: parse certificate: %w", alias, err)
			}
			chain = append(chain, cert)
		}
		return buildCertificate(key, chain)
	}
	return tls.Certificate{}, errors.New("no private key entry")
}

// parsePEM accepts a bundle holding the chain (leaf first) and an
// unencrypted private key. A password cannot be verified and is ignored.
func parsePEM(data []byte, _ string) (tls.Certificate, error) {
	var certPEM, keyPEM []byte
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch {
		case block.Type == "CERTIFICATE":
			certPEM = append(certPEM, pem.EncodeToMemory(block)...)
		case block.Type == "ENCRYPTED PRIVATE KEY":
			return tls.Certificate{}, errors.New("encrypted PEM keys are not supported, use PKCS#12")
		case bytes.HasSuffix([]byte(block.Type), []byte("PRIVATE KEY")):
			keyPEM = pem.EncodeToMemory(block)
		}
	}
	if certPEM == nil || keyPEM == nil {
		return tls.Certificate{}, errors.New("PEM bundle must contain a certificate and a private key")
	}
	return tls.X509KeyPair(certPEM, keyPEM)
}

func buildCertificate(key any, chain []*x509.Certificate) (tls.Certificate, error) {
	if len(chain) == 0 || chain[0] == nil {
		return tls.Certificate{}, errors.New("no certificate")
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return tls.Certificate{}, fmt.Errorf("unsupported private key type %T", key)
	}

	cert := tls.Certificate{PrivateKey: signer, Leaf: chain[0]}
	for _, c := range chain {
		cert.Certificate = append(cert.Certificate, c.Raw)
	}
	return cert, nil
}
