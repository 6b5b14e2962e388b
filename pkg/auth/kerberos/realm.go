package kerberos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/pkg/auth"
)

// BackendName identifies this realm in principals and logs.
const BackendName = "kerberos"

var errEmptyPassword = errors.New("empty password")

// Realm verifies passwords against a Kerberos KDC.
type Realm struct {
	krb5Conf *krb5config.Config
	realm    string

	spn        string
	keytabPath string
	keytabMgr  *KeytabManager

	mu     sync.RWMutex
	keytab *keytab.Keytab
}

// New loads krb5.conf and, when configured, the verification keytab.
func New(cfg Config) (*Realm, error) {
	confPath := resolveKrb5ConfPath(cfg.Krb5Conf)
	krbCfg, err := krb5config.Load(confPath)
	if err != nil {
		return nil, fmt.Errorf("load krb5.conf %s: %w", confPath, err)
	}

	r := &Realm{
		krb5Conf:   krbCfg,
		realm:      cfg.Realm,
		spn:        resolveServicePrincipal(cfg.ServicePrincipal),
		keytabPath: resolveKeytabPath(cfg.KeytabPath),
	}
	if r.realm == "" {
		r.realm = krbCfg.LibDefaults.DefaultRealm
	}
	if r.realm == "" {
		return nil, fmt.Errorf("no kerberos realm: set realm or libdefaults.default_realm in %s", confPath)
	}

	switch {
	case r.keytabPath != "" && r.spn != "":
		kt, err := loadKeytab(r.keytabPath)
		if err != nil {
			return nil, fmt.Errorf("load keytab %s: %w", r.keytabPath, err)
		}
		r.keytab = kt

		r.keytabMgr = NewKeytabManager(r.keytabPath, r.ReloadKeytab)
		if err := r.keytabMgr.Start(); err != nil {
			logger.Warn("Keytab hot-reload failed to start, continuing without it",
				logger.File(r.keytabPath), logger.Err(err))
		}
	case r.keytabPath != "" || r.spn != "":
		return nil, fmt.Errorf("keytab_path and service_principal must be set together")
	default:
		logger.Warn("Kerberos realm has no keytab, KDC responses are not verified", logger.KeyRealm, r.realm)
	}

	return r, nil
}

// Login performs an AS exchange for username. username may carry an
// explicit @REALM suffix.
func (r *Realm) Login(ctx context.Context, username, password string) (*auth.Principal, error) {
	if password == "" {
		return nil, errEmptyPassword
	}

	name, realm := splitPrincipal(username, r.realm)
	cl := client.NewWithPassword(name, realm, password, r.krb5Conf, client.DisablePAFXFAST(true))
	defer cl.Destroy()

	if err := cl.Login(); err != nil {
		return nil, fmt.Errorf("kerberos login %s@%s: %w", name, realm, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if kt := r.Keytab(); kt != nil {
		if err := r.verifyKDC(cl, kt); err != nil {
			return nil, err
		}
	}

	return &auth.Principal{Name: username, Backend: BackendName}, nil
}

// verifyKDC proves the KDC knows the service key by decrypting a ticket it
// issued for our SPN.
func (r *Realm) verifyKDC(cl *client.Client, kt *keytab.Keytab) error {
	tkt, _, err := cl.GetServiceTicket(r.spn)
	if err != nil {
		return fmt.Errorf("service ticket for %s: %w", r.spn, err)
	}
	if err := tkt.DecryptEncPart(kt, nil); err != nil {
		return fmt.Errorf("KDC verification failed for %s: %w", r.spn, err)
	}
	return nil
}

// Keytab returns the current verification keytab, or nil.
func (r *Realm) Keytab() *keytab.Keytab {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keytab
}

// ReloadKeytab re-reads the keytab and swaps it in. On error the previous
// keytab stays active.
func (r *Realm) ReloadKeytab() error {
	kt, err := loadKeytab(r.keytabPath)
	if err != nil {
		return fmt.Errorf("reload keytab %s: %w", r.keytabPath, err)
	}

	r.mu.Lock()
	r.keytab = kt
	r.mu.Unlock()
	return nil
}

// DefaultRealm returns the realm applied to unqualified user names.
func (r *Realm) DefaultRealm() string { return r.realm }

// Close stops keytab polling.
func (r *Realm) Close() error {
	if r.keytabMgr != nil {
		r.keytabMgr.Stop()
	}
	return nil
}

// splitPrincipal splits "user@REALM" at the last '@'; names without a realm
// get defaultRealm.
func splitPrincipal(username, defaultRealm string) (string, string) {
	if i := strings.LastIndex(username, "@"); i > 0 && i < len(username)-1 {
		return username[:i], username[i+1:]
	}
	return username, defaultRealm
}
