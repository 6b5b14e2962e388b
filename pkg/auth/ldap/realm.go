package ldap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/marmos91/httpgate/internal/logger"
	"github.com/marmos91/httpgate/pkg/auth"
)

// BackendName identifies this realm in principals and logs.
const BackendName = "ldap"

var (
	errEmptyPassword = errors.New("empty password")
	errUserNotFound  = errors.New("user not found")
	errAmbiguousUser = errors.New("user filter matched more than one entry")
)

// Realm verifies passwords by binding to an LDAP server. Every Login opens
// its own connection so no state is shared between requests.
type Realm struct {
	cfg  Config
	host string
}

// New validates cfg and returns a Realm. No connection is made.
func New(cfg Config) (*Realm, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ldap: parse url: %w", err)
	}
	if _, err := cfg.tlsConfig(u.Hostname()); err != nil {
		return nil, err
	}

	return &Realm{cfg: cfg, host: u.Hostname()}, nil
}

// Login binds as username and returns its roles.
func (r *Realm) Login(ctx context.Context, username, password string) (*auth.Principal, error) {
	// Most servers treat a bind with an empty password as anonymous and
	// report success.
	if password == "" {
		return nil, errEmptyPassword
	}

	conn, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var entry *ldap.Entry
	if r.cfg.UserDNTemplate != "" {
		entry, err = r.directBind(conn, username, password)
	} else {
		entry, err = r.searchBind(conn, username, password)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	roles := roleNames(entry.GetAttributeValues(r.cfg.RoleAttribute))
	logger.DebugCtx(ctx, "LDAP bind succeeded", logger.Username(username), "dn", entry.DN, "roles", roles)
	return &auth.Principal{Name: username, Roles: roles, Backend: BackendName}, nil
}

// Close is a no-op; connections are per login.
func (r *Realm) Close() error { return nil }

func (r *Realm) dial(ctx context.Context) (*ldap.Conn, error) {
	tc, err := r.cfg.tlsConfig(r.host)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: r.cfg.DialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	conn, err := ldap.DialURL(r.cfg.URL, ldap.DialWithDialer(dialer), ldap.DialWithTLSConfig(tc))
	if err != nil {
		return nil, fmt.Errorf("ldap: dial %s: %w", r.cfg.URL, err)
	}
	conn.SetTimeout(r.cfg.DialTimeout)

	if r.cfg.StartTLS {
		if err := conn.StartTLS(tc); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ldap: starttls: %w", err)
		}
	}
	return conn, nil
}

// directBind binds the templated DN and reads the role attribute from it.
func (r *Realm) directBind(conn *ldap.Conn, username, password string) (*ldap.Entry, error) {
	dn := userDN(r.cfg.UserDNTemplate, username)
	if err := conn.Bind(dn, password); err != nil {
		return nil, fmt.Errorf("ldap: bind %s: %w", dn, err)
	}

	res, err := conn.Search(ldap.NewSearchRequest(
		dn, ldap.ScopeBaseObject, ldap.NeverDerefAliases, 1, 0, false,
		"(objectClass=*)", []string{r.cfg.RoleAttribute}, nil,
	))
	if err != nil || len(res.Entries) == 0 {
		// The bind already proved the password; a user that may not read
		// its own entry just gets no roles.
		return ldap.NewEntry(dn, nil), nil
	}
	return res.Entries[0], nil
}

// searchBind locates the user entry with the service account, then binds
// as that entry.
func (r *Realm) searchBind(conn *ldap.Conn, username, password string) (*ldap.Entry, error) {
	if r.cfg.BindDN != "" {
		if err := conn.Bind(r.cfg.BindDN, r.cfg.BindPassword); err != nil {
			return nil, fmt.Errorf("ldap: service bind: %w", err)
		}
	}

	res, err := conn.Search(ldap.NewSearchRequest(
		r.cfg.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 0, false,
		userFilter(r.cfg.UserFilter, username), []string{"dn", r.cfg.RoleAttribute}, nil,
	))
	if err != nil {
		return nil, fmt.Errorf("ldap: search: %w", err)
	}
	switch len(res.Entries) {
	case 0:
		return nil, errUserNotFound
	case 1:
	default:
		return nil, errAmbiguousUser
	}

	entry := res.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, fmt.Errorf("ldap: bind %s: %w", entry.DN, err)
	}
	return entry, nil
}

func userDN(template, username string) string {
	return strings.ReplaceAll(template, UsernamePlaceholder, ldap.EscapeDN(username))
}

func userFilter(filter, username string) string {
	return strings.ReplaceAll(filter, UsernamePlaceholder, ldap.EscapeFilter(username))
}

// roleNames reduces DN values to their first RDN value and keeps plain
// values as they are.
func roleNames(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	roles := make([]string, 0, len(values))
	for _, v := range values {
		dn, err := ldap.ParseDN(v)
		if err == nil && len(dn.RDNs) > 0 && len(dn.RDNs[0].Attributes) > 0 {
			roles = append(roles, dn.RDNs[0].Attributes[0].Value)
			continue
		}
		roles = append(roles, v)
	}
	return roles
}
