package ldap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"direct bind", Config{URL: "ldap://dir.example.org", UserDNTemplate: "uid={username},ou=people,dc=example,dc=org"}, false},
		{"search bind", Config{URL: "ldaps://dir.example.org", BaseDN: "dc=example,dc=org", BindDN: "cn=svc", BindPassword: "x"}, false},
		{"anonymous search", Config{URL: "ldap://dir.example.org", BaseDN: "dc=example,dc=org"}, false},
		{"missing url", Config{BaseDN: "dc=example,dc=org"}, true},
		{"bad scheme", Config{URL: "http://dir.example.org", BaseDN: "dc=example,dc=org"}, true},
		{"starttls on ldaps", Config{URL: "ldaps://dir.example.org", StartTLS: true, BaseDN: "dc=example,dc=org"}, true},
		{"no lookup strategy", Config{URL: "ldap://dir.example.org"}, true},
		{"template without placeholder", Config{URL: "ldap://dir.example.org", UserDNTemplate: "uid=fixed,dc=example,dc=org"}, true},
		{"filter without placeholder", Config{URL: "ldap://dir.example.org", BaseDN: "dc=example,dc=org", UserFilter: "(uid=alice)"}, true},
		{"bind dn without password", Config{URL: "ldap://dir.example.org", BaseDN: "dc=example,dc=org", BindDN: "cn=svc"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, DefaultUserFilter, cfg.UserFilter)
	assert.Equal(t, DefaultRoleAttribute, cfg.RoleAttribute)
	assert.Equal(t, DefaultDialTimeout, cfg.DialTimeout)
}

func TestNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r, err := New(Config{URL: "ldap://dir.example.org:389", BaseDN: "dc=example,dc=org"})
		require.NoError(t, err)
		assert.Equal(t, "dir.example.org", r.host)
		assert.Equal(t, DefaultUserFilter, r.cfg.UserFilter)
		assert.NoError(t, r.Close())
	})

	t.Run("unreadable ca file", func(t *testing.T) {
		_, err := New(Config{URL: "ldaps://dir.example.org", BaseDN: "dc=example,dc=org", CAFile: "/nonexistent/ca.pem"})
		assert.Error(t, err)
	})

	t.Run("ca file without certificates", func(t *testing.T) {
		ca := filepath.Join(t.TempDir(), "ca.pem")
		require.NoError(t, os.WriteFile(ca, []byte("not pem"), 0644))
		_, err := New(Config{URL: "ldaps://dir.example.org", BaseDN: "dc=example,dc=org", CAFile: ca})
		assert.Error(t, err)
	})
}

func TestEscaping(t *testing.T) {
	assert.Equal(t, "uid=alice,ou=people", userDN("uid={username},ou=people", "alice"))
	assert.Equal(t, `uid=a\,b\+c,ou=people`, userDN("uid={username},ou=people", "a,b+c"))

	assert.Equal(t, "(uid=alice)", userFilter(DefaultUserFilter, "alice"))
	assert.Equal(t, `(uid=\2a\29\28uid=\2a)`, userFilter(DefaultUserFilter, "*)(uid=*"))
}

func TestRoleNames(t *testing.T) {
	assert.Nil(t, roleNames(nil))
	assert.Equal(t,
		[]string{"admins", "ops", "plain-role"},
		roleNames([]string{
			"cn=admins,ou=groups,dc=example,dc=org",
			"CN=ops,OU=Groups,DC=corp",
			"plain-role",
		}),
	)
}

func TestLoginRejectsEmptyPassword(t *testing.T) {
	r, err := New(Config{URL: "ldap://127.0.0.1:1", UserDNTemplate: "uid={username},dc=example,dc=org"})
	require.NoError(t, err)

	_, err = r.Login(context.Background(), "alice", "")
	assert.ErrorIs(t, err, errEmptyPassword)
}

func TestLoginUnreachableServer(t *testing.T) {
	r, err := New(Config{URL: "ldap://127.0.0.1:1", UserDNTemplate: "uid={username},dc=example,dc=org", DialTimeout: time.Second})
	require.NoError(t, err)

	p, err := r.Login(context.Background(), "alice", "secret")
	assert.Nil(t, p)
	assert.Error(t, err)
}

// TestLoginIntegration runs against a live directory, e.g. the
// bitnami/openldap image with its default users.
//
//	HTTPGATE_TEST_LDAP_URL=ldap://localhost:1389
//	HTTPGATE_TEST_LDAP_BASE_DN=dc=example,dc=org
//	HTTPGATE_TEST_LDAP_USER=user01 HTTPGATE_TEST_LDAP_PASSWORD=password1
func TestLoginIntegration(t *testing.T) {
	url := os.Getenv("HTTPGATE_TEST_LDAP_URL")
	if url == "" {
		t.Skip("HTTPGATE_TEST_LDAP_URL not set")
	}

	r, err := New(Config{
		URL:        url,
		BaseDN:     os.Getenv("HTTPGATE_TEST_LDAP_BASE_DN"),
		UserFilter: "(|(uid={username})(cn={username}))",
	})
	require.NoError(t, err)

	user := os.Getenv("HTTPGATE_TEST_LDAP_USER")
	password := os.Getenv("HTTPGATE_TEST_LDAP_PASSWORD")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := r.Login(ctx, user, password)
	require.NoError(t, err)
	assert.Equal(t, user, p.Name)
	assert.Equal(t, BackendName, p.Backend)

	_, err = r.Login(ctx, user, password+"-wrong")
	assert.Error(t, err)
}
