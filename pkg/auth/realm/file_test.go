package realm

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/httpgate/pkg/auth"
)

func TestFileEditAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "realm.properties")

	f, err := OpenFile(path)
	require.NoError(t, err)
	assert.Empty(t, f.Users())

	hash, err := auth.HashPassword("wonderland")
	require.NoError(t, err)

	require.NoError(t, f.Add("alice", Entry{Credential: hash, Roles: []string{"admin"}}))
	require.NoError(t, f.Add("bob", Entry{Credential: "PLAIN:builder1"}))
	assert.ErrorIs(t, f.Add("alice", Entry{Credential: "x"}), ErrUserExists)
	require.NoError(t, f.Save())

	r, err := Load(path)
	require.NoError(t, err)

	p, err := r.Authenticate(context.Background(), "alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, p.Roles)

	f, err = OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, f.Users())

	require.NoError(t, f.SetCredential("alice", "PLAIN:newpass1"))
	e, ok := f.Get("alice")
	require.True(t, ok)
	assert.Equal(t, []string{"admin"}, e.Roles, "roles survive a password change")

	require.NoError(t, f.Delete("bob"))
	assert.ErrorIs(t, f.Delete("bob"), ErrUserNotFound)
	assert.ErrorIs(t, f.SetCredential("zed", "x"), ErrUserNotFound)
	require.NoError(t, f.Save())

	require.NoError(t, r.Reload())
	assert.Equal(t, []string{"alice"}, r.Users())
	_, err = r.Authenticate(context.Background(), "alice", "newpass1")
	assert.NoError(t, err)
}
