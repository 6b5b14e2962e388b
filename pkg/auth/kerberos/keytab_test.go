package kerberos

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestKeytab writes a keytab holding one aes128 key for spn.
func writeTestKeytab(t *testing.T, dir, spn string, kvno uint8) string {
	t.Helper()

	kt := keytab.New()
	require.NoError(t, kt.AddEntry(spn, "EXAMPLE.COM", "test-password", time.Now(), kvno, 17))

	data, err := kt.Marshal()
	require.NoError(t, err)

	path := filepath.Join(dir, "gate.keytab")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestResolveOverrides(t *testing.T) {
	t.Run("keytab env wins", func(t *testing.T) {
		t.Setenv(EnvKeytab, "/env/gate.keytab")
		assert.Equal(t, "/env/gate.keytab", resolveKeytabPath("/cfg/gate.keytab"))
	})
	t.Run("keytab falls back to config", func(t *testing.T) {
		t.Setenv(EnvKeytab, "")
		assert.Equal(t, "/cfg/gate.keytab", resolveKeytabPath("/cfg/gate.keytab"))
	})
	t.Run("principal env wins", func(t *testing.T) {
		t.Setenv(EnvPrincipal, "HTTP/env.example.com")
		assert.Equal(t, "HTTP/env.example.com", resolveServicePrincipal("HTTP/cfg.example.com"))
	})
	t.Run("krb5.conf default", func(t *testing.T) {
		t.Setenv(EnvKrb5Conf, "")
		assert.Equal(t, DefaultKrb5Conf, resolveKrb5ConfPath(""))
		assert.Equal(t, "/cfg/krb5.conf", resolveKrb5ConfPath("/cfg/krb5.conf"))
	})
	t.Run("krb5.conf env wins", func(t *testing.T) {
		t.Setenv(EnvKrb5Conf, "/env/krb5.conf")
		assert.Equal(t, "/env/krb5.conf", resolveKrb5ConfPath("/cfg/krb5.conf"))
	})
}

func TestLoadKeytab(t *testing.T) {
	dir := t.TempDir()

	kt, err := loadKeytab(writeTestKeytab(t, dir, "HTTP/gate.example.com", 1))
	require.NoError(t, err)
	assert.NotNil(t, kt)

	_, err = loadKeytab(filepath.Join(dir, "missing.keytab"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.keytab")
	require.NoError(t, os.WriteFile(bad, []byte("not a keytab"), 0600))
	_, err = loadKeytab(bad)
	assert.Error(t, err)
}

func TestKeytabManager_StartStop(t *testing.T) {
	path := writeTestKeytab(t, t.TempDir(), "HTTP/gate.example.com", 1)

	km := NewKeytabManager(path, func() error { return nil })
	require.NoError(t, km.Start())
	km.Stop()
	km.Stop()
}

func TestKeytabManager_StartFailsForMissingFile(t *testing.T) {
	km := NewKeytabManager("/nonexistent/gate.keytab", func() error { return nil })
	assert.Error(t, km.Start())
	km.Stop()
}

func TestKeytabManager_CheckAndReload(t *testing.T) {
	dir := t.TempDir()
	path := writeTestKeytab(t, dir, "HTTP/gate.example.com", 1)

	var calls atomic.Int32
	var fail atomic.Bool
	km := NewKeytabManager(path, func() error {
		calls.Add(1)
		if fail.Load() {
			return errors.New("corrupt")
		}
		return nil
	})
	require.NoError(t, km.Start())
	defer km.Stop()

	assert.False(t, km.checkAndReload(), "unchanged mtime must not reload")

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	fail.Store(true)
	assert.False(t, km.checkAndReload())
	fail.Store(false)
	assert.True(t, km.checkAndReload(), "failed reload is retried on the next tick")
	assert.False(t, km.checkAndReload())
	assert.Equal(t, int32(2), calls.Load())
}
