package pam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, DefaultService, cfg.Service)

	cfg = Config{Service: "httpgate"}
	cfg.ApplyDefaults()
	assert.Equal(t, "httpgate", cfg.Service)
}

func TestNew(t *testing.T) {
	r, err := New(Config{})
	if !Supported {
		assert.Error(t, err)
		return
	}
	require.NoError(t, err)
	assert.Equal(t, DefaultService, r.cfg.Service)
	assert.NoError(t, r.Close())
}

func TestLoginRejectsEmptyPassword(t *testing.T) {
	if !Supported {
		t.Skip("PAM not available in this build")
	}
	r, err := New(Config{Service: "httpgate-test"})
	require.NoError(t, err)

	_, err = r.Login(context.Background(), "alice", "")
	assert.ErrorIs(t, err, errEmptyPassword)
}
