package auth

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, IsBcrypt(hash))
	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("wrong horse", hash))
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("x", 73)), ErrPasswordTooLong)
	assert.NoError(t, ValidatePassword("12345678"))

	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestVerifyPassword(t *testing.T) {
	bc, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	sum := md5.Sum([]byte("s3cret"))
	md5Hex := hex.EncodeToString(sum[:])

	tests := []struct {
		name   string
		stored string
		want   bool
	}{
		{"bcrypt match", string(bc), true},
		{"md5 match", PrefixMD5 + md5Hex, true},
		{"md5 uppercase hex", PrefixMD5 + strings.ToUpper(md5Hex), true},
		{"plain prefix", PrefixPlain + "s3cret", true},
		{"bare text", "s3cret", true},
		{"bare mismatch", "other", false},
		{"md5 mismatch", PrefixMD5 + "00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPassword("s3cret", tt.stored))
		})
	}
}

func TestIsPlaintext(t *testing.T) {
	assert.True(t, IsPlaintext("hunter2"))
	assert.True(t, IsPlaintext("PLAIN:hunter2"))
	assert.False(t, IsPlaintext("MD5:abc"))
	assert.False(t, IsPlaintext("$2b$10$abcdefghijklmnopqrstuv"))
}
