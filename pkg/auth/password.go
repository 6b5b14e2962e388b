package auth

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the bcrypt cost used by HashPassword.
const DefaultBcryptCost = 10

// Password length constraints. bcrypt silently truncates input beyond 72
// bytes, so longer passwords are refused.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters")
)

// Stored credential prefixes understood by VerifyPassword.
const (
	PrefixMD5   = "MD5:"
	PrefixPlain = "PLAIN:"
)

// dummyHash is compared against when the user does not exist so that
// unknown and known users take the same time to reject.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("httpgate-dummy-password"), bcrypt.MinCost)

// ValidatePassword checks length constraints for a new password.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IsBcrypt reports whether stored is a bcrypt hash.
func IsBcrypt(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// IsPlaintext reports whether stored holds a cleartext password.
func IsPlaintext(stored string) bool {
	return !IsBcrypt(stored) && !strings.HasPrefix(stored, PrefixMD5)
}

// VerifyPassword compares password with a stored credential, which is a
// bcrypt hash, "MD5:<hex>", "PLAIN:<text>" or bare text.
func VerifyPassword(password, stored string) bool {
	switch {
	case IsBcrypt(stored):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	case strings.HasPrefix(stored, PrefixMD5):
		sum := md5.Sum([]byte(password))
		want := strings.ToLower(strings.TrimPrefix(stored, PrefixMD5))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(want)) == 1
	default:
		plain := strings.TrimPrefix(stored, PrefixPlain)
		return subtle.ConstantTimeCompare([]byte(password), []byte(plain)) == 1
	}
}

// BurnPasswordCheck performs a throwaway bcrypt comparison.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
