// Package auth implements the credential store: password hashing and
// registration/verification of accounts.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen    = 16
	keyLen     = sha256.Size
	iterations = 100_000
)

// HashPassword derives a PBKDF2-HMAC-SHA256 key from password with a fresh
// random salt and returns base64(salt || key).
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)
	return base64.StdEncoding.EncodeToString(append(salt, key...)), nil
}

// CheckPassword reports whether password matches an encoded hash produced by HashPassword.
func CheckPassword(password, encoded string) bool {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) <= saltLen {
		return false
	}
	salt, key := raw[:saltLen], raw[saltLen:]
	derived := pbkdf2.Key([]byte(password), salt, iterations, len(key), sha256.New)
	return subtle.ConstantTimeCompare(derived, key) == 1
}
