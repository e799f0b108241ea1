package profile

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// NewSalt returns a fresh random salt, hex encoded.
func NewSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("profile: generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword returns the hex-encoded SHA-256 digest of salt+password.
func HashPassword(salt, password string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword reports whether password matches the stored salt and hash,
// using a constant-time comparison.
func VerifyPassword(salt, hash, password string) bool {
	candidate := HashPassword(salt, password)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}
