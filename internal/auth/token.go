package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateSessionToken returns a URL-safe bearer token with 144 bits of entropy.
func GenerateSessionToken() (string, error) {
	return randomString(18)
}

// GenerateUserID returns a random 120-bit identifier.
func GenerateUserID() (string, error) {
	return randomString(15)
}

// HashToken derives the session lookup key from a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
