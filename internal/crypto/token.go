package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// TokenEquals compares two secrets in constant time. Both sides are hashed
// first so the comparison cost does not depend on their lengths or on where
// they differ.
func TokenEquals(provided, expected string) bool {
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// GenerateToken returns a random hex token of n bytes of entropy.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
