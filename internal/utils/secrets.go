package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateSecret generates a cryptographically secure random hex secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateResetToken returns a password reset token for the email link and
// the hash stored in the database
func GenerateResetToken() (token, hash string, err error) {
	token, err = GenerateSecret(20)
	if err != nil {
		return "", "", err
	}
	return token, HashToken(token), nil
}

// HashToken is the stored form of a reset token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
