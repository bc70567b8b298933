package security

import (
	"crypto/rand"
	"encoding/hex"
)

// tokenBytes is the amount of randomness in session ids and CSRF tokens (256 bits).
const tokenBytes = 32

// GenerateToken returns a cryptographically random token as a 64-character hex string.
func GenerateToken() (string, error) {
	randomBytes := make([]byte, tokenBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}
