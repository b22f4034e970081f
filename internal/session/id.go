package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// IDPrefix namespaces session tokens; the token itself is the Redis key.
const IDPrefix = "sess:"

// GenerateID generates a cryptographically secure session token.
// 16 bytes = 128 bits of entropy, hex-encoded to 32 characters.
func GenerateID() (string, error) {

	const size = 16 // 128 bits

	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}

	return IDPrefix + hex.EncodeToString(b), nil

}

// ValidID reports whether a token has the exact shape GenerateID
// produces. Sessions share a Redis database with other namespaces, so a
// foreign-shaped bearer token must never reach the store as a key.
func ValidID(sessionID string) bool {
	if len(sessionID) != len(IDPrefix)+32 {
		return false
	}
	if sessionID[:len(IDPrefix)] != IDPrefix {
		return false
	}
	for _, c := range sessionID[len(IDPrefix):] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
