package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a base64 URL-safe random string using the
// specified number of random bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashCredential calculates the stored digest for a refresh credential.
// Binding the user id into the digest keeps a credential from being replayed
// against a different account's session record.
func HashCredential(material, userID string) string {
	sum := sha256.Sum256([]byte(material + userID))
	return hex.EncodeToString(sum[:])
}

// HashFingerprint digests canonical device signal bytes to the fixed-length
// fingerprint identifier.
func HashFingerprint(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
