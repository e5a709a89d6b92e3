package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintLen is the number of hex characters kept when fingerprinting a
// secret for logs and events.
const fingerprintLen = 12

// Sha256Hex computes the SHA256 hash of an input string and returns it as a hex-encoded string.
func Sha256Hex(input string) string {
	hasher := sha256.New()
	// Write operation on hash.Hash never returns an error.
	_, _ = hasher.Write([]byte(input)) //nolint:errcheck
	return hex.EncodeToString(hasher.Sum(nil))
}

// Fingerprint returns a short, stable identifier for a secret value. It is
// safe to log: the raw value cannot be recovered from it, but two log lines
// carrying the same fingerprint refer to the same secret.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return Sha256Hex(secret)[:fingerprintLen]
}
