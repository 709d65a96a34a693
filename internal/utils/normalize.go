package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeRFID trims and upper-cases the tag. Separators are significant:
// "NG-12-345" and "NG1-2345" are different tags.
func NormalizeRFID(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DigestToken returns the hex SHA-256 of a biometric token. Stored biometrics
// and lookups both go through it, so raw tokens never reach the database.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// DigestInputs hashes several values with a separator that cannot appear in
// the hex output of the parts, for audit records.
func DigestInputs(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
