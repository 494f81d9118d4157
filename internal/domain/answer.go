package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeAnswer trims surrounding whitespace and case-folds so that
// "  Paris " and "paris" hash identically.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// HashAnswer returns the hex SHA-256 of the normalized answer text.
// Questions store only this hash, never the plaintext.
func HashAnswer(answer string) string {
	sum := sha256.Sum256([]byte(NormalizeAnswer(answer)))
	return hex.EncodeToString(sum[:])
}
