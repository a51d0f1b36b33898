package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSecret returns a stable hex digest so a secret can be used as a cache
// key without keeping it in memory verbatim.
func HashSecret(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
