package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest returns the hex SHA-256 of the trimmed input, truncated to n characters
// when 0 < n < 64.
func Digest(input string, n int) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(input)))
	out := hex.EncodeToString(sum[:])
	if n > 0 && n < len(out) {
		return out[:n]
	}
	return out
}
