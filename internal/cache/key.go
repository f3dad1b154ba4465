package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// NormalizeKey derives the cache key for an input text: surrounding whitespace
// is trimmed and every internal whitespace run becomes a single space. Case is
// preserved.
func NormalizeKey(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// SummaryKey builds the backend store key for a text and summary length.
// The normalized text is hashed to keep Redis keys short.
func SummaryKey(text string, maxLength int) string {
	sum := sha256.Sum256([]byte(strconv.Itoa(maxLength) + "\x00" + NormalizeKey(text)))
	return hex.EncodeToString(sum[:])
}
