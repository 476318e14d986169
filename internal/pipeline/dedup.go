package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DedupKey computes the stable identity key for a record. A normalized
// non-empty URL wins; otherwise the normalized title is used. Two reports of
// the same item collapse onto one key regardless of which source saw it first.
func DedupKey(sourceURL, title string) string {
	urlNorm := strings.ToLower(strings.TrimSpace(sourceURL))
	if urlNorm != "" {
		return "url:" + urlNorm
	}
	return "title:" + NormalizeText(title)
}

// EventID maps a dedup key to a fixed-length event id.
func EventID(dedupKey string) string {
	sum := sha256.Sum256([]byte(dedupKey))
	return hex.EncodeToString(sum[:])
}
