package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// clusterIDLen keeps cluster ids short enough for log lines while staying
// collision-resistant at this volume.
const clusterIDLen = 20

// ClusterID derives the deterministic grouping key from the normalized title,
// the country, and the hour bucket of occurred_at. Events with an empty
// country cluster on title+hour alone, trading false positives for catching
// broad multi-country stories. Recomputed on every upsert; never stored as
// independent mutable state.
func ClusterID(title, country string, occurredAt time.Time) string {
	titleKey := NormalizeText(title)
	if len(titleKey) > 80 {
		titleKey = titleKey[:80]
	}
	bucket := occurredAt.UTC().Format("2006-01-02T15")
	seed := titleKey + "|" + NormalizeText(country) + "|" + bucket
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:clusterIDLen]
}
