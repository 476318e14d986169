package pipeline

import (
	"regexp"
	"strings"
)

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]+`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeText lowercases, collapses every non-alphanumeric run to a single
// space, and trims. Idempotent: NormalizeText(NormalizeText(x)) == NormalizeText(x).
func NormalizeText(value string) string {
	lowered := strings.ToLower(value)
	cleaned := nonAlnumRe.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(cleaned, " "))
}

// containsTerm reports whether the normalized haystack contains term as a
// whole-word sequence.
func containsTerm(haystack, term string) bool {
	if haystack == "" || term == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+term+" ")
}
