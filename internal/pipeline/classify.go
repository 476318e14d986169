package pipeline

import "world-monitor/internal/models"

// categoryRules map keyword hits to categories, checked in order so the more
// specific buckets win over diplomacy's broad terms.
var categoryRules = []struct {
	category string
	keywords []string
}{
	{models.CategoryConflict, []string{"war", "battle", "attack", "strike", "military", "troops"}},
	{models.CategorySanctions, []string{"sanctions", "embargo", "asset freeze", "export controls"}},
	{models.CategoryCyber, []string{"cyber", "malware", "ransomware", "breach", "hack", "ddos"}},
	{models.CategoryDisaster, []string{"earthquake", "flood", "wildfire", "hurricane", "storm", "volcano"}},
	{models.CategoryMarkets, []string{"market", "stocks", "bond", "yield", "oil", "gas", "gold", "dxy"}},
	{models.CategoryDiplomacy, []string{"summit", "talks", "foreign minister", "un", "nato", "treaty"}},
}

var severityBase = map[string]int{
	models.CategoryConflict:  78,
	models.CategoryDisaster:  72,
	models.CategorySanctions: 68,
	models.CategoryCyber:     60,
	models.CategoryDiplomacy: 45,
	models.CategoryMarkets:   42,
	models.CategoryOther:     34,
}

// Amplifier terms bump severity by 4 each, capped at 100.
var severityAmplifiers = []string{
	"major", "dead", "killed", "urgent", "emergency",
	"warning", "missile", "ceasefire", "default",
}

// InferCategory classifies free text into the closed category set using the
// fixed keyword table. Deterministic; no learned model.
func InferCategory(text, fallback string) string {
	normalized := NormalizeText(text)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if containsTerm(normalized, NormalizeText(keyword)) {
				return rule.category
			}
		}
	}
	if fallback == "" {
		return models.CategoryOther
	}
	return fallback
}

// InferSeverity scores 0-100 from the per-category base plus amplifier hits.
func InferSeverity(category, text string) int {
	base, ok := severityBase[category]
	if !ok {
		base = severityBase[models.CategoryOther]
	}
	normalized := NormalizeText(text)
	score := base
	for _, token := range severityAmplifiers {
		if containsTerm(normalized, token) {
			score += 4
		}
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
