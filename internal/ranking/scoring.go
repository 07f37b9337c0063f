package ranking

import (
	"math"
	"strings"

	"github.com/jonathan/latex-resume-agent/internal/types"
)

// Canonical weights for the total score.
const (
	semanticWeight = 0.50
	tagWeight      = 0.30
	keywordWeight  = 0.15
	recencyWeight  = 0.05
)

const (
	// MinScoreThreshold is the lowest total score an item may have and still be returned.
	MinScoreThreshold = 0.30
	// NeutralScore is used whenever a signal is missing.
	NeutralScore = 0.5
	// preferredBonusWeight scales the preferred-skill contribution to the tag score.
	preferredBonusWeight = 0.2
)

// computeTagOverlapScore scores an item's tags against the required and preferred skill sets.
// Returns NeutralScore when both sets are empty, plus the matched skill names in target order.
func computeTagOverlapScore(tags, required, preferred []string) (float64, []string) {
	if len(required) == 0 && len(preferred) == 0 {
		return NeutralScore, nil
	}

	tagSet := normalizedSet(tags)
	var matched []string

	requiredMatches := 0
	for _, skill := range dedupe(required) {
		if tagSet[skill] {
			requiredMatches++
			matched = append(matched, skill)
		}
	}
	preferredMatches := 0
	for _, skill := range dedupe(preferred) {
		if tagSet[skill] {
			preferredMatches++
			matched = append(matched, skill)
		}
	}

	// empty sets divide by 1 so they contribute nothing
	requiredTotal := max(len(dedupe(required)), 1)
	preferredTotal := max(len(dedupe(preferred)), 1)

	score := float64(requiredMatches)/float64(requiredTotal) +
		preferredBonusWeight*float64(preferredMatches)/float64(preferredTotal)

	return clamp(math.Min(score, 1.0)), matched
}

// computeKeywordScore returns the fraction of keywords found as literal substrings of the item text.
func computeKeywordScore(item *types.ContentItem, keywords []string) float64 {
	unique := dedupe(keywords)
	if len(unique) == 0 {
		return NeutralScore
	}

	text := item.CombinedText()
	matches := 0
	for _, keyword := range unique {
		if strings.Contains(text, keyword) {
			matches++
		}
	}
	return clamp(float64(matches) / float64(len(unique)))
}

// computeRecencyScore always returns the neutral score; the weight is reserved for a date-based decay.
func computeRecencyScore(_ *types.ContentItem) float64 {
	return NeutralScore
}

// computeTotal applies the canonical weights.
func computeTotal(semantic, tag, keyword, recency float64) float64 {
	return semanticWeight*semantic + tagWeight*tag + keywordWeight*keyword + recencyWeight*recency
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalizeSkill lower-cases and trims a skill or tag for comparison.
func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizedSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if n := normalizeSkill(v); n != "" {
			set[n] = true
		}
	}
	return set
}

// dedupe normalizes values and drops blanks and repeats, keeping first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalizeSkill(v)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
