package ranking

import "github.com/jonathan/latex-resume-agent/internal/types"

// Selection bounds used when choosing items for a single resume.
const (
	DefaultSelectThreshold = 0.6
	DefaultMinItems        = 3
	DefaultMaxItems        = 6
)

// SelectTop picks the items to feature from an already ranked list.
// Items at or above threshold are kept up to maxItems; if fewer than minItems qualify,
// the next best items are added until minItems is reached or the list runs out.
func SelectTop(ranked []types.MatchScore, threshold float64, minItems, maxItems int) []types.MatchScore {
	if maxItems <= 0 {
		return []types.MatchScore{}
	}
	if minItems > maxItems {
		minItems = maxItems
	}

	selected := make([]types.MatchScore, 0, maxItems)
	for _, s := range ranked {
		if len(selected) >= maxItems {
			break
		}
		if s.TotalScore >= threshold {
			selected = append(selected, s)
		}
	}

	if len(selected) < minItems {
		taken := make(map[string]bool, len(selected))
		for _, s := range selected {
			taken[s.ItemID] = true
		}
		for _, s := range ranked {
			if len(selected) >= minItems {
				break
			}
			if !taken[s.ItemID] {
				selected = append(selected, s)
				taken[s.ItemID] = true
			}
		}
	}

	return selected
}
