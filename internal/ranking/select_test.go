package ranking

import (
	"testing"

	"github.com/jonathan/latex-resume-agent/internal/types"
	"github.com/stretchr/testify/assert"
)

func scoresOf(values ...float64) []types.MatchScore {
	out := make([]types.MatchScore, len(values))
	for i, v := range values {
		out[i] = types.MatchScore{ItemID: string(rune('a' + i)), TotalScore: v}
	}
	return out
}

func TestSelectTop(t *testing.T) {
	tests := []struct {
		name     string
		ranked   []types.MatchScore
		expected []string
	}{
		{"above threshold capped at max", scoresOf(0.9, 0.9, 0.8, 0.8, 0.7, 0.7, 0.65), []string{"a", "b", "c", "d", "e", "f"}},
		{"padded to min", scoresOf(0.9, 0.5, 0.4, 0.35), []string{"a", "b", "c"}},
		{"fewer than min available", scoresOf(0.4), []string{"a"}},
		{"empty", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected := SelectTop(tt.ranked, DefaultSelectThreshold, DefaultMinItems, DefaultMaxItems)
			ids := make([]string, 0, len(selected))
			for _, s := range selected {
				ids = append(ids, s.ItemID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}
