package ranking

import (
	"testing"

	"github.com/jonathan/latex-resume-agent/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestComputeTagOverlapScore(t *testing.T) {
	tests := []struct {
		name      string
		tags      []string
		required  []string
		preferred []string
		expected  float64
	}{
		{"both sets empty", []string{"Go"}, nil, nil, 0.5},
		{"all required matched", []string{"go", "DOCKER"}, []string{"Go", "Docker"}, nil, 1.0},
		{"half required", []string{"Go"}, []string{"Go", "Docker"}, nil, 0.5},
		{"preferred only", []string{"Redis"}, nil, []string{"Redis"}, 0.2},
		{"capped at one", []string{"Go", "Redis"}, []string{"Go"}, []string{"Redis"}, 1.0},
		{"no matches", []string{"Java"}, []string{"Go"}, []string{"Redis"}, 0.0},
		{"duplicate skills counted once", []string{"Go"}, []string{"Go", "go ", "Docker"}, nil, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _ := computeTagOverlapScore(tt.tags, tt.required, tt.preferred)
			assert.InDelta(t, tt.expected, score, 1e-9)
		})
	}
}

func TestComputeKeywordScore(t *testing.T) {
	item := &types.ContentItem{
		Title:       "Event Pipeline",
		Description: "Kafka based streaming ingestion",
		Highlights:  []string{"Cut latency by 40%"},
	}

	assert.Equal(t, 0.5, computeKeywordScore(item, nil))
	assert.Equal(t, 1.0, computeKeywordScore(item, []string{"Kafka", "LATENCY"}))
	assert.Equal(t, 0.5, computeKeywordScore(item, []string{"kafka", "graphql"}))
	assert.Equal(t, 0.0, computeKeywordScore(item, []string{"graphql"}))
}

func TestComputeTotal_Weights(t *testing.T) {
	assert.InDelta(t, 1.0, computeTotal(1, 1, 1, 1), 1e-9)
	assert.InDelta(t, 0.5, computeTotal(1, 0, 0, 0), 1e-9)
	assert.InDelta(t, 0.3, computeTotal(0, 1, 0, 0), 1e-9)
	assert.InDelta(t, 0.15, computeTotal(0, 0, 1, 0), 1e-9)
	assert.InDelta(t, 0.05, computeTotal(0, 0, 0, 1), 1e-9)
}

func TestClampAndRound(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-0.2))
	assert.Equal(t, 1.0, clamp(1.7))
	assert.Equal(t, 0.333, round3(1.0/3.0))
}
