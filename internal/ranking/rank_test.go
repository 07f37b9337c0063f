package ranking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonathan/latex-resume-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSimilarity returns a fixed score per item document prefix (the item title) and fails
// for titles listed in failFor.
type stubSimilarity struct {
	mu      sync.Mutex
	scores  map[string]float64
	failFor map[string]bool
	failAll bool
	calls   int
}

func (s *stubSimilarity) Similarity(_ context.Context, _ string, itemText string) (float64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.failAll {
		return 0, errors.New("embedding service down")
	}
	for title, score := range s.scores {
		if len(itemText) >= len(title) && itemText[:len(title)] == title {
			if s.failFor[title] {
				return 0, errors.New("lookup failed")
			}
			return score, nil
		}
	}
	return 0.5, nil
}

func goDockerTarget() *types.TargetDescription {
	return &types.TargetDescription{
		RawText: "Backend engineer. Go, Docker, distributed systems.",
		Parsed: &types.ParsedTarget{
			RequiredSkills: []string{"Go", "Docker"},
			Keywords:       []string{"distributed"},
		},
	}
}

func TestRank_TagOverlapFullMatch(t *testing.T) {
	items := []types.ContentItem{
		{ID: "item_1", Title: "Platform", Tags: []string{"Go", "Docker", "Kubernetes"}},
	}
	ranker := NewRanker(&stubSimilarity{scores: map[string]float64{"Platform": 0.8}})

	scores, err := ranker.Rank(context.Background(), goDockerTarget(), items, 10)
	require.NoError(t, err)
	require.Len(t, scores, 1)

	assert.Equal(t, 1.0, scores[0].TagOverlapScore)
	assert.Equal(t, 0.8, scores[0].SemanticScore)
	assert.Equal(t, 0.0, scores[0].KeywordScore)
	assert.Equal(t, 0.5, scores[0].RecencyScore)
	// 0.5*0.8 + 0.3*1.0 + 0.15*0 + 0.05*0.5
	assert.Equal(t, 0.725, scores[0].TotalScore)
	assert.Contains(t, scores[0].Explanation, "Strong semantic relevance")
	assert.Contains(t, scores[0].Explanation, "Matching skills: Go, Docker")
	assert.Contains(t, scores[0].Explanation, "Excellent tech stack match")
}

func TestRank_EmptySkillSetsAreNeutral(t *testing.T) {
	target := &types.TargetDescription{RawText: "Anything"}
	items := []types.ContentItem{{ID: "a", Title: "Thing", Tags: []string{"Rust"}}}

	scores, err := NewRanker(nil).Rank(context.Background(), target, items, 5)
	require.NoError(t, err)
	require.Len(t, scores, 1)

	assert.Equal(t, 0.5, scores[0].TagOverlapScore)
	assert.Equal(t, 0.5, scores[0].KeywordScore)
	assert.Equal(t, 0.5, scores[0].SemanticScore)
	assert.Equal(t, 0.5, scores[0].TotalScore)
	assert.Equal(t, "Moderate semantic relevance; Good tech stack overlap", scores[0].Explanation)
}

func TestRank_SortedBoundedAndFiltered(t *testing.T) {
	sim := &stubSimilarity{scores: map[string]float64{
		"Alpha": 0.9,
		"Beta":  0.6,
		"Gamma": 0.95,
		"Delta": 0.0,
	}}
	items := []types.ContentItem{
		{ID: "alpha", Title: "Alpha", Tags: []string{"Go"}},
		{ID: "beta", Title: "Beta", Tags: []string{"Docker"}},
		{ID: "gamma", Title: "Gamma", Tags: []string{"Go", "Docker"}, Description: "distributed"},
		{ID: "delta", Title: "Delta"},
	}

	scores, err := NewRanker(sim).Rank(context.Background(), goDockerTarget(), items, 10)
	require.NoError(t, err)

	// delta: 0 + 0 + 0 + 0.025 is below threshold
	require.Len(t, scores, 3)
	assert.Equal(t, "gamma", scores[0].ItemID)
	assert.Equal(t, "alpha", scores[1].ItemID)
	assert.Equal(t, "beta", scores[2].ItemID)

	for i, s := range scores {
		for _, v := range []float64{s.SemanticScore, s.TagOverlapScore, s.KeywordScore, s.RecencyScore, s.TotalScore} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
		assert.GreaterOrEqual(t, s.TotalScore, MinScoreThreshold)
		if i > 0 {
			assert.GreaterOrEqual(t, scores[i-1].TotalScore, s.TotalScore)
		}
	}

	top, err := NewRanker(sim).Rank(context.Background(), goDockerTarget(), items, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
	assert.Equal(t, 4*2, sim.calls)
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	items := []types.ContentItem{
		{ID: "first", Title: "One"},
		{ID: "second", Title: "Two"},
		{ID: "third", Title: "Three"},
	}

	scores, err := NewRanker(nil).Rank(context.Background(), &types.TargetDescription{}, items, 3)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "first", scores[0].ItemID)
	assert.Equal(t, "second", scores[1].ItemID)
	assert.Equal(t, "third", scores[2].ItemID)
}

func TestRank_SimilarityUnavailableReturnsEmpty(t *testing.T) {
	items := []types.ContentItem{
		{ID: "a", Title: "A", Tags: []string{"Go", "Docker"}},
		{ID: "b", Title: "B"},
	}

	scores, err := NewRanker(&stubSimilarity{failAll: true}).Rank(context.Background(), goDockerTarget(), items, 5)
	require.NoError(t, err)
	assert.NotNil(t, scores)
	assert.Empty(t, scores)
}

func TestRank_PartialFailureUsesNeutralScore(t *testing.T) {
	sim := &stubSimilarity{
		scores:  map[string]float64{"Good": 0.9, "Broken": 0.9},
		failFor: map[string]bool{"Broken": true},
	}
	items := []types.ContentItem{
		{ID: "good", Title: "Good", Tags: []string{"Go"}},
		{ID: "broken", Title: "Broken", Tags: []string{"Go"}},
	}

	scores, err := NewRanker(sim).Rank(context.Background(), goDockerTarget(), items, 5)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	byID := map[string]float64{}
	for _, s := range scores {
		byID[s.ItemID] = s.SemanticScore
	}
	assert.Equal(t, 0.9, byID["good"])
	assert.Equal(t, 0.5, byID["broken"])
}

func TestRank_EmptyInputs(t *testing.T) {
	ranker := NewRanker(nil)

	scores, err := ranker.Rank(context.Background(), goDockerTarget(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, scores)

	scores, err = ranker.Rank(context.Background(), goDockerTarget(), []types.ContentItem{{ID: "x"}}, 0)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestRank_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRanker(&stubSimilarity{}).Rank(ctx, goDockerTarget(), []types.ContentItem{{ID: "x", Title: "X"}}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateExplanation(t *testing.T) {
	tests := []struct {
		name     string
		semantic float64
		tag      float64
		skills   []string
		expected string
	}{
		{"nothing notable", 0.2, 0.1, nil, "Potential match based on content"},
		{"moderate only", 0.55, 0.0, nil, "Moderate semantic relevance"},
		{"tag overlap only", 0.1, 0.45, nil, "Good tech stack overlap"},
		{
			name:     "skills capped at five",
			semantic: 0.1,
			tag:      0.1,
			skills:   []string{"a", "b", "c", "d", "e", "f"},
			expected: "Matching skills: a, b, c, d, e",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, generateExplanation(tt.semantic, tt.tag, tt.skills))
		})
	}
}
