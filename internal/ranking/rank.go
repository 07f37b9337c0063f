// Package ranking scores content items against a target description.
package ranking

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/latex-resume-agent/internal/types"
)

// SimilarityService returns a semantic similarity in [0,1] between two texts.
type SimilarityService interface {
	Similarity(ctx context.Context, targetText, itemText string) (float64, error)
}

// DefaultConcurrency bounds the number of in-flight similarity lookups per Rank call.
const DefaultConcurrency = 4

// Ranker ranks content items for one target description. It holds no per-request state,
// so a single Ranker may serve concurrent calls.
type Ranker struct {
	similarity  SimilarityService
	concurrency int
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithConcurrency sets the maximum number of concurrent similarity lookups.
func WithConcurrency(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRanker creates a Ranker. A nil similarity service means every item gets the neutral semantic score.
func NewRanker(similarity SimilarityService, opts ...Option) *Ranker {
	r := &Ranker{similarity: similarity, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores items against the target and returns at most topN scores at or above MinScoreThreshold,
// ordered by total score descending with ties kept in input order.
//
// Ranking is best effort: a failed lookup for one item gives it the neutral semantic score, and when
// every lookup fails the result is empty rather than an error. The only error is a cancelled context.
func (r *Ranker) Rank(ctx context.Context, target *types.TargetDescription, items []types.ContentItem, topN int) ([]types.MatchScore, error) {
	if len(items) == 0 || topN <= 0 {
		return []types.MatchScore{}, nil
	}

	semantic, available := r.semanticScores(ctx, target, items)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ranking cancelled: %w", err)
	}
	if !available {
		log.Printf("[ranking] similarity service unavailable for all %d items; returning no matches", len(items))
		return []types.MatchScore{}, nil
	}

	required := target.RequiredSkills()
	preferred := target.PreferredSkills()
	keywords := target.Keywords()
	targetSkills := normalizedSet(append(append([]string{}, required...), preferred...))

	scores := make([]types.MatchScore, 0, len(items))
	for i := range items {
		item := &items[i]

		semanticScore := round3(clamp(semantic[i]))
		tagScore, matched := computeTagOverlapScore(item.Tags, required, preferred)
		tagScore = round3(tagScore)
		keywordScore := round3(computeKeywordScore(item, keywords))
		recencyScore := round3(computeRecencyScore(item))

		total := round3(clamp(computeTotal(semanticScore, tagScore, keywordScore, recencyScore)))
		if total < MinScoreThreshold {
			continue
		}

		scores = append(scores, types.MatchScore{
			ItemID:          item.ID,
			SemanticScore:   semanticScore,
			TagOverlapScore: tagScore,
			KeywordScore:    keywordScore,
			RecencyScore:    recencyScore,
			TotalScore:      total,
			Explanation:     generateExplanation(semanticScore, tagScore, matchedTags(item.Tags, targetSkills, matched)),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TotalScore > scores[j].TotalScore
	})

	scores = ensureDiversity(scores)

	if len(scores) > topN {
		scores = scores[:topN]
	}
	return scores, nil
}

// semanticScores looks up similarity for every item. The bool is false when the service
// was configured but failed for every item.
func (r *Ranker) semanticScores(ctx context.Context, target *types.TargetDescription, items []types.ContentItem) ([]float64, bool) {
	scores := make([]float64, len(items))
	for i := range scores {
		scores[i] = NeutralScore
	}
	if r.similarity == nil {
		return scores, true
	}

	targetText := ""
	if target != nil {
		targetText = target.RawText
	}

	failed := make([]bool, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range items {
		g.Go(func() error {
			score, err := r.similarity.Similarity(gctx, targetText, itemDocument(&items[i]))
			if err != nil {
				failed[i] = true
				log.Printf("[ranking] similarity lookup failed for item %s: %v", items[i].ID, err)
				return nil
			}
			scores[i] = score
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range failed {
		if !f {
			return scores, true
		}
	}
	return scores, false
}

// itemDocument is the text embedded for an item.
func itemDocument(item *types.ContentItem) string {
	var sb strings.Builder
	sb.WriteString(item.Title)
	if item.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(item.Description)
	}
	if len(item.Tags) > 0 {
		sb.WriteString("\nTechnologies: ")
		sb.WriteString(strings.Join(item.Tags, ", "))
	}
	for _, h := range item.Highlights {
		sb.WriteString("\n- ")
		sb.WriteString(h)
	}
	return sb.String()
}

// matchedTags returns the item's tags that appear anywhere in the target skill sets.
func matchedTags(tags []string, targetSkills map[string]bool, fallback []string) []string {
	if len(targetSkills) == 0 {
		return fallback
	}
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		n := normalizeSkill(tag)
		if targetSkills[n] && !seen[n] {
			seen[n] = true
			out = append(out, strings.TrimSpace(tag))
		}
	}
	return out
}

// ensureDiversity is the hook for down-ranking items with near-identical tech stacks.
// Scores currently pass through unchanged.
func ensureDiversity(scores []types.MatchScore) []types.MatchScore {
	return scores
}

// generateExplanation creates a brief explanation of the match.
func generateExplanation(semantic, tag float64, matchedSkills []string) string {
	var parts []string

	if semantic >= 0.7 {
		parts = append(parts, "Strong semantic relevance")
	} else if semantic >= 0.5 {
		parts = append(parts, "Moderate semantic relevance")
	}

	if len(matchedSkills) > 0 {
		shown := matchedSkills
		if len(shown) > 5 {
			shown = shown[:5]
		}
		parts = append(parts, fmt.Sprintf("Matching skills: %s", strings.Join(shown, ", ")))
	}

	if tag >= 0.7 {
		parts = append(parts, "Excellent tech stack match")
	} else if tag >= 0.4 {
		parts = append(parts, "Good tech stack overlap")
	}

	if len(parts) == 0 {
		return "Potential match based on content"
	}
	return strings.Join(parts, "; ")
}
