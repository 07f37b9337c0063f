package similarity

import (
	"context"
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of a and b, or 0 when either vector has no magnitude.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// EmbeddingService scores text pairs by the cosine of their embeddings, clamped to [0,1].
type EmbeddingService struct {
	embedder Embedder
}

// NewEmbeddingService returns a service backed by embedder.
func NewEmbeddingService(embedder Embedder) *EmbeddingService {
	return &EmbeddingService{embedder: embedder}
}

// Similarity embeds both texts in one call and compares them.
func (s *EmbeddingService) Similarity(ctx context.Context, targetText, itemText string) (float64, error) {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{targetText, itemText})
	if err != nil {
		return 0, fmt.Errorf("failed to embed texts with %s: %w", s.embedder.ModelName(), err)
	}
	if len(vecs) != 2 {
		return 0, ErrCountMismatch
	}
	score, err := Cosine(vecs[0], vecs[1])
	if err != nil {
		return 0, err
	}
	return math.Max(0, math.Min(1, score)), nil
}
