// Package similarity scores how close two texts are by comparing their embeddings.
package similarity

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/jonathan/latex-resume-agent/internal/llm"
)

// DefaultCohereModel is used when no embed- model is configured.
const DefaultCohereModel = "embed-english-v3.0"

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// GeminiEmbedder embeds through the generative service client and its credential pool.
type GeminiEmbedder struct {
	client *llm.GeminiClient
}

// NewGeminiEmbedder wraps client.
func NewGeminiEmbedder(client *llm.GeminiClient) *GeminiEmbedder {
	return &GeminiEmbedder{client: client}
}

// ModelName implements Embedder.
func (g *GeminiEmbedder) ModelName() string {
	return g.client.Config().EmbeddingModel
}

// EmbedTexts implements Embedder.
func (g *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return g.client.EmbedTexts(ctx, texts)
}

// CohereEmbedder embeds through the Cohere v2 Embed API.
type CohereEmbedder struct {
	embed func(ctx context.Context, request *cohere.V2EmbedRequest) (*cohere.EmbedByTypeResponse, error)
	model string
}

// NewCohereEmbedder returns an embedder authenticated with apiKey. A model not starting with
// "embed-" falls back to DefaultCohereModel.
func NewCohereEmbedder(apiKey, model string) *CohereEmbedder {
	if model == "" || !strings.HasPrefix(model, "embed-") {
		model = DefaultCohereModel
	}
	// HTTP/1.1 only
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereEmbedder{
		embed: func(ctx context.Context, request *cohere.V2EmbedRequest) (*cohere.EmbedByTypeResponse, error) {
			return client.V2.Embed(ctx, request)
		},
		model: model,
	}
}

// ModelName implements Embedder.
func (c *CohereEmbedder) ModelName() string { return c.model }

// EmbedTexts implements Embedder.
func (c *CohereEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := c.embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          c.model,
		InputType:      cohere.EmbedInputTypeSearchDocument,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}
	if len(resp.Embeddings.Float) != len(texts) {
		return nil, ErrCountMismatch
	}

	out := make([][]float32, len(resp.Embeddings.Float))
	for i, vec := range resp.Embeddings.Float {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}
