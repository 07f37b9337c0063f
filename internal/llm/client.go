package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GenerateOptions controls a single generation call.
type GenerateOptions struct {
	Tier              ModelTier
	SystemInstruction string
	// Temperature overrides the configured default when set.
	Temperature *float32
}

// Temperature returns a pointer for GenerateOptions.Temperature.
func Temperature(v float32) *float32 {
	return &v
}

// Client is an abstraction over the generative-text provider
type Client interface {
	// GenerateContent returns free-form text.
	GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// GenerateJSON requests a JSON response and strips any markdown fence around it.
	GenerateJSON(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// Close releases any resources held by the client
	Close() error
}

// GeminiClient implements Client for Google Gemini, spreading calls across a CredentialPool.
type GeminiClient struct {
	pool   *CredentialPool
	config *Config

	mu      sync.Mutex
	clients map[int]*genai.Client
}

// NewGeminiClient creates a new Gemini client. Underlying SDK clients are created lazily per credential.
func NewGeminiClient(pool *CredentialPool, config *Config) (*GeminiClient, error) {
	if pool == nil {
		return nil, ErrNoCredentials
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &GeminiClient{
		pool:    pool,
		config:  config,
		clients: make(map[int]*genai.Client),
	}, nil
}

// Pool exposes the credential pool for stats reporting.
func (c *GeminiClient) Pool() *CredentialPool {
	return c.pool
}

// Config returns the model configuration.
func (c *GeminiClient) Config() *Config {
	return c.config
}

// GenerateContent generates text content
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return c.generate(ctx, prompt, opts, false)
}

// GenerateJSON generates JSON content
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	text, err := c.generate(ctx, prompt, opts, true)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *GeminiClient) generate(ctx context.Context, prompt string, opts GenerateOptions, jsonMode bool) (string, error) {
	modelName := c.config.GetModel(opts.Tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", opts.Tier)
	}
	temperature := c.config.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	return withRotation(ctx, c.pool, c.config.GenerationTimeout, func(ctx context.Context, cred Credential) (string, error) {
		client, err := c.clientFor(ctx, cred)
		if err != nil {
			return "", err
		}

		model := client.GenerativeModel(modelName)
		model.SetTemperature(temperature)
		if c.config.MaxOutputTokens > 0 {
			model.SetMaxOutputTokens(c.config.MaxOutputTokens)
		}
		model.SafetySettings = permissiveSafetySettings()
		if opts.SystemInstruction != "" {
			model.SystemInstruction = genai.NewUserContent(genai.Text(opts.SystemInstruction))
		}
		if jsonMode {
			model.ResponseMIMEType = "application/json"
		}

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		return extractTextFromResponse(resp)
	})
}

// EmbedTexts returns one embedding vector per input text.
func (c *GeminiClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	return withRotation(ctx, c.pool, c.config.GenerationTimeout, func(ctx context.Context, cred Credential) ([][]float32, error) {
		client, err := c.clientFor(ctx, cred)
		if err != nil {
			return nil, err
		}

		em := client.EmbeddingModel(c.config.EmbeddingModel)
		em.TaskType = genai.TaskTypeSemanticSimilarity

		batch := em.NewBatch()
		for _, t := range texts {
			batch.AddContent(genai.Text(t))
		}
		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(res.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(res.Embeddings), len(texts))
		}

		out := make([][]float32, len(res.Embeddings))
		for i, e := range res.Embeddings {
			if e == nil {
				return nil, fmt.Errorf("missing embedding at index %d", i)
			}
			out[i] = e.Values
		}
		return out, nil
	})
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for idx, client := range c.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.clients, idx)
	}
	return firstErr
}

func (c *GeminiClient) clientFor(ctx context.Context, cred Credential) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[cred.Index]; ok {
		return client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cred.Key))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.clients[cred.Index] = client
	return client, nil
}

// withRotation runs call with leased credentials, moving to the next slot on rate limits.
// Each attempt gets its own timeout when timeout is positive; exceeding it returns
// ErrGenerationTimeout without rotating. Any other error is returned immediately.
func withRotation[T any](ctx context.Context, pool *CredentialPool, timeout time.Duration, call func(context.Context, Credential) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < pool.Size(); attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		cred, err := pool.Acquire()
		if err != nil {
			return zero, &RateLimitError{Message: "no credential available", Cause: err}
		}

		out, err := callWithTimeout(ctx, timeout, cred, call)
		if err == nil {
			pool.MarkSucceeded(cred)
			return out, nil
		}

		if IsRateLimited(err) {
			pool.MarkRateLimited(cred)
			lastErr = err
			continue
		}

		pool.MarkFailed(cred)
		log.Printf("[llm] request failed on credential %d: %v", cred.Index, err)
		if errors.Is(err, ErrGenerationTimeout) {
			return zero, err
		}
		return zero, fmt.Errorf("failed to generate content: %w", err)
	}

	return zero, &RateLimitError{
		Message: fmt.Sprintf("%d credentials exhausted: %v", pool.Size(), lastErr),
		Cause:   ErrAllCredentialsCoolingDown,
	}
}

// callWithTimeout runs one call under its own deadline. A deadline hit while the parent context is
// still live is reported as ErrGenerationTimeout.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, cred Credential, call func(context.Context, Credential) (T, error)) (T, error) {
	if timeout <= 0 {
		return call(ctx, cred)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := call(callCtx, cred)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, fmt.Errorf("%w after %s", ErrGenerationTimeout, timeout)
	}
	return out, err
}

func permissiveSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, len(categories))
	for i, cat := range categories {
		settings[i] = &genai.SafetySetting{Category: cat, Threshold: genai.HarmBlockNone}
	}
	return settings
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
