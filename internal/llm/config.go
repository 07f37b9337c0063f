// Package llm provides the generative-text client, credential rotation, and response helpers.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, target analysis
	TierLite ModelTier = "lite"
	// TierStandard is for structured output such as item tailoring
	TierStandard ModelTier = "standard"
	// TierAdvanced is for full document synthesis
	TierAdvanced ModelTier = "advanced"
)

// Generation defaults.
const (
	DefaultTemperature     float32 = 0.2
	DefaultMaxOutputTokens int32   = 8192
	DefaultEmbeddingModel          = "text-embedding-004"
)

// DefaultGenerationTimeout bounds a single generation or embedding call.
const DefaultGenerationTimeout = 2 * time.Minute

// Config holds the model configuration for the application
type Config struct {
	Models            map[ModelTier]string
	EmbeddingModel    string
	Temperature       float32
	MaxOutputTokens   int32
	GenerationTimeout time.Duration // per provider call; zero disables it
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.0-flash-lite",
			TierStandard: "gemini-2.0-flash",
			TierAdvanced: "gemini-2.5-flash",
		},
		EmbeddingModel:    DefaultEmbeddingModel,
		Temperature:       DefaultTemperature,
		MaxOutputTokens:   DefaultMaxOutputTokens,
		GenerationTimeout: DefaultGenerationTimeout,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok && model != "" {
		return model
	}
	// Fallback chain: standard, then lite
	if model, ok := c.Models[TierStandard]; ok && model != "" {
		return model
	}
	if model, ok := c.Models[TierLite]; ok && model != "" {
		return model
	}
	return ""
}

// WithModel returns a copy of the config with every tier pinned to model.
// An empty model leaves the config unchanged.
func (c *Config) WithModel(model string) *Config {
	next := *c
	next.Models = make(map[ModelTier]string, len(c.Models))
	for k, v := range c.Models {
		next.Models[k] = v
	}
	if model == "" {
		return &next
	}
	for _, tier := range []ModelTier{TierLite, TierStandard, TierAdvanced} {
		next.Models[tier] = model
	}
	return &next
}

// WithEmbeddingModel returns a copy of the config using the given embedding model.
func (c *Config) WithEmbeddingModel(model string) *Config {
	next := c.WithModel("")
	if model != "" {
		next.EmbeddingModel = model
	}
	return next
}
