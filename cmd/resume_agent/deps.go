package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/latex-resume-agent/internal/artifacts"
	"github.com/jonathan/latex-resume-agent/internal/compile"
	"github.com/jonathan/latex-resume-agent/internal/config"
	"github.com/jonathan/latex-resume-agent/internal/fetch"
	"github.com/jonathan/latex-resume-agent/internal/llm"
	"github.com/jonathan/latex-resume-agent/internal/observability"
	"github.com/jonathan/latex-resume-agent/internal/pipeline"
	"github.com/jonathan/latex-resume-agent/internal/ranking"
	"github.com/jonathan/latex-resume-agent/internal/similarity"
	"github.com/jonathan/latex-resume-agent/internal/synthesis"
	"github.com/jonathan/latex-resume-agent/internal/target"
	"github.com/jonathan/latex-resume-agent/internal/types"
)

const (
	// renderTimeout bounds headless-browser rendering of job postings.
	renderTimeout = 45 * time.Second
	// remoteInterval spaces requests to the public remote compiler.
	remoteInterval = 2 * time.Second
)

// loadSettings resolves the config file, environment and defaults.
func loadSettings() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Verbose = true
	}
	if cfg.Verbose && configPath != "" {
		log.Printf("[config] loaded %s", configPath)
	}
	return cfg, nil
}

// printer returns a summary printer on stderr, or nil when not verbose.
func printer(cfg *config.Config) *observability.Printer {
	if !cfg.Verbose {
		return nil
	}
	return observability.NewPrinter(os.Stderr)
}

// newGenerativeClient returns the Gemini client, or nil when no API keys are configured.
func newGenerativeClient(cfg *config.Config) (*llm.GeminiClient, error) {
	if len(cfg.GeminiAPIKeys) == 0 {
		return nil, nil
	}
	pool, err := llm.NewCredentialPool(cfg.GeminiAPIKeys, llm.WithCooldown(cfg.CredentialCooldown()))
	if err != nil {
		return nil, err
	}
	modelCfg := llm.DefaultConfig()
	if cfg.GeminiModel != "" {
		modelCfg = modelCfg.WithModel(cfg.GeminiModel)
	}
	if cfg.EmbeddingProvider == "gemini" && cfg.EmbeddingModel != "" {
		modelCfg = modelCfg.WithEmbeddingModel(cfg.EmbeddingModel)
	}
	modelCfg.GenerationTimeout = cfg.GenerationTimeout()
	return llm.NewGeminiClient(pool, modelCfg)
}

// newSynthesizer applies the configured tier and temperature.
func newSynthesizer(cfg *config.Config, client llm.Client) *synthesis.Synthesizer {
	var opts []synthesis.Option
	if cfg.SynthesisTier != "" {
		opts = append(opts, synthesis.WithTier(llm.ModelTier(cfg.SynthesisTier)))
	}
	if cfg.SynthesisTemperature > 0 {
		opts = append(opts, synthesis.WithTemperature(float32(cfg.SynthesisTemperature)))
	}
	return synthesis.NewSynthesizer(client, opts...)
}

// newRanker applies the configured similarity concurrency.
func newRanker(cfg *config.Config, sim ranking.SimilarityService) *ranking.Ranker {
	return ranking.NewRanker(sim, ranking.WithConcurrency(cfg.RankConcurrency))
}

// tailoring returns the runner option that rewrites selected items, when enabled.
func tailoring(cfg *config.Config, synth *synthesis.Synthesizer) []pipeline.Option {
	if !cfg.TailorItems {
		return nil
	}
	return []pipeline.Option{pipeline.WithTailoring(synth)}
}

// requireGenerativeClient is newGenerativeClient for commands that cannot run without one.
func requireGenerativeClient(cfg *config.Config) (*llm.GeminiClient, error) {
	client, err := newGenerativeClient(cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("GEMINI_API_KEY (or GEMINI_API_KEY_1..6) is required")
	}
	return client, nil
}

// analyzer converts a possibly nil client into an llm.Client without a typed nil.
func analyzer(client *llm.GeminiClient) llm.Client {
	if client == nil {
		return nil
	}
	return client
}

// newSimilarity builds the embedding-backed similarity service for the configured provider,
// fronted by a Redis cache when REDIS_URL is set. It returns nil when no provider is usable,
// which gives every item the neutral semantic score.
func newSimilarity(ctx context.Context, cfg *config.Config, client *llm.GeminiClient) (ranking.SimilarityService, error) {
	var embedder similarity.Embedder
	switch cfg.EmbeddingProvider {
	case "none":
		return nil, nil
	case "cohere":
		embedder = similarity.NewCohereEmbedder(cfg.CohereAPIKey, cfg.EmbeddingModel)
	default:
		if client == nil {
			log.Printf("[similarity] no Gemini credentials; semantic scores will be neutral")
			return nil, nil
		}
		embedder = similarity.NewGeminiEmbedder(client)
	}

	if cfg.RedisURL != "" {
		cache, err := similarity.NewRedisCache(ctx, cfg.RedisURL, similarity.DefaultCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to embedding cache: %w", err)
		}
		embedder = similarity.NewCachedEmbedder(embedder, cache)
	}
	return similarity.NewEmbeddingService(embedder), nil
}

// newArtifactStore returns an S3 store when a bucket is configured, else a local directory.
func newArtifactStore(ctx context.Context, cfg *config.Config) (artifacts.Store, error) {
	if cfg.ArtifactS3Bucket != "" {
		return artifacts.NewS3Store(ctx, cfg.ArtifactS3Bucket, cfg.ArtifactS3Prefix, cfg.AWSRegion)
	}
	return artifacts.NewLocalStore(cfg.ArtifactDir), nil
}

// newCompiler builds the compilation pipeline with the default backend chain.
func newCompiler(ctx context.Context, cfg *config.Config) (*compile.Pipeline, error) {
	store, err := newArtifactStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return compile.NewPipeline(store, compile.DefaultBackends(compile.BackendConfig{
		Timeout:        cfg.CompilerTimeout(),
		DockerImage:    cfg.DockerImage,
		MemoryLimit:    cfg.CompilerMemoryLimit,
		RemoteURL:      cfg.RemoteURL,
		RemoteInterval: remoteInterval,
		DisableRemote:  cfg.DisableRemote,
	})...), nil
}

// readJSON decodes the JSON file at path into a new T.
func readJSON[T any](path string) (*T, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var v T
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &v, nil
}

// readText returns the contents of path.
func readText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(content), nil
}

// loadTarget reads a target from a JSON description, a plain-text posting, or a URL.
// Files ending in .json are decoded as a TargetDescription; anything else is raw posting text.
func loadTarget(ctx context.Context, path, url string) (*types.TargetDescription, error) {
	switch {
	case path != "" && url != "":
		return nil, errors.New("--target and --target-url are mutually exclusive")
	case url != "":
		return target.FromURL(ctx, fetch.NewFetcher(fetch.WithRenderer(fetch.ChromeRenderer(renderTimeout))), url)
	case path == "":
		return nil, nil
	case strings.EqualFold(filepath.Ext(path), ".json"):
		return readJSON[types.TargetDescription](path)
	default:
		text, err := readText(path)
		if err != nil {
			return nil, err
		}
		return &types.TargetDescription{RawText: text}, nil
	}
}

// writeJSON writes v as indented JSON to path, or to stdout when path is empty.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	return writeOutput(path, append(data, '\n'))
}

// writeOutput writes data to path, creating parent directories, or to stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// warn prints each warning to w.
func warn(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		_, _ = fmt.Fprintf(w, "Warning: %s\n", msg)
	}
}

// itemTitles maps item IDs to titles for score summaries.
func itemTitles(items []types.ContentItem) map[string]string {
	titles := make(map[string]string, len(items))
	for _, item := range items {
		titles[item.ID] = item.Title
	}
	return titles
}
