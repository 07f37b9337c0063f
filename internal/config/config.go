// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// MaxGeminiKeys is the number of GEMINI_API_KEY_n slots read from the environment.
const MaxGeminiKeys = 6

// Default values applied by Defaults.
const (
	DefaultCompilerTimeoutSeconds    = 30
	DefaultCompilerMemoryLimit       = "256m"
	DefaultDockerImage               = "texlive/texlive:latest"
	DefaultRemoteURL                 = "https://latex.ytotech.com/builds/sync"
	DefaultCredentialCooldownSeconds = 60
	DefaultGenerationTimeoutSeconds  = 120
	DefaultSynthesisTier             = "advanced"
	DefaultArtifactDir               = "output"
	DefaultEmbeddingProvider         = "gemini"
	DefaultPort                      = 8080
)

// Config holds every runtime setting. Values come from an optional JSON file, then the
// environment, then Defaults.
type Config struct {
	// Generative service
	GeminiAPIKeys             []string `json:"gemini_api_keys,omitempty" validate:"max=6,dive,required"`
	GeminiModel               string   `json:"gemini_model,omitempty"`
	CredentialCooldownSeconds int      `json:"credential_cooldown_seconds,omitempty" validate:"gte=0"`
	GenerationTimeoutSeconds  int      `json:"generation_timeout_seconds,omitempty" validate:"gte=0"`

	// Synthesis and ranking
	SynthesisTier        string  `json:"synthesis_tier,omitempty" validate:"omitempty,oneof=lite standard advanced"`
	SynthesisTemperature float64 `json:"synthesis_temperature,omitempty" validate:"gte=0,lte=2"`
	RankConcurrency      int     `json:"rank_concurrency,omitempty" validate:"gte=0"`
	TailorItems          bool    `json:"tailor_items,omitempty"`

	// Similarity
	EmbeddingProvider string `json:"embedding_provider,omitempty" validate:"omitempty,oneof=gemini cohere none"`
	EmbeddingModel    string `json:"embedding_model,omitempty"`
	CohereAPIKey      string `json:"cohere_api_key,omitempty"`
	RedisURL          string `json:"redis_url,omitempty" validate:"omitempty,url"`

	// Storage
	DatabaseURL      string `json:"database_url,omitempty" validate:"omitempty,url"`
	ArtifactDir      string `json:"artifact_dir,omitempty"`
	ArtifactS3Bucket string `json:"artifact_s3_bucket,omitempty"`
	ArtifactS3Prefix string `json:"artifact_s3_prefix,omitempty"`
	AWSRegion        string `json:"aws_region,omitempty"`

	// Compilation
	CompilerTimeoutSeconds int    `json:"compiler_timeout_seconds,omitempty" validate:"gte=0"`
	CompilerMemoryLimit    string `json:"compiler_memory_limit,omitempty"`
	DockerImage            string `json:"docker_image,omitempty"`
	RemoteURL              string `json:"remote_url,omitempty" validate:"omitempty,url"`
	DisableRemote          bool   `json:"disable_remote,omitempty"`

	// Server
	Port int `json:"port,omitempty" validate:"gte=0,lte=65535"`

	Verbose bool `json:"verbose,omitempty"`
}

var configValidator = validator.New()

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads the recognised environment variables. Unset variables leave fields at their
// zero value; malformed numbers are reported as errors.
func FromEnv() (*Config, error) {
	cfg := &Config{
		GeminiModel:         os.Getenv("GEMINI_MODEL"),
		SynthesisTier:       os.Getenv("SYNTHESIS_TIER"),
		EmbeddingProvider:   os.Getenv("EMBEDDING_PROVIDER"),
		EmbeddingModel:      os.Getenv("GEMINI_EMBEDDING_MODEL"),
		CohereAPIKey:        os.Getenv("COHERE_API_KEY"),
		RedisURL:            os.Getenv("REDIS_URL"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		ArtifactDir:         os.Getenv("ARTIFACT_DIR"),
		ArtifactS3Bucket:    os.Getenv("ARTIFACT_S3_BUCKET"),
		ArtifactS3Prefix:    os.Getenv("ARTIFACT_S3_PREFIX"),
		AWSRegion:           os.Getenv("AWS_REGION"),
		CompilerMemoryLimit: os.Getenv("LATEX_COMPILER_MEMORY_LIMIT"),
		DockerImage:         os.Getenv("LATEX_DOCKER_IMAGE"),
		RemoteURL:           os.Getenv("LATEX_REMOTE_URL"),
	}

	for i := 1; i <= MaxGeminiKeys; i++ {
		if key := strings.TrimSpace(os.Getenv(fmt.Sprintf("GEMINI_API_KEY_%d", i))); key != "" {
			cfg.GeminiAPIKeys = append(cfg.GeminiAPIKeys, key)
		}
	}
	if len(cfg.GeminiAPIKeys) == 0 {
		if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
			cfg.GeminiAPIKeys = []string{key}
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"LATEX_COMPILER_TIMEOUT", &cfg.CompilerTimeoutSeconds},
		{"CREDENTIAL_COOLDOWN", &cfg.CredentialCooldownSeconds},
		{"GENERATION_TIMEOUT", &cfg.GenerationTimeoutSeconds},
		{"RANK_CONCURRENCY", &cfg.RankConcurrency},
		{"PORT", &cfg.Port},
	}
	for _, v := range ints {
		raw := strings.TrimSpace(os.Getenv(v.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("config error: %s must be an integer: %w", v.name, err)
		}
		*v.dst = n
	}

	if raw := strings.TrimSpace(os.Getenv("SYNTHESIS_TEMPERATURE")); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("config error: SYNTHESIS_TEMPERATURE must be a number: %w", err)
		}
		cfg.SynthesisTemperature = t
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"LATEX_DISABLE_REMOTE", &cfg.DisableRemote},
		{"TAILOR_ITEMS", &cfg.TailorItems},
	}
	for _, v := range bools {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("config error: %s must be a boolean: %w", v.name, err)
		}
		*v.dst = b
	}

	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		CredentialCooldownSeconds: DefaultCredentialCooldownSeconds,
		GenerationTimeoutSeconds:  DefaultGenerationTimeoutSeconds,
		SynthesisTier:             DefaultSynthesisTier,
		EmbeddingProvider:         DefaultEmbeddingProvider,
		ArtifactDir:               DefaultArtifactDir,
		CompilerTimeoutSeconds:    DefaultCompilerTimeoutSeconds,
		CompilerMemoryLimit:       DefaultCompilerMemoryLimit,
		DockerImage:               DefaultDockerImage,
		RemoteURL:                 DefaultRemoteURL,
		Port:                      DefaultPort,
	}
}

// Load reads the optional JSON file at path, overlays the environment, fills the rest from
// Defaults and validates the result.
func Load(path string) (*Config, error) {
	file := &Config{}
	if path != "" {
		var err error
		if file, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	env, err := FromEnv()
	if err != nil {
		return nil, err
	}

	merged := env.MergeWithDefaults(*file)
	merged = merged.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.EmbeddingProvider == "cohere" && c.CohereAPIKey == "" {
		return fmt.Errorf("config error: 'cohere_api_key' is required when embedding_provider is cohere")
	}
	if c.ArtifactS3Prefix != "" && c.ArtifactS3Bucket == "" {
		return fmt.Errorf("config error: 'artifact_s3_prefix' requires 'artifact_s3_bucket'")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if len(result.GeminiAPIKeys) == 0 {
		result.GeminiAPIKeys = defaults.GeminiAPIKeys
	}

	// String fields: use default if empty
	strs := []struct{ dst, def *string }{
		{&result.GeminiModel, &defaults.GeminiModel},
		{&result.SynthesisTier, &defaults.SynthesisTier},
		{&result.EmbeddingProvider, &defaults.EmbeddingProvider},
		{&result.EmbeddingModel, &defaults.EmbeddingModel},
		{&result.CohereAPIKey, &defaults.CohereAPIKey},
		{&result.RedisURL, &defaults.RedisURL},
		{&result.DatabaseURL, &defaults.DatabaseURL},
		{&result.ArtifactDir, &defaults.ArtifactDir},
		{&result.ArtifactS3Bucket, &defaults.ArtifactS3Bucket},
		{&result.ArtifactS3Prefix, &defaults.ArtifactS3Prefix},
		{&result.AWSRegion, &defaults.AWSRegion},
		{&result.CompilerMemoryLimit, &defaults.CompilerMemoryLimit},
		{&result.DockerImage, &defaults.DockerImage},
		{&result.RemoteURL, &defaults.RemoteURL},
	}
	for _, s := range strs {
		if *s.dst == "" {
			*s.dst = *s.def
		}
	}

	// Int fields: use default if zero
	if result.CredentialCooldownSeconds == 0 {
		result.CredentialCooldownSeconds = defaults.CredentialCooldownSeconds
	}
	if result.GenerationTimeoutSeconds == 0 {
		result.GenerationTimeoutSeconds = defaults.GenerationTimeoutSeconds
	}
	if result.RankConcurrency == 0 {
		result.RankConcurrency = defaults.RankConcurrency
	}
	if result.SynthesisTemperature == 0 {
		result.SynthesisTemperature = defaults.SynthesisTemperature
	}
	if result.CompilerTimeoutSeconds == 0 {
		result.CompilerTimeoutSeconds = defaults.CompilerTimeoutSeconds
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: either source enabling the flag wins
	result.DisableRemote = result.DisableRemote || defaults.DisableRemote
	result.TailorItems = result.TailorItems || defaults.TailorItems
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// CompilerTimeout returns the per-backend compilation budget.
func (c *Config) CompilerTimeout() time.Duration {
	return time.Duration(c.CompilerTimeoutSeconds) * time.Second
}

// CredentialCooldown returns how long a rate-limited key is skipped.
func (c *Config) CredentialCooldown() time.Duration {
	return time.Duration(c.CredentialCooldownSeconds) * time.Second
}

// GenerationTimeout returns the budget for a single generative service call.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}
