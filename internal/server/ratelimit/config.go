package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (a trailing "/" matches by prefix)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	if !envOr("RATE_LIMIT_ENABLED", true, strconv.ParseBool) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envOr("RATE_LIMIT_DEFAULT_LIMIT", 1000, strconv.Atoi),
		DefaultWindow:   envOr("RATE_LIMIT_DEFAULT_WINDOW", time.Minute, time.ParseDuration),
		CleanupInterval: envOr("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute, time.ParseDuration),
		IdleTTL:         envOr("RATE_LIMIT_IDLE_TTL", time.Hour, time.ParseDuration),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Generative calls and full runs
		{Path: "/synthesize", Method: "POST", Limit: 30, Window: time.Hour, Burst: 3},
		{Path: "/run", Method: "POST", Limit: 30, Window: time.Hour, Burst: 3},
		{Path: "/run/stream", Method: "POST", Limit: 30, Window: time.Hour, Burst: 3},
		{Path: "/resumes/", Method: "POST", Limit: 30, Window: time.Hour, Burst: 3},

		// Compilation occupies a container or a remote slot
		{Path: "/compile", Method: "POST", Limit: 60, Window: time.Hour, Burst: 5},

		// Ranking calls the similarity service once per item
		{Path: "/rank", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},

		// Normalize and reads use the default limit; /health is unlimited
	}
}

// envOr parses the environment variable key with parse, returning fallback when the
// variable is unset or malformed.
func envOr[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
