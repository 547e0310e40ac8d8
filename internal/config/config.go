// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shinsa-ai/shinsa/internal/model"
)

// Config holds all application configuration.
type Config struct {
	// Logging and service identity.
	LogLevel    string
	ServiceName string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool

	// Cache store settings.
	CacheDir        string        // Durable tier directory. Empty = memory-only.
	CacheTTL        time.Duration // Default TTL for cache entries.
	ReviewTTL       time.Duration // TTL for memoized review decisions.
	MaxMemoryItems  int           // Memory tier capacity before LRU eviction.
	CleanupInterval time.Duration // Expired-entry sweep interval.

	// Parallel executor settings.
	MaxWorkers   int
	BatchTimeout time.Duration // How long a caller waits for one evaluation batch.

	// Model router settings.
	MaxRetries       int           // Attempts per model before degrading to its fallback.
	RetryDelay       time.Duration // Fixed delay between attempts on the same model.
	FallbackMaxDepth int           // Maximum fallback chain length.
	RouteOverrides   string        // "task.quality=model,..." merged over built-in routes.
	FallbackOverride string        // "model=next,..." merged over built-in fallbacks.

	// Provider credentials. Only presence matters here: the router uses
	// them for availability checks, never for transport.
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaURL       string

	// Aggregation settings.
	Weights          []model.DimensionWeight
	PublishThreshold float64
	AskThreshold     float64
	MaxSuggestions   int

	// Evaluation history (SQLite audit store).
	HistoryPath    string
	HistoryDisable bool
}

// DefaultWeights is the shipped three-way weighting over evaluation
// dimensions. Compliance is both scored and the veto gate.
const DefaultWeights = "quality=0.35,engagement=0.40,compliance=0.25"

// Load reads configuration from environment variables with sensible defaults.
// Malformed values fail loudly rather than silently falling back.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cacheTTL, err := envDuration("SHINSA_CACHE_TTL", 24*time.Hour)
	collect(err)
	reviewTTL, err := envDuration("SHINSA_REVIEW_TTL", time.Hour)
	collect(err)
	maxItems, err := envInt("SHINSA_CACHE_MAX_ITEMS", 100)
	collect(err)
	cleanup, err := envDuration("SHINSA_CACHE_CLEANUP_INTERVAL", 5*time.Minute)
	collect(err)
	maxWorkers, err := envInt("SHINSA_MAX_WORKERS", 3)
	collect(err)
	batchTimeout, err := envDuration("SHINSA_BATCH_TIMEOUT", 2*time.Minute)
	collect(err)
	maxRetries, err := envInt("SHINSA_MAX_RETRIES", 3)
	collect(err)
	retryDelay, err := envDuration("SHINSA_RETRY_DELAY", 2*time.Second)
	collect(err)
	maxDepth, err := envInt("SHINSA_FALLBACK_MAX_DEPTH", 5)
	collect(err)
	publish, err := envFloat("SHINSA_PUBLISH_THRESHOLD", 8.0)
	collect(err)
	ask, err := envFloat("SHINSA_ASK_THRESHOLD", 6.0)
	collect(err)
	maxSuggestions, err := envInt("SHINSA_MAX_SUGGESTIONS", 5)
	collect(err)
	otelInsecure, err := envBool("OTEL_EXPORTER_OTLP_INSECURE", false)
	collect(err)
	historyDisable, err := envBool("SHINSA_HISTORY_DISABLE", false)
	collect(err)
	weights, err := parseWeights(envStr("SHINSA_REVIEW_WEIGHTS", DefaultWeights))
	collect(err)

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	cfg := Config{
		LogLevel:         envStr("SHINSA_LOG_LEVEL", "info"),
		ServiceName:      envStr("OTEL_SERVICE_NAME", "shinsa"),
		OTELEndpoint:     envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:     otelInsecure,
		CacheDir:         envStr("SHINSA_CACHE_DIR", ".shinsa/cache"),
		CacheTTL:         cacheTTL,
		ReviewTTL:        reviewTTL,
		MaxMemoryItems:   maxItems,
		CleanupInterval:  cleanup,
		MaxWorkers:       maxWorkers,
		BatchTimeout:     batchTimeout,
		MaxRetries:       maxRetries,
		RetryDelay:       retryDelay,
		FallbackMaxDepth: maxDepth,
		RouteOverrides:   envStr("SHINSA_ROUTES", ""),
		FallbackOverride: envStr("SHINSA_FALLBACKS", ""),
		OpenAIAPIKey:     envStr("OPENAI_API_KEY", ""),
		AnthropicAPIKey:  envStr("ANTHROPIC_API_KEY", ""),
		OllamaURL:        envStr("OLLAMA_URL", "http://localhost:11434"),
		Weights:          weights,
		PublishThreshold: publish,
		AskThreshold:     ask,
		MaxSuggestions:   maxSuggestions,
		HistoryPath:      envStr("SHINSA_HISTORY_DB", ".shinsa/history.db"),
		HistoryDisable:   historyDisable,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that env parsing cannot.
func (c Config) Validate() error {
	if c.MaxMemoryItems <= 0 {
		return fmt.Errorf("config: SHINSA_CACHE_MAX_ITEMS must be positive")
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("config: SHINSA_MAX_WORKERS must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("config: SHINSA_MAX_RETRIES must be at least 1")
	}
	if c.FallbackMaxDepth < 1 {
		return fmt.Errorf("config: SHINSA_FALLBACK_MAX_DEPTH must be at least 1")
	}
	if c.MaxSuggestions <= 0 {
		return fmt.Errorf("config: SHINSA_MAX_SUGGESTIONS must be positive")
	}
	if c.AskThreshold < model.ScoreMin || c.PublishThreshold > model.ScoreMax {
		return fmt.Errorf("config: thresholds must lie within [%v, %v]", model.ScoreMin, model.ScoreMax)
	}
	if c.AskThreshold > c.PublishThreshold {
		return fmt.Errorf("config: SHINSA_ASK_THRESHOLD %.2f exceeds SHINSA_PUBLISH_THRESHOLD %.2f", c.AskThreshold, c.PublishThreshold)
	}
	if err := model.ValidateWeights(c.Weights); err != nil {
		return fmt.Errorf("config: SHINSA_REVIEW_WEIGHTS: %w", err)
	}
	return nil
}

// ProviderCredentials reports which model providers have a usable credential.
// Ollama runs locally and needs none. "custom" covers models served through
// an OpenAI-compatible gateway, so it rides on the OpenAI key.
func (c Config) ProviderCredentials() map[string]bool {
	return map[string]bool{
		"openai":    c.OpenAIAPIKey != "",
		"anthropic": c.AnthropicAPIKey != "",
		"custom":    c.OpenAIAPIKey != "",
		"ollama":    true,
	}
}

// parseWeights parses an ordered "dimension=weight,..." list. Order is
// preserved: it determines suggestion collection order during aggregation.
func parseWeights(s string) ([]model.DimensionWeight, error) {
	parts := strings.Split(s, ",")
	weights := make([]model.DimensionWeight, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf(`weight %q is not of the form "dimension=value"`, part)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q has a non-numeric value", part)
		}
		weights = append(weights, model.DimensionWeight{
			Dimension: strings.TrimSpace(name),
			Weight:    w,
		})
	}
	return weights, nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
