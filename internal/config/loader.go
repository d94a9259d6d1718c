package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration with priority order:
// 1. Environment variables (CALLCOACH_ prefix)
// 2. Configuration file (config.yaml)
// 3. Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/callcoach/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("CALLCOACH")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file - env vars and defaults only.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	v.SetDefault("auth.enabled", true)

	v.SetDefault("cache.nodes", []string{})
	v.SetDefault("cache.ttl", 300)

	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("ai.openai.max_tokens", 1024)
	v.SetDefault("ai.openai.temperature", 0.2)
	v.SetDefault("ai.anthropic.endpoint", "https://api.anthropic.com")
	v.SetDefault("ai.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("ai.anthropic.max_tokens", 1024)
	v.SetDefault("ai.ollama.endpoint", "http://localhost:11434")
	v.SetDefault("ai.ollama.model", "llama3.1")

	v.SetDefault("search.similarity_threshold", 0.72)
	v.SetDefault("search.limit", 10)
	v.SetDefault("search.weaviate.scheme", "http")
	v.SetDefault("search.weaviate.host", "localhost:8081")
	v.SetDefault("search.keyword_fallback", true)
	v.SetDefault("search.keyword_index_path", "") // empty = in-memory index

	v.SetDefault("coaching.default_department", "sales")
	v.SetDefault("coaching.default_days_back", 7)
	// Conservative multi-word phrases only. Single ambiguous words like
	// "all" or "everyone" are excluded: a false positive widens a
	// manager's scope to the whole floor.
	v.SetDefault("coaching.floor_wide_phrases", []string{
		"floor-wide",
		"floor wide",
		"company-wide",
		"company wide",
		"all teams",
		"across teams",
		"across all teams",
		"entire floor",
		"whole floor",
		"whole company",
		"entire company",
		"every team",
	})

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")
}

func validateConfig(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	switch cfg.AI.Provider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("unsupported ai.provider: %s", cfg.AI.Provider)
	}
	if cfg.Search.SimilarityThreshold < 0 || cfg.Search.SimilarityThreshold > 1 {
		return fmt.Errorf("search.similarity_threshold must be in [0,1], got %f", cfg.Search.SimilarityThreshold)
	}
	if cfg.Search.Limit <= 0 {
		return fmt.Errorf("search.limit must be positive, got %d", cfg.Search.Limit)
	}
	if cfg.Coaching.DefaultDaysBack <= 0 {
		return fmt.Errorf("coaching.default_days_back must be positive, got %d", cfg.Coaching.DefaultDaysBack)
	}
	return nil
}
