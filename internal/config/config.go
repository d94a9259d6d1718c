package config

import "time"

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	CORS     CORSConfig     `mapstructure:"cors" yaml:"cors"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	Coaching CoachingConfig `mapstructure:"coaching" yaml:"coaching"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// AuthConfig controls verification of inbound tokens. Token issuance is an
// external service; this core only verifies and extracts the profile.
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// CacheConfig configures the Valkey node used for sessions, rate limiting
// and query-result caching. An empty node list selects the in-memory
// fallback cache.
type CacheConfig struct {
	Nodes []string `mapstructure:"nodes" yaml:"nodes"`
	TTL   int      `mapstructure:"ttl" yaml:"ttl"` // seconds
}

// AIConfig selects and configures the LLM provider used for intent
// classification, coaching analysis and general-chat generation.
type AIConfig struct {
	Provider  string          `mapstructure:"provider" yaml:"provider"` // openai | anthropic | ollama
	Timeout   time.Duration   `mapstructure:"timeout" yaml:"timeout"`
	OpenAI    OpenAIConfig    `mapstructure:"openai" yaml:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic" yaml:"anthropic"`
	Ollama    OllamaConfig    `mapstructure:"ollama" yaml:"ollama"`
}

type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`
	Model          string  `mapstructure:"model" yaml:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model" yaml:"embedding_model"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature    float32 `mapstructure:"temperature" yaml:"temperature"`
}

type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	Model     string `mapstructure:"model" yaml:"model"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// SearchConfig configures semantic call search and its keyword fallback.
type SearchConfig struct {
	SimilarityThreshold float64        `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	Limit               int            `mapstructure:"limit" yaml:"limit"`
	Weaviate            WeaviateConfig `mapstructure:"weaviate" yaml:"weaviate"`
	KeywordFallback     bool           `mapstructure:"keyword_fallback" yaml:"keyword_fallback"`
	KeywordIndexPath    string         `mapstructure:"keyword_index_path" yaml:"keyword_index_path"`
}

type WeaviateConfig struct {
	Scheme string `mapstructure:"scheme" yaml:"scheme"`
	Host   string `mapstructure:"host" yaml:"host"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// CoachingConfig holds the product defaults of the chat pipeline.
// FloorWidePhrases is deliberately conservative: a false positive here
// over-grants data access across teams.
type CoachingConfig struct {
	DefaultDepartment string   `mapstructure:"default_department" yaml:"default_department"`
	DefaultDaysBack   int      `mapstructure:"default_days_back" yaml:"default_days_back"`
	FloorWidePhrases  []string `mapstructure:"floor_wide_phrases" yaml:"floor_wide_phrases"`
}

type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
}
