package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/callcoach/callcoach-core/internal/config"
	"github.com/callcoach/callcoach-core/internal/monitoring"
	"github.com/callcoach/callcoach-core/internal/tracing"
	"github.com/callcoach/callcoach-core/pkg/cache"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// LLMService is the text-generation collaborator behind intent
// classification, coaching analysis and general chat. Providers are
// interchangeable; callers treat the output as untrusted text.
type LLMService interface {
	// GenerateText produces a completion for the given system instruction
	// and user prompt.
	GenerateText(ctx context.Context, system, user string) (string, error)

	// GetProviderName returns the provider id (e.g. "openai").
	GetProviderName() string

	// GetModelName returns the model in use.
	GetModelName() string
}

// NewLLMService creates an LLMService from configuration.
func NewLLMService(cfg config.AIConfig, log logger.Logger) (LLMService, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI, cfg.Timeout, log)
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic, cfg.Timeout, log)
	case "ollama":
		return NewOllamaProvider(cfg.Ollama, cfg.Timeout, log)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

// CachedLLMService wraps an LLMService with result caching. Identical
// prompts (classification of the same message, re-analysis of the same
// transcript) hit the cache instead of the provider.
type CachedLLMService struct {
	underlying LLMService
	cache      cache.Valkey
	ttl        time.Duration
	tracer     *tracing.PipelineTracer
	logger     logger.Logger
}

func NewCachedLLMService(underlying LLMService, valkey cache.Valkey, ttl time.Duration, log logger.Logger) *CachedLLMService {
	return &CachedLLMService{
		underlying: underlying,
		cache:      valkey,
		ttl:        ttl,
		tracer:     tracing.NewPipelineTracer("llm"),
		logger:     log,
	}
}

func (c *CachedLLMService) GenerateText(ctx context.Context, system, user string) (string, error) {
	key := c.cacheKey(system, user)

	if c.cache != nil {
		if data, err := c.cache.Get(ctx, key); err == nil && len(data) > 0 {
			c.logger.Debug("llm response cache hit", "cache_key", key)
			monitoring.RecordCacheOperation("llm_response", "hit")
			return string(data), nil
		}
		monitoring.RecordCacheOperation("llm_response", "miss")
	}

	llmCtx, llmSpan := c.tracer.StartLLMSpan(ctx, c.underlying.GetProviderName(), "generate")
	start := time.Now()
	text, err := c.underlying.GenerateText(llmCtx, system, user)
	monitoring.RecordLLMCall(c.underlying.GetProviderName(), "generate", time.Since(start), err == nil)
	if err != nil {
		c.tracer.RecordError(llmSpan, err)
		llmSpan.End()
		return "", err
	}
	llmSpan.End()

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, text, c.ttl); err != nil {
			c.logger.Warn("failed to cache llm response", "error", err)
		}
	}
	return text, nil
}

func (c *CachedLLMService) GetProviderName() string { return c.underlying.GetProviderName() }
func (c *CachedLLMService) GetModelName() string    { return c.underlying.GetModelName() }

func (c *CachedLLMService) cacheKey(system, user string) string {
	hash := sha256.Sum256([]byte(system + "\x00" + user))
	return fmt.Sprintf("llm:prompt:%x", hash[:16])
}
