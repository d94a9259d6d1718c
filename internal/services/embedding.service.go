package services

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/callcoach/callcoach-core/internal/config"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// Embedder turns text into a vector for semantic call search.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder creates an Embedder matching the configured AI provider.
// Anthropic exposes no embeddings API, so that provider pairs with OpenAI
// embeddings when a key is configured.
func NewEmbedder(cfg config.AIConfig, log logger.Logger) (Embedder, error) {
	switch cfg.Provider {
	case "openai", "anthropic":
		apiKey := resolveEnvVar(cfg.OpenAI.APIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required for embeddings")
		}
		return &openAIEmbedder{
			client:  openai.NewClient(apiKey),
			model:   cfg.OpenAI.EmbeddingModel,
			timeout: cfg.Timeout,
			logger:  log,
		}, nil
	case "ollama":
		return NewOllamaProvider(cfg.Ollama, cfg.Timeout, log)
	default:
		return nil, fmt.Errorf("unsupported ai provider for embeddings: %s", cfg.Provider)
	}
}

type openAIEmbedder struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  logger.Logger
}

func (e *openAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(timeoutCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		e.logger.Error("OpenAI embeddings call failed", "error", err)
		return nil, fmt.Errorf("OpenAI embeddings error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("OpenAI embeddings returned no data")
	}
	return resp.Data[0].Embedding, nil
}
