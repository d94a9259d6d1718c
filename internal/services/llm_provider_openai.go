package services

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/callcoach/callcoach-core/internal/config"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// OpenAIProvider implements LLMService using OpenAI's chat completions API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      logger.Logger
}

func NewOpenAIProvider(cfg config.OpenAIConfig, timeout time.Duration, log logger.Logger) (*OpenAIProvider, error) {
	apiKey := resolveEnvVar(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      log,
	}, nil
}

func (p *OpenAIProvider) GenerateText(ctx context.Context, system, user string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	resp, err := p.client.CreateChatCompletion(timeoutCtx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Messages:    messages,
	})
	if err != nil {
		p.logger.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	p.logger.Debug("OpenAI API call successful",
		"tokens_used", resp.Usage.TotalTokens,
		"model", p.model)

	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) GetProviderName() string { return "openai" }
func (p *OpenAIProvider) GetModelName() string    { return p.model }
