package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/callcoach/callcoach-core/internal/config"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// AnthropicProvider implements LLMService using Anthropic's messages API.
type AnthropicProvider struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	timeout   time.Duration
	logger    logger.Logger
	client    *http.Client
}

func NewAnthropicProvider(cfg config.AnthropicConfig, timeout time.Duration, log logger.Logger) (*AnthropicProvider, error) {
	apiKey := resolveEnvVar(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/") + "/v1/messages"

	return &AnthropicProvider{
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   timeout,
		logger:    log,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (p *AnthropicProvider) GenerateText(ctx context.Context, system, user string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      p.model,
		"max_tokens": p.maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}
	if system != "" {
		reqBody["system"] = system
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("Anthropic API call failed", "error", err)
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		p.logger.Error("Anthropic API error", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("Anthropic API returned status %d", resp.StatusCode)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("Anthropic returned no content")
	}

	return result.Content[0].Text, nil
}

func (p *AnthropicProvider) GetProviderName() string { return "anthropic" }
func (p *AnthropicProvider) GetModelName() string    { return p.model }
