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

// OllamaProvider implements LLMService using a local Ollama instance.
type OllamaProvider struct {
	baseURL string
	model   string
	timeout time.Duration
	logger  logger.Logger
	client  *http.Client
}

func NewOllamaProvider(cfg config.OllamaConfig, timeout time.Duration, log logger.Logger) (*OllamaProvider, error) {
	endpoint := resolveEnvVar(cfg.Endpoint)
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}

	return &OllamaProvider{
		baseURL: strings.TrimRight(endpoint, "/"),
		model:   cfg.Model,
		timeout: timeout,
		logger:  log,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (p *OllamaProvider) GenerateText(ctx context.Context, system, user string) (string, error) {
	reqBody := map[string]interface{}{
		"model":  p.model,
		"prompt": user,
		"stream": false,
	}
	if system != "" {
		reqBody["system"] = system
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("Ollama API call failed", "error", err)
		return "", fmt.Errorf("Ollama API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		p.logger.Error("Ollama API error", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("Ollama API returned status %d", resp.StatusCode)
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Response == "" {
		return "", fmt.Errorf("Ollama returned empty response")
	}

	return result.Response, nil
}

// EmbedText generates an embedding via Ollama's embeddings API.
func (p *OllamaProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model":  p.model,
		"prompt": text,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Ollama embeddings error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama embeddings returned status %d", resp.StatusCode)
	}

	var result struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}
	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

func (p *OllamaProvider) GetProviderName() string { return "ollama" }
func (p *OllamaProvider) GetModelName() string    { return p.model }
