package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hubenschmidt/go-wikidex/config"
	"github.com/hubenschmidt/go-wikidex/core"
)

// OllamaClient calls Ollama's native embedding API.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
	retry   RetryConfig
}

// NewOllamaClient creates a client for Ollama's /api/embed endpoint.
func NewOllamaClient(cfg config.EmbeddingConfig) *OllamaClient {
	host := cfg.BaseURL
	if host == "" {
		host = "http://localhost:11434"
	}
	host = strings.TrimSuffix(host, "/")
	host = strings.TrimSuffix(host, "/v1")
	timeout := cfg.TimeoutS
	if timeout <= 0 {
		timeout = 60
	}
	return &OllamaClient{
		baseURL: host,
		model:   cfg.Model,
		client:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
		retry:   DefaultRetryConfig(),
	}
}

// Embed sends the whole batch in a single request. Ollama's /api/embed
// accepts an array input and returns embeddings in input order.
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return retryWithBackoff(ctx, c.retry, func() ([][]float64, error) {
		return c.embed(ctx, texts)
	})
}

func (c *OllamaClient) embed(ctx context.Context, texts []string) ([][]float64, error) {
	reqBody := map[string]any{
		"model": c.model,
		"input": texts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: Ollama API error (status %d): %s", core.ErrProvider, resp.StatusCode, string(respBody))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}
	return result.Embeddings, nil
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}
