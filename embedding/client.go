// Package embedding turns text into fixed-length vectors through an
// external provider, one batched round trip per call.
package embedding

import (
	"context"
	"fmt"

	"github.com/hubenschmidt/go-wikidex/config"
)

// Client embeds a batch of texts in one provider round trip, returning
// one vector per input text in order. A provider error fails the whole
// batch.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// New builds the configured provider, wrapped with retry and, when a
// cache size is set, an in-memory content-hash cache.
func New(cfg config.EmbeddingConfig) (Client, error) {
	var client Client

	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedding provider openai: api key not configured")
		}
		client = NewOpenAIClient(cfg)
	case "ollama":
		client = NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		cached, err := NewCachedClient(client, cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
		client = cached
	}
	return client, nil
}
