// Package config loads the service configuration. The value is built once
// at startup and threaded into every component constructor; nothing in the
// repository reads configuration through globals.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the wikidex service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Backfill  BackfillConfig  `yaml:"backfill"`
	Languages []string        `yaml:"languages"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig selects and sizes the vector store backend.
// DSN dispatch: postgres:// or postgresql:// selects pgvector, any other
// non-empty value is a sqlite path, empty selects the in-memory store.
type StoreConfig struct {
	DSN         string `yaml:"dsn"`
	Collection  string `yaml:"collection"`
	VectorSize  int    `yaml:"vector_size"`
	Distance    string `yaml:"distance"`
	DefaultTopK int    `yaml:"default_top_k"`
	MaxTopK     int    `yaml:"max_top_k"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai" or "ollama"
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	TimeoutS  int    `yaml:"timeout_seconds"`
	CacheSize int    `yaml:"cache_size"`
}

// CorpusConfig bounds the MediaWiki source. TimeoutS is clamped to
// [MinTimeoutS, MaxTimeoutS] per call.
type CorpusConfig struct {
	DefaultLang string `yaml:"default_lang"`
	TopK        int    `yaml:"top_k"`
	Sentences   int    `yaml:"sentences"`
	Chars       int    `yaml:"chars"`
	TimeoutS    int    `yaml:"timeout_seconds"`
	MinTimeoutS int    `yaml:"min_timeout_seconds"`
	MaxTimeoutS int    `yaml:"max_timeout_seconds"`
	Concurrent  int    `yaml:"concurrent"`
}

type BackfillConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// Default returns the configuration used when no file or field overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8000"},
		Store: StoreConfig{
			Collection:  "wikidex",
			VectorSize:  1536,
			Distance:    "cosine",
			DefaultTopK: 3,
			MaxTopK:     30,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			TimeoutS:  60,
			CacheSize: 10000,
		},
		Corpus: CorpusConfig{
			DefaultLang: "en",
			TopK:        5,
			Sentences:   4,
			Chars:       4000,
			TimeoutS:    15,
			MinTimeoutS: 1,
			MaxTimeoutS: 120,
			Concurrent:  2,
		},
		Backfill: BackfillConfig{
			Workers:   2,
			QueueSize: 64,
		},
		Languages: []string{"english"},
	}
}

// Load reads a YAML config file over Default. Environment references of
// the form ${VAR} or ${VAR:-fallback} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	data = []byte(expandEnvVars(string(data)))

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the components cannot run with.
func (c *Config) Validate() error {
	if c.Store.VectorSize <= 0 {
		return fmt.Errorf("store.vector_size must be positive, got %d", c.Store.VectorSize)
	}
	if c.Store.MaxTopK <= 0 {
		return fmt.Errorf("store.max_top_k must be positive, got %d", c.Store.MaxTopK)
	}
	if c.Store.DefaultTopK <= 0 || c.Store.DefaultTopK > c.Store.MaxTopK {
		return fmt.Errorf("store.default_top_k must be in [1, %d], got %d", c.Store.MaxTopK, c.Store.DefaultTopK)
	}
	if c.Backfill.Workers <= 0 {
		return fmt.Errorf("backfill.workers must be positive, got %d", c.Backfill.Workers)
	}
	if c.Corpus.MinTimeoutS > c.Corpus.MaxTimeoutS {
		return fmt.Errorf("corpus timeout bounds inverted: min %d > max %d", c.Corpus.MinTimeoutS, c.Corpus.MaxTimeoutS)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// expandEnvVars replaces ${VAR} with its environment value, using the
// ${VAR:-fallback} form when the variable is unset or empty.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		val, ok := os.LookupEnv(groups[1])
		if ok && val != "" {
			return val
		}
		if len(groups) >= 3 && groups[2] != "" {
			return groups[2]
		}
		return match
	})
}
