// Package wikidex provides a retrieval-augmented document index: clients
// submit text documents, issue semantic queries over them, and the index
// backfills thin query coverage from a MediaWiki corpus in the background.
//
// Example usage:
//
//	cfg := config.Default()
//	store, _ := vector.NewStore(cfg.Store)
//	embedder, _ := embedding.New(cfg.Embedding)
//	srv, _ := server.New(server.Config{
//	    Store:       store,
//	    Embedder:    embedder,
//	    DefaultTopK: cfg.Store.DefaultTopK,
//	    MaxTopK:     cfg.Store.MaxTopK,
//	})
//	http.ListenAndServe(":8000", srv.Handler())
package wikidex

import (
	"github.com/hubenschmidt/go-wikidex/backfill"
	"github.com/hubenschmidt/go-wikidex/config"
	"github.com/hubenschmidt/go-wikidex/core"
	"github.com/hubenschmidt/go-wikidex/corpus"
	"github.com/hubenschmidt/go-wikidex/embedding"
	"github.com/hubenschmidt/go-wikidex/monitor"
	"github.com/hubenschmidt/go-wikidex/server"
	"github.com/hubenschmidt/go-wikidex/vector"
)

// Core type aliases
type (
	Document       = core.Document
	Query          = core.Query
	QueryResult    = core.QueryResult
	ScoredDocument = core.ScoredDocument
	MetadataFilter = core.MetadataFilter
)

// Config aliases
type (
	Config         = config.Config
	StoreConfig    = config.StoreConfig
	CorpusConfig   = config.CorpusConfig
	BackfillConfig = config.BackfillConfig
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Vector store aliases
type (
	VectorStore    = vector.Store
	DeleteSelector = vector.DeleteSelector
)

// NewVectorStore selects a store backend from the configuration DSN.
func NewVectorStore(cfg config.StoreConfig) (vector.Store, error) {
	return vector.NewStore(cfg)
}

// NewMemoryVectorStore creates an in-memory vector store.
func NewMemoryVectorStore(vectorSize int) *vector.MemoryStore {
	return vector.NewMemoryStore(vectorSize)
}

// Embedding aliases
type EmbeddingClient = embedding.Client

// NewEmbeddingClient builds the configured embedding provider.
func NewEmbeddingClient(cfg config.EmbeddingConfig) (embedding.Client, error) {
	return embedding.New(cfg)
}

// Corpus aliases
type (
	CorpusSource = corpus.Source
	RawDocument  = corpus.RawDocument
)

// NewWikiClient creates a MediaWiki corpus source.
func NewWikiClient(cfg config.CorpusConfig) *corpus.WikiClient {
	return corpus.NewWikiClient(cfg)
}

// Backfill aliases
type (
	Backfiller        = backfill.Backfiller
	BackfillCollector = monitor.BackfillCollector
)

// Server aliases
type (
	Server       = server.Server
	ServerConfig = server.Config
)

// NewServer creates a new API server.
func NewServer(cfg server.Config) (*server.Server, error) {
	return server.New(cfg)
}
