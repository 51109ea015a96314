// Package server exposes the document index over HTTP.
package server

import (
	"fmt"
	"net/http"

	"github.com/hubenschmidt/go-wikidex/embedding"
	"github.com/hubenschmidt/go-wikidex/monitor"
	"github.com/hubenschmidt/go-wikidex/vector"
)

// BackfillSubmitter dispatches a post-query backfill task. Submission
// must never block the caller.
type BackfillSubmitter interface {
	Submit(query string, excludeNames []string) bool
}

// Config configures a new Server instance.
type Config struct {
	Store      vector.Store
	Embedder   embedding.Client
	Backfiller BackfillSubmitter         // optional: nil disables backfill
	Metrics    *monitor.BackfillCollector // optional: nil disables /metrics/backfill

	DefaultTopK int
	MaxTopK     int
}

// Server is the HTTP front of the document index.
type Server struct {
	store      vector.Store
	embedder   embedding.Client
	backfiller BackfillSubmitter
	metrics    *monitor.BackfillCollector

	defaultTopK int
	maxTopK     int
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server: store is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("server: embedder is required")
	}

	defaultTopK := cfg.DefaultTopK
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	maxTopK := cfg.MaxTopK
	if maxTopK <= 0 {
		maxTopK = 30
	}

	return &Server{
		store:       cfg.Store,
		embedder:    cfg.Embedder,
		backfiller:  cfg.Backfiller,
		metrics:     cfg.Metrics,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
	}, nil
}

// Handler returns an http.Handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /upsert", s.handleUpsert)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /sub/query", s.handleQuery)
	mux.HandleFunc("DELETE /delete", s.handleDelete)
	mux.HandleFunc("GET /metrics/backfill", s.handleBackfillMetrics)

	return corsMiddleware(mux)
}

// Close closes the backing store.
func (s *Server) Close() error {
	return s.store.Close()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
