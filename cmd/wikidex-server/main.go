package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/hubenschmidt/go-wikidex/backfill"
	"github.com/hubenschmidt/go-wikidex/config"
	"github.com/hubenschmidt/go-wikidex/corpus"
	"github.com/hubenschmidt/go-wikidex/embedding"
	"github.com/hubenschmidt/go-wikidex/language"
	"github.com/hubenschmidt/go-wikidex/monitor"
	"github.com/hubenschmidt/go-wikidex/server"
	"github.com/hubenschmidt/go-wikidex/vector"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}

	store, err := vector.NewStore(cfg.Store)
	if err != nil {
		log.Fatalf("[vector] initialize store: %v", err)
	}
	defer store.Close()

	// Provisioning the collection must succeed before serving traffic.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("[vector] ensure collection %q: %v", cfg.Store.Collection, err)
	}
	cancel()
	log.Printf("[vector] collection %q ready", cfg.Store.Collection)

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		log.Fatalf("[embedding] %v", err)
	}
	log.Printf("[embedding] using %s (%s)", cfg.Embedding.Provider, cfg.Embedding.Model)

	detector := language.New(cfg.Languages, cfg.Corpus.DefaultLang)
	wiki := corpus.NewWikiClient(cfg.Corpus)
	metrics := monitor.NewBackfillCollector()

	backfiller := backfill.New(cfg.Backfill, cfg.Corpus.TopK, wiki, embedder, store, detector, metrics)
	defer backfiller.Close()
	log.Printf("[backfill] %d workers, queue size %d", cfg.Backfill.Workers, cfg.Backfill.QueueSize)

	srv, err := server.New(server.Config{
		Store:       store,
		Embedder:    embedder,
		Backfiller:  backfiller,
		Metrics:     metrics,
		DefaultTopK: cfg.Store.DefaultTopK,
		MaxTopK:     cfg.Store.MaxTopK,
	})
	if err != nil {
		log.Fatalf("[server] %v", err)
	}

	addr := getEnvOr("ADDR", cfg.Server.Addr)
	log.Printf("[server] listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, srv.Handler()))
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return config.Load(path)
	}
	cfg := config.Default()
	cfg.Store.DSN = getEnvOr("DATABASE_DSN", cfg.Store.DSN)
	return cfg, cfg.Validate()
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
