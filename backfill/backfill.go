// Package backfill patches index coverage gaps discovered at query time.
// Each executed query submits a task carrying the query text and the set
// of document names already covering it; workers fetch candidate corpus
// documents, embed them and upsert them. Nothing here ever blocks,
// delays or fails the query path that triggered it.
package backfill

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/hubenschmidt/go-wikidex/config"
	"github.com/hubenschmidt/go-wikidex/core"
	"github.com/hubenschmidt/go-wikidex/corpus"
	"github.com/hubenschmidt/go-wikidex/embedding"
	"github.com/hubenschmidt/go-wikidex/monitor"
	"github.com/hubenschmidt/go-wikidex/vector"
)

// Task is one unit of backfill work.
type Task struct {
	Query        string
	ExcludeNames []string
}

// Backfiller runs a bounded worker pool over submitted tasks.
type Backfiller struct {
	source   corpus.Source
	embedder embedding.Client
	store    vector.Store
	detector Detector
	metrics  *monitor.BackfillCollector
	topK     int

	tasks chan Task
	wg    sync.WaitGroup

	mu     sync.Mutex
	claims map[string]bool
	closed bool
}

// Detector resolves the language of a query.
type Detector interface {
	Detect(text string) string
}

// New starts the worker pool. topK caps how many corpus candidates each
// task fetches.
func New(cfg config.BackfillConfig, topK int, source corpus.Source, embedder embedding.Client,
	store vector.Store, detector Detector, metrics *monitor.BackfillCollector) *Backfiller {

	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	b := &Backfiller{
		source:   source,
		embedder: embedder,
		store:    store,
		detector: detector,
		metrics:  metrics,
		topK:     topK,
		tasks:    make(chan Task, queueSize),
		claims:   make(map[string]bool),
	}

	b.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go b.worker()
	}
	return b
}

// Submit enqueues a task without blocking. It reports false when the
// queue is full or the pool is closed; the gap then persists until a
// future query triggers another attempt. The mutex is held across the
// send so Close cannot close the channel between the closed-check and
// the send.
func (b *Backfiller) Submit(query string, excludeNames []string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}

	select {
	case b.tasks <- Task{Query: query, ExcludeNames: excludeNames}:
		b.metrics.Submitted()
		return true
	default:
		log.Printf("[backfill] queue full, dropping task for query %q", query)
		b.metrics.Dropped()
		return false
	}
}

// Close stops intake and waits for workers to finish queued tasks.
// There is no cancellation of a task already running.
func (b *Backfiller) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.tasks)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Backfiller) worker() {
	defer b.wg.Done()
	for task := range b.tasks {
		b.run(task)
	}
}

// run executes one task end to end. Every failure is logged and
// swallowed: a failed backfill has no user-visible symptom beyond the
// coverage gap persisting.
func (b *Backfiller) run(task Task) {
	ctx := context.Background()

	query := strings.TrimSpace(task.Query)
	excluded := make(map[string]bool, len(task.ExcludeNames))
	for _, name := range task.ExcludeNames {
		excluded[name] = true
	}

	lang := b.detector.Detect(query)

	raw, err := b.source.Search(ctx, query, lang, b.topK, task.ExcludeNames)
	if err != nil {
		log.Printf("[backfill] corpus search for %q: %v", query, err)
		b.metrics.Failed()
		return
	}

	// Re-check the exclusion set, drop contentless candidates and claim
	// each name so a concurrent task for the same gap cannot upsert the
	// same document twice.
	var docs []core.Document
	var claimed []string
	defer func() { b.release(claimed) }()

	for _, rd := range raw {
		name := rd.Name()
		if excluded[name] || strings.TrimSpace(rd.Text) == "" {
			continue
		}
		if !b.claim(name) {
			log.Printf("[backfill] document %q already being indexed, skipping", name)
			continue
		}
		claimed = append(claimed, name)
		docs = append(docs, core.NormalizeDocument(core.Document{
			Text:     rd.Text,
			Metadata: rd.Metadata,
		}))
	}
	if len(docs) == 0 {
		b.metrics.Succeeded(0)
		return
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	vectors, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		log.Printf("[backfill] embed %d documents for %q: %v", len(docs), query, err)
		b.metrics.Failed()
		return
	}
	for i := range docs {
		docs[i].Embedding = vectors[i]
	}

	if _, err := b.store.Upsert(ctx, docs); err != nil {
		log.Printf("[backfill] upsert %d documents for %q: %v", len(docs), query, err)
		b.metrics.Failed()
		return
	}

	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.Metadata["name"]
	}
	log.Printf("[backfill] upserted %d documents from wiki: %s", len(docs), strings.Join(names, ", "))
	b.metrics.Succeeded(len(docs))
}

func (b *Backfiller) claim(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.claims[name] {
		return false
	}
	b.claims[name] = true
	return true
}

func (b *Backfiller) release(names []string) {
	if len(names) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range names {
		delete(b.claims, name)
	}
}
