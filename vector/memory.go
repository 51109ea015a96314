package vector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hubenschmidt/go-wikidex/core"
)

// MemoryStore is an in-memory vector store for development and testing.
type MemoryStore struct {
	mu         sync.RWMutex
	points     map[string]point
	vectorSize int
}

// NewMemoryStore creates an in-memory store enforcing vectorSize on writes.
func NewMemoryStore(vectorSize int) *MemoryStore {
	return &MemoryStore{
		points:     make(map[string]point),
		vectorSize: vectorSize,
	}
}

// EnsureCollection is a no-op: the map is the collection.
func (s *MemoryStore) EnsureCollection(ctx context.Context) error {
	return nil
}

// Upsert stores documents keyed by id, overwriting existing points.
func (s *MemoryStore) Upsert(ctx context.Context, docs []core.Document) ([]string, error) {
	for _, doc := range docs {
		if len(doc.Embedding) != s.vectorSize {
			return nil, fmt.Errorf("upsert %q: embedding size %d, collection expects %d",
				doc.ID, len(doc.Embedding), s.vectorSize)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(docs))
	for i, doc := range docs {
		s.points[doc.ID] = point{
			ID:        doc.ID,
			Text:      doc.Text,
			TextMD5:   doc.TextMD5,
			Metadata:  doc.Metadata,
			CreatedAt: now,
			Embedding: doc.Embedding,
		}
		ids[i] = doc.ID
	}
	return ids, nil
}

// Query runs brute-force cosine ranking per query.
func (s *MemoryStore) Query(ctx context.Context, queries []core.Query) ([]core.QueryResult, error) {
	s.mu.RLock()
	candidates := make([]point, 0, len(s.points))
	for _, p := range s.points {
		candidates = append(candidates, p)
	}
	s.mu.RUnlock()

	results := make([]core.QueryResult, len(queries))
	for i, q := range queries {
		results[i] = core.QueryResult{Query: q.Query, Results: rank(candidates, q)}
	}
	return results, nil
}

// Delete removes points per the selector.
func (s *MemoryStore) Delete(ctx context.Context, sel DeleteSelector) (bool, error) {
	if err := sel.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case sel.All:
		s.points = make(map[string]point)
	case len(sel.IDs) > 0:
		for _, id := range sel.IDs {
			delete(s.points, id)
		}
	default:
		for id, p := range s.points {
			if matchesFilter(p, sel.Filter) {
				delete(s.points, id)
			}
		}
	}
	return true, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Count returns the number of stored points.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}
