// Package vector provides durable, queryable persistence of embedded
// documents within a named collection, with nearest-neighbor search.
package vector

import (
	"context"
	"fmt"

	"github.com/hubenschmidt/go-wikidex/core"
)

// DeleteSelector picks the documents a Delete call removes. Exactly one
// of IDs, Filter or All must be set.
type DeleteSelector struct {
	IDs    []string
	Filter *core.MetadataFilter
	All    bool
}

// Validate enforces the one-selection-mode contract.
func (s DeleteSelector) Validate() error {
	modes := 0
	if len(s.IDs) > 0 {
		modes++
	}
	if !s.Filter.IsZero() {
		modes++
	}
	if s.All {
		modes++
	}
	if modes == 0 {
		return fmt.Errorf("%w: one of ids, filter or delete_all is required", core.ErrValidation)
	}
	if modes > 1 {
		return fmt.Errorf("%w: ids, filter and delete_all are mutually exclusive", core.ErrValidation)
	}
	return nil
}

// Store persists embedded documents and serves nearest-neighbor search.
// One Store instance is bound to one collection with a fixed vector size
// and distance metric.
type Store interface {
	// EnsureCollection creates the collection with the configured vector
	// size and distance metric if it does not exist. Idempotent; it never
	// re-creates an existing collection. Errors other than "not found"
	// propagate to the caller.
	EnsureCollection(ctx context.Context) error

	// Upsert persists documents whose embeddings are set, keyed by id,
	// overwriting existing points. The write is acknowledged durable
	// before return and is all-or-nothing for the batch. Returned ids
	// preserve input order.
	Upsert(ctx context.Context, docs []core.Document) ([]string, error)

	// Query runs one nearest-neighbor sub-search per query using its
	// embedding, TopK and optional metadata filter. Results preserve the
	// input query order and carry payload, never raw vectors.
	Query(ctx context.Context, queries []core.Query) ([]core.QueryResult, error)

	// Delete removes documents per the selector and reports whether the
	// backend applied the delete fully.
	Delete(ctx context.Context, sel DeleteSelector) (bool, error)

	// Close releases resources.
	Close() error
}
