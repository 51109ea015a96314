// Package corpus fetches candidate documents from an external text
// corpus to backfill coverage gaps in the index.
package corpus

import (
	"context"

	"github.com/hubenschmidt/go-wikidex/core"
)

// RawDocument is an unembedded document fetched from the corpus. The
// metadata always carries name, title, source and lang.
type RawDocument struct {
	Text     string
	Metadata core.DocumentMetadata
}

// Name returns the document's corpus name.
func (d RawDocument) Name() string {
	return d.Metadata["name"]
}

// Source searches the corpus for up to topK candidate documents matching
// the query in the given language, skipping excluded titles. Individual
// page-fetch failures are logged and skipped, not batch-fatal.
type Source interface {
	Search(ctx context.Context, query, lang string, topK int, excludeTitles []string) ([]RawDocument, error)
}
