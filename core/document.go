// Package core defines the document and query model shared by every component.
package core

// DocumentMetadata is an open mapping of metadata fields such as
// name, title, source, author, url or created_at.
type DocumentMetadata = map[string]string

// Document is a text document indexed by the service. Embedding is nil
// until computed; once set its length must match the collection's
// vector size, which the store backend enforces.
type Document struct {
	ID        string           `json:"id,omitempty"`
	Text      string           `json:"text"`
	TextMD5   string           `json:"text_md5,omitempty"`
	Metadata  DocumentMetadata `json:"metadata,omitempty"`
	Embedding []float64        `json:"embedding,omitempty"`
}

// MetadataFilter selects documents by metadata equality and an optional
// created_at range. Zero-valued fields are ignored.
type MetadataFilter struct {
	DocumentID string `json:"document_id,omitempty"`
	Source     string `json:"source,omitempty"`
	SourceID   string `json:"source_id,omitempty"`
	Author     string `json:"author,omitempty"`
	StartDate  string `json:"start_date,omitempty"` // inclusive, RFC 3339
	EndDate    string `json:"end_date,omitempty"`   // inclusive, RFC 3339
}

// IsZero reports whether the filter constrains nothing.
func (f *MetadataFilter) IsZero() bool {
	if f == nil {
		return true
	}
	return f.DocumentID == "" && f.Source == "" && f.SourceID == "" &&
		f.Author == "" && f.StartDate == "" && f.EndDate == ""
}

// Query is a nearest-neighbor search request.
type Query struct {
	Query     string          `json:"query"`
	Filter    *MetadataFilter `json:"filter,omitempty"`
	TopK      int             `json:"top_k,omitempty"`
	Embedding []float64       `json:"embedding,omitempty"`
}

// ScoredDocument is a query hit. Score is the similarity reported by the
// backend, higher is more similar. The stored vector is not carried.
type ScoredDocument struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	TextMD5   string           `json:"text_md5,omitempty"`
	Metadata  DocumentMetadata `json:"metadata,omitempty"`
	CreatedAt string           `json:"created_at,omitempty"`
	Score     float64          `json:"score"`
}

// QueryResult pairs the original query text with its hits, ordered by
// descending score. Tie order is backend-defined.
type QueryResult struct {
	Query   string           `json:"query"`
	Results []ScoredDocument `json:"results"`
}

// Name returns the document's metadata name, or "" when unset.
func (d *ScoredDocument) Name() string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata["name"]
}
