package core

import (
	"crypto/md5"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TextMD5 returns the md5 hex digest of text with surrounding whitespace
// removed. It is the content identity used for dedup.
func TextMD5(text string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(text)))
	return fmt.Sprintf("%x", sum)
}

// NormalizeDocument trims the text, assigns a fresh id when absent,
// derives TextMD5 and defaults nil metadata. Applied once at ingestion.
func NormalizeDocument(doc Document) Document {
	doc.Text = strings.TrimSpace(doc.Text)
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.TextMD5 = TextMD5(doc.Text)
	if doc.Metadata == nil {
		doc.Metadata = DocumentMetadata{}
	}
	return doc
}

// NormalizeQuery trims the query text and defaults then clamps TopK.
// The clamp is silent: a TopK above maxTopK becomes maxTopK, never an error.
func NormalizeQuery(q Query, defaultTopK, maxTopK int) Query {
	q.Query = strings.TrimSpace(q.Query)
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return q
}
