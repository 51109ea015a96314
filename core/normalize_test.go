package core

import (
	"crypto/md5"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextMD5_TrimsBeforeHashing(t *testing.T) {
	want := fmt.Sprintf("%x", md5.Sum([]byte("Hello world")))

	tests := []struct {
		name string
		text string
	}{
		{"no padding", "Hello world"},
		{"leading spaces", "   Hello world"},
		{"trailing newline", "Hello world\n"},
		{"both", " \t Hello world \n "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, TextMD5(tt.text))
		})
	}
}

func TestNormalizeDocument_AssignsID(t *testing.T) {
	doc := NormalizeDocument(Document{Text: "Hello world"})

	_, err := uuid.Parse(doc.ID)
	require.NoError(t, err, "assigned id must be a valid uuid")

	other := NormalizeDocument(Document{Text: "Hello world"})
	assert.NotEqual(t, doc.ID, other.ID, "each document gets a fresh id")
}

func TestNormalizeDocument_KeepsSuppliedID(t *testing.T) {
	doc := NormalizeDocument(Document{ID: "doc-1", Text: "Hello"})
	assert.Equal(t, "doc-1", doc.ID)
}

func TestNormalizeDocument_TrimsAndHashes(t *testing.T) {
	doc := NormalizeDocument(Document{Text: "  Hello world  "})

	assert.Equal(t, "Hello world", doc.Text)
	assert.Equal(t, TextMD5("Hello world"), doc.TextMD5)
	assert.NotNil(t, doc.Metadata, "nil metadata defaults to empty map")
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name     string
		topK     int
		wantTopK int
	}{
		{"unset defaults", 0, 3},
		{"negative defaults", -1, 3},
		{"within max kept", 7, 7},
		{"above max clamped", 100, 10},
		{"at max kept", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NormalizeQuery(Query{Query: "  Hello  ", TopK: tt.topK}, 3, 10)
			assert.Equal(t, "Hello", q.Query)
			assert.Equal(t, tt.wantTopK, q.TopK)
		})
	}
}

func TestMetadataFilterIsZero(t *testing.T) {
	var nilFilter *MetadataFilter
	assert.True(t, nilFilter.IsZero())
	assert.True(t, (&MetadataFilter{}).IsZero())
	assert.False(t, (&MetadataFilter{Source: "wiki"}).IsZero())
	assert.False(t, (&MetadataFilter{SourceID: "enwiki-42"}).IsZero())
	assert.False(t, (&MetadataFilter{StartDate: "2024-01-01T00:00:00Z"}).IsZero())
}
