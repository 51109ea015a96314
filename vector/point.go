package vector

import (
	"sort"

	"github.com/hubenschmidt/go-wikidex/core"
)

// point is the persisted shape of a document: the payload returned from
// queries plus the vector, which never leaves the store.
type point struct {
	ID        string
	Text      string
	TextMD5   string
	Metadata  core.DocumentMetadata
	CreatedAt string
	Embedding []float64
}

func (p point) scored(score float64) core.ScoredDocument {
	return core.ScoredDocument{
		ID:        p.ID,
		Text:      p.Text,
		TextMD5:   p.TextMD5,
		Metadata:  p.Metadata,
		CreatedAt: p.CreatedAt,
		Score:     score,
	}
}

// matchesFilter applies the metadata predicate to a point. RFC 3339
// timestamps compare correctly as strings, so the date bounds are plain
// string comparisons.
func matchesFilter(p point, f *core.MetadataFilter) bool {
	if f.IsZero() {
		return true
	}
	if f.DocumentID != "" && p.ID != f.DocumentID {
		return false
	}
	if f.Source != "" && p.Metadata["source"] != f.Source {
		return false
	}
	if f.SourceID != "" && p.Metadata["source_id"] != f.SourceID {
		return false
	}
	if f.Author != "" && p.Metadata["author"] != f.Author {
		return false
	}
	if f.StartDate != "" && p.CreatedAt < f.StartDate {
		return false
	}
	if f.EndDate != "" && p.CreatedAt > f.EndDate {
		return false
	}
	return true
}

// rank scores the candidate points against the query embedding and
// returns the TopK best, descending. Tie order is unspecified.
func rank(points []point, q core.Query) []core.ScoredDocument {
	results := make([]core.ScoredDocument, 0, len(points))
	for _, p := range points {
		if len(p.Embedding) == 0 || !matchesFilter(p, q.Filter) {
			continue
		}
		results = append(results, p.scored(CosineSimilarity(q.Embedding, p.Embedding)))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if q.TopK > 0 && len(results) > q.TopK {
		results = results[:q.TopK]
	}
	return results
}
