package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hubenschmidt/go-wikidex/core"
)

// CachedClient wraps a Client with an LRU cache keyed by the md5 of the
// trimmed text, so repeated indexing of identical content skips the
// provider round trip.
type CachedClient struct {
	inner Client
	cache *lru.Cache[string, []float64]
}

// NewCachedClient wraps inner with a cache of at most size entries.
func NewCachedClient(inner Client, size int) (*CachedClient, error) {
	cache, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, err
	}
	return &CachedClient{inner: inner, cache: cache}, nil
}

// Embed serves cached vectors where possible and batches the misses
// into a single inner call. A provider error still fails the whole batch.
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if v, ok := c.cache.Get(core.TextMD5(text)); ok {
			vectors[i] = cloneVector(v)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fetched, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, v := range fetched {
		i := missIdx[j]
		vectors[i] = v
		c.cache.Add(core.TextMD5(texts[i]), cloneVector(v))
	}
	return vectors, nil
}

// Len returns the current cache size.
func (c *CachedClient) Len() int {
	return c.cache.Len()
}

// cloneVector guards the cache against caller mutation.
func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
