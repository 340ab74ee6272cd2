package provider

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Embedder produces a vector embedding for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CachedEmbedder decorates an Embedder with an in-memory TTL cache keyed by
// the exact input text.
type CachedEmbedder struct {
	inner Embedder
	cache *cache.Cache
}

// NewCachedEmbedder creates a new cached embedder.
// ttl is the expiration time for cached vectors.
func NewCachedEmbedder(inner Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cache: cache.New(ttl, ttl*2),
	}
}

// Embed returns a cached vector or delegates to the inner embedder.
// Callers receive their own copy.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if val, found := e.cache.Get(text); found {
		if vec, ok := val.([]float32); ok {
			return cloneVector(vec), nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		e.cache.Set(text, cloneVector(vec), cache.DefaultExpiration)
	}
	return vec, nil
}

// Len reports the number of cached entries, including expired ones not yet
// evicted.
func (e *CachedEmbedder) Len() int {
	return e.cache.ItemCount()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
