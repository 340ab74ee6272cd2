package memory

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/recall/internal/store"
)

// ErrEmbeddingUnavailable is returned when the embedder fails or yields an
// empty vector.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// DefaultTopK is used when Retrieve is called with k <= 0.
const DefaultTopK = 5

// Memory defines the interface for long-term storage and retrieval.
type Memory interface {
	// Ingest embeds content and stores it as a new entry.
	Ingest(ctx context.Context, title, content string, keywords []string) (*store.MemoryEntry, error)

	// Retrieve finds the entries most similar to query, nearest first.
	Retrieve(ctx context.Context, query string, k int) ([]*store.MemoryEntry, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
