package index

import (
	"context"
	"fmt"
	"sync"
)

// Flat is an exact brute-force index over squared Euclidean distance.
// Appends take the write lock; searches share the read lock.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
}

// NewFlat creates an empty index. A dimension of 0 adopts the size of the
// first appended vector.
func NewFlat(dimension int) *Flat {
	return &Flat{dim: dimension}
}

func (f *Flat) Append(ctx context.Context, vec []float32) (int, error) {
	if len(vec) == 0 {
		return 0, ErrEmptyVector
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dim == 0 {
		f.dim = len(vec)
	}
	if len(vec) != f.dim {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), f.dim)
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)
	f.vectors = append(f.vectors, stored)
	return len(f.vectors) - 1, nil
}

func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if k <= 0 || len(f.vectors) == 0 {
		return []Hit{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), f.dim)
	}

	hits := make([]Hit, len(f.vectors))
	for pos, v := range f.vectors {
		hits[pos] = Hit{Position: pos, Distance: squaredL2(query, v)}
	}
	sortHits(hits)

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

func (f *Flat) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

// Reset drops all vectors but keeps the dimension.
func (f *Flat) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = nil
	return nil
}
