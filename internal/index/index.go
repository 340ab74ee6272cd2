// Package index holds the in-memory nearest-neighbor structures that back
// memory retrieval. Vectors are addressed by their append position, which is
// the key the metadata store records for every entry.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyVector is returned for zero-length vectors.
	ErrEmptyVector = errors.New("empty vector")
)

// Hit is a single search result.
type Hit struct {
	Position int
	Distance float32 // Squared L2
}

// Index is an append-only nearest-neighbor index.
type Index interface {
	// Append adds a vector and returns its 0-based position, which always
	// equals the number of vectors appended before it.
	Append(ctx context.Context, vec []float32) (int, error)

	// Search returns up to k hits ordered by ascending distance, ties broken
	// by lower position.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)

	// Len returns the number of stored vectors.
	Len() int

	// Dimension returns the fixed vector size, or 0 if not yet known.
	Dimension() int

	// Reset drops all vectors. On error the index is left unchanged.
	Reset() error
}

// Rebuild replaces the contents of idx with vectors, appended in order.
func Rebuild(ctx context.Context, idx Index, vectors [][]float32) error {
	if err := idx.Reset(); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	for _, v := range vectors {
		if _, err := idx.Append(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Position < hits[j].Position
	})
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
