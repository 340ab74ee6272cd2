package index

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const chromemCollection = "memories"

// Chromem stores vectors in an embedded chromem-go collection. Document IDs
// are the decimal append position. chromem normalizes vectors and ranks by
// cosine similarity, so the reported distance is the squared L2 distance
// between the normalized vectors (2 - 2*similarity).
type Chromem struct {
	mu  sync.RWMutex
	db  *chromem.DB
	col *chromem.Collection
	dim int
	n   int
}

// NewChromem creates an empty chromem-backed index. A dimension of 0 adopts
// the size of the first appended vector.
func NewChromem(dimension int) (*Chromem, error) {
	db, col, err := newCollection()
	if err != nil {
		return nil, err
	}
	return &Chromem{db: db, col: col, dim: dimension}, nil
}

func (c *Chromem) Append(ctx context.Context, vec []float32) (int, error) {
	if len(vec) == 0 {
		return 0, ErrEmptyVector
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dim == 0 {
		c.dim = len(vec)
	}
	if len(vec) != c.dim {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), c.dim)
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	pos := c.n
	doc := chromem.Document{
		ID:        strconv.Itoa(pos),
		Content:   strconv.Itoa(pos),
		Embedding: stored,
	}
	if err := c.col.AddDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("add document: %w", err)
	}
	c.n++
	return pos, nil
}

func (c *Chromem) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if k <= 0 || c.n == 0 {
		return []Hit{}, nil
	}
	if len(query) != c.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), c.dim)
	}

	// chromem picks an arbitrary subset among equal similarities, so rank the
	// whole collection and cut after ordering ties by position.
	results, err := c.col.QueryEmbedding(ctx, query, c.n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		pos, err := strconv.Atoi(r.ID)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{Position: pos, Distance: 2 - 2*r.Similarity})
	}
	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (c *Chromem) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.n
}

func (c *Chromem) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dim
}

// Reset swaps in an empty collection. On error the current contents are kept.
func (c *Chromem) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, col, err := newCollection()
	if err != nil {
		return err
	}
	c.db, c.col, c.n = db, col, 0
	return nil
}

var createCollection = func(db *chromem.DB) (*chromem.Collection, error) {
	return db.CreateCollection(chromemCollection, nil, nil)
}

func newCollection() (*chromem.DB, *chromem.Collection, error) {
	db := chromem.NewDB()
	col, err := createCollection(db)
	if err != nil {
		return nil, nil, fmt.Errorf("create collection: %w", err)
	}
	return db, col, nil
}
