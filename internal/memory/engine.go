package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/recall/internal/index"
	"github.com/felixgeelhaar/recall/internal/metrics"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/store"
)

// Engine keeps the vector index and the metadata store in step. Every stored
// entry's VectorPosition is the ordinal of its embedding in the index.
type Engine struct {
	mu            sync.Mutex // serializes Ingest and Rebuild
	store         store.Storage
	index         index.Index
	embedder      Embedder
	queryEmbedder Embedder
	observe       *observe.Observer

	// orphans counts index positions with no matching row. Retrieve widens
	// its search by this much so k resolvable entries can still be returned.
	orphans atomic.Int64
}

func NewEngine(s store.Storage, idx index.Index, e Embedder, o *observe.Observer) *Engine {
	return &Engine{
		store:         s,
		index:         idx,
		embedder:      e,
		queryEmbedder: e,
		observe:       o,
	}
}

// SetQueryEmbedder installs a separate embedder for Retrieve, typically a
// cached one. Ingest and Rebuild always use the primary embedder.
func (e *Engine) SetQueryEmbedder(qe Embedder) {
	if qe != nil {
		e.queryEmbedder = qe
	}
}

// Len reports the number of vectors in the index.
func (e *Engine) Len() int {
	return e.index.Len()
}

func (e *Engine) embed(ctx context.Context, emb Embedder, purpose, text string) ([]float32, error) {
	start := time.Now()
	vec, err := emb.Embed(ctx, strings.ReplaceAll(text, "\n", " "))
	metrics.EmbeddingLatency.WithLabelValues(purpose).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingUnavailable)
	}
	return vec, nil
}

// Ingest embeds content and writes the vector and the row as one unit. The row
// is inserted in an open transaction, the vector is appended, then the
// transaction commits. A duplicate title fails before anything is appended.
func (e *Engine) Ingest(ctx context.Context, title, content string, keywords []string) (*store.MemoryEntry, error) {
	ctx, span := e.observe.StartSpan(ctx, "memory.Ingest")
	defer span.End()

	vec, err := e.embed(ctx, e.embedder, "ingest", content)
	if err != nil {
		metrics.MemoriesIngested.WithLabelValues(metrics.ResultError).Inc()
		e.observe.Log().Warn().Str("title", title).Err(err).Msg("failed to embed memory")
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos := e.index.Len()
	appended := false
	entry, err := e.store.InsertFunc(ctx, store.NewEntry{
		Title:          title,
		Content:        content,
		Keywords:       keywords,
		VectorPosition: pos,
	}, func(*store.MemoryEntry) error {
		got, err := e.index.Append(ctx, vec)
		if err != nil {
			return fmt.Errorf("append vector: %w", err)
		}
		appended = true
		if got != pos {
			return fmt.Errorf("vector landed at position %d, want %d", got, pos)
		}
		return nil
	})
	if err != nil {
		if appended {
			// The vector is in the index but its row is gone.
			e.orphans.Add(1)
			e.observe.Log().Error().Int("position", pos).Err(err).Msg("orphaned vector after failed commit")
		}
		result := metrics.ResultError
		if errors.Is(err, store.ErrDuplicateTitle) {
			result = metrics.ResultDuplicate
		}
		metrics.MemoriesIngested.WithLabelValues(result).Inc()
		e.observe.Log().Warn().Str("title", title).Err(err).Msg("failed to store memory")
		return nil, err
	}

	metrics.MemoriesIngested.WithLabelValues(metrics.ResultOK).Inc()
	metrics.IndexVectors.Set(float64(e.index.Len()))
	e.observe.Log().Info().
		Str("title", entry.Title).
		Int("position", entry.VectorPosition).
		Int("keywords", len(entry.Keywords)).
		Msg("memory stored")
	return entry, nil
}

// Retrieve returns up to k entries nearest to query, in ascending distance.
// Positions with no row are skipped. k <= 0 means DefaultTopK.
func (e *Engine) Retrieve(ctx context.Context, query string, k int) ([]*store.MemoryEntry, error) {
	ctx, span := e.observe.StartSpan(ctx, "memory.Retrieve")
	defer span.End()

	if k <= 0 {
		k = DefaultTopK
	}
	if e.index.Len() == 0 {
		metrics.Retrievals.WithLabelValues(metrics.ResultOK).Inc()
		metrics.RetrievedEntries.Observe(0)
		return []*store.MemoryEntry{}, nil
	}

	vec, err := e.embed(ctx, e.queryEmbedder, "query", query)
	if err != nil {
		metrics.Retrievals.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	hits, err := e.index.Search(ctx, vec, k+int(e.orphans.Load()))
	if err != nil {
		metrics.Retrievals.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("search index: %w", err)
	}

	entries := make([]*store.MemoryEntry, 0, len(hits))
	for _, h := range hits {
		if len(entries) == k {
			break
		}
		if h.Position < 0 {
			continue
		}
		entry, err := e.store.GetByVectorPosition(ctx, h.Position)
		if err != nil {
			metrics.Retrievals.WithLabelValues(metrics.ResultError).Inc()
			return nil, err
		}
		if entry == nil {
			e.observe.Log().Debug().Int("position", h.Position).Msg("no entry for vector position")
			continue
		}
		entries = append(entries, entry)
	}

	metrics.Retrievals.WithLabelValues(metrics.ResultOK).Inc()
	metrics.RetrievedEntries.Observe(float64(len(entries)))
	e.observe.Log().Info().Int("hits", len(hits)).Int("entries", len(entries)).Msg("retrieved memories")
	return entries, nil
}

// Rebuild re-embeds every stored content in position order and replaces the
// index contents. Missing positions (left by vectors orphaned in an earlier
// process) are filled with a copy of the next vector so stored positions keep
// matching index ordinals. progress may be nil. Returns the number of entries
// embedded.
func (e *Engine) Rebuild(ctx context.Context, progress func(done, total int)) (int, error) {
	ctx, span := e.observe.StartSpan(ctx, "memory.Rebuild")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.store.ListContents(ctx)
	if err != nil {
		return 0, err
	}

	total := len(rows)
	if progress != nil {
		progress(0, total)
	}

	vectors := make([][]float32, 0, total)
	var gaps int64
	for i, row := range rows {
		vec, err := e.embed(ctx, e.embedder, "rebuild", row.Content)
		if err != nil {
			return 0, fmt.Errorf("rebuild position %d: %w", row.VectorPosition, err)
		}
		if row.VectorPosition < len(vectors) {
			e.observe.Log().Warn().Int("position", row.VectorPosition).Msg("duplicate vector position, skipping")
			if progress != nil {
				progress(i+1, total)
			}
			continue
		}
		for len(vectors) < row.VectorPosition {
			e.observe.Log().Warn().Int("position", len(vectors)).Msg("no entry for vector position, filling gap")
			vectors = append(vectors, vec)
			gaps++
		}
		vectors = append(vectors, vec)
		if progress != nil {
			progress(i+1, total)
		}
	}

	if err := index.Rebuild(ctx, e.index, vectors); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	e.orphans.Store(gaps)
	metrics.IndexVectors.Set(float64(e.index.Len()))

	e.observe.Log().Info().Int("entries", total).Int("vectors", len(vectors)).Msg("index rebuilt")
	return total, nil
}
