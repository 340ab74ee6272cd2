package memory

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/felixgeelhaar/recall/internal/index"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/provider"
	"github.com/felixgeelhaar/recall/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "memories.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewEngine(s, index.NewFlat(0), provider.NewStubProvider(), observe.Discard()), s
}

type failingEmbedder struct{ empty bool }

func (f failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.empty {
		return nil, nil
	}
	return nil, errors.New("embedding service down")
}

func TestEngine_IngestPositions(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	contents := []string{
		"The user lives in Krakow",
		"The user bought a Tesla Model S",
		"The user's favorite languages are Python and JavaScript",
	}
	for i, c := range contents {
		entry, err := e.Ingest(ctx, "note-"+strconv.Itoa(i), c, []string{"k"})
		require.NoError(t, err)
		assert.Equal(t, i, entry.VectorPosition)
	}

	assert.Equal(t, 3, e.Len())
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for i := range contents {
		entry, err := s.GetByVectorPosition(ctx, i)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, contents[i], entry.Content)
	}
}

func TestEngine_IngestDuplicateTitle(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	_, err := e.Ingest(ctx, "tesla-ownership", "The user bought a Tesla", nil)
	require.NoError(t, err)

	_, err = e.Ingest(ctx, "tesla-ownership", "The user sold the Tesla", nil)
	assert.ErrorIs(t, err, store.ErrDuplicateTitle)

	assert.Equal(t, 1, e.Len(), "duplicate must not append a vector")
	n, _ := s.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestEngine_IngestEmbeddingFailure(t *testing.T) {
	ctx := context.Background()

	for name, emb := range map[string]Embedder{
		"error":        failingEmbedder{},
		"empty vector": failingEmbedder{empty: true},
	} {
		t.Run(name, func(t *testing.T) {
			s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "memories.db"))
			require.NoError(t, err)
			defer s.Close()

			e := NewEngine(s, index.NewFlat(0), emb, observe.Discard())
			_, err = e.Ingest(ctx, "t", "content", nil)
			assert.ErrorIs(t, err, ErrEmbeddingUnavailable)

			n, _ := s.Count(ctx)
			assert.Equal(t, 0, n)
			assert.Equal(t, 0, e.Len())
		})
	}
}

func TestEngine_RetrieveEmpty(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetQueryEmbedder(failingEmbedder{})

	entries, err := e.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestEngine_Retrieve(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	_, err := e.Ingest(ctx, "place-of-living", "The user lives in Krakow Poland", []string{"krakow"})
	require.NoError(t, err)
	_, err = e.Ingest(ctx, "tesla-ownership", "The user recently bought a Tesla Model S", []string{"tesla"})
	require.NoError(t, err)
	_, err = e.Ingest(ctx, "speed-of-light", "The speed of light is 299792458 meters per second", []string{"physics"})
	require.NoError(t, err)

	t.Run("nearest first", func(t *testing.T) {
		entries, err := e.Retrieve(ctx, "tesla model bought", 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "tesla-ownership", entries[0].Title)
	})

	t.Run("k larger than index", func(t *testing.T) {
		entries, err := e.Retrieve(ctx, "krakow", 50)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
		assert.Equal(t, "place-of-living", entries[0].Title)
	})

	t.Run("default k", func(t *testing.T) {
		entries, err := e.Retrieve(ctx, "light", 0)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("newlines do not change the query", func(t *testing.T) {
		a, _ := e.Retrieve(ctx, "speed of\nlight", 1)
		b, _ := e.Retrieve(ctx, "speed of light", 1)
		require.Len(t, a, 1)
		require.Len(t, b, 1)
		assert.Equal(t, a[0].ID, b[0].ID)
	})

	t.Run("query embedding failure", func(t *testing.T) {
		e.SetQueryEmbedder(failingEmbedder{})
		defer e.SetQueryEmbedder(provider.NewStubProvider())
		_, err := e.Retrieve(ctx, "tesla", 1)
		assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	})
}

func TestEngine_RebuildIdempotent(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	for i, c := range []string{"alpha beta", "gamma delta", "beta gamma", "epsilon"} {
		_, err := e.Ingest(ctx, "n"+strconv.Itoa(i), c, nil)
		require.NoError(t, err)
	}
	before, err := e.Retrieve(ctx, "beta", 4)
	require.NoError(t, err)

	var calls []int
	n, err := e.Rebuild(ctx, func(done, total int) {
		assert.Equal(t, 4, total)
		calls = append(calls, done)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, calls)

	// A fresh engine over the same store sees the same ranking.
	fresh := NewEngine(s, index.NewFlat(0), provider.NewStubProvider(), observe.Discard())
	_, err = fresh.Rebuild(ctx, nil)
	require.NoError(t, err)

	for _, eng := range []*Engine{e, fresh} {
		after, err := eng.Retrieve(ctx, "beta", 4)
		require.NoError(t, err)
		require.Len(t, after, len(before))
		for i := range before {
			assert.Equal(t, before[i].ID, after[i].ID)
		}
	}
}

func TestEngine_RebuildFillsGaps(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	// Position 2 was orphaned in an earlier process.
	for _, pos := range []int{0, 1, 3} {
		_, err := s.Insert(ctx, store.NewEntry{
			Title:          "n" + strconv.Itoa(pos),
			Content:        "entry number " + strconv.Itoa(pos),
			VectorPosition: pos,
		})
		require.NoError(t, err)
	}

	n, err := e.Rebuild(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 4, e.Len())

	entries, err := e.Retrieve(ctx, "entry number 3", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "n3", entries[0].Title)

	// The next ingest continues after the gap.
	entry, err := e.Ingest(ctx, "n4", "entry number 4", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, entry.VectorPosition)
}

// commitFailStore runs the commit hook and then reports a commit failure,
// leaving the appended vector without a row.
type commitFailStore struct {
	*store.SQLiteStore
}

func (c commitFailStore) InsertFunc(ctx context.Context, e store.NewEntry, commit func(*store.MemoryEntry) error) (*store.MemoryEntry, error) {
	if err := commit(&store.MemoryEntry{VectorPosition: e.VectorPosition}); err != nil {
		return nil, err
	}
	return nil, errors.New("disk I/O error")
}

func TestEngine_OrphanedVectorSkipped(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	_, err := e.Ingest(ctx, "first", "krakow poland", nil)
	require.NoError(t, err)

	e.store = commitFailStore{s}
	_, err = e.Ingest(ctx, "lost", "krakow poland city", nil)
	require.Error(t, err)
	assert.Equal(t, 2, e.Len())

	e.store = s
	_, err = e.Ingest(ctx, "third", "tesla model", nil)
	require.NoError(t, err)

	entries, err := e.Retrieve(ctx, "krakow poland city", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Title)
	assert.Equal(t, "third", entries[1].Title)
}

func TestEngine_ConcurrentIngest(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.Ingest(ctx, "n"+strconv.Itoa(i), "content "+strconv.Itoa(i), nil)
			assert.NoError(t, err)
			_, err = e.Retrieve(ctx, "content", 3)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 20, e.Len())
	for pos := 0; pos < 20; pos++ {
		entry, err := s.GetByVectorPosition(ctx, pos)
		require.NoError(t, err)
		require.NotNil(t, entry, "position %d has no entry", pos)
	}
}
