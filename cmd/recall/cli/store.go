package cli

import (
	"context"

	"github.com/felixgeelhaar/recall/internal/graph"
	"github.com/felixgeelhaar/recall/internal/store"
)

// storeDeps is the slice of the stack that needs no model provider.
type storeDeps struct {
	store *store.SQLiteStore
	graph *graph.Builder
}

func withStore(ctx context.Context, fn func(context.Context, *storeDeps) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	obs := newObserver()
	defer obs.Close()

	s, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, &storeDeps{store: s, graph: graph.NewBuilder(s, obs)})
}
