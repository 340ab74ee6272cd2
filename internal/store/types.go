package store

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateTitle is returned when an insert reuses an existing title.
	ErrDuplicateTitle = errors.New("duplicate title")
	// ErrStoreUnavailable wraps connection and query failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// MemoryEntry is one fact extracted from conversation.
type MemoryEntry struct {
	ID             int64
	Title          string
	Content        string
	Keywords       []string
	VectorPosition int // Ordinal of the entry's embedding in the vector index
}

// NewEntry holds the fields of an entry that does not exist yet.
type NewEntry struct {
	Title          string
	Content        string
	Keywords       []string
	VectorPosition int
}

// GraphRow is the projection used by the keyword graph builder.
type GraphRow struct {
	Title    string
	Keywords []string
}

// PositionedContent is the projection used to rebuild the vector index.
type PositionedContent struct {
	VectorPosition int
	Content        string
}

// Storage defines the interface for persistence
type Storage interface {
	Initialize(ctx context.Context) error

	// Memory Management
	Insert(ctx context.Context, e NewEntry) (*MemoryEntry, error)
	// InsertFunc writes the row inside a transaction and runs commit before
	// committing it. A commit error rolls the row back.
	InsertFunc(ctx context.Context, e NewEntry, commit func(*MemoryEntry) error) (*MemoryEntry, error)
	GetByVectorPosition(ctx context.Context, position int) (*MemoryEntry, error)
	ListAll(ctx context.Context) ([]GraphRow, error)
	ListAllKeywords(ctx context.Context) ([]string, error)
	ListContents(ctx context.Context) ([]PositionedContent, error)
	Count(ctx context.Context) (int, error)

	// Configuration Management
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)

	Close() error
}
