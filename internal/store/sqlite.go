package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directories exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}

	if err := store.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Initialize creates the tables if they do not exist. Safe to call repeatedly.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT UNIQUE,
			content TEXT,
			keywords TEXT,
			vector_position INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memories_vector_position ON memories(vector_position);`,
		`CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("%w: failed to init schema: %v", ErrStoreUnavailable, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Memory Implementation

func (s *SQLiteStore) Insert(ctx context.Context, e NewEntry) (*MemoryEntry, error) {
	return s.InsertFunc(ctx, e, nil)
}

func (s *SQLiteStore) InsertFunc(ctx context.Context, e NewEntry, commit func(*MemoryEntry) error) (*MemoryEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	title := nullableTitle(e.Title)
	if title.Valid {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM memories WHERE title = ?`, title.String).Scan(&exists)
		if err == nil {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTitle, e.Title)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	query := `INSERT INTO memories (title, content, keywords, vector_position) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, query, title, e.Content, EncodeKeywords(e.Keywords), e.VectorPosition)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTitle, e.Title)
		}
		return nil, fmt.Errorf("%w: insert: %v", ErrStoreUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	entry := &MemoryEntry{
		ID:             id,
		Title:          e.Title,
		Content:        e.Content,
		Keywords:       append([]string(nil), e.Keywords...),
		VectorPosition: e.VectorPosition,
	}

	if commit != nil {
		if err := commit(entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrStoreUnavailable, err)
	}
	return entry, nil
}

func (s *SQLiteStore) GetByVectorPosition(ctx context.Context, position int) (*MemoryEntry, error) {
	query := `SELECT id, title, content, keywords, vector_position FROM memories WHERE vector_position = ? ORDER BY id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, position)

	var (
		entry    MemoryEntry
		title    sql.NullString
		content  sql.NullString
		keywords sql.NullString
	)
	if err := row.Scan(&entry.ID, &title, &content, &keywords, &entry.VectorPosition); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	entry.Title = title.String
	entry.Content = content.String
	entry.Keywords = DecodeKeywords(keywords.String)
	return &entry, nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]GraphRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title, keywords FROM memories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []GraphRow
	for rows.Next() {
		var title, keywords sql.NullString
		if err := rows.Scan(&title, &keywords); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		out = append(out, GraphRow{Title: title.String, Keywords: DecodeKeywords(keywords.String)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}

// ListAllKeywords returns every distinct trimmed keyword, sorted.
func (s *SQLiteStore) ListAllKeywords(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT keywords FROM memories`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		for _, k := range DecodeKeywords(raw.String) {
			if k = strings.TrimSpace(k); k != "" {
				seen[k] = struct{}{}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *SQLiteStore) ListContents(ctx context.Context) ([]PositionedContent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vector_position, content FROM memories ORDER BY vector_position, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []PositionedContent
	for rows.Next() {
		var (
			pc      PositionedContent
			content sql.NullString
		)
		if err := rows.Scan(&pc.VectorPosition, &content); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		pc.Content = content.String
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// Configuration Implementation

func (s *SQLiteStore) SetConfig(key, value string) error {
	query := `INSERT INTO configuration (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := s.db.Exec(query, key, value)
	return err
}

func (s *SQLiteStore) GetConfig(key string) (string, error) {
	query := `SELECT value FROM configuration WHERE key = ?`
	row := s.db.QueryRow(query, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// Empty titles are stored as NULL so several untitled entries can coexist.
func nullableTitle(title string) sql.NullString {
	if title == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: title, Valid: true}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
