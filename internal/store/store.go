package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNotFound is returned when a requested row doesn't exist
	ErrNotFound = errors.New("not found")
)

// Store is the SQLite-backed persistence layer for the code graph, document
// index, and conversation history. All methods are per-statement atomic; the
// indexers sequence multi-statement operations themselves (purge before
// insert), so there is no transaction surface here.
type Store struct {
	db   *sql.DB
	path string
}

// Project is the registry row for one indexed project root
type Project struct {
	RootPath      string
	Language      string
	Framework     string
	IndexVersion  string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Open opens (creating if needed) the database at dbPath and brings the
// schema up to date.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for read concurrency alongside the single writer
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// UpsertProject registers a project root or refreshes its detection metadata
func (s *Store) UpsertProject(ctx context.Context, p *Project) error {
	query := `
		INSERT INTO projects (root_path, language, framework, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(root_path) DO UPDATE SET
			language = excluded.language,
			framework = excluded.framework,
			index_version = excluded.index_version,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, query,
		p.RootPath, p.Language, p.Framework, p.IndexVersion, now, now); err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	p.UpdatedAt = now
	return nil
}

// GetProject fetches one project registry row by root path
func (s *Store) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	query := `
		SELECT root_path, language, framework, index_version, last_indexed_at, created_at, updated_at
		FROM projects
		WHERE root_path = ?
	`
	var (
		p             Project
		lastIndexedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, rootPath).Scan(
		&p.RootPath, &p.Language, &p.Framework, &p.IndexVersion,
		&lastIndexedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIndexedAt.Valid {
		p.LastIndexedAt = lastIndexedAt.Time
	}
	return &p, nil
}

// TouchProjectIndexed records a completed indexing run
func (s *Store) TouchProjectIndexed(ctx context.Context, rootPath string, at time.Time) error {
	query := `UPDATE projects SET last_indexed_at = ?, updated_at = ? WHERE root_path = ?`
	if _, err := s.db.ExecContext(ctx, query, at, time.Now().UTC(), rootPath); err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ..." for n parameters
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',', ' ')
		}
		b = append(b, '?')
	}
	return string(b)
}

// stringArgs widens a string slice for variadic query args
func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
