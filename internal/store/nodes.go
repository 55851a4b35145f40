package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/recallhq/recall/pkg/types"
)

// UpsertFileNode inserts or replaces a file node. IDs are deterministic, so
// re-indexing unchanged input rewrites identical rows.
func (s *Store) UpsertFileNode(ctx context.Context, f *types.FileNode) error {
	query := `
		INSERT INTO files (file_id, project, path, module, language)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			project = excluded.project,
			path = excluded.path,
			module = excluded.module,
			language = excluded.language
	`
	if _, err := s.db.ExecContext(ctx, query,
		f.FileID, f.Project, f.Path, f.Module, string(f.Language)); err != nil {
		return fmt.Errorf("failed to upsert file node: %w", err)
	}
	return nil
}

// UpsertFunction inserts or replaces a function node
func (s *Store) UpsertFunction(ctx context.Context, fn *types.FunctionNode) error {
	query := `
		INSERT INTO functions (fn_id, name, file_id, class_name, is_export, is_async, language, start_line, end_line, project)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fn_id) DO UPDATE SET
			name = excluded.name,
			file_id = excluded.file_id,
			class_name = excluded.class_name,
			is_export = excluded.is_export,
			is_async = excluded.is_async,
			language = excluded.language,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			project = excluded.project
	`
	if _, err := s.db.ExecContext(ctx, query,
		fn.FnID, fn.Name, fn.FileID, fn.ClassName, fn.IsExport, fn.IsAsync,
		string(fn.Language), fn.StartLine, fn.EndLine, fn.Project); err != nil {
		return fmt.Errorf("failed to upsert function node: %w", err)
	}
	return nil
}

// UpsertClass inserts or replaces a class/component node. The method list is
// stored as a JSON array.
func (s *Store) UpsertClass(ctx context.Context, c *types.ClassNode) error {
	methods, err := json.Marshal(c.Methods)
	if err != nil {
		return fmt.Errorf("failed to encode class methods: %w", err)
	}
	query := `
		INSERT INTO classes (class_id, name, file_id, class_type, parent_class, methods, start_line, end_line, project)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(class_id) DO UPDATE SET
			name = excluded.name,
			file_id = excluded.file_id,
			class_type = excluded.class_type,
			parent_class = excluded.parent_class,
			methods = excluded.methods,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			project = excluded.project
	`
	if _, err := s.db.ExecContext(ctx, query,
		c.ClassID, c.Name, c.FileID, string(c.ClassType), c.ParentClass,
		string(methods), c.StartLine, c.EndLine, c.Project); err != nil {
		return fmt.Errorf("failed to upsert class node: %w", err)
	}
	return nil
}

// InsertEdges writes edges one statement at a time, ignoring rows that
// already exist. Duplicate (from, to, kind, attr) tuples collapse, which is
// what makes re-indexing idempotent.
func (s *Store) InsertEdges(ctx context.Context, edges []types.Edge) error {
	query := `INSERT OR IGNORE INTO edges (from_id, to_id, kind, attr) VALUES (?, ?, ?, ?)`
	for _, e := range edges {
		if _, err := s.db.ExecContext(ctx, query,
			e.FromID, e.ToID, string(e.Kind), e.Attr); err != nil {
			return fmt.Errorf("failed to insert edge %s->%s: %w", e.FromID, e.ToID, err)
		}
	}
	return nil
}

// GetFileByPath looks up a file node by its project-relative path
func (s *Store) GetFileByPath(ctx context.Context, project, path string) (*types.FileNode, error) {
	query := `SELECT file_id, project, path, module, language FROM files WHERE project = ? AND path = ?`
	f, err := scanFileNode(s.db.QueryRowContext(ctx, query, project, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFileNodes returns every file node of a project
func (s *Store) ListFileNodes(ctx context.Context, project string) ([]types.FileNode, error) {
	query := `SELECT file_id, project, path, module, language FROM files WHERE project = ? ORDER BY path`
	rows, err := s.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []types.FileNode
	for rows.Next() {
		f, err := scanFileNode(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// ListFunctions returns every function node of a project
func (s *Store) ListFunctions(ctx context.Context, project string) ([]types.FunctionNode, error) {
	query := `
		SELECT fn_id, name, file_id, class_name, is_export, is_async, language, start_line, end_line, project
		FROM functions WHERE project = ?
	`
	rows, err := s.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	defer rows.Close()

	var fns []types.FunctionNode
	for rows.Next() {
		fn, err := scanFunctionNode(rows)
		if err != nil {
			return nil, err
		}
		fns = append(fns, *fn)
	}
	return fns, rows.Err()
}

// ListClasses returns every class node of a project
func (s *Store) ListClasses(ctx context.Context, project string) ([]types.ClassNode, error) {
	query := `
		SELECT class_id, name, file_id, class_type, parent_class, methods, start_line, end_line, project
		FROM classes WHERE project = ?
	`
	rows, err := s.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	var classes []types.ClassNode
	for rows.Next() {
		c, err := scanClassNode(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// FunctionsByName returns all functions of a project sharing a name.
// Name-only matching means common names fan out to many rows.
func (s *Store) FunctionsByName(ctx context.Context, project, name string) ([]types.FunctionNode, error) {
	query := `
		SELECT fn_id, name, file_id, class_name, is_export, is_async, language, start_line, end_line, project
		FROM functions WHERE project = ? AND name = ?
	`
	rows, err := s.db.QueryContext(ctx, query, project, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query functions by name: %w", err)
	}
	defer rows.Close()

	var fns []types.FunctionNode
	for rows.Next() {
		fn, err := scanFunctionNode(rows)
		if err != nil {
			return nil, err
		}
		fns = append(fns, *fn)
	}
	return fns, rows.Err()
}

// ClassesByName returns all classes of a project sharing a name
func (s *Store) ClassesByName(ctx context.Context, project, name string) ([]types.ClassNode, error) {
	query := `
		SELECT class_id, name, file_id, class_type, parent_class, methods, start_line, end_line, project
		FROM classes WHERE project = ? AND name = ?
	`
	rows, err := s.db.QueryContext(ctx, query, project, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes by name: %w", err)
	}
	defer rows.Close()

	var classes []types.ClassNode
	for rows.Next() {
		c, err := scanClassNode(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// EdgesFrom returns the outgoing edges of a node, optionally filtered by kind
// (empty kind means all kinds).
func (s *Store) EdgesFrom(ctx context.Context, fromID string, kind types.EdgeKind) ([]types.Edge, error) {
	query := `SELECT from_id, to_id, kind, attr FROM edges WHERE from_id = ?`
	args := []any{fromID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	return s.queryEdges(ctx, query, args...)
}

// EdgesTo returns the incoming edges of a node, optionally filtered by kind
func (s *Store) EdgesTo(ctx context.Context, toID string, kind types.EdgeKind) ([]types.Edge, error) {
	query := `SELECT from_id, to_id, kind, attr FROM edges WHERE to_id = ?`
	args := []any{toID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	return s.queryEdges(ctx, query, args...)
}

func (s *Store) queryEdges(ctx context.Context, query string, args ...any) ([]types.Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []types.Edge
	for rows.Next() {
		var (
			e    types.Edge
			kind string
		)
		if err := rows.Scan(&e.FromID, &e.ToID, &kind, &e.Attr); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.Kind = types.EdgeKind(kind)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// PurgeFileData removes a file's entire graph contribution: its outgoing
// edges, the outgoing edges of its functions and classes, the function and
// class rows, and the file row itself. Incoming edges from other files are
// left orphaned rather than dangling; their from-side nodes still exist.
// Purging a path the graph has never seen is a no-op.
func (s *Store) PurgeFileData(ctx context.Context, project, path string) error {
	var fileID string
	err := s.db.QueryRowContext(ctx,
		`SELECT file_id FROM files WHERE project = ? AND path = ?`, project, path).Scan(&fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve file for purge: %w", err)
	}

	deletes := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM edges WHERE from_id IN (SELECT fn_id FROM functions WHERE file_id = ?)`, []any{fileID}},
		{`DELETE FROM edges WHERE from_id IN (SELECT class_id FROM classes WHERE file_id = ?)`, []any{fileID}},
		{`DELETE FROM edges WHERE from_id = ?`, []any{fileID}},
		{`DELETE FROM functions WHERE file_id = ?`, []any{fileID}},
		{`DELETE FROM classes WHERE file_id = ?`, []any{fileID}},
		{`DELETE FROM files WHERE file_id = ?`, []any{fileID}},
	}
	for _, d := range deletes {
		if _, err := s.db.ExecContext(ctx, d.query, d.args...); err != nil {
			return fmt.Errorf("failed to purge file data for %s: %w", path, err)
		}
	}
	return nil
}

// SymbolHit is one function or class match from SearchSymbols
type SymbolHit struct {
	ID        string
	Name      string
	Kind      string // "function" or "class"
	Path      string
	ClassName string
	StartLine int
	EndLine   int
}

// SearchSymbols finds functions and classes whose name starts with the given
// prefix (ASCII case-insensitive, SQLite LIKE semantics), classes first,
// each group ordered by name.
func (s *Store) SearchSymbols(ctx context.Context, project, prefix string, limit int) ([]SymbolHit, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT fn.fn_id, fn.name, 'function', f.path, fn.class_name, fn.start_line, fn.end_line
		FROM functions fn JOIN files f ON f.file_id = fn.file_id
		WHERE fn.project = ? AND fn.name LIKE ? || '%'
		UNION ALL
		SELECT c.class_id, c.name, 'class', f.path, '', c.start_line, c.end_line
		FROM classes c JOIN files f ON f.file_id = c.file_id
		WHERE c.project = ? AND c.name LIKE ? || '%'
		ORDER BY 3, 2
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, project, prefix, project, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search symbols: %w", err)
	}
	defer rows.Close()

	var hits []SymbolHit
	for rows.Next() {
		var h SymbolHit
		if err := rows.Scan(&h.ID, &h.Name, &h.Kind, &h.Path, &h.ClassName, &h.StartLine, &h.EndLine); err != nil {
			return nil, fmt.Errorf("failed to scan symbol hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ListFileMetadata returns the delta-sync ledger for a project, keyed by path
func (s *Store) ListFileMetadata(ctx context.Context, project string) (map[string]types.FileMetadata, error) {
	query := `
		SELECT file_id, project, path, content_hash, mtime, size, last_indexed_at
		FROM file_metadata WHERE project = ?
	`
	rows, err := s.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list file metadata: %w", err)
	}
	defer rows.Close()

	metadata := make(map[string]types.FileMetadata)
	for rows.Next() {
		var (
			m             types.FileMetadata
			lastIndexedAt sql.NullTime
		)
		if err := rows.Scan(&m.FileID, &m.Project, &m.Path, &m.ContentHash, &m.Mtime, &m.Size, &lastIndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file metadata: %w", err)
		}
		if lastIndexedAt.Valid {
			m.LastIndexedAt = lastIndexedAt.Time
		}
		metadata[m.Path] = m
	}
	return metadata, rows.Err()
}

// UpsertFileMetadata records a file's freshly indexed state in the ledger
func (s *Store) UpsertFileMetadata(ctx context.Context, m *types.FileMetadata) error {
	query := `
		INSERT INTO file_metadata (project, path, file_id, content_hash, mtime, size, last_indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, path) DO UPDATE SET
			file_id = excluded.file_id,
			content_hash = excluded.content_hash,
			mtime = excluded.mtime,
			size = excluded.size,
			last_indexed_at = excluded.last_indexed_at
	`
	at := m.LastIndexedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, query,
		m.Project, m.Path, m.FileID, m.ContentHash, m.Mtime, m.Size, at); err != nil {
		return fmt.Errorf("failed to upsert file metadata: %w", err)
	}
	return nil
}

// DeleteFileMetadata drops a deleted file's ledger row
func (s *Store) DeleteFileMetadata(ctx context.Context, project, path string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM file_metadata WHERE project = ? AND path = ?`, project, path); err != nil {
		return fmt.Errorf("failed to delete file metadata: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileNode(row rowScanner) (*types.FileNode, error) {
	var (
		f    types.FileNode
		lang string
	)
	if err := row.Scan(&f.FileID, &f.Project, &f.Path, &f.Module, &lang); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan file node: %w", err)
	}
	f.Language = types.Language(lang)
	return &f, nil
}

func scanFunctionNode(row rowScanner) (*types.FunctionNode, error) {
	var (
		fn   types.FunctionNode
		lang string
	)
	if err := row.Scan(&fn.FnID, &fn.Name, &fn.FileID, &fn.ClassName, &fn.IsExport,
		&fn.IsAsync, &lang, &fn.StartLine, &fn.EndLine, &fn.Project); err != nil {
		return nil, fmt.Errorf("failed to scan function node: %w", err)
	}
	fn.Language = types.Language(lang)
	return &fn, nil
}

func scanClassNode(row rowScanner) (*types.ClassNode, error) {
	var (
		c       types.ClassNode
		ctype   string
		methods string
	)
	if err := row.Scan(&c.ClassID, &c.Name, &c.FileID, &ctype, &c.ParentClass,
		&methods, &c.StartLine, &c.EndLine, &c.Project); err != nil {
		return nil, fmt.Errorf("failed to scan class node: %w", err)
	}
	c.ClassType = types.ClassType(ctype)
	if methods != "" {
		if err := json.Unmarshal([]byte(methods), &c.Methods); err != nil {
			return nil, fmt.Errorf("failed to decode class methods: %w", err)
		}
	}
	return &c, nil
}
