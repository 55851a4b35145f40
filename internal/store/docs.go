package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/recallhq/recall/pkg/types"
)

// UpsertDocument inserts or replaces a document row. Documents are keyed by
// absolute path within a project.
func (s *Store) UpsertDocument(ctx context.Context, project string, d *types.Document) error {
	query := `
		INSERT INTO documents (doc_id, project, path, title, doc_type, checksum, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			project = excluded.project,
			path = excluded.path,
			title = excluded.title,
			doc_type = excluded.doc_type,
			checksum = excluded.checksum,
			indexed_at = excluded.indexed_at
	`
	at := d.IndexedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, query,
		d.DocID, project, d.Path, d.Title, string(d.DocType), d.Checksum, at); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// GetDocumentByPath looks up a document by its absolute path
func (s *Store) GetDocumentByPath(ctx context.Context, project, path string) (*types.Document, error) {
	query := `
		SELECT doc_id, path, title, doc_type, checksum, indexed_at
		FROM documents WHERE project = ? AND path = ?
	`
	var (
		d         types.Document
		docType   string
		indexedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, project, path).Scan(
		&d.DocID, &d.Path, &d.Title, &docType, &d.Checksum, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	d.DocType = types.DocType(docType)
	if indexedAt.Valid {
		d.IndexedAt = indexedAt.Time
	}
	return &d, nil
}

// ListDocuments returns every document of a project ordered by path
func (s *Store) ListDocuments(ctx context.Context, project string) ([]types.Document, error) {
	query := `
		SELECT doc_id, path, title, doc_type, checksum, indexed_at
		FROM documents WHERE project = ? ORDER BY path
	`
	rows, err := s.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var (
			d         types.Document
			docType   string
			indexedAt sql.NullTime
		)
		if err := rows.Scan(&d.DocID, &d.Path, &d.Title, &docType, &d.Checksum, &indexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.DocType = types.DocType(docType)
		if indexedAt.Valid {
			d.IndexedAt = indexedAt.Time
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpsertSection inserts or replaces one section of a document's heading tree
func (s *Store) UpsertSection(ctx context.Context, sec *types.Section) error {
	query := `
		INSERT INTO sections (section_id, doc_id, parent_id, heading, level, start_offset, end_offset)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(section_id) DO UPDATE SET
			doc_id = excluded.doc_id,
			parent_id = excluded.parent_id,
			heading = excluded.heading,
			level = excluded.level,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset
	`
	if _, err := s.db.ExecContext(ctx, query,
		sec.SectionID, sec.DocID, sec.ParentID, sec.Heading,
		sec.Level, sec.StartOffset, sec.EndOffset); err != nil {
		return fmt.Errorf("failed to upsert section: %w", err)
	}
	return nil
}

// ListSections returns a document's sections ordered by level then start
// offset, which reproduces the original heading hierarchy.
func (s *Store) ListSections(ctx context.Context, docID string) ([]types.Section, error) {
	query := `
		SELECT section_id, doc_id, parent_id, heading, level, start_offset, end_offset
		FROM sections WHERE doc_id = ?
		ORDER BY level, start_offset
	`
	rows, err := s.db.QueryContext(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	var sections []types.Section
	for rows.Next() {
		var sec types.Section
		if err := rows.Scan(&sec.SectionID, &sec.DocID, &sec.ParentID, &sec.Heading,
			&sec.Level, &sec.StartOffset, &sec.EndOffset); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// UpsertChunk inserts or replaces one chunk of a section
func (s *Store) UpsertChunk(ctx context.Context, project string, c *types.Chunk) error {
	query := `
		INSERT INTO chunks (chunk_id, doc_id, section_id, seq, content, project)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			doc_id = excluded.doc_id,
			section_id = excluded.section_id,
			seq = excluded.seq,
			content = excluded.content,
			project = excluded.project
	`
	if _, err := s.db.ExecContext(ctx, query,
		c.ChunkID, c.DocID, c.SectionID, c.Seq, c.Content, project); err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	return nil
}

// ListChunks returns a document's chunks in section and sequence order
func (s *Store) ListChunks(ctx context.Context, docID string) ([]types.Chunk, error) {
	query := `
		SELECT chunk_id, doc_id, section_id, seq, content
		FROM chunks WHERE doc_id = ?
		ORDER BY section_id, seq
	`
	rows, err := s.db.QueryContext(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var c types.Chunk
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.SectionID, &c.Seq, &c.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ReplaceChunkTerms rewrites the lexical term set for a chunk
func (s *Store) ReplaceChunkTerms(ctx context.Context, chunkID string, terms []string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chunk_terms WHERE chunk_id = ?`, chunkID); err != nil {
		return fmt.Errorf("failed to clear chunk terms: %w", err)
	}
	query := `INSERT OR IGNORE INTO chunk_terms (term, chunk_id) VALUES (?, ?)`
	for _, term := range terms {
		if _, err := s.db.ExecContext(ctx, query, term, chunkID); err != nil {
			return fmt.Errorf("failed to insert chunk term: %w", err)
		}
	}
	return nil
}

// UpsertChunkVector stores a chunk's embedding
func (s *Store) UpsertChunkVector(ctx context.Context, chunkID string, vector []float32, provider, model string) error {
	blob := SerializeVector(vector)
	query := `
		INSERT INTO chunk_vectors (chunk_id, vector, dimension, provider, model)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	if _, err := s.db.ExecContext(ctx, query,
		chunkID, blob, len(vector), provider, model); err != nil {
		return fmt.Errorf("failed to upsert chunk vector: %w", err)
	}
	return nil
}

// PurgeDocument removes a document and everything hanging off it: chunk
// terms and vectors, chunks, sections, and the document row. Purging an
// unknown document is a no-op.
func (s *Store) PurgeDocument(ctx context.Context, docID string) error {
	deletes := []string{
		`DELETE FROM chunk_terms WHERE chunk_id IN (SELECT chunk_id FROM chunks WHERE doc_id = ?)`,
		`DELETE FROM chunk_vectors WHERE chunk_id IN (SELECT chunk_id FROM chunks WHERE doc_id = ?)`,
		`DELETE FROM chunks WHERE doc_id = ?`,
		`DELETE FROM sections WHERE doc_id = ?`,
		`DELETE FROM documents WHERE doc_id = ?`,
	}
	for _, query := range deletes {
		if _, err := s.db.ExecContext(ctx, query, docID); err != nil {
			return fmt.Errorf("failed to purge document: %w", err)
		}
	}
	return nil
}
