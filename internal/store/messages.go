package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/recallhq/recall/pkg/types"
)

// InsertMessage appends one conversation turn. Message IDs are time+random
// based, never content-hashed, so inserts don't collide and re-ingesting a
// rewritten transcript goes through DeleteMessagesByConversation first.
func (s *Store) InsertMessage(ctx context.Context, project string, m *types.Message) error {
	query := `
		INSERT INTO messages (msg_id, project, conversation_file, role, ts, content)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		m.MsgID, project, m.ConversationFile, m.Role, m.TS, m.Text); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// DeleteMessagesByConversation removes every message of one transcript along
// with its terms, symbols, and vectors. Used when a transcript is detected
// as rewritten and must be re-ingested from scratch.
func (s *Store) DeleteMessagesByConversation(ctx context.Context, project, conversationFile string) error {
	deletes := []string{
		`DELETE FROM message_terms WHERE msg_id IN (SELECT msg_id FROM messages WHERE project = ? AND conversation_file = ?)`,
		`DELETE FROM message_symbols WHERE msg_id IN (SELECT msg_id FROM messages WHERE project = ? AND conversation_file = ?)`,
		`DELETE FROM message_vectors WHERE msg_id IN (SELECT msg_id FROM messages WHERE project = ? AND conversation_file = ?)`,
		`DELETE FROM messages WHERE project = ? AND conversation_file = ?`,
	}
	for _, query := range deletes {
		if _, err := s.db.ExecContext(ctx, query, project, conversationFile); err != nil {
			return fmt.Errorf("failed to delete conversation messages: %w", err)
		}
	}
	return nil
}

// ReplaceMessageTerms rewrites the lexical term set for a message
func (s *Store) ReplaceMessageTerms(ctx context.Context, msgID string, terms []string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM message_terms WHERE msg_id = ?`, msgID); err != nil {
		return fmt.Errorf("failed to clear message terms: %w", err)
	}
	query := `INSERT OR IGNORE INTO message_terms (term, msg_id) VALUES (?, ?)`
	for _, term := range terms {
		if _, err := s.db.ExecContext(ctx, query, term, msgID); err != nil {
			return fmt.Errorf("failed to insert message term: %w", err)
		}
	}
	return nil
}

// ReplaceMessageSymbols rewrites the code-symbol set for a message
func (s *Store) ReplaceMessageSymbols(ctx context.Context, msgID string, symbols []string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM message_symbols WHERE msg_id = ?`, msgID); err != nil {
		return fmt.Errorf("failed to clear message symbols: %w", err)
	}
	query := `INSERT OR IGNORE INTO message_symbols (symbol, msg_id) VALUES (?, ?)`
	for _, symbol := range symbols {
		if _, err := s.db.ExecContext(ctx, query, symbol, msgID); err != nil {
			return fmt.Errorf("failed to insert message symbol: %w", err)
		}
	}
	return nil
}

// UpsertMessageVector stores a message's embedding
func (s *Store) UpsertMessageVector(ctx context.Context, msgID string, vector []float32, provider, model string) error {
	blob := SerializeVector(vector)
	query := `
		INSERT INTO message_vectors (msg_id, vector, dimension, provider, model)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(msg_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	if _, err := s.db.ExecContext(ctx, query,
		msgID, blob, len(vector), provider, model); err != nil {
		return fmt.Errorf("failed to upsert message vector: %w", err)
	}
	return nil
}

// MessageIDsMatchingTerms returns, for every message containing at least one
// of the given terms, how many distinct query terms it matched. The lexical
// stage divides these counts by the query's term count to score.
func (s *Store) MessageIDsMatchingTerms(ctx context.Context, project string, terms []string) (map[string]int, error) {
	if len(terms) == 0 {
		return map[string]int{}, nil
	}
	query := fmt.Sprintf(`
		SELECT mt.msg_id, COUNT(DISTINCT mt.term)
		FROM message_terms mt
		JOIN messages m ON m.msg_id = mt.msg_id
		WHERE m.project = ? AND mt.term IN (%s)
		GROUP BY mt.msg_id
	`, placeholders(len(terms)))

	args := append([]any{project}, stringArgs(terms)...)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to match message terms: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			msgID string
			n     int
		)
		if err := rows.Scan(&msgID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan term match: %w", err)
		}
		counts[msgID] = n
	}
	return counts, rows.Err()
}

// ListMessages returns a project's messages in insertion order
func (s *Store) ListMessages(ctx context.Context, project string) ([]types.Message, error) {
	query := `
		SELECT msg_id, conversation_file, role, ts, content
		FROM messages WHERE project = ?
		ORDER BY rowid
	`
	rows, err := s.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var (
			m  types.Message
			ts sql.NullTime
		)
		if err := rows.Scan(&m.MsgID, &m.ConversationFile, &m.Role, &ts, &m.Text); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if ts.Valid {
			m.TS = ts.Time
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetMessagesByIDs fetches full message rows for a set of IDs, keyed by ID.
// IDs with no row are simply absent from the result.
func (s *Store) GetMessagesByIDs(ctx context.Context, ids []string) (map[string]types.Message, error) {
	if len(ids) == 0 {
		return map[string]types.Message{}, nil
	}
	query := fmt.Sprintf(`
		SELECT msg_id, conversation_file, role, ts, content
		FROM messages WHERE msg_id IN (%s)
	`, placeholders(len(ids)))

	rows, err := s.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	defer rows.Close()

	messages := make(map[string]types.Message, len(ids))
	for rows.Next() {
		var (
			m  types.Message
			ts sql.NullTime
		)
		if err := rows.Scan(&m.MsgID, &m.ConversationFile, &m.Role, &ts, &m.Text); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if ts.Valid {
			m.TS = ts.Time
		}
		messages[m.MsgID] = m
	}
	return messages, rows.Err()
}

// IngestState is the transcript ingestion ledger row: how much of a
// transcript has been indexed and a checksum of its recorded head so a
// rewritten file is detected rather than silently mis-deltaed.
type IngestState struct {
	SourcePath string
	Project    string
	LineCount  int
	HeadHash   string
	UpdatedAt  time.Time
}

// GetIngestState fetches the ledger row for one transcript path
func (s *Store) GetIngestState(ctx context.Context, sourcePath string) (*IngestState, error) {
	query := `
		SELECT source_path, project, line_count, head_hash, updated_at
		FROM ingest_state WHERE source_path = ?
	`
	var (
		st        IngestState
		updatedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, sourcePath).Scan(
		&st.SourcePath, &st.Project, &st.LineCount, &st.HeadHash, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingest state: %w", err)
	}
	if updatedAt.Valid {
		st.UpdatedAt = updatedAt.Time
	}
	return &st, nil
}

// UpsertIngestState records how far a transcript has been ingested
func (s *Store) UpsertIngestState(ctx context.Context, st *IngestState) error {
	query := `
		INSERT INTO ingest_state (source_path, project, line_count, head_hash, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_path) DO UPDATE SET
			project = excluded.project,
			line_count = excluded.line_count,
			head_hash = excluded.head_hash,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query,
		st.SourcePath, st.Project, st.LineCount, st.HeadHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert ingest state: %w", err)
	}
	return nil
}
