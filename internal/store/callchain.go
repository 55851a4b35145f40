package store

import (
	"context"
	"fmt"
)

// DefaultChainDepth bounds recursive call-chain traversal so cyclic call
// graphs terminate.
const DefaultChainDepth = 10

// ChainEntry is one function reached by a call-chain traversal
type ChainEntry struct {
	FnID  string
	Name  string
	Path  string
	Depth int // hops from the starting function, minimum over all paths
}

// CallChain returns every function reachable from fnID over calls edges
// within maxDepth hops, nearest first. maxDepth <= 0 means
// DefaultChainDepth. The starting function is not included. Edges whose
// target has been purged are orphans and drop out of the join.
func (s *Store) CallChain(ctx context.Context, fnID string, maxDepth int) ([]ChainEntry, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultChainDepth
	}
	query := `
		WITH RECURSIVE chain(id, depth) AS (
			SELECT ?, 0
			UNION
			SELECT e.to_id, c.depth + 1
			FROM edges e
			INNER JOIN chain c ON e.from_id = c.id
			WHERE e.kind = 'calls' AND c.depth < ?
		)
		SELECT fn.fn_id, fn.name, f.path, MIN(c.depth)
		FROM chain c
		INNER JOIN functions fn ON fn.fn_id = c.id
		INNER JOIN files f ON f.file_id = fn.file_id
		WHERE c.id != ?
		GROUP BY fn.fn_id, fn.name, f.path
		ORDER BY MIN(c.depth), fn.name
	`
	return s.queryChain(ctx, query, fnID, maxDepth, fnID)
}

// Callers returns every function that can reach fnID over calls edges
// within maxDepth hops, nearest first.
func (s *Store) Callers(ctx context.Context, fnID string, maxDepth int) ([]ChainEntry, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultChainDepth
	}
	query := `
		WITH RECURSIVE chain(id, depth) AS (
			SELECT ?, 0
			UNION
			SELECT e.from_id, c.depth + 1
			FROM edges e
			INNER JOIN chain c ON e.to_id = c.id
			WHERE e.kind = 'calls' AND c.depth < ?
		)
		SELECT fn.fn_id, fn.name, f.path, MIN(c.depth)
		FROM chain c
		INNER JOIN functions fn ON fn.fn_id = c.id
		INNER JOIN files f ON f.file_id = fn.file_id
		WHERE c.id != ?
		GROUP BY fn.fn_id, fn.name, f.path
		ORDER BY MIN(c.depth), fn.name
	`
	return s.queryChain(ctx, query, fnID, maxDepth, fnID)
}

func (s *Store) queryChain(ctx context.Context, query string, args ...any) ([]ChainEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute chain query: %w", err)
	}
	defer rows.Close()

	var entries []ChainEntry
	for rows.Next() {
		var e ChainEntry
		if err := rows.Scan(&e.FnID, &e.Name, &e.Path, &e.Depth); err != nil {
			return nil, fmt.Errorf("failed to scan chain entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
