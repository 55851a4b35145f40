package store

import (
	"context"
	"fmt"
	"os"
	"time"
)

// ProjectStatus summarizes what the store holds for one project
type ProjectStatus struct {
	Project        *Project
	LastIndexedAt  time.Time
	Files          int
	Functions      int
	Classes        int
	Edges          int
	Documents      int
	Chunks         int
	Messages       int
	MessageVectors int
	DatabaseBytes  int64
	BuildMode      string
}

// GetStatus collects per-project row counts and database size
func (s *Store) GetStatus(ctx context.Context, rootPath string) (*ProjectStatus, error) {
	project, err := s.GetProject(ctx, rootPath)
	if err != nil {
		return nil, err
	}

	status := &ProjectStatus{
		Project:       project,
		LastIndexedAt: project.LastIndexedAt,
		BuildMode:     BuildMode,
	}

	counts := []struct {
		dest  *int
		query string
	}{
		{&status.Files, `SELECT COUNT(*) FROM files WHERE project = ?`},
		{&status.Functions, `SELECT COUNT(*) FROM functions WHERE project = ?`},
		{&status.Classes, `SELECT COUNT(*) FROM classes WHERE project = ?`},
		{&status.Edges, `SELECT COUNT(*) FROM edges WHERE from_id IN (
			SELECT file_id FROM files WHERE project = ?
			UNION SELECT fn_id FROM functions WHERE project = ?
			UNION SELECT class_id FROM classes WHERE project = ?)`},
		{&status.Documents, `SELECT COUNT(*) FROM documents WHERE project = ?`},
		{&status.Chunks, `SELECT COUNT(*) FROM chunks WHERE project = ?`},
		{&status.Messages, `SELECT COUNT(*) FROM messages WHERE project = ?`},
		{&status.MessageVectors, `SELECT COUNT(*) FROM message_vectors WHERE msg_id IN (
			SELECT msg_id FROM messages WHERE project = ?)`},
	}
	for _, c := range counts {
		args := make([]any, countParams(c.query))
		for i := range args {
			args[i] = rootPath
		}
		if err := s.db.QueryRowContext(ctx, c.query, args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		status.DatabaseBytes = info.Size()
	}

	return status, nil
}

// countParams counts '?' placeholders in a query
func countParams(query string) int {
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
		}
	}
	return n
}
