package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// VectorMatch is one message ranked by cosine similarity to a query vector
type VectorMatch struct {
	MsgID      string
	Similarity float64
}

// SearchMessageVectors ranks a project's messages by cosine similarity to
// the query vector and returns the top limit. With the sqlite-vec extension
// the distance is computed in SQL; otherwise every vector is scanned and
// scored in Go. The full scan is the accepted cost of exact search at
// single-agent history scale.
func (s *Store) SearchMessageVectors(ctx context.Context, project string, queryVector []float32, limit int) ([]VectorMatch, error) {
	if VectorExtensionAvailable {
		return s.searchMessageVectorsOptimized(ctx, project, queryVector, limit)
	}
	return s.searchMessageVectorsFallback(ctx, project, queryVector, limit)
}

// searchMessageVectorsOptimized pushes the distance computation into SQL.
// sqlite-vec's vec_distance_cosine returns distance (lower is better); we
// convert to similarity (1 - distance) so both paths score identically.
func (s *Store) searchMessageVectorsOptimized(ctx context.Context, project string, queryVector []float32, limit int) ([]VectorMatch, error) {
	if limit <= 0 {
		return []VectorMatch{}, nil
	}
	queryBlob := serializeVector(queryVector)
	query := `
		SELECT
			mv.msg_id,
			1.0 - vec_distance_cosine(mv.vector, ?) AS similarity
		FROM message_vectors mv
		INNER JOIN messages m ON m.msg_id = mv.msg_id
		WHERE m.project = ? AND mv.dimension = ?
		ORDER BY similarity DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, queryBlob, project, len(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorMatch, 0, limit)
	for rows.Next() {
		var m VectorMatch
		if err := rows.Scan(&m.MsgID, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan vector match: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// searchMessageVectorsFallback scans every stored vector and computes cosine
// similarity in Go. Used for purego builds.
func (s *Store) searchMessageVectorsFallback(ctx context.Context, project string, queryVector []float32, limit int) ([]VectorMatch, error) {
	query := `
		SELECT mv.msg_id, mv.vector
		FROM message_vectors mv
		INNER JOIN messages m ON m.msg_id = mv.msg_id
		WHERE m.project = ?
	`
	rows, err := s.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to query message vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]candidate, 0, 1000)
	for rows.Next() {
		var (
			msgID string
			blob  []byte
		)
		if err := rows.Scan(&msgID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan message vector: %w", err)
		}
		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // dimension mismatch, skip
		}
		candidates = append(candidates, candidate{msgID: msgID, score: cosineSimilarity(queryVector, vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCandidates(candidates)

	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	results := make([]VectorMatch, limit)
	for i := 0; i < limit; i++ {
		results[i] = VectorMatch{MsgID: candidates[i].msgID, Similarity: candidates[i].score}
	}
	return results, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate represents a message with its similarity score
type candidate struct {
	msgID string
	score float64
}

// sortCandidates sorts candidates by score in descending order
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
