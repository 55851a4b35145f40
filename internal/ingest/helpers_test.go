package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/pkg/types"
)

// storeProbe wraps a real in-memory store with the lookups ingestion tests
// assert against.
type storeProbe struct {
	store *store.Store
}

func newStoreProbe(t *testing.T) *storeProbe {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return &storeProbe{store: st}
}

func (p *storeProbe) messages(t *testing.T) []types.Message {
	t.Helper()
	msgs, err := p.store.ListMessages(context.Background(), testProject)
	require.NoError(t, err)
	return msgs
}

func (p *storeProbe) vectorCount(t *testing.T) int {
	t.Helper()
	status := p.status(t)
	return status.MessageVectors
}

func (p *storeProbe) status(t *testing.T) *store.ProjectStatus {
	t.Helper()
	status, err := p.store.GetStatus(context.Background(), testProject)
	require.NoError(t, err)
	return status
}

func (p *storeProbe) termMatches(t *testing.T, terms []string) map[string]int {
	t.Helper()
	counts, err := p.store.MessageIDsMatchingTerms(context.Background(), testProject, terms)
	require.NoError(t, err)
	return counts
}
