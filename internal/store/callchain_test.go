package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/pkg/types"
)

// alpha → beta → gamma → delta, gamma → alpha (cycle), alpha → echo,
// beta → ghost (purged target)
func setupCallGraph(t *testing.T) *Store {
	t.Helper()
	st := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertFileNode(ctx, &types.FileNode{FileID: "f1", Project: "/p", Path: "a.ts"}))
	require.NoError(t, st.UpsertFileNode(ctx, &types.FileNode{FileID: "f2", Project: "/p", Path: "b.ts"}))

	fns := []types.FunctionNode{
		{FnID: "fnA", Name: "alpha", FileID: "f1", Project: "/p"},
		{FnID: "fnB", Name: "beta", FileID: "f1", Project: "/p"},
		{FnID: "fnC", Name: "gamma", FileID: "f2", Project: "/p"},
		{FnID: "fnD", Name: "delta", FileID: "f2", Project: "/p"},
		{FnID: "fnE", Name: "echo", FileID: "f2", Project: "/p"},
	}
	for i := range fns {
		require.NoError(t, st.UpsertFunction(ctx, &fns[i]))
	}
	require.NoError(t, st.InsertEdges(ctx, []types.Edge{
		{FromID: "fnA", ToID: "fnB", Kind: types.EdgeCalls},
		{FromID: "fnA", ToID: "fnE", Kind: types.EdgeCalls},
		{FromID: "fnB", ToID: "fnC", Kind: types.EdgeCalls},
		{FromID: "fnC", ToID: "fnD", Kind: types.EdgeCalls},
		{FromID: "fnC", ToID: "fnA", Kind: types.EdgeCalls},
		{FromID: "fnB", ToID: "ghost", Kind: types.EdgeCalls},
	}))
	return st
}

func TestCallChain(t *testing.T) {
	st := setupCallGraph(t)

	entries, err := st.CallChain(context.Background(), "fnA", 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	names := make([]string, len(entries))
	depths := make([]int, len(entries))
	for i, e := range entries {
		names[i] = e.Name
		depths[i] = e.Depth
	}
	// Nearest first, names break depth ties; the cycle back to alpha does
	// not re-include the start
	assert.Equal(t, []string{"beta", "echo", "gamma", "delta"}, names)
	assert.Equal(t, []int{1, 1, 2, 3}, depths)
	assert.Equal(t, "b.ts", entries[3].Path)
}

func TestCallChain_DepthBound(t *testing.T) {
	st := setupCallGraph(t)

	entries, err := st.CallChain(context.Background(), "fnA", 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "beta", entries[0].Name)
	assert.Equal(t, "echo", entries[1].Name)
}

func TestCallChain_OrphanedTargetDropsOut(t *testing.T) {
	st := setupCallGraph(t)

	// beta calls gamma and the purged ghost; only gamma joins back to a
	// function row
	entries, err := st.CallChain(context.Background(), "fnB", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "gamma", entries[0].Name)
}

func TestCallChain_UnknownFunction(t *testing.T) {
	st := setupCallGraph(t)

	entries, err := st.CallChain(context.Background(), "nope", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCallers(t *testing.T) {
	st := setupCallGraph(t)

	entries, err := st.Callers(context.Background(), "fnD", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	names := make([]string, len(entries))
	depths := make([]int, len(entries))
	for i, e := range entries {
		names[i] = e.Name
		depths[i] = e.Depth
	}
	assert.Equal(t, []string{"gamma", "beta", "alpha"}, names)
	assert.Equal(t, []int{1, 2, 3}, depths)
}

func TestCallChain_DefaultDepth(t *testing.T) {
	st := setupCallGraph(t)

	// maxDepth <= 0 falls back to DefaultChainDepth rather than refusing
	entries, err := st.CallChain(context.Background(), "fnA", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}
