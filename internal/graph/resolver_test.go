package graph

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/identity"
	"github.com/recallhq/recall/internal/store"
	"github.com/recallhq/recall/pkg/types"
)

func setupIndexer(t *testing.T) (*Indexer, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, logger), st
}

func edgeTargets(t *testing.T, st *store.Store, fromID string, kind types.EdgeKind) []string {
	t.Helper()
	edges, err := st.EdgesFrom(context.Background(), fromID, kind)
	require.NoError(t, err)
	targets := make([]string, len(edges))
	for i, e := range edges {
		targets[i] = e.ToID
	}
	return targets
}

func TestIndexBatch(t *testing.T) {
	idx, st := setupIndexer(t)
	ctx := context.Background()
	project := "/proj"

	parsed := []*types.ParsedFile{
		{
			Path:     "src/util.ts",
			Language: types.LangTypeScript,
			Functions: []types.FunctionDef{
				{Name: "formatName", QualifiedName: "formatName", IsExport: true, StartLine: 1, EndLine: 3},
			},
		},
		{
			Path:     "src/user.ts",
			Language: types.LangTypeScript,
			Functions: []types.FunctionDef{
				{Name: "displayUser", QualifiedName: "displayUser", IsExport: true, StartLine: 3, EndLine: 5,
					Calls: []string{"formatName", "unknownHelper"}},
			},
		},
	}

	stats, err := idx.Index(ctx, project, parsed)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 2, stats.Functions)
	assert.Equal(t, 0, stats.Classes)
	assert.Equal(t, 0, stats.FilesFailed)

	file, err := st.GetFileByPath(ctx, project, "src/util.ts")
	require.NoError(t, err)
	assert.Equal(t, identity.FileID("src/util.ts"), file.FileID)
	assert.Equal(t, "src", file.Module)

	// declares: one per file
	assert.Len(t, edgeTargets(t, st, file.FileID, types.EdgeDeclares), 1)

	// displayUser calls formatName; the unmatched name produced nothing
	caller := identity.FunctionID("src/user.ts", "displayUser")
	callee := identity.FunctionID("src/util.ts", "formatName")
	assert.Equal(t, []string{callee}, edgeTargets(t, st, caller, types.EdgeCalls))
}

func TestIndexAmbiguousCallFanOut(t *testing.T) {
	idx, st := setupIndexer(t)
	ctx := context.Background()

	parsed := []*types.ParsedFile{
		{
			Path:     "a.ts",
			Language: types.LangTypeScript,
			Functions: []types.FunctionDef{
				{Name: "save", QualifiedName: "save"},
			},
		},
		{
			Path:     "b.ts",
			Language: types.LangTypeScript,
			Functions: []types.FunctionDef{
				{Name: "save", QualifiedName: "Repo.save", ClassName: "Repo"},
			},
		},
		{
			Path:     "c.ts",
			Language: types.LangTypeScript,
			Functions: []types.FunctionDef{
				{Name: "run", QualifiedName: "run", Calls: []string{"save"}},
			},
		},
	}

	_, err := idx.Index(ctx, "/proj", parsed)
	require.NoError(t, err)

	// Name-only resolution keeps both candidates.
	targets := edgeTargets(t, st, identity.FunctionID("c.ts", "run"), types.EdgeCalls)
	assert.ElementsMatch(t, []string{
		identity.FunctionID("a.ts", "save"),
		identity.FunctionID("b.ts", "Repo.save"),
	}, targets)
}

func TestIndexSelfCallExcluded(t *testing.T) {
	idx, st := setupIndexer(t)
	ctx := context.Background()

	parsed := []*types.ParsedFile{
		{
			Path:     "a.ts",
			Language: types.LangTypeScript,
			Functions: []types.FunctionDef{
				{Name: "tick", QualifiedName: "tick", Calls: []string{"tick"}},
			},
		},
		{
			Path:     "b.ts",
			Language: types.LangTypeScript,
			Functions: []types.FunctionDef{
				{Name: "tick", QualifiedName: "tick"},
			},
		},
	}

	_, err := idx.Index(ctx, "/proj", parsed)
	require.NoError(t, err)

	// Recursion produces no self-loop, but the same-named sibling still
	// counts as a candidate.
	targets := edgeTargets(t, st, identity.FunctionID("a.ts", "tick"), types.EdgeCalls)
	assert.Equal(t, []string{identity.FunctionID("b.ts", "tick")}, targets)
}

func TestIndexClassRelationships(t *testing.T) {
	idx, st := setupIndexer(t)
	ctx := context.Background()
	project := "/proj"

	parsed := []*types.ParsedFile{
		{
			Path:     "app/models/user.rb",
			Language: types.LangRuby,
			Functions: []types.FunctionDef{
				{Name: "full_name", QualifiedName: "User.full_name", ClassName: "User"},
			},
			Classes: []types.ClassDef{
				{
					Name:        "User",
					ClassType:   types.ClassModel,
					ParentClass: "ApplicationRecord",
					Includes:    []string{"Searchable"},
					Associations: []types.Association{
						{Kind: types.AssocBelongsTo, TargetClass: "Account"},
						{Kind: types.AssocHasMany, TargetClass: "Order"},
					},
				},
			},
		},
		{
			Path:     "app/models/account.rb",
			Language: types.LangRuby,
			Classes: []types.ClassDef{
				{Name: "Account", ClassType: types.ClassModel, ParentClass: "ApplicationRecord"},
			},
		},
		{
			Path:     "app/models/concerns/searchable.rb",
			Language: types.LangRuby,
			Classes: []types.ClassDef{
				{Name: "Searchable", ClassType: types.ClassConcern},
			},
		},
		{
			Path:     "app/serializers/user_serializer.rb",
			Language: types.LangRuby,
			Classes: []types.ClassDef{
				{Name: "UserSerializer", ClassType: types.ClassSerializer, Serializes: "User"},
			},
		},
	}

	stats, err := idx.Index(ctx, project, parsed)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Classes)

	userID := identity.ClassID("app/models/user.rb", "User")
	accountID := identity.ClassID("app/models/account.rb", "Account")
	searchableID := identity.ClassID("app/models/concerns/searchable.rb", "Searchable")

	// Parent not in batch: external placeholder, on the node and the edge.
	classes, err := st.ListClasses(ctx, project)
	require.NoError(t, err)
	byName := make(map[string]types.ClassNode, len(classes))
	for _, c := range classes {
		byName[c.Name] = c
	}
	assert.Equal(t, identity.External("ApplicationRecord"), byName["User"].ParentClass)
	assert.Equal(t, []string{"full_name"}, byName["User"].Methods)

	assert.Equal(t, []string{identity.External("ApplicationRecord")},
		edgeTargets(t, st, userID, types.EdgeExtends))
	assert.Equal(t, []string{searchableID},
		edgeTargets(t, st, userID, types.EdgeIncludes))

	assocs, err := st.EdgesFrom(ctx, userID, types.EdgeAssociation)
	require.NoError(t, err)
	got := make(map[string]string, len(assocs))
	for _, e := range assocs {
		got[e.ToID] = e.Attr
	}
	assert.Equal(t, map[string]string{
		accountID:                  "belongs_to",
		identity.External("Order"): "has_many",
	}, got)

	serializerID := identity.ClassID("app/serializers/user_serializer.rb", "UserSerializer")
	assert.Equal(t, []string{userID}, edgeTargets(t, st, serializerID, types.EdgeSerializes))
}

func TestIndexComponentCalls(t *testing.T) {
	idx, st := setupIndexer(t)
	ctx := context.Background()

	parsed := []*types.ParsedFile{
		{
			Path:     "src/components/Button.tsx",
			Language: types.LangTypeScript,
			Classes: []types.ClassDef{
				{Name: "Button", ClassType: types.ClassComponent, Calls: []string{"useTheme", "unknown"}},
			},
		},
		{
			Path:     "src/hooks/useTheme.ts",
			Language: types.LangTypeScript,
			Functions: []types.FunctionDef{
				{Name: "useTheme", QualifiedName: "useTheme", IsExport: true},
			},
		},
	}

	_, err := idx.Index(ctx, "/proj", parsed)
	require.NoError(t, err)

	buttonID := identity.ClassID("src/components/Button.tsx", "Button")
	assert.Equal(t, []string{identity.FunctionID("src/hooks/useTheme.ts", "useTheme")},
		edgeTargets(t, st, buttonID, types.EdgeComponentCalls))
}

func TestImportTargets(t *testing.T) {
	idx, st := setupIndexer(t)
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "util.ts"), []byte("export const x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "user.ts"), []byte("import './util'\n"), 0o644))

	parsed := []*types.ParsedFile{
		{
			Path:     "src/user.ts",
			Language: types.LangTypeScript,
			Imports: []types.ImportStmt{
				{Source: "./util", Names: []string{"formatName"}, IsRelative: true},
				{Source: "react", IsRelative: false},
				{Source: "./missing", IsRelative: true},
				{Source: "../../outside", IsRelative: true},
			},
		},
	}

	_, err := idx.Index(ctx, root, parsed)
	require.NoError(t, err)

	edges, err := st.EdgesFrom(ctx, identity.FileID("src/user.ts"), types.EdgeImports)
	require.NoError(t, err)
	got := make(map[string]string, len(edges))
	for _, e := range edges {
		got[e.ToID] = e.Attr
	}
	assert.Equal(t, map[string]string{
		identity.FileID("src/util.ts"):     "formatName",
		identity.Module("react"):           "",
		identity.External("./missing"):     "",
		identity.External("../../outside"): "",
	}, got)
}

func TestBuildResolverFirstClassWins(t *testing.T) {
	parsed := []*types.ParsedFile{
		{Path: "a.rb", Language: types.LangRuby, Classes: []types.ClassDef{{Name: "User"}}},
		{Path: "b.rb", Language: types.LangRuby, Classes: []types.ClassDef{{Name: "User"}}},
	}

	res := buildResolver(parsed)
	assert.Equal(t, identity.ClassID("a.rb", "User"), res.classTarget("User"))
	assert.Equal(t, identity.External("Ghost"), res.classTarget("Ghost"))
}

func TestModuleOf(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"src/a.ts", "src"},
		{"a.ts", "."},
		{"app/models/user.rb", "app"},
		{"./x.ts", "."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, moduleOf(tt.path), "moduleOf(%q)", tt.path)
	}
}
