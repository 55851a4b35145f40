package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/pkg/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	// In-memory database; the single pooled connection keeps it alive
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "recall.db")
	st, err := Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	assert.Equal(t, dbPath, st.Path())
}

func TestProjectLifecycle(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	p := &Project{
		RootPath:     "/home/dev/shop",
		Language:     "ruby",
		Framework:    "rails",
		IndexVersion: "1",
	}
	require.NoError(t, st.UpsertProject(ctx, p))

	got, err := st.GetProject(ctx, "/home/dev/shop")
	require.NoError(t, err)
	assert.Equal(t, "ruby", got.Language)
	assert.Equal(t, "rails", got.Framework)
	assert.True(t, got.LastIndexedAt.IsZero())

	// Re-detection updates in place
	p.Framework = "sinatra"
	require.NoError(t, st.UpsertProject(ctx, p))
	got, err = st.GetProject(ctx, "/home/dev/shop")
	require.NoError(t, err)
	assert.Equal(t, "sinatra", got.Framework)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, st.TouchProjectIndexed(ctx, "/home/dev/shop", at))
	got, err = st.GetProject(ctx, "/home/dev/shop")
	require.NoError(t, err)
	assert.WithinDuration(t, at, got.LastIndexedAt, time.Second)
}

func TestGetProject_NotFound(t *testing.T) {
	st := setupTestStore(t)

	_, err := st.GetProject(context.Background(), "/nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertFileNode_Idempotent(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	f := &types.FileNode{
		FileID:   "f1",
		Project:  "/p",
		Path:     "src/user.ts",
		Module:   "src",
		Language: types.LangTypeScript,
	}
	require.NoError(t, st.UpsertFileNode(ctx, f))
	require.NoError(t, st.UpsertFileNode(ctx, f))

	files, err := st.ListFileNodes(ctx, "/p")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/user.ts", files[0].Path)
	assert.Equal(t, types.LangTypeScript, files[0].Language)
}

func TestGetFileByPath(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertFileNode(ctx, &types.FileNode{
		FileID: "f1", Project: "/p", Path: "lib/a.rb", Language: types.LangRuby,
	}))

	got, err := st.GetFileByPath(ctx, "/p", "lib/a.rb")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.FileID)

	_, err = st.GetFileByPath(ctx, "/p", "lib/missing.rb")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertFunction(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	fn := &types.FunctionNode{
		FnID:      "fn1",
		Name:      "fetchUser",
		FileID:    "f1",
		ClassName: "UserService",
		IsExport:  true,
		IsAsync:   true,
		Language:  types.LangTypeScript,
		StartLine: 10,
		EndLine:   20,
		Project:   "/p",
	}
	require.NoError(t, st.UpsertFunction(ctx, fn))

	// Re-index shifts the body down without changing identity
	fn.StartLine, fn.EndLine = 12, 22
	require.NoError(t, st.UpsertFunction(ctx, fn))

	fns, err := st.FunctionsByName(ctx, "/p", "fetchUser")
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.Equal(t, 12, fns[0].StartLine)
	assert.True(t, fns[0].IsAsync)
	assert.Equal(t, "UserService", fns[0].ClassName)
}

func TestUpsertClass_MethodsRoundTrip(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	c := &types.ClassNode{
		ClassID:     "c1",
		Name:        "User",
		FileID:      "f1",
		ClassType:   types.ClassModel,
		ParentClass: "ApplicationRecord",
		Methods:     []string{"full_name", "admin?"},
		StartLine:   1,
		EndLine:     40,
		Project:     "/p",
	}
	require.NoError(t, st.UpsertClass(ctx, c))

	classes, err := st.ClassesByName(ctx, "/p", "User")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, types.ClassModel, classes[0].ClassType)
	assert.Equal(t, []string{"full_name", "admin?"}, classes[0].Methods)
}

func TestInsertEdges_DuplicatesCollapse(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	edges := []types.Edge{
		{FromID: "a", ToID: "b", Kind: types.EdgeCalls},
		{FromID: "a", ToID: "b", Kind: types.EdgeCalls},
		{FromID: "a", ToID: "b", Kind: types.EdgeAssociation, Attr: "has_many"},
	}
	require.NoError(t, st.InsertEdges(ctx, edges))
	require.NoError(t, st.InsertEdges(ctx, edges))

	calls, err := st.EdgesFrom(ctx, "a", types.EdgeCalls)
	require.NoError(t, err)
	assert.Len(t, calls, 1)

	all, err := st.EdgesFrom(ctx, "a", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	incoming, err := st.EdgesTo(ctx, "b", types.EdgeAssociation)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "has_many", incoming[0].Attr)
}

func TestPurgeFileData(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	// Two files; b.ts's function calls into a.ts and vice versa
	require.NoError(t, st.UpsertFileNode(ctx, &types.FileNode{FileID: "fa", Project: "/p", Path: "a.ts"}))
	require.NoError(t, st.UpsertFileNode(ctx, &types.FileNode{FileID: "fb", Project: "/p", Path: "b.ts"}))
	require.NoError(t, st.UpsertFunction(ctx, &types.FunctionNode{FnID: "fnA", Name: "alpha", FileID: "fa", Project: "/p"}))
	require.NoError(t, st.UpsertFunction(ctx, &types.FunctionNode{FnID: "fnB", Name: "beta", FileID: "fb", Project: "/p"}))
	require.NoError(t, st.UpsertClass(ctx, &types.ClassNode{ClassID: "clA", Name: "Alpha", FileID: "fa", Project: "/p"}))
	require.NoError(t, st.InsertEdges(ctx, []types.Edge{
		{FromID: "fa", ToID: "fnA", Kind: types.EdgeDeclares},
		{FromID: "fa", ToID: "fb", Kind: types.EdgeImports},
		{FromID: "fnA", ToID: "fnB", Kind: types.EdgeCalls},
		{FromID: "clA", ToID: "fnB", Kind: types.EdgeComponentCalls},
		{FromID: "fnB", ToID: "fnA", Kind: types.EdgeCalls},
	}))

	require.NoError(t, st.PurgeFileData(ctx, "/p", "a.ts"))

	// a.ts's nodes and outgoing edges are gone
	_, err := st.GetFileByPath(ctx, "/p", "a.ts")
	assert.ErrorIs(t, err, ErrNotFound)
	fns, err := st.FunctionsByName(ctx, "/p", "alpha")
	require.NoError(t, err)
	assert.Empty(t, fns)
	out, err := st.EdgesFrom(ctx, "fnA", "")
	require.NoError(t, err)
	assert.Empty(t, out)
	out, err = st.EdgesFrom(ctx, "clA", "")
	require.NoError(t, err)
	assert.Empty(t, out)
	out, err = st.EdgesFrom(ctx, "fa", "")
	require.NoError(t, err)
	assert.Empty(t, out)

	// b.ts survives; its edge into the purged function is orphaned, not removed
	_, err = st.GetFileByPath(ctx, "/p", "b.ts")
	require.NoError(t, err)
	orphaned, err := st.EdgesFrom(ctx, "fnB", types.EdgeCalls)
	require.NoError(t, err)
	require.Len(t, orphaned, 1)
	assert.Equal(t, "fnA", orphaned[0].ToID)
}

func TestPurgeFileData_UnknownPathIsNoop(t *testing.T) {
	st := setupTestStore(t)
	assert.NoError(t, st.PurgeFileData(context.Background(), "/p", "never/indexed.ts"))
}

func TestFileMetadataLedger(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	m := &types.FileMetadata{
		FileID:      "f1",
		Project:     "/p",
		Path:        "src/a.ts",
		ContentHash: "abc",
		Mtime:       1700000000,
		Size:        512,
	}
	require.NoError(t, st.UpsertFileMetadata(ctx, m))

	// Superseded on re-index
	m.ContentHash = "def"
	m.Size = 600
	require.NoError(t, st.UpsertFileMetadata(ctx, m))

	ledger, err := st.ListFileMetadata(ctx, "/p")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	got, ok := ledger["src/a.ts"]
	require.True(t, ok)
	assert.Equal(t, "def", got.ContentHash)
	assert.Equal(t, int64(600), got.Size)
	assert.False(t, got.LastIndexedAt.IsZero())

	require.NoError(t, st.DeleteFileMetadata(ctx, "/p", "src/a.ts"))
	ledger, err = st.ListFileMetadata(ctx, "/p")
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestSearchSymbols(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertFileNode(ctx, &types.FileNode{FileID: "f1", Project: "/p", Path: "user.ts"}))
	require.NoError(t, st.UpsertFunction(ctx, &types.FunctionNode{FnID: "fn1", Name: "fetchUser", FileID: "f1", Project: "/p", StartLine: 3}))
	require.NoError(t, st.UpsertFunction(ctx, &types.FunctionNode{FnID: "fn2", Name: "fetchOrders", FileID: "f1", Project: "/p"}))
	require.NoError(t, st.UpsertFunction(ctx, &types.FunctionNode{FnID: "fn3", Name: "render", FileID: "f1", Project: "/p"}))
	require.NoError(t, st.UpsertClass(ctx, &types.ClassNode{ClassID: "c1", Name: "FetchQueue", FileID: "f1", Project: "/p"}))

	// SQLite LIKE is ASCII case-insensitive, so "fetch" also hits FetchQueue;
	// classes sort before functions, then by name
	hits, err := st.SearchSymbols(ctx, "/p", "fetch", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "FetchQueue", hits[0].Name)
	assert.Equal(t, "class", hits[0].Kind)
	assert.Equal(t, "fetchOrders", hits[1].Name)
	assert.Equal(t, "fetchUser", hits[2].Name)
	assert.Equal(t, "user.ts", hits[2].Path)

	hits, err = st.SearchSymbols(ctx, "/p", "fetch", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "FetchQueue", hits[0].Name)

	hits, err = st.SearchSymbols(ctx, "/p", "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDocumentRoundTrip(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	doc := &types.Document{
		DocID:    "d1",
		Path:     "/p/docs/design.md",
		Title:    "Design",
		DocType:  types.DocDesign,
		Checksum: "c0ffee",
	}
	require.NoError(t, st.UpsertDocument(ctx, "/p", doc))

	// Heading tree: h1 > (h2, h2 > h3)
	sections := []types.Section{
		{SectionID: "s1", DocID: "d1", Heading: "Design", Level: 1, StartOffset: 0, EndOffset: 500},
		{SectionID: "s2", DocID: "d1", ParentID: "s1", Heading: "Goals", Level: 2, StartOffset: 20, EndOffset: 200},
		{SectionID: "s3", DocID: "d1", ParentID: "s1", Heading: "Layout", Level: 2, StartOffset: 200, EndOffset: 500},
		{SectionID: "s4", DocID: "d1", ParentID: "s3", Heading: "Storage", Level: 3, StartOffset: 300, EndOffset: 500},
	}
	for i := range sections {
		require.NoError(t, st.UpsertSection(ctx, &sections[i]))
	}

	got, err := st.GetDocumentByPath(ctx, "/p", "/p/docs/design.md")
	require.NoError(t, err)
	assert.Equal(t, types.DocDesign, got.DocType)
	assert.False(t, got.IndexedAt.IsZero())

	// Reconstruction order (level, start offset) reproduces the hierarchy
	stored, err := st.ListSections(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, stored, 4)
	assert.Equal(t, []string{"Design", "Goals", "Layout", "Storage"},
		[]string{stored[0].Heading, stored[1].Heading, stored[2].Heading, stored[3].Heading})
	assert.Equal(t, "s1", stored[1].ParentID)
	assert.Equal(t, "s3", stored[3].ParentID)

	require.NoError(t, st.UpsertChunk(ctx, "/p", &types.Chunk{
		ChunkID: "ch1", DocID: "d1", SectionID: "s2", Seq: 0, Content: "goal text",
	}))
	require.NoError(t, st.ReplaceChunkTerms(ctx, "ch1", []string{"goal", "text"}))
	require.NoError(t, st.UpsertChunkVector(ctx, "ch1", []float32{0.1, 0.2}, "local", "test"))

	chunks, err := st.ListChunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "goal text", chunks[0].Content)
}

func TestGetDocumentByPath_NotFound(t *testing.T) {
	st := setupTestStore(t)
	_, err := st.GetDocumentByPath(context.Background(), "/p", "/p/docs/none.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeDocument(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertDocument(ctx, "/p", &types.Document{DocID: "d1", Path: "/p/readme.md"}))
	require.NoError(t, st.UpsertSection(ctx, &types.Section{SectionID: "s1", DocID: "d1", Heading: "Top", Level: 1}))
	require.NoError(t, st.UpsertChunk(ctx, "/p", &types.Chunk{ChunkID: "ch1", DocID: "d1", SectionID: "s1", Content: "body"}))
	require.NoError(t, st.ReplaceChunkTerms(ctx, "ch1", []string{"body"}))
	require.NoError(t, st.UpsertChunkVector(ctx, "ch1", []float32{1}, "local", "test"))

	require.NoError(t, st.PurgeDocument(ctx, "d1"))

	_, err := st.GetDocumentByPath(ctx, "/p", "/p/readme.md")
	assert.ErrorIs(t, err, ErrNotFound)
	sections, err := st.ListSections(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, sections)
	chunks, err := st.ListChunks(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// Purging again is a no-op
	assert.NoError(t, st.PurgeDocument(ctx, "d1"))
}

func TestMessagesAndTerms(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	msgs := []types.Message{
		{MsgID: "m1", ConversationFile: "conv-a.jsonl", Role: "user", TS: ts, Text: "fix the auth bug"},
		{MsgID: "m2", ConversationFile: "conv-a.jsonl", Role: "assistant", TS: ts.Add(time.Minute), Text: "looking at auth now"},
		{MsgID: "m3", ConversationFile: "conv-b.jsonl", Role: "user", TS: ts.Add(time.Hour), Text: "unrelated question"},
	}
	for i := range msgs {
		require.NoError(t, st.InsertMessage(ctx, "/p", &msgs[i]))
	}
	require.NoError(t, st.ReplaceMessageTerms(ctx, "m1", []string{"fix", "auth", "bug"}))
	require.NoError(t, st.ReplaceMessageTerms(ctx, "m2", []string{"looking", "auth", "now"}))
	require.NoError(t, st.ReplaceMessageTerms(ctx, "m3", []string{"unrelated", "question"}))
	require.NoError(t, st.ReplaceMessageSymbols(ctx, "m1", []string{"AuthService"}))

	counts, err := st.MessageIDsMatchingTerms(ctx, "/p", []string{"auth", "bug"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"m1": 2, "m2": 1}, counts)

	counts, err = st.MessageIDsMatchingTerms(ctx, "/p", nil)
	require.NoError(t, err)
	assert.Empty(t, counts)

	fetched, err := st.GetMessagesByIDs(ctx, []string{"m1", "m3", "missing"})
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, "fix the auth bug", fetched["m1"].Text)
	assert.Equal(t, "user", fetched["m3"].Role)
	assert.WithinDuration(t, ts, fetched["m1"].TS, time.Second)
}

func TestDeleteMessagesByConversation(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertMessage(ctx, "/p", &types.Message{MsgID: "m1", ConversationFile: "a.jsonl", Role: "user", Text: "hello"}))
	require.NoError(t, st.InsertMessage(ctx, "/p", &types.Message{MsgID: "m2", ConversationFile: "b.jsonl", Role: "user", Text: "other"}))
	require.NoError(t, st.ReplaceMessageTerms(ctx, "m1", []string{"hello"}))
	require.NoError(t, st.UpsertMessageVector(ctx, "m1", []float32{0.5}, "local", "test"))

	require.NoError(t, st.DeleteMessagesByConversation(ctx, "/p", "a.jsonl"))

	fetched, err := st.GetMessagesByIDs(ctx, []string{"m1", "m2"})
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Contains(t, fetched, "m2")

	counts, err := st.MessageIDsMatchingTerms(ctx, "/p", []string{"hello"})
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestIngestState(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	_, err := st.GetIngestState(ctx, "/logs/conv.jsonl")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.UpsertIngestState(ctx, &IngestState{
		SourcePath: "/logs/conv.jsonl",
		Project:    "/p",
		LineCount:  42,
		HeadHash:   "aa11",
	}))

	got, err := st.GetIngestState(ctx, "/logs/conv.jsonl")
	require.NoError(t, err)
	assert.Equal(t, 42, got.LineCount)
	assert.Equal(t, "aa11", got.HeadHash)
	assert.False(t, got.UpdatedAt.IsZero())

	// Append-only growth advances the ledger
	require.NoError(t, st.UpsertIngestState(ctx, &IngestState{
		SourcePath: "/logs/conv.jsonl",
		Project:    "/p",
		LineCount:  50,
		HeadHash:   "aa11",
	}))
	got, err = st.GetIngestState(ctx, "/logs/conv.jsonl")
	require.NoError(t, err)
	assert.Equal(t, 50, got.LineCount)
}

func TestSchemaObjects(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	schema := &SchemaObject{ObjectID: "so1", Project: "/p", Name: "public", ObjectType: "schema"}
	table := &SchemaObject{ObjectID: "so2", Project: "/p", Name: "users", ObjectType: "table", ParentID: "so1"}
	column := &SchemaObject{ObjectID: "so3", Project: "/p", Name: "email", ObjectType: "column", ParentID: "so2", Detail: "text NOT NULL"}
	for _, o := range []*SchemaObject{schema, table, column} {
		require.NoError(t, st.UpsertSchemaObject(ctx, o))
	}

	objects, err := st.ListSchemaObjects(ctx, "/p")
	require.NoError(t, err)
	require.Len(t, objects, 3)
	assert.Equal(t, "email", objects[0].Name) // column sorts first by type
	assert.Equal(t, "text NOT NULL", objects[0].Detail)

	require.NoError(t, st.PurgeSchemaObjects(ctx, "/p"))
	objects, err = st.ListSchemaObjects(ctx, "/p")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestGetStatus(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertProject(ctx, &Project{RootPath: "/p", Language: "typescript"}))
	require.NoError(t, st.UpsertFileNode(ctx, &types.FileNode{FileID: "f1", Project: "/p", Path: "a.ts"}))
	require.NoError(t, st.UpsertFunction(ctx, &types.FunctionNode{FnID: "fn1", Name: "a", FileID: "f1", Project: "/p"}))
	require.NoError(t, st.UpsertFunction(ctx, &types.FunctionNode{FnID: "fn2", Name: "b", FileID: "f1", Project: "/p"}))
	require.NoError(t, st.InsertEdges(ctx, []types.Edge{
		{FromID: "f1", ToID: "fn1", Kind: types.EdgeDeclares},
		{FromID: "fn1", ToID: "fn2", Kind: types.EdgeCalls},
	}))
	require.NoError(t, st.InsertMessage(ctx, "/p", &types.Message{MsgID: "m1", ConversationFile: "c.jsonl", Text: "hi"}))
	require.NoError(t, st.UpsertMessageVector(ctx, "m1", []float32{1, 0}, "local", "test"))

	status, err := st.GetStatus(ctx, "/p")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Files)
	assert.Equal(t, 2, status.Functions)
	assert.Equal(t, 0, status.Classes)
	assert.Equal(t, 2, status.Edges)
	assert.Equal(t, 1, status.Messages)
	assert.Equal(t, 1, status.MessageVectors)
	assert.Equal(t, BuildMode, status.BuildMode)
}

func TestGetStatus_UnknownProject(t *testing.T) {
	st := setupTestStore(t)
	_, err := st.GetStatus(context.Background(), "/nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRollbackMigration(t *testing.T) {
	db, err := sql.Open(DriverName, ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, db))

	var version string
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&version))
	assert.Equal(t, CurrentSchemaVersion, version)

	// Applying again is a no-op
	require.NoError(t, ApplyMigrations(ctx, db))

	require.NoError(t, RollbackMigration(ctx, db))
	var name string
	err = db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='files'").Scan(&name)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
