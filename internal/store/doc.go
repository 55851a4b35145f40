// Package store provides SQLite-based persistence for the code graph,
// document index, and conversation history.
//
// The store manages:
//   - Project registry rows
//   - File, function, and class nodes plus typed edges between them
//   - The delta-sync file metadata ledger
//   - Documents, their section trees, and chunks with terms and vectors
//   - Conversation messages with terms, code symbols, and vectors
//   - Transcript ingestion state
//   - Introspected database schema objects
//
// # Database Schema
//
// Tables:
//   - projects: project roots with detected language/framework
//   - files, functions, classes: graph nodes keyed by deterministic hash IDs
//   - edges: typed relations (declares, calls, imports, extends, ...)
//   - file_metadata: delta-sync ledger (content hash, mtime, size)
//   - documents, sections, chunks: the markdown document index
//   - chunk_terms, chunk_vectors: per-chunk lexical terms and embeddings
//   - messages, message_terms, message_symbols, message_vectors: history
//   - ingest_state: how much of each transcript has been ingested
//   - schema_objects: introspected relational schema entities
//
// # Atomicity
//
// Every method issues individually atomic statements; there is no
// transaction surface. Multi-statement operations (purge-then-reinsert
// during delta sync) are sequenced by the indexers, and node IDs are
// deterministic content hashes, so re-running an interrupted operation
// converges to the same rows.
//
// # Basic Usage
//
//	st, err := store.Open("~/.recall/recall.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
//	err = st.UpsertFileNode(ctx, &types.FileNode{
//	    FileID:   identity.FileID("app/models/user.rb"),
//	    Project:  "/home/dev/shop",
//	    Path:     "app/models/user.rb",
//	    Language: types.LangRuby,
//	})
//
// # Vector Search
//
//	matches, err := st.SearchMessageVectors(ctx, project, queryVec, 100)
//	for _, m := range matches {
//	    fmt.Printf("%s: %.3f\n", m.MsgID, m.Similarity)
//	}
//
// Similarity is computed by the sqlite-vec extension in SQL (CGO build) or
// by a full scan with cosine similarity in Go (purego build). Both paths
// return the same scores.
//
// # Call Chains
//
//	entries, err := st.CallChain(ctx, fnID, store.DefaultChainDepth)
//
// Traversal is a recursive CTE over calls edges with an explicit depth
// bound, so cyclic call graphs terminate.
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Auto-loads the sqlite-vec extension for SQL-side cosine distance
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (default or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - Pure Go vector operations (slower)
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build
package store
