package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Project registry
CREATE TABLE IF NOT EXISTS projects (
    root_path TEXT PRIMARY KEY,
    language TEXT,
    framework TEXT,
    index_version TEXT,
    last_indexed_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Code graph: files
CREATE TABLE IF NOT EXISTS files (
    file_id TEXT PRIMARY KEY,
    project TEXT NOT NULL,
    path TEXT NOT NULL,
    module TEXT,
    language TEXT,
    UNIQUE(project, path)
);

CREATE INDEX IF NOT EXISTS idx_files_project ON files(project);

-- Code graph: functions
CREATE TABLE IF NOT EXISTS functions (
    fn_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    file_id TEXT NOT NULL,
    class_name TEXT,
    is_export INTEGER DEFAULT 0,
    is_async INTEGER DEFAULT 0,
    language TEXT,
    start_line INTEGER,
    end_line INTEGER,
    project TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_functions_project ON functions(project);
CREATE INDEX IF NOT EXISTS idx_functions_file ON functions(file_id);
CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(name);

-- Code graph: classes
CREATE TABLE IF NOT EXISTS classes (
    class_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    file_id TEXT NOT NULL,
    class_type TEXT,
    parent_class TEXT,
    methods TEXT,
    start_line INTEGER,
    end_line INTEGER,
    project TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classes_project ON classes(project);
CREATE INDEX IF NOT EXISTS idx_classes_file ON classes(file_id);
CREATE INDEX IF NOT EXISTS idx_classes_name ON classes(name);

-- Code graph: edges. Deliberately no foreign keys: endpoints may be
-- external: / module: references or nodes purged in a later run, and an
-- edge outliving one endpoint is preferable to cascading deletes hiding
-- cardinality.
CREATE TABLE IF NOT EXISTS edges (
    from_id TEXT NOT NULL,
    to_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    attr TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (from_id, to_id, kind, attr)
);

CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(kind);

-- Delta-sync ledger
CREATE TABLE IF NOT EXISTS file_metadata (
    project TEXT NOT NULL,
    path TEXT NOT NULL,
    file_id TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    mtime INTEGER NOT NULL,
    size INTEGER NOT NULL,
    last_indexed_at TIMESTAMP,
    PRIMARY KEY (project, path)
);

-- Documents
CREATE TABLE IF NOT EXISTS documents (
    doc_id TEXT PRIMARY KEY,
    project TEXT NOT NULL,
    path TEXT NOT NULL,
    title TEXT,
    doc_type TEXT,
    checksum TEXT,
    indexed_at TIMESTAMP,
    UNIQUE(project, path)
);

CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project);

CREATE TABLE IF NOT EXISTS sections (
    section_id TEXT PRIMARY KEY,
    doc_id TEXT NOT NULL,
    parent_id TEXT,
    heading TEXT,
    level INTEGER,
    start_offset INTEGER,
    end_offset INTEGER
);

CREATE INDEX IF NOT EXISTS idx_sections_doc ON sections(doc_id);

CREATE TABLE IF NOT EXISTS chunks (
    chunk_id TEXT PRIMARY KEY,
    doc_id TEXT NOT NULL,
    section_id TEXT,
    seq INTEGER,
    content TEXT NOT NULL,
    project TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project);

CREATE TABLE IF NOT EXISTS chunk_terms (
    term TEXT NOT NULL,
    chunk_id TEXT NOT NULL,
    PRIMARY KEY (term, chunk_id)
);

CREATE TABLE IF NOT EXISTS chunk_vectors (
    chunk_id TEXT PRIMARY KEY,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    provider TEXT,
    model TEXT
);

-- Conversation history
CREATE TABLE IF NOT EXISTS messages (
    msg_id TEXT PRIMARY KEY,
    project TEXT NOT NULL,
    conversation_file TEXT NOT NULL,
    role TEXT,
    ts TIMESTAMP,
    content TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_project ON messages(project);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_file);
CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);

CREATE TABLE IF NOT EXISTS message_terms (
    term TEXT NOT NULL,
    msg_id TEXT NOT NULL,
    PRIMARY KEY (term, msg_id)
);

CREATE TABLE IF NOT EXISTS message_symbols (
    symbol TEXT NOT NULL,
    msg_id TEXT NOT NULL,
    PRIMARY KEY (symbol, msg_id)
);

CREATE TABLE IF NOT EXISTS message_vectors (
    msg_id TEXT PRIMARY KEY,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    provider TEXT,
    model TEXT
);

-- Transcript ingestion ledger
CREATE TABLE IF NOT EXISTS ingest_state (
    source_path TEXT PRIMARY KEY,
    project TEXT NOT NULL,
    line_count INTEGER NOT NULL,
    head_hash TEXT NOT NULL,
    updated_at TIMESTAMP
);

-- Introspected database schema objects
CREATE TABLE IF NOT EXISTS schema_objects (
    object_id TEXT PRIMARY KEY,
    project TEXT NOT NULL,
    name TEXT NOT NULL,
    object_type TEXT NOT NULL,
    parent_id TEXT,
    detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_schema_objects_project ON schema_objects(project);
`

// The down script leaves schema_version in place so the rollback can remove
// its version record afterward.
const migrationV1Down = `
DROP TABLE IF EXISTS schema_objects;
DROP TABLE IF EXISTS ingest_state;
DROP TABLE IF EXISTS message_vectors;
DROP TABLE IF EXISTS message_symbols;
DROP TABLE IF EXISTS message_terms;
DROP TABLE IF EXISTS messages;
DROP TABLE IF EXISTS chunk_vectors;
DROP TABLE IF EXISTS chunk_terms;
DROP TABLE IF EXISTS chunks;
DROP TABLE IF EXISTS sections;
DROP TABLE IF EXISTS documents;
DROP TABLE IF EXISTS file_metadata;
DROP TABLE IF EXISTS edges;
DROP TABLE IF EXISTS classes;
DROP TABLE IF EXISTS functions;
DROP TABLE IF EXISTS files;
DROP TABLE IF EXISTS projects;
`

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	// Check if schema_version table exists
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	var currentVersion *semver.Version
	if errors.Is(err, sql.ErrNoRows) {
		currentVersion = semver.MustParse("0.0.0")
	} else if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	} else {
		var currentVersionStr string
		err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersionStr)
		if errors.Is(err, sql.ErrNoRows) || currentVersionStr == "" {
			currentVersion = semver.MustParse("0.0.0")
		} else if err != nil {
			return fmt.Errorf("failed to read schema_version: %w", err)
		} else {
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("invalid current schema version %s: %w", currentVersionStr, err)
			}
		}
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // already applied
		}

		if _, err = db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if _, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	var currentVersion string
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	var migration *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == currentVersion {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	if _, err = db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", currentVersion, err)
	}

	if _, err = db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", currentVersion); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", currentVersion, err)
	}

	return nil
}
