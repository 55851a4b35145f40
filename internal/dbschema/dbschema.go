// Package dbschema builds a schema graph from a live Postgres database:
// schemas, tables, columns, indexes, constraints, foreign keys, views,
// enums and procedures, read-only from the catalog, persisted through the
// same deterministic ID scheme the code graph uses. Re-introspection purges
// and rebuilds the project's schema objects, since dropped database objects
// leave no delta trail to diff against.
package dbschema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/recallhq/recall/internal/store"
)

// Object type labels stored on schema_objects rows
const (
	TypeSchema     = "schema"
	TypeTable      = "table"
	TypeColumn     = "column"
	TypeIndex      = "index"
	TypeConstraint = "constraint"
	TypeForeignKey = "foreign_key"
	TypeView       = "view"
	TypeEnum       = "enum"
	TypeProcedure  = "procedure"
)

// Snapshot is everything one introspection pass reads from the catalog
type Snapshot struct {
	Schemas     []string
	Tables      []Table
	Columns     []Column
	Indexes     []Index
	Constraints []Constraint
	ForeignKeys []ForeignKey
	Views       []View
	Enums       []Enum
	Procedures  []Procedure
}

// Table is one base table
type Table struct {
	Schema string
	Name   string
}

// Column is one table column
type Column struct {
	Schema   string
	Table    string
	Name     string
	DataType string
	Nullable bool
	Default  string
}

// Index is one index with its definition text
type Index struct {
	Schema     string
	Table      string
	Name       string
	Definition string
}

// Constraint is one non-FK table constraint
type Constraint struct {
	Schema string
	Table  string
	Name   string
	Type   string // PRIMARY KEY, UNIQUE, CHECK
}

// ForeignKey links a column to the column it references
type ForeignKey struct {
	Schema    string
	Table     string
	Name      string
	Column    string
	RefSchema string
	RefTable  string
	RefColumn string
}

// View is one view or materialized view
type View struct {
	Schema string
	Name   string
}

// Enum is one enum type with its labels in sort order
type Enum struct {
	Schema string
	Name   string
	Labels []string
}

// Procedure is one stored function or procedure
type Procedure struct {
	Schema string
	Name   string
	Kind   string // FUNCTION or PROCEDURE
}

// Stats reports what one introspection run produced
type Stats struct {
	Objects  int
	Duration time.Duration
}

// Introspector reads schema metadata from one Postgres connection
type Introspector struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres. The connection is used read-only; nothing in
// this package issues writes against it.
func Open(dsn string, logger *slog.Logger) (*Introspector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Introspector{db: db, logger: logger}, nil
}

// Close releases the database connection
func (in *Introspector) Close() error {
	return in.db.Close()
}

// IndexSchema introspects the live database and replaces the project's
// schema graph with the result.
func (in *Introspector) IndexSchema(ctx context.Context, st *store.Store, project string) (*Stats, error) {
	start := time.Now()

	snapshot, err := in.Introspect(ctx)
	if err != nil {
		return nil, err
	}
	objects := BuildObjects(project, snapshot)

	if err := st.PurgeSchemaObjects(ctx, project); err != nil {
		return nil, err
	}
	for i := range objects {
		if err := st.UpsertSchemaObject(ctx, &objects[i]); err != nil {
			return nil, err
		}
	}

	stats := &Stats{Objects: len(objects), Duration: time.Since(start)}
	in.logger.Info("schema introspection complete",
		"project", project,
		"objects", stats.Objects,
		"duration", stats.Duration)
	return stats, nil
}

// Introspect reads a full catalog snapshot
func (in *Introspector) Introspect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	steps := []struct {
		name string
		run  func(context.Context, *Snapshot) error
	}{
		{"schemas", in.readSchemas},
		{"tables", in.readTables},
		{"columns", in.readColumns},
		{"indexes", in.readIndexes},
		{"constraints", in.readConstraints},
		{"foreign keys", in.readForeignKeys},
		{"views", in.readViews},
		{"enums", in.readEnums},
		{"procedures", in.readProcedures},
	}
	for _, step := range steps {
		if err := step.run(ctx, snap); err != nil {
			return nil, fmt.Errorf("introspect %s: %w", step.name, err)
		}
	}
	return snap, nil
}
