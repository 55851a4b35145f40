package store

import (
	"context"
	"fmt"
)

// SchemaObject is one introspected database schema entity (schema, table,
// column, index, constraint, view, enum, procedure). Containment is modeled
// through ParentID, mirroring the code graph's file→function nesting.
type SchemaObject struct {
	ObjectID   string
	Project    string
	Name       string
	ObjectType string
	ParentID   string
	Detail     string // type/definition text, e.g. a column's SQL type
}

// UpsertSchemaObject inserts or replaces one schema object
func (s *Store) UpsertSchemaObject(ctx context.Context, o *SchemaObject) error {
	query := `
		INSERT INTO schema_objects (object_id, project, name, object_type, parent_id, detail)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(object_id) DO UPDATE SET
			project = excluded.project,
			name = excluded.name,
			object_type = excluded.object_type,
			parent_id = excluded.parent_id,
			detail = excluded.detail
	`
	if _, err := s.db.ExecContext(ctx, query,
		o.ObjectID, o.Project, o.Name, o.ObjectType, o.ParentID, o.Detail); err != nil {
		return fmt.Errorf("failed to upsert schema object: %w", err)
	}
	return nil
}

// ListSchemaObjects returns a project's schema objects grouped by type
func (s *Store) ListSchemaObjects(ctx context.Context, project string) ([]SchemaObject, error) {
	query := `
		SELECT object_id, project, name, object_type, parent_id, detail
		FROM schema_objects WHERE project = ?
		ORDER BY object_type, name
	`
	rows, err := s.db.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list schema objects: %w", err)
	}
	defer rows.Close()

	var objects []SchemaObject
	for rows.Next() {
		var o SchemaObject
		if err := rows.Scan(&o.ObjectID, &o.Project, &o.Name, &o.ObjectType, &o.ParentID, &o.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan schema object: %w", err)
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

// PurgeSchemaObjects drops a project's entire introspected schema so a
// re-introspection starts clean. Objects dropped from the live database
// would otherwise linger, since upserts only ever add or replace.
func (s *Store) PurgeSchemaObjects(ctx context.Context, project string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM schema_objects WHERE project = ?`, project); err != nil {
		return fmt.Errorf("failed to purge schema objects: %w", err)
	}
	return nil
}
