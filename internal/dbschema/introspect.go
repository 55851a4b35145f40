package dbschema

import (
	"context"
	"database/sql"
	"fmt"
)

// systemSchemas are excluded from introspection
const systemSchemaFilter = `NOT IN ('pg_catalog', 'information_schema', 'pg_toast')`

func (in *Introspector) readSchemas(ctx context.Context, snap *Snapshot) error {
	query := `
		SELECT schema_name FROM information_schema.schemata
		WHERE schema_name ` + systemSchemaFilter + `
		ORDER BY schema_name
	`
	return in.scanRows(ctx, query, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		snap.Schemas = append(snap.Schemas, name)
		return nil
	})
}

func (in *Introspector) readTables(ctx context.Context, snap *Snapshot) error {
	query := `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE' AND table_schema ` + systemSchemaFilter + `
		ORDER BY table_schema, table_name
	`
	return in.scanRows(ctx, query, func(rows *sql.Rows) error {
		var tbl Table
		if err := rows.Scan(&tbl.Schema, &tbl.Name); err != nil {
			return err
		}
		snap.Tables = append(snap.Tables, tbl)
		return nil
	})
}

func (in *Introspector) readColumns(ctx context.Context, snap *Snapshot) error {
	query := `
		SELECT table_schema, table_name, column_name, data_type,
		       is_nullable = 'YES', COALESCE(column_default, '')
		FROM information_schema.columns
		WHERE table_schema ` + systemSchemaFilter + `
		ORDER BY table_schema, table_name, ordinal_position
	`
	return in.scanRows(ctx, query, func(rows *sql.Rows) error {
		var col Column
		if err := rows.Scan(&col.Schema, &col.Table, &col.Name,
			&col.DataType, &col.Nullable, &col.Default); err != nil {
			return err
		}
		snap.Columns = append(snap.Columns, col)
		return nil
	})
}

func (in *Introspector) readIndexes(ctx context.Context, snap *Snapshot) error {
	query := `
		SELECT schemaname, tablename, indexname, indexdef
		FROM pg_indexes
		WHERE schemaname ` + systemSchemaFilter + `
		ORDER BY schemaname, tablename, indexname
	`
	return in.scanRows(ctx, query, func(rows *sql.Rows) error {
		var idx Index
		if err := rows.Scan(&idx.Schema, &idx.Table, &idx.Name, &idx.Definition); err != nil {
			return err
		}
		snap.Indexes = append(snap.Indexes, idx)
		return nil
	})
}

func (in *Introspector) readConstraints(ctx context.Context, snap *Snapshot) error {
	// Foreign keys are read separately with their reference targets
	query := `
		SELECT table_schema, table_name, constraint_name, constraint_type
		FROM information_schema.table_constraints
		WHERE constraint_type != 'FOREIGN KEY' AND table_schema ` + systemSchemaFilter + `
		ORDER BY table_schema, table_name, constraint_name
	`
	return in.scanRows(ctx, query, func(rows *sql.Rows) error {
		var con Constraint
		if err := rows.Scan(&con.Schema, &con.Table, &con.Name, &con.Type); err != nil {
			return err
		}
		snap.Constraints = append(snap.Constraints, con)
		return nil
	})
}

func (in *Introspector) readForeignKeys(ctx context.Context, snap *Snapshot) error {
	query := `
		SELECT tc.table_schema, tc.table_name, tc.constraint_name,
		       kcu.column_name, ccu.table_schema, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.constraint_schema = tc.constraint_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.constraint_schema = tc.constraint_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema ` + systemSchemaFilter + `
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name
	`
	return in.scanRows(ctx, query, func(rows *sql.Rows) error {
		var fk ForeignKey
		if err := rows.Scan(&fk.Schema, &fk.Table, &fk.Name,
			&fk.Column, &fk.RefSchema, &fk.RefTable, &fk.RefColumn); err != nil {
			return err
		}
		snap.ForeignKeys = append(snap.ForeignKeys, fk)
		return nil
	})
}

func (in *Introspector) readViews(ctx context.Context, snap *Snapshot) error {
	query := `
		SELECT table_schema, table_name
		FROM information_schema.views
		WHERE table_schema ` + systemSchemaFilter + `
		UNION ALL
		SELECT schemaname, matviewname FROM pg_matviews
		WHERE schemaname ` + systemSchemaFilter + `
		ORDER BY 1, 2
	`
	return in.scanRows(ctx, query, func(rows *sql.Rows) error {
		var v View
		if err := rows.Scan(&v.Schema, &v.Name); err != nil {
			return err
		}
		snap.Views = append(snap.Views, v)
		return nil
	})
}

func (in *Introspector) readEnums(ctx context.Context, snap *Snapshot) error {
	query := `
		SELECT n.nspname, t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON e.enumtypid = t.oid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname ` + systemSchemaFilter + `
		ORDER BY n.nspname, t.typname, e.enumsortorder
	`
	return in.scanRows(ctx, query, func(rows *sql.Rows) error {
		var schema, name, label string
		if err := rows.Scan(&schema, &name, &label); err != nil {
			return err
		}
		// Labels arrive in sort order; fold consecutive rows per enum
		if n := len(snap.Enums); n > 0 &&
			snap.Enums[n-1].Schema == schema && snap.Enums[n-1].Name == name {
			snap.Enums[n-1].Labels = append(snap.Enums[n-1].Labels, label)
			return nil
		}
		snap.Enums = append(snap.Enums, Enum{Schema: schema, Name: name, Labels: []string{label}})
		return nil
	})
}

func (in *Introspector) readProcedures(ctx context.Context, snap *Snapshot) error {
	query := `
		SELECT routine_schema, routine_name, routine_type
		FROM information_schema.routines
		WHERE routine_schema ` + systemSchemaFilter + `
		ORDER BY routine_schema, routine_name
	`
	return in.scanRows(ctx, query, func(rows *sql.Rows) error {
		var proc Procedure
		var kind sql.NullString
		if err := rows.Scan(&proc.Schema, &proc.Name, &kind); err != nil {
			return err
		}
		proc.Kind = kind.String
		snap.Procedures = append(snap.Procedures, proc)
		return nil
	})
}

// scanRows runs a query and feeds each row to scan
func (in *Introspector) scanRows(ctx context.Context, query string, scan func(*sql.Rows) error) error {
	rows, err := in.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
	}
	return rows.Err()
}
