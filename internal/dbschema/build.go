package dbschema

import (
	"fmt"
	"strings"

	"github.com/recallhq/recall/internal/identity"
	"github.com/recallhq/recall/internal/store"
)

// BuildObjects converts a catalog snapshot into schema-graph rows. IDs are
// content-hashed over the containment path, so re-introspecting an
// unchanged database produces byte-identical rows.
func BuildObjects(project string, snap *Snapshot) []store.SchemaObject {
	var objects []store.SchemaObject
	add := func(o store.SchemaObject) {
		o.Project = project
		objects = append(objects, o)
	}

	for _, schema := range snap.Schemas {
		add(store.SchemaObject{
			ObjectID:   identity.SchemaObjectID(TypeSchema, schema),
			Name:       schema,
			ObjectType: TypeSchema,
		})
	}

	for _, tbl := range snap.Tables {
		add(store.SchemaObject{
			ObjectID:   identity.SchemaObjectID(TypeTable, tbl.Schema, tbl.Name),
			Name:       tbl.Name,
			ObjectType: TypeTable,
			ParentID:   identity.SchemaObjectID(TypeSchema, tbl.Schema),
		})
	}

	for _, col := range snap.Columns {
		detail := col.DataType
		if !col.Nullable {
			detail += " not null"
		}
		if col.Default != "" {
			detail += " default " + col.Default
		}
		add(store.SchemaObject{
			ObjectID:   identity.SchemaObjectID(TypeColumn, col.Schema, col.Table, col.Name),
			Name:       col.Name,
			ObjectType: TypeColumn,
			ParentID:   identity.SchemaObjectID(TypeTable, col.Schema, col.Table),
			Detail:     detail,
		})
	}

	for _, idx := range snap.Indexes {
		add(store.SchemaObject{
			ObjectID:   identity.SchemaObjectID(TypeIndex, idx.Schema, idx.Table, idx.Name),
			Name:       idx.Name,
			ObjectType: TypeIndex,
			ParentID:   identity.SchemaObjectID(TypeTable, idx.Schema, idx.Table),
			Detail:     idx.Definition,
		})
	}

	for _, con := range snap.Constraints {
		add(store.SchemaObject{
			ObjectID:   identity.SchemaObjectID(TypeConstraint, con.Schema, con.Table, con.Name),
			Name:       con.Name,
			ObjectType: TypeConstraint,
			ParentID:   identity.SchemaObjectID(TypeTable, con.Schema, con.Table),
			Detail:     strings.ToLower(con.Type),
		})
	}

	for _, fk := range snap.ForeignKeys {
		add(store.SchemaObject{
			ObjectID:   identity.SchemaObjectID(TypeForeignKey, fk.Schema, fk.Table, fk.Name, fk.Column),
			Name:       fk.Name,
			ObjectType: TypeForeignKey,
			ParentID:   identity.SchemaObjectID(TypeTable, fk.Schema, fk.Table),
			Detail: fmt.Sprintf("%s -> %s.%s(%s)",
				fk.Column, fk.RefSchema, fk.RefTable, fk.RefColumn),
		})
	}

	for _, v := range snap.Views {
		add(store.SchemaObject{
			ObjectID:   identity.SchemaObjectID(TypeView, v.Schema, v.Name),
			Name:       v.Name,
			ObjectType: TypeView,
			ParentID:   identity.SchemaObjectID(TypeSchema, v.Schema),
		})
	}

	for _, e := range snap.Enums {
		add(store.SchemaObject{
			ObjectID:   identity.SchemaObjectID(TypeEnum, e.Schema, e.Name),
			Name:       e.Name,
			ObjectType: TypeEnum,
			ParentID:   identity.SchemaObjectID(TypeSchema, e.Schema),
			Detail:     strings.Join(e.Labels, ", "),
		})
	}

	for _, proc := range snap.Procedures {
		add(store.SchemaObject{
			ObjectID:   identity.SchemaObjectID(TypeProcedure, proc.Schema, proc.Name),
			Name:       proc.Name,
			ObjectType: TypeProcedure,
			ParentID:   identity.SchemaObjectID(TypeSchema, proc.Schema),
			Detail:     strings.ToLower(proc.Kind),
		})
	}

	return objects
}
