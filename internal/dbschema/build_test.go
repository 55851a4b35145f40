package dbschema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/identity"
	"github.com/recallhq/recall/internal/store"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Schemas: []string{"public"},
		Tables:  []Table{{Schema: "public", Name: "users"}, {Schema: "public", Name: "orders"}},
		Columns: []Column{
			{Schema: "public", Table: "users", Name: "id", DataType: "bigint", Nullable: false, Default: "nextval('users_id_seq')"},
			{Schema: "public", Table: "users", Name: "email", DataType: "text", Nullable: false},
			{Schema: "public", Table: "orders", Name: "user_id", DataType: "bigint", Nullable: true},
		},
		Indexes: []Index{
			{Schema: "public", Table: "users", Name: "users_email_idx", Definition: "CREATE UNIQUE INDEX users_email_idx ON public.users (email)"},
		},
		Constraints: []Constraint{
			{Schema: "public", Table: "users", Name: "users_pkey", Type: "PRIMARY KEY"},
		},
		ForeignKeys: []ForeignKey{
			{Schema: "public", Table: "orders", Name: "orders_user_id_fkey",
				Column: "user_id", RefSchema: "public", RefTable: "users", RefColumn: "id"},
		},
		Views:      []View{{Schema: "public", Name: "active_users"}},
		Enums:      []Enum{{Schema: "public", Name: "order_status", Labels: []string{"pending", "shipped", "done"}}},
		Procedures: []Procedure{{Schema: "public", Name: "refresh_totals", Kind: "FUNCTION"}},
	}
}

func findObject(objects []store.SchemaObject, objType, name string) *store.SchemaObject {
	for i := range objects {
		if objects[i].ObjectType == objType && objects[i].Name == name {
			return &objects[i]
		}
	}
	return nil
}

func TestBuildObjects_ContainmentHierarchy(t *testing.T) {
	objects := BuildObjects("/home/dev/shop", sampleSnapshot())

	schema := findObject(objects, TypeSchema, "public")
	require.NotNil(t, schema)
	assert.Empty(t, schema.ParentID)

	table := findObject(objects, TypeTable, "users")
	require.NotNil(t, table)
	assert.Equal(t, schema.ObjectID, table.ParentID)

	col := findObject(objects, TypeColumn, "email")
	require.NotNil(t, col)
	assert.Equal(t, table.ObjectID, col.ParentID)
	assert.Equal(t, "text not null", col.Detail)

	fk := findObject(objects, TypeForeignKey, "orders_user_id_fkey")
	require.NotNil(t, fk)
	orders := findObject(objects, TypeTable, "orders")
	require.NotNil(t, orders)
	assert.Equal(t, orders.ObjectID, fk.ParentID)
	assert.Equal(t, "user_id -> public.users(id)", fk.Detail)

	enum := findObject(objects, TypeEnum, "order_status")
	require.NotNil(t, enum)
	assert.Equal(t, "pending, shipped, done", enum.Detail)

	proc := findObject(objects, TypeProcedure, "refresh_totals")
	require.NotNil(t, proc)
	assert.Equal(t, "function", proc.Detail)
}

func TestBuildObjects_Deterministic(t *testing.T) {
	first := BuildObjects("/home/dev/shop", sampleSnapshot())
	second := BuildObjects("/home/dev/shop", sampleSnapshot())
	assert.Equal(t, first, second)

	// Same containment path always hashes to the same ID
	assert.Equal(t,
		identity.SchemaObjectID(TypeColumn, "public", "users", "email"),
		findObject(first, TypeColumn, "email").ObjectID)
}

func TestBuildObjects_SameNameDifferentKindsDistinct(t *testing.T) {
	snap := &Snapshot{
		Schemas: []string{"public"},
		Tables:  []Table{{Schema: "public", Name: "audit"}},
		Views:   []View{{Schema: "public", Name: "audit"}},
	}
	objects := BuildObjects("/p", snap)

	table := findObject(objects, TypeTable, "audit")
	view := findObject(objects, TypeView, "audit")
	require.NotNil(t, table)
	require.NotNil(t, view)
	assert.NotEqual(t, table.ObjectID, view.ObjectID)
}

func TestBuildObjects_PersistRoundTrip(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	objects := BuildObjects("/home/dev/shop", sampleSnapshot())
	require.NoError(t, st.PurgeSchemaObjects(ctx, "/home/dev/shop"))
	for i := range objects {
		require.NoError(t, st.UpsertSchemaObject(ctx, &objects[i]))
	}

	stored, err := st.ListSchemaObjects(ctx, "/home/dev/shop")
	require.NoError(t, err)
	assert.Len(t, stored, len(objects))

	// Re-introspection converges rather than duplicating
	for i := range objects {
		require.NoError(t, st.UpsertSchemaObject(ctx, &objects[i]))
	}
	stored, err = st.ListSchemaObjects(ctx, "/home/dev/shop")
	require.NoError(t, err)
	assert.Len(t, stored, len(objects))
}
