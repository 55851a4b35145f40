package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDsAreDeterministic(t *testing.T) {
	a := FunctionID("app/models/user.rb", "User.full_name")
	b := FunctionID("app/models/user.rb", "User.full_name")

	assert.Equal(t, a, b)
	assert.Len(t, a, ShortIDLen)
}

func TestIDsDifferByKind(t *testing.T) {
	// Same parts, different kinds must never collide.
	file := FileID("src/index.ts")
	doc := DocumentID("src/index.ts")

	assert.NotEqual(t, file, doc)
}

func TestMethodAndFreeFunctionDoNotCollide(t *testing.T) {
	method := FunctionID("lib/job.rb", "Job.run")
	free := FunctionID("lib/job.rb", "run")

	assert.NotEqual(t, method, free)
}

func TestPartBoundariesMatter(t *testing.T) {
	// NUL separation: ("ab","c") and ("a","bc") are distinct inputs.
	assert.NotEqual(t, Hash("x", "ab", "c"), Hash("x", "a", "bc"))
}

func TestPathSeparatorNormalization(t *testing.T) {
	assert.Equal(t, FileID("src/a/b.ts"), FileID(`src\a\b.ts`))
}

func TestExternalMarkers(t *testing.T) {
	assert.Equal(t, "external:ActiveRecord::Base", External("ActiveRecord::Base"))
	assert.Equal(t, "module:react", Module("react"))

	assert.True(t, IsExternal(External("X")))
	assert.True(t, IsExternal(Module("react")))
	assert.False(t, IsExternal(FileID("a.ts")))
}

func TestSchemaObjectID(t *testing.T) {
	table := SchemaObjectID("table", "public", "users")
	column := SchemaObjectID("column", "public", "users", "id")

	assert.NotEqual(t, table, column)
	assert.Equal(t, table, SchemaObjectID("table", "public", "users"))
}
