package types

import "time"

// EdgeKind names a relation between two graph nodes
type EdgeKind string

const (
	EdgeDeclares       EdgeKind = "declares"        // file → function
	EdgeCalls          EdgeKind = "calls"           // function → function
	EdgeComponentCalls EdgeKind = "component_calls" // class → function
	EdgeImports        EdgeKind = "imports"         // file → file|module
	EdgeExtends        EdgeKind = "extends"         // class → class
	EdgeIncludes       EdgeKind = "includes"        // class → module
	EdgeAssociation    EdgeKind = "association"     // class → class, attr = kind
	EdgeSerializes     EdgeKind = "serializes"      // class → class
	EdgeSchemaChild    EdgeKind = "schema_child"    // schema object containment
)

// FileNode is the persisted record for one indexed source file
type FileNode struct {
	FileID   string
	Path     string // relative to project root
	Module   string // top-level directory, or "." at root
	Language Language
	Project  string // absolute project path this node belongs to
}

// FunctionNode is the persisted record for one function or method
type FunctionNode struct {
	FnID      string
	Name      string
	FileID    string
	ClassName string
	IsExport  bool
	IsAsync   bool
	Language  Language
	StartLine int
	EndLine   int
	Project   string
}

// ClassNode is the persisted record for one class/component
type ClassNode struct {
	ClassID     string
	Name        string
	FileID      string
	ClassType   ClassType
	ParentClass string // resolved class ID or external: reference
	// Methods lists method names declared on the class, derived from the
	// file's functions whose ClassName matches.
	Methods   []string
	StartLine int
	EndLine   int
	Project   string
}

// Edge is one directed relation between two nodes. Either endpoint may carry
// an "external:" or "module:" prefix marking a target outside the indexed
// project; such edges are kept rather than dropped to preserve cardinality.
type Edge struct {
	FromID string
	ToID   string
	Kind   EdgeKind
	Attr   string // association kind, import symbol list, etc.
}

// FileMetadata is the delta-sync ledger row: one per indexed file, superseded
// on every re-index and removed when the file disappears.
type FileMetadata struct {
	FileID        string
	Project       string
	Path          string // key used for change classification
	ContentHash   string
	Mtime         int64 // unix seconds
	Size          int64
	LastIndexedAt time.Time
}

// ChangeSet is the outcome of delta classification over one project scan
type ChangeSet struct {
	New       []string
	Modified  []string
	Deleted   []string
	Unchanged []string
}

// Total returns the number of files classified
func (c *ChangeSet) Total() int {
	return len(c.New) + len(c.Modified) + len(c.Deleted) + len(c.Unchanged)
}

// Dirty returns true when any file needs re-indexing or purging
func (c *ChangeSet) Dirty() bool {
	return len(c.New)+len(c.Modified)+len(c.Deleted) > 0
}
