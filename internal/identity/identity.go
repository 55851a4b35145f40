// Package identity generates deterministic content-hash IDs for graph nodes
// and edges. IDs are pure functions of their inputs: stable across runs and
// portable across machines, so re-indexing unchanged input is a no-op at the
// storage layer.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ShortIDLen is the hex-digest prefix length used for node IDs. 64 bits of
// digest keeps IDs human-readable while collisions stay negligible at
// single-project scale.
const ShortIDLen = 16

// Prefixes marking edge targets that live outside the indexed project.
const (
	ExternalPrefix = "external:"
	ModulePrefix   = "module:"
)

// Hash returns the full hex digest of kind plus parts. Parts are
// NUL-separated so ("ab","c") and ("a","bc") never collide.
func Hash(kind string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ShortHash returns the ShortIDLen-character prefix of Hash
func ShortHash(kind string, parts ...string) string {
	return Hash(kind, parts...)[:ShortIDLen]
}

// FileID derives the node ID for a source file from its project-relative path
func FileID(relPath string) string {
	return ShortHash("file", normalize(relPath))
}

// FunctionID derives the node ID for a function from its file's relative
// path and its qualified name. Methods embed their owning class in the
// qualified name, so methods and free functions never collide.
func FunctionID(relPath, qualifiedName string) string {
	return ShortHash("fn", normalize(relPath), qualifiedName)
}

// ClassID derives the node ID for a class/component
func ClassID(relPath, className string) string {
	return ShortHash("class", normalize(relPath), className)
}

// DocumentID derives the node ID for an indexed document from its absolute
// path (documents are keyed by absolute path, not project-relative).
func DocumentID(absPath string) string {
	return ShortHash("doc", normalize(absPath))
}

// SectionID derives the ID for one section of a document from its position
func SectionID(docID string, startOffset int) string {
	return ShortHash("section", docID, strconv.Itoa(startOffset))
}

// ChunkID derives the ID for one chunk within a section
func ChunkID(sectionID string, seq int) string {
	return ShortHash("chunk", sectionID, strconv.Itoa(seq))
}

// SchemaObjectID derives the ID for a database schema object. Parts are the
// containment path, e.g. (schema), (schema, table), (schema, table, column).
func SchemaObjectID(kind string, parts ...string) string {
	return ShortHash("schema:"+kind, parts...)
}

// External marks a name as referencing an entity outside the indexed project
func External(name string) string {
	return ExternalPrefix + name
}

// Module marks a non-relative import target as a module pseudo-node
func Module(name string) string {
	return ModulePrefix + name
}

// IsExternal reports whether an ID carries the external or module marker
func IsExternal(id string) bool {
	return strings.HasPrefix(id, ExternalPrefix) || strings.HasPrefix(id, ModulePrefix)
}

// normalize gives identical IDs for identical files regardless of the
// platform separator the walker produced.
func normalize(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}
