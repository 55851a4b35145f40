package types

import "time"

// DocType is the closed classification for an indexed document, inferred
// from filename/path patterns with a content-based fallback.
type DocType string

const (
	DocADR       DocType = "adr"
	DocReadme    DocType = "readme"
	DocChangelog DocType = "changelog"
	DocDesign    DocType = "design"
	DocAPI       DocType = "api"
	DocSetup     DocType = "setup"
	DocRoadmap   DocType = "roadmap"
	DocSpec      DocType = "spec"
	DocTutorial  DocType = "tutorial"
	DocGeneric   DocType = "doc"
)

// Document is the persisted record for one indexed markdown/text file
type Document struct {
	DocID     string
	Path      string // absolute path; the delta-sync key for documents
	Title     string // first top-level heading, or the filename
	DocType   DocType
	Checksum  string
	IndexedAt time.Time
}

// Section is one node of a document's heading tree. Sections reconstructed
// from storage ordered by (Level, StartOffset) reproduce the original
// heading hierarchy.
type Section struct {
	SectionID   string
	DocID       string
	ParentID    string // empty for top-level sections
	Heading     string
	Level       int // 1-6
	StartOffset int // byte offset of the heading line
	EndOffset   int // byte offset one past the section body
}

// Chunk is a sub-section text span bounded by the chunker's size threshold.
// Each chunk carries its own term set and, when embeddings are enabled, a
// vector stored alongside it.
type Chunk struct {
	ChunkID   string
	DocID     string
	SectionID string
	Seq       int // order within the section
	Content   string
}
