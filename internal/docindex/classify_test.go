package docindex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/recallhq/recall/pkg/types"
)

func TestClassifyDocByPath(t *testing.T) {
	tests := []struct {
		path string
		want types.DocType
	}{
		// directory conventions
		{"docs/adr/0001-use-sqlite.md", types.DocADR},
		{"docs/adrs/0002-drop-redis.md", types.DocADR},
		{"decisions/0003-embed-locally.md", types.DocADR},
		{"adr-0004.md", types.DocADR},

		// well-known filenames
		{"README.md", types.DocReadme},
		{"pkg/sub/readme.markdown", types.DocReadme},
		{"CHANGELOG.md", types.DocChangelog},
		{"docs/release_notes.md", types.DocChangelog},
		{"HISTORY", types.DocChangelog},

		// keyword rules
		{"docs/architecture.md", types.DocDesign},
		{"rfc/0045-retry-policy.md", types.DocDesign},
		{"docs/api.md", types.DocAPI},
		{"openapi.md", types.DocAPI},
		{"INSTALL.md", types.DocSetup},
		{"docs/getting-started.md", types.DocSetup},
		{"CONTRIBUTING.md", types.DocSetup},
		{"ROADMAP.md", types.DocRoadmap},
		{"specs/auth.md", types.DocSpec},
		{"requirements.md", types.DocSpec},
		{"docs/user-guide.md", types.DocTutorial},
		{"HOWTO.md", types.DocTutorial},

		// no substring false positives
		{"rapid.md", types.DocGeneric},
		{"inspect.md", types.DocGeneric},
		{"notes.md", types.DocGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyDoc(tt.path, ""), "path=%q", tt.path)
	}
}

func TestClassifyDocOrdering(t *testing.T) {
	// Rule order is the contract: earlier rules win.
	assert.Equal(t, types.DocADR, ClassifyDoc("docs/adr/readme.md", ""))
	assert.Equal(t, types.DocDesign, ClassifyDoc("api-design.md", ""))
	assert.Equal(t, types.DocSetup, ClassifyDoc("setup-guide.md", ""))
	assert.Equal(t, types.DocDesign, ClassifyDoc("design/api.md", ""))
}

func TestClassifyDocByContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    types.DocType
	}{
		{"adr sections", "# 3. Use SQLite\n\n## Status\nAccepted\n\n## Decision\nWe will use SQLite.\n", types.DocADR},
		{"adr over design", "This architecture decision record explains the design.", types.DocADR},
		{"changelog", "# Changelog\n\n## 1.2.0\n- fixed things\n", types.DocChangelog},
		{"api reference", "# Widget API Reference\n\nEndpoints listed below.\n", types.DocAPI},
		{"setup", "## Getting Started\n\nClone the repo first.\n", types.DocSetup},
		{"design", "The design centers on a single event loop.\n", types.DocDesign},
		{"nothing recognizable", "Meeting notes from Tuesday.\n", types.DocGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyDoc("notes.md", tt.content), "case=%q", tt.name)
	}
}

func TestClassifyDocContentWindow(t *testing.T) {
	// Markers past the sniff window are invisible.
	padded := strings.Repeat("x ", contentSniffLen) + "changelog"
	assert.Equal(t, types.DocGeneric, ClassifyDoc("notes.md", padded))
}

func TestIsDocFile(t *testing.T) {
	assert.True(t, IsDocFile("README.md"))
	assert.True(t, IsDocFile("guide.MD"))
	assert.True(t, IsDocFile("a/b/notes.markdown"))
	assert.True(t, IsDocFile("page.mdx"))
	assert.True(t, IsDocFile("plain.txt"))

	assert.False(t, IsDocFile("main.ts"))
	assert.False(t, IsDocFile("Makefile"))
	assert.False(t, IsDocFile("doc.pdf"))
}
