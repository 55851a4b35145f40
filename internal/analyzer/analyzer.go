// Package analyzer turns source files into the uniform ParsedFile shape the
// graph indexer consumes. One analyzer exists per language; TypeScript and
// JavaScript additionally offer two strategies (syntax-tree and line-scan)
// that emit identical output, so downstream code never knows which ran.
package analyzer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/recallhq/recall/pkg/types"
)

// Analyzer parses one source file into the uniform structural representation.
// A failed parse of a single file is reported as an error and the file is
// skipped by callers; it never aborts a project scan.
type Analyzer interface {
	// Parse analyzes content at the project-relative path.
	Parse(relPath string, content []byte) (*types.ParsedFile, error)
	// Language reports which source language this analyzer handles.
	Language() types.Language
	// Handles reports whether the path's extension belongs to this analyzer.
	Handles(path string) bool
}

// Options selects analyzer strategy details
type Options struct {
	// PreferTree picks the syntax-tree TS/JS strategy over the line
	// scanner. The tree strategy is compiled in only under the
	// treesitter build tag; without it this flag falls back to the
	// scanner silently.
	PreferTree bool
}

// ForLanguage returns the analyzer for a detected project language
func ForLanguage(lang types.Language, opts Options) (Analyzer, error) {
	switch lang {
	case types.LangTypeScript, types.LangJavaScript:
		if opts.PreferTree {
			if tree, ok := newTreeAnalyzer(lang); ok {
				return tree, nil
			}
		}
		return NewScanAnalyzer(lang), nil
	case types.LangRuby:
		return NewRubyAnalyzer(), nil
	case types.LangPython:
		return NewPythonAnalyzer(), nil
	case types.LangUnknown:
		// most permissive last resort
		return NewScanAnalyzer(types.LangJavaScript), nil
	default:
		return nil, fmt.Errorf("no analyzer for language %q", lang)
	}
}

// sourceExtensions maps each language to the file extensions it indexes
var sourceExtensions = map[types.Language][]string{
	types.LangTypeScript: {".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"},
	types.LangJavaScript: {".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx"},
	types.LangRuby:       {".rb", ".rake"},
	types.LangPython:     {".py"},
	types.LangUnknown:    {".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"},
}

// ignoreDirs are directory names excluded from every project walk
var ignoreDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"out":          {},
	".next":        {},
	"coverage":     {},
	"tmp":          {},
	"log":          {},
	"__pycache__":  {},
	".venv":        {},
	"venv":         {},
	".tox":         {},
	".bundle":      {},
}

// IsSourceFile reports whether path is an indexable source file for lang
func IsSourceFile(lang types.Language, path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range sourceExtensions[lang] {
		if ext == e {
			return true
		}
	}
	return false
}

// IgnoredDir reports whether a directory name is excluded from walks
func IgnoredDir(name string) bool {
	_, ok := ignoreDirs[name]
	return ok
}

// PossiblePaths expands an extensionless relative import into the candidate
// file paths it may resolve to, in resolution priority order.
func PossiblePaths(lang types.Language, importPath string) []string {
	ext := filepath.Ext(importPath)
	switch lang {
	case types.LangTypeScript, types.LangJavaScript, types.LangUnknown:
		if ext == ".ts" || ext == ".tsx" || ext == ".js" || ext == ".jsx" {
			return []string{importPath}
		}
		return []string{
			importPath + ".ts",
			importPath + ".tsx",
			importPath + ".js",
			importPath + ".jsx",
			importPath + "/index.ts",
			importPath + "/index.tsx",
			importPath + "/index.js",
			importPath + "/index.jsx",
		}
	case types.LangRuby:
		if ext == ".rb" {
			return []string{importPath}
		}
		return []string{importPath + ".rb"}
	case types.LangPython:
		if ext == ".py" {
			return []string{importPath}
		}
		return []string{importPath + ".py", importPath + "/__init__.py"}
	}
	return []string{importPath}
}

// callSiteRE matches call-expression-like patterns: an identifier directly
// followed by an open paren. Covers both bare calls `foo(` and method calls
// `obj.foo(`; the preceding character decides validity in scanCalls.
var callSiteRE = regexp.MustCompile(`([A-Za-z_$][A-Za-z0-9_$?!]*)\s*\(`)

// scanCalls appends call names found in one line of source to sink,
// filtering against the language stoplist. sink de-duplicates.
func scanCalls(line string, stop map[string]struct{}, sink *callSet) {
	for _, loc := range callSiteRE.FindAllStringSubmatchIndex(line, -1) {
		name := strings.TrimRight(line[loc[2]:loc[3]], "?!")
		if name == "" {
			continue
		}
		if _, skip := stop[name]; skip {
			continue
		}
		// a match glued to a preceding identifier character is the tail
		// of some longer token, not a call
		if loc[2] > 0 {
			prev := line[loc[2]-1]
			if prev == '$' || prev == '_' || isAlnumByte(prev) {
				continue
			}
		}
		sink.add(name)
	}
}

func isAlnumByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// callSet accumulates de-duplicated call names in first-seen order
type callSet struct {
	seen  map[string]struct{}
	names []string
}

func newCallSet() *callSet {
	return &callSet{seen: make(map[string]struct{})}
}

func (c *callSet) add(name string) {
	if _, ok := c.seen[name]; ok {
		return
	}
	c.seen[name] = struct{}{}
	c.names = append(c.names, name)
}

func (c *callSet) list() []string {
	return c.names
}

// exclude drops one name from the set; used so a declaration line does not
// count the declared function as a call to itself.
func (c *callSet) exclude(name string) {
	if _, ok := c.seen[name]; !ok {
		return
	}
	delete(c.seen, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
}

// stripLineNoise removes string literals and trailing line comments so call
// and brace scanning does not trip on quoted text. It is deliberately
// approximate: multi-line strings and nested template expressions are beyond
// a line scanner's pay grade.
func stripLineNoise(line, commentMarker string) string {
	return stripQuotedText(cutLineComment(line, commentMarker))
}

// cutLineComment drops everything from the first comment marker that sits
// outside a string literal. String contents are preserved, which matters for
// import statements whose sources live inside quotes.
func cutLineComment(line, marker string) string {
	if marker == "" {
		return line
	}
	var quote byte
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			quote = ch
			continue
		}
		if strings.HasPrefix(line[i:], marker) {
			return line[:i]
		}
	}
	return line
}

// stripQuotedText removes string literal spans, quotes included
func stripQuotedText(line string) string {
	var b strings.Builder
	b.Grow(len(line))

	var quote byte
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = true
			case quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			quote = ch
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// braceDelta counts net {} nesting change on an already-stripped line
func braceDelta(line string) int {
	delta := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '{':
			delta++
		case '}':
			delta--
		}
	}
	return delta
}

// indentWidth measures leading whitespace, tabs counted as one column each
func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w++
		default:
			return w
		}
	}
	return w
}
