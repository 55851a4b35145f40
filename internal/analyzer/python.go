package analyzer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/recallhq/recall/pkg/types"
)

// PythonAnalyzer extracts structure from Python source by line scanning.
// Scope extents follow indentation, which in Python is the grammar rather
// than a heuristic; the call extraction stays pattern-based like the other
// analyzers.
type PythonAnalyzer struct{}

// NewPythonAnalyzer returns the Python analyzer
func NewPythonAnalyzer() *PythonAnalyzer { return &PythonAnalyzer{} }

// Language implements Analyzer
func (a *PythonAnalyzer) Language() types.Language { return types.LangPython }

// Handles implements Analyzer
func (a *PythonAnalyzer) Handles(path string) bool {
	return IsSourceFile(types.LangPython, path)
}

var (
	pyDefRE    = regexp.MustCompile(`^\s*(async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	pyClassRE  = regexp.MustCompile(`^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)\s*(?:\(([^)]*)\))?\s*:`)
	pyImportRE = regexp.MustCompile(`^\s*import\s+([A-Za-z_][\w.]*(?:\s*,\s*[A-Za-z_][\w.]*)*)`)
	pyFromRE   = regexp.MustCompile(`^\s*from\s+(\.*)([\w.]*)\s+import\s+(.+)`)
)

type pyClassCtx struct {
	def    *types.ClassDef
	calls  *callSet
	indent int
}

type pyFnCtx struct {
	def    *types.FunctionDef
	calls  *callSet
	indent int
}

// Parse implements Analyzer
func (a *PythonAnalyzer) Parse(relPath string, content []byte) (*types.ParsedFile, error) {
	parsed := &types.ParsedFile{
		Path:     filepath.ToSlash(relPath),
		Language: types.LangPython,
	}

	var (
		classStack  []*pyClassCtx
		fnStack     []*pyFnCtx
		inDocstring bool
		docMarker   string
	)

	closeFn := func(ctx *pyFnCtx, endLine int) {
		ctx.def.EndLine = endLine
		ctx.def.Calls = ctx.calls.list()
		parsed.Functions = append(parsed.Functions, *ctx.def)
	}
	closeClass := func(ctx *pyClassCtx, endLine int) {
		ctx.def.EndLine = endLine
		ctx.def.Calls = ctx.calls.list()
		parsed.Classes = append(parsed.Classes, *ctx.def)
	}

	lines := strings.Split(string(content), "\n")
	for i, raw := range lines {
		lineNo := i + 1

		// triple-quoted strings span lines; everything inside is prose
		if inDocstring {
			if strings.Contains(raw, docMarker) {
				inDocstring = false
			}
			continue
		}
		if marker, open := docstringOpens(raw); open {
			inDocstring = true
			docMarker = marker
			continue
		}

		if strings.TrimSpace(raw) == "" {
			continue
		}
		code := stripLineNoise(raw, "#")
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		indent := indentWidth(raw)

		for len(fnStack) > 0 && indent <= fnStack[len(fnStack)-1].indent {
			closeFn(fnStack[len(fnStack)-1], lineNo-1)
			fnStack = fnStack[:len(fnStack)-1]
		}
		for len(classStack) > 0 && indent <= classStack[len(classStack)-1].indent {
			closeClass(classStack[len(classStack)-1], lineNo-1)
			classStack = classStack[:len(classStack)-1]
		}

		if m := pyImportRE.FindStringSubmatch(code); m != nil {
			for _, mod := range strings.Split(m[1], ",") {
				parsed.Imports = append(parsed.Imports, types.ImportStmt{
					Source: strings.TrimSpace(mod),
				})
			}
			continue
		}
		if m := pyFromRE.FindStringSubmatch(code); m != nil {
			parsed.Imports = append(parsed.Imports, types.ImportStmt{
				Source:     pythonImportSource(m[1], m[2]),
				Names:      pythonImportNames(m[3]),
				IsRelative: m[1] != "",
			})
			continue
		}

		if m := pyClassRE.FindStringSubmatch(code); m != nil {
			def := &types.ClassDef{
				Name:      m[1],
				ClassType: ClassifyClass(parsed.Path, m[1]),
				StartLine: lineNo,
				IsExport:  !strings.HasPrefix(m[1], "_"),
			}
			// first base is the parent; remaining bases are mixins
			bases := pythonBases(m[2])
			if len(bases) > 0 {
				def.ParentClass = bases[0]
				def.Includes = bases[1:]
			}
			classStack = append(classStack, &pyClassCtx{def: def, calls: newCallSet(), indent: indent})
			continue
		}

		if m := pyDefRE.FindStringSubmatch(code); m != nil {
			def := &types.FunctionDef{
				Name:      m[2],
				IsAsync:   m[1] != "",
				IsExport:  !strings.HasPrefix(m[2], "_"),
				StartLine: lineNo,
			}
			if len(classStack) > 0 && len(fnStack) == 0 {
				def.ClassName = classStack[len(classStack)-1].def.Name
				def.QualifiedName = def.ClassName + "." + def.Name
			} else {
				def.QualifiedName = def.Name
			}
			ctx := &pyFnCtx{def: def, calls: newCallSet(), indent: indent}
			fnStack = append(fnStack, ctx)

			// default-argument expressions on the def line are real calls
			scanCalls(code, pythonStoplist, ctx.calls)
			ctx.calls.exclude(def.Name)
			continue
		}

		switch {
		case len(fnStack) > 0:
			scanCalls(code, pythonStoplist, fnStack[len(fnStack)-1].calls)
		case len(classStack) > 0:
			scanCalls(code, pythonStoplist, classStack[len(classStack)-1].calls)
		}
	}

	for len(fnStack) > 0 {
		closeFn(fnStack[len(fnStack)-1], len(lines))
		fnStack = fnStack[:len(fnStack)-1]
	}
	for len(classStack) > 0 {
		closeClass(classStack[len(classStack)-1], len(lines))
		classStack = classStack[:len(classStack)-1]
	}

	return parsed, nil
}

// docstringOpens reports whether a line opens an unclosed triple-quoted
// string, returning the marker to watch for.
func docstringOpens(line string) (string, bool) {
	for _, marker := range []string{`"""`, "'''"} {
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}
		rest := line[idx+3:]
		if !strings.Contains(rest, marker) {
			return marker, true
		}
		// opened and closed on one line; nothing spans
		return "", false
	}
	return "", false
}

// pythonImportSource converts from-import dots into path-style sources so
// import resolution is uniform across languages: "." stays a package-local
// marker, ".mod" becomes "./mod", "..pkg.mod" becomes "../pkg/mod".
func pythonImportSource(dots, module string) string {
	modPath := strings.ReplaceAll(module, ".", "/")
	n := len(dots)
	switch {
	case n == 0:
		return module
	case n == 1:
		if modPath == "" {
			return "."
		}
		return "./" + modPath
	default:
		prefix := strings.Repeat("../", n-1)
		if modPath == "" {
			return strings.TrimSuffix(prefix, "/")
		}
		return prefix + modPath
	}
}

// pythonImportNames splits "a, b as c, d" keeping local binding names
func pythonImportNames(clause string) []string {
	clause = strings.TrimSpace(strings.Trim(clause, "()"))
	if clause == "*" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(clause, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		switch {
		case len(fields) >= 3 && fields[1] == "as":
			names = append(names, fields[2])
		case len(fields) >= 1 && fields[0] != "":
			names = append(names, fields[0])
		}
	}
	return names
}

// pythonBases splits a class base list, dropping object and keyword args
func pythonBases(baseList string) []string {
	var bases []string
	for _, b := range strings.Split(baseList, ",") {
		b = strings.TrimSpace(b)
		if b == "" || b == "object" || strings.Contains(b, "=") {
			continue
		}
		// strip generic subscriptions like Generic[T]
		if i := strings.IndexByte(b, '['); i > 0 {
			b = b[:i]
		}
		bases = append(bases, b)
	}
	return bases
}

// pythonStoplist filters keywords and builtins out of call extraction
var pythonStoplist = buildStoplist(
	// keywords
	"if", "elif", "else", "for", "while", "try", "except", "finally",
	"with", "def", "class", "return", "yield", "lambda", "pass", "raise",
	"assert", "del", "global", "nonlocal", "import", "from", "as", "in",
	"is", "not", "and", "or", "await", "async", "match",
	// builtins
	"print", "len", "range", "str", "int", "float", "bool", "list", "dict",
	"set", "tuple", "frozenset", "bytes", "bytearray", "type", "object",
	"isinstance", "issubclass", "super", "getattr", "setattr", "hasattr",
	"delattr", "enumerate", "zip", "sorted", "reversed", "min", "max",
	"sum", "abs", "round", "divmod", "pow", "open", "input", "format",
	"repr", "hash", "id", "iter", "next", "vars", "dir", "map", "filter",
	"any", "all", "callable", "classmethod", "staticmethod", "property",
	// pervasive method noise
	"append", "extend", "insert", "remove", "pop", "clear", "index",
	"items", "keys", "values", "get", "update", "add", "discard",
	"join", "split", "strip", "lstrip", "rstrip", "startswith", "endswith",
	"replace", "lower", "upper", "title", "encode", "decode",
)
