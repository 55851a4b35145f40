package analyzer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/recallhq/recall/pkg/types"
)

// ScanAnalyzer is the line/regex TypeScript/JavaScript strategy. It trades
// syntax fidelity for resilience: malformed files, exotic syntax, and very
// large framework-heavy trees degrade output quality instead of failing the
// parse. It emits the same ParsedFile shape as the syntax-tree strategy.
type ScanAnalyzer struct {
	lang types.Language
}

// NewScanAnalyzer returns the line-scanning TS/JS analyzer
func NewScanAnalyzer(lang types.Language) *ScanAnalyzer {
	return &ScanAnalyzer{lang: lang}
}

// Language implements Analyzer
func (a *ScanAnalyzer) Language() types.Language { return a.lang }

// Handles implements Analyzer
func (a *ScanAnalyzer) Handles(path string) bool {
	return IsSourceFile(a.lang, path)
}

var (
	scanImportRE     = regexp.MustCompile(`^\s*import\s+(?:type\s+)?(.+?)\s+from\s+['"]([^'"]+)['"]`)
	scanBareImportRE = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)
	scanExportFromRE = regexp.MustCompile(`^\s*export\s+(?:\{([^}]*)\}|\*(?:\s+as\s+[A-Za-z_$][\w$]*)?)\s+from\s+['"]([^'"]+)['"]`)
	scanRequireRE    = regexp.MustCompile(`(?:const|let|var)\s+(\{[^}]*\}|[A-Za-z_$][\w$]*)\s*=\s*require\(\s*['"]([^'"]+)['"]`)

	scanClassRE    = regexp.MustCompile(`^\s*(export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)(?:\s+extends\s+([A-Za-z_$][\w$.]*))?`)
	scanFunctionRE = regexp.MustCompile(`^\s*(export\s+)?(?:default\s+)?(async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`)
	scanArrowRE    = regexp.MustCompile(`^\s*(export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)[^=]*=\s*(async\b\s*)?(?:\([^)]*\)?|[A-Za-z_$][\w$]*)\s*=>`)
	scanFuncExprRE = regexp.MustCompile(`^\s*(export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(async\s+)?function\b`)
	scanMethodRE   = regexp.MustCompile(`^\s*(?:(?:public|private|protected|readonly|static|override|get|set)\s+)*(async\s+)?\*?\s*([A-Za-z_$][\w$]*)\s*\([^)]*\)?\s*(?::\s*[^{;]+)?\{`)
	scanFieldFnRE  = regexp.MustCompile(`^\s*(?:(?:public|private|protected|readonly|static)\s+)*([A-Za-z_$][\w$]*)\s*=\s*(async\b\s*)?(?:\([^)]*\)?|[A-Za-z_$][\w$]*)\s*=>`)

	scanExportClauseRE  = regexp.MustCompile(`^\s*export\s+\{([^}]*)\}\s*;?\s*$`)
	scanExportDefaultRE = regexp.MustCompile(`^\s*export\s+default\s+([A-Za-z_$][\w$]*)\s*;?\s*$`)

	identifierRE = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
)

// methodNameStop: statement keywords that look like `name (...) {` in source
var methodNameStop = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {}, "catch": {},
	"return": {}, "function": {}, "with": {}, "do": {}, "else": {},
}

// scanFnCtx tracks one open function while scanning
type scanFnCtx struct {
	def       *types.FunctionDef
	calls     *callSet
	declDepth int
	opened    bool
}

// scanClassCtx tracks one open class body
type scanClassCtx struct {
	def       *types.ClassDef
	calls     *callSet
	declDepth int
	opened    bool
}

// Parse implements Analyzer using a single forward pass with brace-depth
// tracking. Function and class extents close when nesting returns to the
// depth at which they were declared.
func (a *ScanAnalyzer) Parse(relPath string, content []byte) (*types.ParsedFile, error) {
	parsed := &types.ParsedFile{
		Path:     filepath.ToSlash(relPath),
		Language: a.lang,
	}

	lines := strings.Split(string(content), "\n")

	var (
		depth      int
		fnStack    []*scanFnCtx
		classStack []*scanClassCtx
		inBlock    bool // inside /* */ comment
		exported   = make(map[string]struct{})
	)

	finishedFns := make([]*scanFnCtx, 0, 16)
	finishedClasses := make([]*scanClassCtx, 0, 4)

	closeFn := func(ctx *scanFnCtx, line int) {
		ctx.def.EndLine = line
		ctx.def.Calls = ctx.calls.list()
		finishedFns = append(finishedFns, ctx)
	}
	closeClass := func(ctx *scanClassCtx, line int) {
		ctx.def.EndLine = line
		finishedClasses = append(finishedClasses, ctx)
	}

	for i, raw := range lines {
		lineNo := i + 1
		visible, nowInBlock := stripBlockComment(raw, inBlock)
		inBlock = nowInBlock
		// imports match against text with string literals intact; call and
		// brace scanning runs on the quote-stripped form
		visible = cutLineComment(visible, "//")
		code := stripQuotedText(visible)
		if strings.TrimSpace(code) == "" {
			depth += braceDelta(code)
			continue
		}

		if imp := a.scanImportLine(visible); imp != nil {
			parsed.Imports = append(parsed.Imports, *imp)
		}

		// deferred export markers: export { a, b } and export default name
		if m := scanExportClauseRE.FindStringSubmatch(code); m != nil {
			for _, name := range identifierRE.FindAllString(m[1], -1) {
				if name != "as" {
					exported[name] = struct{}{}
				}
			}
		} else if m := scanExportDefaultRE.FindStringSubmatch(code); m != nil {
			exported[m[1]] = struct{}{}
		}

		var declared *scanFnCtx

		switch {
		case scanClassRE.MatchString(code):
			m := scanClassRE.FindStringSubmatch(code)
			def := &types.ClassDef{
				Name:        m[2],
				ClassType:   ClassifyClass(parsed.Path, m[2]),
				ParentClass: m[3],
				StartLine:   lineNo,
				IsExport:    m[1] != "",
			}
			classStack = append(classStack, &scanClassCtx{def: def, calls: newCallSet(), declDepth: depth})

		case scanFunctionRE.MatchString(code):
			m := scanFunctionRE.FindStringSubmatch(code)
			declared = a.pushFn(&fnStack, classStack, m[3], m[1] != "", m[2] != "", lineNo, depth)

		case scanFuncExprRE.MatchString(code):
			m := scanFuncExprRE.FindStringSubmatch(code)
			declared = a.pushFn(&fnStack, classStack, m[2], m[1] != "", m[3] != "", lineNo, depth)

		case scanArrowRE.MatchString(code):
			m := scanArrowRE.FindStringSubmatch(code)
			declared = a.pushFn(&fnStack, classStack, m[2], m[1] != "", m[3] != "", lineNo, depth)

		default:
			// method definitions live directly inside an open class body
			if len(fnStack) == 0 && len(classStack) > 0 {
				cls := classStack[len(classStack)-1]
				if cls.opened && depth == cls.declDepth+1 {
					if m := scanMethodRE.FindStringSubmatch(code); m != nil {
						if _, stop := methodNameStop[m[2]]; !stop {
							declared = a.pushFn(&fnStack, classStack, m[2], cls.def.IsExport, m[1] != "", lineNo, depth)
						}
					} else if m := scanFieldFnRE.FindStringSubmatch(code); m != nil {
						declared = a.pushFn(&fnStack, classStack, m[1], cls.def.IsExport, m[2] != "", lineNo, depth)
					}
				}
			}
		}

		// attribute calls on this line to the innermost open function, or
		// to the class body when no function is open
		var sink *callSet
		switch {
		case len(fnStack) > 0:
			sink = fnStack[len(fnStack)-1].calls
		case len(classStack) > 0:
			sink = classStack[len(classStack)-1].calls
		}
		if sink != nil {
			scanCalls(code, jsStoplist, sink)
			if declared != nil {
				sink.exclude(declared.def.Name)
			}
		}

		// arrow functions without a brace body span just the declaration
		if declared != nil && declared == top(fnStack) &&
			strings.Contains(code, "=>") && !strings.Contains(code, "{") {
			closeFn(declared, lineNo)
			fnStack = fnStack[:len(fnStack)-1]
		}

		depth += braceDelta(code)

		// close contexts whose body nesting has unwound
		for len(fnStack) > 0 {
			ctx := fnStack[len(fnStack)-1]
			if depth > ctx.declDepth {
				ctx.opened = true
				break
			}
			if ctx.opened || strings.Contains(code, "{") {
				closeFn(ctx, lineNo)
				fnStack = fnStack[:len(fnStack)-1]
				continue
			}
			break // declaration still awaiting its opening brace
		}
		for len(classStack) > 0 {
			ctx := classStack[len(classStack)-1]
			if depth > ctx.declDepth {
				ctx.opened = true
				break
			}
			if ctx.opened || strings.Contains(code, "{") {
				closeClass(ctx, lineNo)
				classStack = classStack[:len(classStack)-1]
				continue
			}
			break
		}
	}

	// close anything left open at EOF (unbalanced braces, truncated file)
	for len(fnStack) > 0 {
		closeFn(fnStack[len(fnStack)-1], len(lines))
		fnStack = fnStack[:len(fnStack)-1]
	}
	for len(classStack) > 0 {
		closeClass(classStack[len(classStack)-1], len(lines))
		classStack = classStack[:len(classStack)-1]
	}

	a.assemble(parsed, finishedFns, finishedClasses, exported)
	return parsed, nil
}

// pushFn records a new function context. Methods take their enclosing class
// from the top of the class stack.
func (a *ScanAnalyzer) pushFn(fnStack *[]*scanFnCtx, classStack []*scanClassCtx, name string, export, async bool, line, depth int) *scanFnCtx {
	def := &types.FunctionDef{
		Name:      name,
		IsExport:  export,
		IsAsync:   async,
		StartLine: line,
	}
	if len(classStack) > 0 && classStack[len(classStack)-1].opened {
		def.ClassName = classStack[len(classStack)-1].def.Name
		def.QualifiedName = def.ClassName + "." + name
	} else {
		def.QualifiedName = name
	}
	ctx := &scanFnCtx{def: def, calls: newCallSet(), declDepth: depth}
	*fnStack = append(*fnStack, ctx)
	return ctx
}

// assemble moves finished contexts into the ParsedFile, applies deferred
// export markers, and emits component/hook records for JSX-style functions.
func (a *ScanAnalyzer) assemble(parsed *types.ParsedFile, fns []*scanFnCtx, classes []*scanClassCtx, exported map[string]struct{}) {
	for _, ctx := range classes {
		if _, ok := exported[ctx.def.Name]; ok {
			ctx.def.IsExport = true
		}
		ctx.def.Calls = ctx.calls.list()
		parsed.Classes = append(parsed.Classes, *ctx.def)
	}
	for _, ctx := range fns {
		if _, ok := exported[ctx.def.Name]; ok {
			ctx.def.IsExport = true
		}
		parsed.Functions = append(parsed.Functions, *ctx.def)

		if def := componentRecord(parsed.Path, ctx.def); def != nil {
			parsed.Classes = append(parsed.Classes, *def)
		}
	}
}

// componentRecord promotes JSX-style top-level functions (PascalCase
// components, use-prefixed hooks) to Class/Component records so their call
// lists become component_calls edges in the graph.
func componentRecord(relPath string, fn *types.FunctionDef) *types.ClassDef {
	if fn.ClassName != "" {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(relPath))
	jsxFile := ext == ".tsx" || ext == ".jsx"
	pascal := fn.Name[0] >= 'A' && fn.Name[0] <= 'Z'
	hook := hookNameRE.MatchString(fn.Name)

	switch {
	case pascal && (jsxFile || strings.Contains(relPath, "components/")):
		classType := ClassifyClass(relPath, fn.Name)
		if classType == types.ClassGeneric {
			classType = types.ClassComponent
		}
		return &types.ClassDef{
			Name:      fn.Name,
			ClassType: classType,
			StartLine: fn.StartLine,
			EndLine:   fn.EndLine,
			IsExport:  fn.IsExport,
			Calls:     fn.Calls,
		}
	case hook:
		return &types.ClassDef{
			Name:      fn.Name,
			ClassType: types.ClassHook,
			StartLine: fn.StartLine,
			EndLine:   fn.EndLine,
			IsExport:  fn.IsExport,
			Calls:     fn.Calls,
		}
	}
	return nil
}

// scanImportLine recognizes the import statement forms a line scanner can
// see: ES imports with a clause, bare side-effect imports, re-exports, and
// CommonJS require assignments.
func (a *ScanAnalyzer) scanImportLine(code string) *types.ImportStmt {
	if m := scanImportRE.FindStringSubmatch(code); m != nil {
		return &types.ImportStmt{
			Source:     m[2],
			Names:      parseImportClause(m[1]),
			IsRelative: isRelativeSource(m[2]),
		}
	}
	if m := scanBareImportRE.FindStringSubmatch(code); m != nil {
		return &types.ImportStmt{Source: m[1], IsRelative: isRelativeSource(m[1])}
	}
	if m := scanExportFromRE.FindStringSubmatch(code); m != nil {
		return &types.ImportStmt{
			Source:     m[2],
			Names:      importNames(m[1]),
			IsRelative: isRelativeSource(m[2]),
		}
	}
	if m := scanRequireRE.FindStringSubmatch(code); m != nil {
		return &types.ImportStmt{
			Source:     m[2],
			Names:      importNames(m[1]),
			IsRelative: isRelativeSource(m[2]),
		}
	}
	return nil
}

// parseImportClause splits "Def, { a, b as c }, * as NS" into local names
func parseImportClause(clause string) []string {
	var names []string
	add := func(name string) {
		if name != "" && name != "as" && name != "type" {
			names = append(names, name)
		}
	}

	rest := clause
	if i := strings.Index(rest, "{"); i >= 0 {
		before := rest[:i]
		inner := rest[i+1:]
		if j := strings.Index(inner, "}"); j >= 0 {
			inner = inner[:j]
		}
		for _, tok := range identifierRE.FindAllString(before, -1) {
			add(tok)
		}
		// for "a as b" keep the local binding b
		for _, part := range strings.Split(inner, ",") {
			ids := identifierRE.FindAllString(part, -1)
			ids = dropAs(ids)
			if len(ids) > 0 {
				add(ids[len(ids)-1])
			}
		}
		return names
	}
	for _, tok := range dropAs(identifierRE.FindAllString(rest, -1)) {
		add(tok)
	}
	return names
}

func dropAs(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != "as" {
			out = append(out, id)
		}
	}
	return out
}

// importNames extracts identifiers from a destructuring or clause fragment
func importNames(fragment string) []string {
	var names []string
	for _, part := range strings.Split(fragment, ",") {
		ids := dropAs(identifierRE.FindAllString(part, -1))
		if len(ids) > 0 {
			names = append(names, ids[len(ids)-1])
		}
	}
	return names
}

func isRelativeSource(source string) bool {
	return strings.HasPrefix(source, ".") || strings.HasPrefix(source, "/")
}

// stripBlockComment removes /* */ spans from one line, carrying open-comment
// state across lines.
func stripBlockComment(line string, inBlock bool) (string, bool) {
	var b strings.Builder
	for {
		if inBlock {
			end := strings.Index(line, "*/")
			if end < 0 {
				return b.String(), true
			}
			line = line[end+2:]
			inBlock = false
			continue
		}
		start := strings.Index(line, "/*")
		if start < 0 {
			b.WriteString(line)
			return b.String(), false
		}
		b.WriteString(line[:start])
		line = line[start+2:]
		inBlock = true
	}
}

func top(stack []*scanFnCtx) *scanFnCtx {
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// jsStoplist filters keywords and common built-ins out of call extraction
var jsStoplist = buildStoplist(
	// keywords and control flow
	"if", "else", "for", "while", "do", "switch", "case", "catch", "try",
	"finally", "return", "function", "typeof", "instanceof", "new", "delete",
	"void", "in", "of", "await", "async", "yield", "throw", "super",
	"constructor", "import", "export", "require",
	// globals and constructors
	"console", "JSON", "Math", "Date", "RegExp", "Error", "TypeError",
	"Array", "Object", "String", "Number", "Boolean", "Symbol", "BigInt",
	"Promise", "Map", "Set", "WeakMap", "WeakSet", "Proxy", "Reflect",
	"parseInt", "parseFloat", "isNaN", "isFinite", "encodeURIComponent",
	"decodeURIComponent", "setTimeout", "setInterval", "clearTimeout",
	"clearInterval", "queueMicrotask", "structuredClone", "alert",
	// ubiquitous prototype methods that drown the call graph in noise
	"log", "warn", "error", "info", "debug", "trace", "assert",
	"then", "all", "race", "allSettled", "resolve", "reject",
	"map", "filter", "forEach", "reduce", "find",
	"findIndex", "some", "every", "push", "pop", "shift", "unshift",
	"slice", "splice", "concat", "join", "split", "indexOf", "lastIndexOf",
	"includes", "keys", "values", "entries", "has", "get", "set", "add",
	"toString", "valueOf", "hasOwnProperty", "stringify", "parse", "assign",
	"freeze", "bind", "call", "apply", "trim", "replace", "toLowerCase",
	"toUpperCase", "startsWith", "endsWith", "charAt", "padStart", "padEnd",
	"test", "exec", "match",
)

func buildStoplist(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
