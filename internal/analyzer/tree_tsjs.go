//go:build treesitter

package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/recallhq/recall/pkg/types"
)

// newTreeAnalyzer reports the syntax-tree strategy as available under the
// treesitter build tag.
func newTreeAnalyzer(lang types.Language) (Analyzer, bool) {
	return NewTreeAnalyzer(lang), true
}

// TreeAnalyzer is the syntax-tree TypeScript/JavaScript strategy. It parses
// with Tree-sitter grammars picked by extension and walks the AST, giving
// higher-fidelity extraction than the line scanner at the cost of parser
// overhead on very large trees.
type TreeAnalyzer struct {
	lang     types.Language
	tsParser *sitter.Parser
	tsxPars  *sitter.Parser
	jsParser *sitter.Parser
}

// NewTreeAnalyzer returns the Tree-sitter backed TS/JS analyzer
func NewTreeAnalyzer(lang types.Language) *TreeAnalyzer {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(typescript.GetLanguage())

	tsxParser := sitter.NewParser()
	tsxParser.SetLanguage(tsx.GetLanguage())

	jsParser := sitter.NewParser()
	jsParser.SetLanguage(javascript.GetLanguage())

	return &TreeAnalyzer{
		lang:     lang,
		tsParser: tsParser,
		tsxPars:  tsxParser,
		jsParser: jsParser,
	}
}

// Language implements Analyzer
func (a *TreeAnalyzer) Language() types.Language { return a.lang }

// Handles implements Analyzer
func (a *TreeAnalyzer) Handles(path string) bool {
	return IsSourceFile(a.lang, path)
}

// Parse implements Analyzer
func (a *TreeAnalyzer) Parse(relPath string, content []byte) (*types.ParsedFile, error) {
	parser := a.jsParser
	switch strings.ToLower(filepath.Ext(relPath)) {
	case ".ts":
		parser = a.tsParser
	case ".tsx":
		parser = a.tsxPars
	}

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree parse of %s: %w", relPath, err)
	}
	defer tree.Close()

	parsed := &types.ParsedFile{
		Path:     filepath.ToSlash(relPath),
		Language: a.lang,
	}

	w := &treeWalker{content: content, parsed: parsed}
	w.walk(tree.RootNode())
	w.applyDeferredExports()

	for i := range parsed.Functions {
		if def := componentRecord(parsed.Path, &parsed.Functions[i]); def != nil {
			parsed.Classes = append(parsed.Classes, *def)
		}
	}
	return parsed, nil
}

// treeWalker accumulates extraction state over one AST walk
type treeWalker struct {
	content  []byte
	parsed   *types.ParsedFile
	exported map[string]struct{}
}

func (w *treeWalker) walk(node *sitter.Node) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "import_statement":
			if imp := w.parseImport(child); imp != nil {
				w.parsed.Imports = append(w.parsed.Imports, *imp)
			}
		case "call_expression":
			if imp := w.parseRequireOrDynamicImport(child); imp != nil {
				w.parsed.Imports = append(w.parsed.Imports, *imp)
			}
			w.walk(child)
		case "function_declaration", "generator_function_declaration":
			w.addFunction(child, "", isExportWrapped(child))
			w.walk(child) // nested declarations get their own records
		case "lexical_declaration", "variable_declaration":
			w.addDeclaratorFunctions(child, isExportWrapped(child))
			w.walk(child)
		case "class_declaration":
			w.addClass(child, isExportWrapped(child))
			w.walk(child)
		case "export_statement":
			w.collectExportClause(child)
			w.walk(child)
		default:
			w.walk(child)
		}
	}
}

// addFunction records one named function node and extracts its call list
func (w *treeWalker) addFunction(node *sitter.Node, className string, export bool) {
	name := childContentOfType(node, w.content, "identifier")
	if name == "" {
		return
	}
	w.appendFn(node, name, className, export)
}

// addDeclaratorFunctions records arrow/function expressions bound to names:
// const foo = () => {}, const bar = async function() {}
func (w *treeWalker) addDeclaratorFunctions(node *sitter.Node, export bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		decl := node.Child(i)
		if decl == nil || decl.Type() != "variable_declarator" {
			continue
		}
		var name string
		var fnNode *sitter.Node
		for j := 0; j < int(decl.ChildCount()); j++ {
			c := decl.Child(j)
			switch c.Type() {
			case "identifier":
				if name == "" {
					name = c.Content(w.content)
				}
			case "arrow_function", "function", "function_expression", "generator_function":
				fnNode = c
			}
		}
		if name != "" && fnNode != nil {
			w.appendFn(fnNode, name, "", export)
		}
	}
}

// addClass records a class declaration, its heritage, and its methods
func (w *treeWalker) addClass(node *sitter.Node, export bool) {
	name := childContentOfType(node, w.content, "type_identifier")
	if name == "" {
		name = childContentOfType(node, w.content, "identifier")
	}
	if name == "" {
		return
	}

	def := types.ClassDef{
		Name:      name,
		ClassType: ClassifyClass(w.parsed.Path, name),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		IsExport:  export,
	}

	// heritage text reads "extends Base" or "extends A implements B"; we
	// keep the first parent only
	if heritage := childOfType(node, "class_heritage"); heritage != nil {
		def.ParentClass = parentFromHeritage(heritage.Content(w.content))
	}

	classCalls := newCallSet()
	if body := childOfType(node, "class_body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			member := body.Child(i)
			if member == nil {
				continue
			}
			switch member.Type() {
			case "method_definition":
				mName := childContentOfType(member, w.content, "property_identifier")
				if mName == "" {
					continue
				}
				w.appendFn(member, mName, name, export)
			case "field_definition", "public_field_definition":
				// class field holding an arrow function is a method in
				// all but syntax
				fName := childContentOfType(member, w.content, "property_identifier")
				fnNode := childOfType(member, "arrow_function")
				if fnNode == nil {
					fnNode = childOfType(member, "function")
				}
				if fName != "" && fnNode != nil {
					w.appendFn(fnNode, fName, name, export)
				} else {
					w.extractCalls(member, classCalls)
				}
			}
		}
	}
	def.Calls = classCalls.list()
	w.parsed.Classes = append(w.parsed.Classes, def)
}

// appendFn builds the FunctionDef for a function-bearing node
func (w *treeWalker) appendFn(node *sitter.Node, name, className string, export bool) {
	def := types.FunctionDef{
		Name:      name,
		ClassName: className,
		IsExport:  export,
		IsAsync:   hasChildOfType(node, "async"),
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
	if className != "" {
		def.QualifiedName = className + "." + name
	} else {
		def.QualifiedName = name
	}

	calls := newCallSet()
	w.extractCalls(node, calls)
	def.Calls = calls.list()

	w.parsed.Functions = append(w.parsed.Functions, def)
}

// extractCalls walks a function body collecting callee names. It descends
// into anonymous callbacks (their calls belong to the enclosing function)
// but stops at nested functions that are recorded as their own defs.
func (w *treeWalker) extractCalls(node *sitter.Node, sink *callSet) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "call_expression" {
			if name := calleeName(child, w.content); name != "" {
				if _, stop := jsStoplist[name]; !stop {
					sink.add(name)
				}
			}
			w.extractCalls(child, sink)
			continue
		}
		if ownedFunctionNode(child) {
			continue
		}
		w.extractCalls(child, sink)
	}
}

// ownedFunctionNode reports whether a nested node will be recorded as its
// own FunctionDef, so its calls must not roll up to the enclosing function.
func ownedFunctionNode(node *sitter.Node) bool {
	switch node.Type() {
	case "function_declaration", "generator_function_declaration", "method_definition":
		return true
	case "arrow_function", "function", "function_expression", "generator_function":
		parent := node.Parent()
		if parent == nil {
			return false
		}
		switch parent.Type() {
		case "variable_declarator", "field_definition", "public_field_definition":
			return true
		}
	}
	return false
}

// calleeName resolves the called name from a call_expression: the identifier
// for direct calls, the final property for method calls.
func calleeName(node *sitter.Node, content []byte) string {
	callee := node.Child(0)
	if callee == nil {
		return ""
	}
	switch callee.Type() {
	case "identifier":
		return callee.Content(content)
	case "member_expression":
		// deepest property_identifier is the method being invoked
		var name string
		for i := 0; i < int(callee.ChildCount()); i++ {
			c := callee.Child(i)
			if c.Type() == "property_identifier" {
				name = c.Content(content)
			}
		}
		return name
	case "parenthesized_expression":
		if inner := callee.Child(0); inner != nil && inner.Type() == "identifier" {
			return inner.Content(content)
		}
	}
	return ""
}

// parseImport handles import_statement: default, namespace, named clauses
func (w *treeWalker) parseImport(node *sitter.Node) *types.ImportStmt {
	imp := &types.ImportStmt{}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "string":
			imp.Source = strings.Trim(child.Content(w.content), "\"'`")
			imp.IsRelative = isRelativeSource(imp.Source)
		case "import_clause":
			imp.Names = append(imp.Names, w.importClauseNames(child)...)
		}
	}
	if imp.Source == "" {
		return nil
	}
	return imp
}

// importClauseNames flattens the local bindings of an import clause
func (w *treeWalker) importClauseNames(clause *sitter.Node) []string {
	var names []string
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case "identifier":
			names = append(names, child.Content(w.content))
		case "namespace_import":
			if id := childOfType(child, "identifier"); id != nil {
				names = append(names, id.Content(w.content))
			}
		case "named_imports":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				// "a as b" binds b locally; plain "a" binds a
				var local string
				for k := 0; k < int(spec.ChildCount()); k++ {
					if c := spec.Child(k); c.Type() == "identifier" {
						local = c.Content(w.content)
					}
				}
				if local != "" {
					names = append(names, local)
				}
			}
		}
	}
	return names
}

// parseRequireOrDynamicImport catches require("x") and import("x") calls
func (w *treeWalker) parseRequireOrDynamicImport(node *sitter.Node) *types.ImportStmt {
	callee := node.Child(0)
	if callee == nil {
		return nil
	}
	isRequire := callee.Type() == "identifier" && callee.Content(w.content) == "require"
	isDynamic := callee.Type() == "import"
	if !isRequire && !isDynamic {
		return nil
	}
	args := childOfType(node, "arguments")
	if args == nil {
		return nil
	}
	str := childOfType(args, "string")
	if str == nil {
		return nil
	}
	source := strings.Trim(str.Content(w.content), "\"'`")
	return &types.ImportStmt{Source: source, IsRelative: isRelativeSource(source)}
}

// collectExportClause records export { a, b as c } statements so the named
// symbols can be flagged after the walk completes.
func (w *treeWalker) collectExportClause(node *sitter.Node) {
	clause := childOfType(node, "export_clause")
	if clause == nil {
		// export default <identifier>
		if id := childOfType(node, "identifier"); id != nil {
			w.markExported(id.Content(w.content))
		}
		return
	}
	for i := 0; i < int(clause.ChildCount()); i++ {
		spec := clause.Child(i)
		if spec.Type() != "export_specifier" {
			continue
		}
		if id := childOfType(spec, "identifier"); id != nil {
			w.markExported(id.Content(w.content))
		}
	}
}

func (w *treeWalker) markExported(name string) {
	if w.exported == nil {
		w.exported = make(map[string]struct{})
	}
	w.exported[name] = struct{}{}
}

func (w *treeWalker) applyDeferredExports() {
	if len(w.exported) == 0 {
		return
	}
	for i := range w.parsed.Functions {
		if _, ok := w.exported[w.parsed.Functions[i].Name]; ok {
			w.parsed.Functions[i].IsExport = true
		}
	}
	for i := range w.parsed.Classes {
		if _, ok := w.exported[w.parsed.Classes[i].Name]; ok {
			w.parsed.Classes[i].IsExport = true
		}
	}
}

// isExportWrapped reports whether a declaration's parent is export_statement
func isExportWrapped(node *sitter.Node) bool {
	parent := node.Parent()
	return parent != nil && parent.Type() == "export_statement"
}

func childOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c != nil && c.Type() == nodeType {
			return c
		}
	}
	return nil
}

func childContentOfType(node *sitter.Node, content []byte, nodeType string) string {
	if c := childOfType(node, nodeType); c != nil {
		return c.Content(content)
	}
	return ""
}

func hasChildOfType(node *sitter.Node, nodeType string) bool {
	return childOfType(node, nodeType) != nil
}

// parentFromHeritage extracts the first parent class from heritage text,
// dropping generic arguments and implements clauses.
func parentFromHeritage(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "extends") {
		return ""
	}
	text = strings.TrimSpace(strings.TrimPrefix(text, "extends"))
	if i := strings.Index(text, " implements "); i >= 0 {
		text = text[:i]
	}
	if i := strings.IndexAny(text, "<({,"); i > 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
