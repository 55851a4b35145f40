package analyzer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/recallhq/recall/pkg/types"
)

// RubyAnalyzer extracts structure from Ruby source by line scanning with
// indentation tracking. Beyond functions and classes it understands the
// declarative Rails surface: association macros, mixin includes, and
// serializer naming conventions.
type RubyAnalyzer struct{}

// NewRubyAnalyzer returns the Ruby analyzer
func NewRubyAnalyzer() *RubyAnalyzer { return &RubyAnalyzer{} }

// Language implements Analyzer
func (a *RubyAnalyzer) Language() types.Language { return types.LangRuby }

// Handles implements Analyzer
func (a *RubyAnalyzer) Handles(path string) bool {
	return IsSourceFile(types.LangRuby, path)
}

var (
	rubyClassRE      = regexp.MustCompile(`^\s*class\s+([A-Z][A-Za-z0-9_:]*)(?:\s*<\s*([A-Za-z0-9_:]+))?`)
	rubyModuleRE     = regexp.MustCompile(`^\s*module\s+([A-Z][A-Za-z0-9_:]*)`)
	rubyDefRE        = regexp.MustCompile(`^\s*def\s+(self\.)?([a-z_][A-Za-z0-9_]*[?!=]?)`)
	rubyIncludeRE    = regexp.MustCompile(`^\s*(?:include|extend|prepend)\s+([A-Z][A-Za-z0-9_:]*)`)
	rubyAssocRE      = regexp.MustCompile(`^\s*(belongs_to|has_one|has_many|has_and_belongs_to_many)\s+:([a-z_][a-z0-9_]*)`)
	rubyRequireRE    = regexp.MustCompile(`^\s*require(_relative)?\s+['"]([^'"]+)['"]`)
	rubyVisibilityRE = regexp.MustCompile(`^\s*(private|protected|public)\s*$`)
)

type rubyClassCtx struct {
	def        *types.ClassDef
	calls      *callSet
	indent     int
	visibility string
}

type rubyFnCtx struct {
	def    *types.FunctionDef
	calls  *callSet
	indent int
}

// Parse implements Analyzer. Scope extents follow indentation: a def or
// class body is every following line indented deeper than its declaration,
// which holds for conventionally formatted Ruby and degrades gracefully
// elsewhere.
func (a *RubyAnalyzer) Parse(relPath string, content []byte) (*types.ParsedFile, error) {
	parsed := &types.ParsedFile{
		Path:     filepath.ToSlash(relPath),
		Language: types.LangRuby,
	}

	var (
		classStack []*rubyClassCtx
		fnStack    []*rubyFnCtx
	)

	closeFn := func(ctx *rubyFnCtx, endLine int) {
		ctx.def.EndLine = endLine
		ctx.def.Calls = ctx.calls.list()
		parsed.Functions = append(parsed.Functions, *ctx.def)
	}
	closeClass := func(ctx *rubyClassCtx, endLine int) {
		ctx.def.EndLine = endLine
		ctx.def.Calls = ctx.calls.list()
		parsed.Classes = append(parsed.Classes, *ctx.def)
	}

	lines := strings.Split(string(content), "\n")
	for i, raw := range lines {
		lineNo := i + 1
		if strings.TrimSpace(raw) == "" {
			continue
		}
		// requires match against text with string literals intact; call
		// scanning runs on the quote-stripped form
		visible := cutLineComment(raw, "#")
		code := stripQuotedText(visible)
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		indent := indentWidth(raw)

		// unwind scopes this line no longer belongs to
		for len(fnStack) > 0 && indent <= fnStack[len(fnStack)-1].indent {
			end := lineNo - 1
			if trimmed == "end" && indent == fnStack[len(fnStack)-1].indent {
				end = lineNo
			}
			closeFn(fnStack[len(fnStack)-1], end)
			fnStack = fnStack[:len(fnStack)-1]
		}
		for len(classStack) > 0 && indent <= classStack[len(classStack)-1].indent {
			end := lineNo - 1
			if trimmed == "end" && indent == classStack[len(classStack)-1].indent {
				end = lineNo
			}
			closeClass(classStack[len(classStack)-1], end)
			classStack = classStack[:len(classStack)-1]
		}
		if trimmed == "end" {
			continue
		}

		if m := rubyRequireRE.FindStringSubmatch(visible); m != nil {
			parsed.Imports = append(parsed.Imports, types.ImportStmt{
				Source:     m[2],
				IsRelative: m[1] == "_relative",
			})
			continue
		}

		var inClass *rubyClassCtx
		if len(classStack) > 0 {
			inClass = classStack[len(classStack)-1]
		}

		if m := rubyVisibilityRE.FindStringSubmatch(code); m != nil && inClass != nil {
			inClass.visibility = m[1]
			continue
		}

		if m := rubyClassRE.FindStringSubmatch(code); m != nil {
			def := &types.ClassDef{
				Name:        m[1],
				ClassType:   ClassifyClass(parsed.Path, m[1]),
				ParentClass: m[2],
				StartLine:   lineNo,
				IsExport:    true,
			}
			if base, ok := strings.CutSuffix(m[1], "Serializer"); ok && base != "" {
				def.Serializes = base
			}
			classStack = append(classStack, &rubyClassCtx{
				def: def, calls: newCallSet(), indent: indent, visibility: "public",
			})
			continue
		}

		if m := rubyModuleRE.FindStringSubmatch(code); m != nil {
			// module definitions become class records so include targets
			// resolve to real nodes instead of external references
			def := &types.ClassDef{
				Name:      m[1],
				ClassType: ClassifyClass(parsed.Path, m[1]),
				StartLine: lineNo,
				IsExport:  true,
			}
			classStack = append(classStack, &rubyClassCtx{
				def: def, calls: newCallSet(), indent: indent, visibility: "public",
			})
			continue
		}

		if m := rubyDefRE.FindStringSubmatch(code); m != nil {
			def := &types.FunctionDef{
				Name:      m[2],
				StartLine: lineNo,
				IsExport:  inClass == nil || inClass.visibility == "public",
			}
			if inClass != nil {
				def.ClassName = inClass.def.Name
				def.QualifiedName = def.ClassName + "." + def.Name
			} else {
				def.QualifiedName = def.Name
			}
			ctx := &rubyFnCtx{def: def, calls: newCallSet(), indent: indent}
			fnStack = append(fnStack, ctx)

			// `def foo(a, b)` matches the call pattern; drop it
			scanCalls(code, rubyStoplist, ctx.calls)
			ctx.calls.exclude(def.Name)
			continue
		}

		if inClass != nil && len(fnStack) == 0 {
			if m := rubyIncludeRE.FindStringSubmatch(code); m != nil {
				inClass.def.Includes = append(inClass.def.Includes, m[1])
				continue
			}
			if m := rubyAssocRE.FindStringSubmatch(code); m != nil {
				kind := types.AssocKind(m[1])
				plural := kind == types.AssocHasMany || kind == types.AssocHasAndBelongsToMany
				inClass.def.Associations = append(inClass.def.Associations, types.Association{
					Kind:        kind,
					TargetClass: assocClassGuess(m[2], plural),
				})
				continue
			}
		}

		// attribute calls to the innermost open function, else class body
		switch {
		case len(fnStack) > 0:
			scanCalls(code, rubyStoplist, fnStack[len(fnStack)-1].calls)
		case inClass != nil:
			scanCalls(code, rubyStoplist, inClass.calls)
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

// rubyStoplist filters keywords, Kernel methods, and the Rails declarative
// macros handled structurally above.
var rubyStoplist = buildStoplist(
	// keywords; predicate names appear without their ? suffix because the
	// call scanner trims ?! before the stoplist lookup
	"if", "unless", "while", "until", "case", "when", "then", "do", "begin",
	"rescue", "ensure", "end", "def", "class", "module", "self", "super",
	"yield", "return", "break", "next", "redo", "retry", "and", "or", "not",
	"elsif", "else", "raise", "defined", "lambda", "proc", "loop", "new",
	// Kernel and ubiquitous object methods
	"puts", "print", "p", "pp", "require", "require_relative", "load",
	"freeze", "dup", "clone", "inspect", "format", "sprintf", "printf",
	"sleep", "rand", "Integer", "Float", "String", "Array", "Hash",
	"to_s", "to_i", "to_f", "to_a", "to_h", "to_sym", "to_json", "to_proc",
	"send", "public_send", "tap", "try", "instance_variable_get",
	"respond_to", "is_a", "kind_of", "instance_of", "nil", "frozen",
	// enumerable noise
	"each", "each_with_index", "each_with_object", "map", "flat_map",
	"select", "reject", "detect", "reduce", "inject", "times", "upto",
	"sort", "sort_by", "group_by", "index_by", "first", "last", "count",
	"size", "length", "empty", "any", "all", "none",
	"push", "pop", "shift", "unshift", "compact", "flatten", "uniq",
	"join", "split", "gsub", "sub", "strip", "chomp", "downcase", "upcase",
	"capitalize", "start_with", "end_with", "present", "blank",
	"merge", "fetch", "dig", "key", "keys", "values", "slice", "except",
	// Rails declarative macros extracted structurally, not as calls
	"belongs_to", "has_one", "has_many", "has_and_belongs_to_many",
	"include", "extend", "prepend", "attr_accessor", "attr_reader",
	"attr_writer", "validates", "validate", "scope", "enum", "serialize",
	"delegate", "before_action", "skip_before_action", "after_action",
	"around_action", "before_save", "after_save", "before_create",
	"after_create", "before_destroy", "after_destroy", "after_commit",
	"after_initialize", "has_secure_password", "accepts_nested_attributes_for",
	"validates_presence_of", "validates_uniqueness_of", "rescue_from",
)
