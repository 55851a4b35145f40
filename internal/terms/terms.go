// Package terms provides the lexical tokenizer shared by indexing and
// search. Both sides must normalize identically or term lookups silently
// miss, so this is the only tokenizer in the codebase.
package terms

import (
	"strings"
	"unicode"
)

const (
	minTermLen = 2
	maxTermLen = 64
)

// Tokenize splits text into normalized lexical terms: lowercase, punctuation
// stripped, length 2-64, de-duplicated preserving first occurrence order.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minTermLen || len(f) > maxTermLen {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// ExtractCodeSymbols pulls identifier-like tokens out of prose: anything
// with a camelCase hump, snake_case underscore, dotted path, double-colon
// namespace, or a call-parens suffix. Symbols keep their original casing
// since they are matched exactly, not as normalized terms.
func ExtractCodeSymbols(text string) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(s string) {
		s = strings.Trim(s, ".:")
		if len(s) < minTermLen || len(s) > maxTermLen {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, raw := range strings.Fields(text) {
		tok := strings.Trim(raw, "`'\"()[]{},;!?")
		if tok == "" {
			continue
		}
		if strings.HasSuffix(raw, "()") || strings.Contains(raw, "()") {
			add(strings.TrimSuffix(tok, "()"))
			continue
		}
		if looksLikeSymbol(tok) {
			add(tok)
		}
	}
	return out
}

// looksLikeSymbol reports whether a token carries a code signal strong
// enough to index it as a symbol rather than plain prose.
func looksLikeSymbol(tok string) bool {
	if !isIdentifierish(tok) {
		return false
	}
	if strings.Contains(tok, "_") && tok != "_" {
		return true
	}
	if strings.Contains(tok, "::") {
		return true
	}
	// dotted call path like user.save or fs.readFile, but not a sentence
	// period or a bare filename extension
	if i := strings.Index(tok, "."); i > 0 && i < len(tok)-1 {
		return hasInteriorUpper(tok) || strings.Count(tok, ".") == 1 && !isCommonExtension(tok[i+1:])
	}
	return hasInteriorUpper(tok)
}

// hasInteriorUpper detects a camelCase hump: an uppercase rune that is not
// the leading character.
func hasInteriorUpper(s string) bool {
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func isIdentifierish(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' && r != ':' {
			return false
		}
	}
	return s != ""
}

func isCommonExtension(s string) bool {
	switch strings.ToLower(s) {
	case "md", "txt", "json", "yml", "yaml", "html", "css", "png", "jpg", "svg":
		return true
	}
	return false
}
