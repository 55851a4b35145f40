//go:build !treesitter

package analyzer

import "github.com/recallhq/recall/pkg/types"

// newTreeAnalyzer reports the syntax-tree strategy as unavailable. Builds
// without the treesitter tag stay pure Go and fall back to the line scanner.
func newTreeAnalyzer(types.Language) (Analyzer, bool) {
	return nil, false
}
