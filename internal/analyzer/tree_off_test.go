//go:build !treesitter

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/recallhq/recall/pkg/types"
)

func TestPreferTreeFallsBackWithoutTag(t *testing.T) {
	a, err := ForLanguage(types.LangTypeScript, Options{PreferTree: true})
	assert.NoError(t, err)
	assert.IsType(t, &ScanAnalyzer{}, a)
}
