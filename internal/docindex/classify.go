package docindex

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/recallhq/recall/pkg/types"
)

// contentSniffLen bounds how much of a document the content fallback reads
const contentSniffLen = 500

// docTypeRules is the filename/path classification cascade, evaluated
// first-match-wins over the slash-normalized lowercase project-relative
// path. Rule order is part of the contract: "api-design.md" is a design
// doc because the design rule outranks the api rule, and "setup-guide.md"
// is a setup doc because setup outranks tutorial.
var docTypeRules = []struct {
	re *regexp.Regexp
	t  types.DocType
}{
	{regexp.MustCompile(`/adrs?/|/decisions?/|(^|/)adr[-_.]`), types.DocADR},
	{regexp.MustCompile(`(^|/)readme(\.[^/]*)?$`), types.DocReadme},
	{regexp.MustCompile(`(^|/)(changelog|changes|history|news|release[-_]?notes)(\.[^/]*)?$`), types.DocChangelog},
	{regexp.MustCompile(`(^|[-_/.])(design|architecture|rfcs?)([-_/.]|$)`), types.DocDesign},
	{regexp.MustCompile(`(^|/)(openapi|swagger)[^/]*$|(^|[-_/.])api([-_/.]|$)`), types.DocAPI},
	{regexp.MustCompile(`(^|[-_/.])(setup|install(ation)?|getting[-_]?started|quick[-_]?start|contributing)([-_/.]|$)`), types.DocSetup},
	{regexp.MustCompile(`(^|[-_/.])(roadmap|milestones)([-_/.]|$)`), types.DocRoadmap},
	{regexp.MustCompile(`(^|[-_/.])(specs?|specification|requirements)([-_/.]|$)`), types.DocSpec},
	{regexp.MustCompile(`(^|[-_/.])(tutorial|guide|howto|how[-_]?to|walkthrough|cookbook)([-_/.]|$)`), types.DocTutorial},
}

// docContentRules is the fallback for uninformative filenames: keyword
// sniffing over the first contentSniffLen characters, also first-match-wins
// so "architecture decision record" classifies as ADR before the design
// rule can see "architecture".
var docContentRules = []struct {
	marker string
	t      types.DocType
}{
	{"architecture decision record", types.DocADR},
	{"## decision", types.DocADR},
	{"changelog", types.DocChangelog},
	{"release notes", types.DocChangelog},
	{"api reference", types.DocAPI},
	{"installation", types.DocSetup},
	{"getting started", types.DocSetup},
	{"roadmap", types.DocRoadmap},
	{"tutorial", types.DocTutorial},
	{"architecture", types.DocDesign},
	{"design", types.DocDesign},
	{"specification", types.DocSpec},
	{"requirements", types.DocSpec},
}

// ClassifyDoc infers a document's type from its project-relative path,
// falling back to content sniffing when no path rule matches. Callers pass
// the relative path, not the absolute one, so directory names above the
// project root cannot leak into classification.
func ClassifyDoc(relPath, content string) types.DocType {
	p := strings.ToLower(filepath.ToSlash(relPath))
	for _, rule := range docTypeRules {
		if rule.re.MatchString(p) {
			return rule.t
		}
	}

	head := content
	if len(head) > contentSniffLen {
		head = head[:contentSniffLen]
	}
	head = strings.ToLower(head)
	for _, rule := range docContentRules {
		if strings.Contains(head, rule.marker) {
			return rule.t
		}
	}
	return types.DocGeneric
}
