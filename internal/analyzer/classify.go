package analyzer

import (
	"regexp"
	"strings"

	"github.com/recallhq/recall/pkg/types"
)

// classRule is one step of the classification cascade
type classRule struct {
	match func(path, name string) bool
	label types.ClassType
}

func pathRule(pattern string, label types.ClassType) classRule {
	re := regexp.MustCompile(pattern)
	return classRule{
		match: func(path, _ string) bool { return re.MatchString(path) },
		label: label,
	}
}

func suffixRule(suffix string, label types.ClassType) classRule {
	return classRule{
		match: func(_, name string) bool { return strings.HasSuffix(name, suffix) },
		label: label,
	}
}

// classRules is the classification cascade, evaluated first-match-wins.
// Path conventions outrank naming suffixes, and the order within each group
// is load-bearing: concerns must be checked before models (Rails nests
// app/models/concerns), tests before everything (spec trees mirror app
// trees). Reordering entries changes classification behavior.
var classRules = []classRule{
	// directory conventions
	pathRule(`(^|/)(test|tests|spec|__tests__)(/|$)|\.(test|spec)\.[a-z]+$|_(test|spec)\.[a-z]+$`, types.ClassTest),
	pathRule(`(^|/)db/migrate/`, types.ClassMigration),
	pathRule(`(^|/)concerns/`, types.ClassConcern),
	pathRule(`(^|/)models/`, types.ClassModel),
	pathRule(`(^|/)controllers/`, types.ClassController),
	pathRule(`(^|/)services/`, types.ClassService),
	pathRule(`(^|/)jobs?/`, types.ClassJob),
	pathRule(`(^|/)workers?/`, types.ClassJob),
	pathRule(`(^|/)mailers?/`, types.ClassMailer),
	pathRule(`(^|/)serializers?/`, types.ClassSerializer),
	pathRule(`(^|/)middlewares?/`, types.ClassMiddleware),
	pathRule(`(^|/)validators?/`, types.ClassValidator),
	pathRule(`(^|/)helpers?/`, types.ClassHelper),
	pathRule(`(^|/)components?/`, types.ClassComponent),
	pathRule(`(^|/)hooks?/`, types.ClassHook),
	pathRule(`(^|/)contexts?/`, types.ClassContext),
	pathRule(`(^|/)stores?/`, types.ClassStore),
	pathRule(`(^|/)(utils?|lib)/`, types.ClassUtil),

	// naming suffixes
	suffixRule("Controller", types.ClassController),
	suffixRule("Service", types.ClassService),
	suffixRule("Job", types.ClassJob),
	suffixRule("Worker", types.ClassJob),
	suffixRule("Mailer", types.ClassMailer),
	suffixRule("Serializer", types.ClassSerializer),
	suffixRule("Middleware", types.ClassMiddleware),
	suffixRule("Validator", types.ClassValidator),
	suffixRule("Helper", types.ClassHelper),
	suffixRule("Component", types.ClassComponent),
	suffixRule("Store", types.ClassStore),
	suffixRule("Context", types.ClassContext),
}

// hookNameRE catches React hook naming: use followed by an uppercase letter
var hookNameRE = regexp.MustCompile(`^use[A-Z]`)

// ClassifyClass infers the class_type for a class from its file path and
// name. The result is heuristic and never user-declared.
func ClassifyClass(relPath, name string) types.ClassType {
	path := strings.ReplaceAll(relPath, "\\", "/")
	for _, r := range classRules {
		if r.match(path, name) {
			return r.label
		}
	}
	if hookNameRE.MatchString(name) {
		return types.ClassHook
	}
	return types.ClassGeneric
}
