package analyzer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/recallhq/recall/pkg/types"
)

// ProjectInfo is the outcome of project detection
type ProjectInfo struct {
	Language  types.Language
	Framework string // "rails", "react", "django", ...; empty when none detected
}

// DetectProject inspects marker files at the project root to pick a language
// and sniff a framework label. The marker order is deliberate: a TypeScript
// config wins over a plain package.json so typed projects get the typed
// analyzer. Unknown projects fall back to the most permissive analyzer
// (the TS/JS line scanner) at the call site.
func DetectProject(root string) ProjectInfo {
	if fileExists(filepath.Join(root, "tsconfig.json")) {
		return ProjectInfo{Language: types.LangTypeScript, Framework: jsFramework(root)}
	}
	if fileExists(filepath.Join(root, "package.json")) {
		return ProjectInfo{Language: types.LangJavaScript, Framework: jsFramework(root)}
	}
	if fileExists(filepath.Join(root, "Gemfile")) || fileExists(filepath.Join(root, "config.ru")) || hasGlob(root, "*.gemspec") {
		return ProjectInfo{Language: types.LangRuby, Framework: rubyFramework(root)}
	}
	if fileExists(filepath.Join(root, "pyproject.toml")) ||
		fileExists(filepath.Join(root, "requirements.txt")) ||
		fileExists(filepath.Join(root, "setup.py")) ||
		fileExists(filepath.Join(root, "Pipfile")) {
		return ProjectInfo{Language: types.LangPython, Framework: pythonFramework(root)}
	}
	return ProjectInfo{Language: types.LangUnknown}
}

// jsFramework reads package.json dependency names for framework signatures
func jsFramework(root string) string {
	raw, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return ""
	}
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return ""
	}
	deps := make(map[string]struct{}, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name := range manifest.Dependencies {
		deps[name] = struct{}{}
	}
	for name := range manifest.DevDependencies {
		deps[name] = struct{}{}
	}

	// ordered: meta-frameworks before the libraries they wrap
	checks := []struct{ dep, label string }{
		{"next", "next"},
		{"@nestjs/core", "nestjs"},
		{"@angular/core", "angular"},
		{"nuxt", "nuxt"},
		{"vue", "vue"},
		{"svelte", "svelte"},
		{"react", "react"},
		{"express", "express"},
		{"fastify", "fastify"},
	}
	for _, c := range checks {
		if _, ok := deps[c.dep]; ok {
			return c.label
		}
	}
	return ""
}

// rubyFramework sniffs the Gemfile for known gems
func rubyFramework(root string) string {
	raw, err := os.ReadFile(filepath.Join(root, "Gemfile"))
	if err != nil {
		return ""
	}
	content := string(raw)
	for _, c := range []struct{ gem, label string }{
		{`gem "rails"`, "rails"},
		{`gem 'rails'`, "rails"},
		{`gem "sinatra"`, "sinatra"},
		{`gem 'sinatra'`, "sinatra"},
		{`gem "hanami"`, "hanami"},
		{`gem 'hanami'`, "hanami"},
	} {
		if strings.Contains(content, c.gem) {
			return c.label
		}
	}
	return ""
}

// pythonFramework checks requirement manifests for known packages
func pythonFramework(root string) string {
	var content strings.Builder
	for _, name := range []string{"requirements.txt", "pyproject.toml", "Pipfile", "setup.py"} {
		if raw, err := os.ReadFile(filepath.Join(root, name)); err == nil {
			content.Write(raw)
			content.WriteByte('\n')
		}
	}
	manifest := strings.ToLower(content.String())
	for _, c := range []struct{ pkg, label string }{
		{"django", "django"},
		{"fastapi", "fastapi"},
		{"flask", "flask"},
	} {
		if strings.Contains(manifest, c.pkg) {
			return c.label
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func hasGlob(root, pattern string) bool {
	matches, err := filepath.Glob(filepath.Join(root, pattern))
	return err == nil && len(matches) > 0
}
