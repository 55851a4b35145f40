package analyzer

import "strings"

// assocClassGuess converts a snake_case association target into a class-name
// guess: has_many :line_items -> LineItem. Collection associations
// singularize the final word first. This is convention matching, not a full
// inflector; irregular plurals come out wrong and that is accepted.
func assocClassGuess(target string, plural bool) string {
	parts := strings.Split(target, "_")
	if plural && len(parts) > 0 {
		parts[len(parts)-1] = singularize(parts[len(parts)-1])
	}
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, "")
}

// singularize applies ordered suffix heuristics: companies -> company,
// statuses -> status, users -> user.
func singularize(word string) string {
	switch {
	case len(word) > 3 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case hasAnySuffix(word, "xes", "ches", "shes", "sses", "zes", "oes"):
		return word[:len(word)-2]
	case len(word) > 1 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	}
	return word
}

func hasAnySuffix(word string, suffixes ...string) bool {
	for _, s := range suffixes {
		if len(word) > len(s) && strings.HasSuffix(word, s) {
			return true
		}
	}
	return false
}

func capitalize(word string) string {
	if word == "" {
		return ""
	}
	if word[0] >= 'a' && word[0] <= 'z' {
		return string(word[0]-'a'+'A') + word[1:]
	}
	return word
}
