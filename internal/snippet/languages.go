package snippet

import "strings"

// DefaultLanguage is used when a snippet is saved without a language.
const DefaultLanguage = "typescript"

// fallbackExtension is used for languages missing from extensions.
const fallbackExtension = "txt"

// extensions maps a language to the file extension used for default
// insertion targets.
var extensions = map[string]string{
	"typescript": "ts",
	"javascript": "js",
	"python":     "py",
	"java":       "java",
	"csharp":     "cs",
	"go":         "go",
	"rust":       "rs",
	"vue":        "vue",
	"react":      "tsx",
	"jsx":        "jsx",
	"html":       "html",
	"css":        "css",
	"scss":       "scss",
	"json":       "json",
	"yaml":       "yaml",
	"xml":        "xml",
}

// Extension returns the file extension for language, or "txt" when the
// language is unknown. Lookup is exact.
func Extension(language string) string {
	if ext, ok := extensions[language]; ok {
		return ext
	}
	return fallbackExtension
}

// languageTags are added to every snippet saved in the given language.
var languageTags = map[string][]string{
	"typescript": {"ts", "typed"},
	"javascript": {"js", "vanilla"},
	"python":     {"py", "python"},
	"react":      {"react", "jsx", "tsx"},
	"vue":        {"vue", "composition-api"},
}

// contentRule tags a snippet when any of its markers appears in the code.
type contentRule struct {
	tag     string
	markers []string
}

var contentRules = []contentRule{
	{tag: "function", markers: []string{"function", "=>"}},
	{tag: "class", markers: []string{"class", "interface"}},
	{tag: "module", markers: []string{"export", "import"}},
	{tag: "async", markers: []string{"async", "await"}},
	{tag: "react-hooks", markers: []string{"useState", "useEffect"}},
}

// AutoTags classifies code by language and content. Matching is a plain
// substring test, so "classic" counts as class syntax.
func AutoTags(code, language string) []string {
	var tags []string
	tags = append(tags, languageTags[language]...)
	for _, rule := range contentRules {
		for _, marker := range rule.markers {
			if strings.Contains(code, marker) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	return dedupe(tags)
}

// dedupe removes repeated and empty strings, keeping first occurrences.
func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
