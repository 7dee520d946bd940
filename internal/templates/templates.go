// Package templates implements the placeholder grammar shared by snippets
// and scaffolds.
//
// A placeholder is a double-brace delimited identifier:
//
//	placeholder = "{{" identifier "}}"
//	identifier  = 1*( ALPHA / DIGIT / "_" )
//
// Whitespace inside the braces is not allowed and there is no escape
// sequence: a literal "{{name}}" in template text is always a placeholder.
// Rendering is flat substitution. There are no conditionals, loops or
// helpers.
package templates

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// placeholderRe matches a single placeholder and captures its identifier.
var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Scan returns every placeholder identifier found in text, in order of
// appearance. Duplicates are preserved.
func Scan(text string) []string {
	matches := placeholderRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Names returns the distinct placeholder identifiers in text, ordered by
// first appearance.
func Names(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, name := range Scan(text) {
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Contains reports whether text holds at least one placeholder.
func Contains(text string) bool {
	return placeholderRe.MatchString(text)
}

// Render substitutes every placeholder whose identifier has an entry in
// values. Placeholders without an entry are left untouched, so callers
// must validate completeness before rendering when that matters.
func Render(text string, values map[string]string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		if v, ok := values[name]; ok {
			return v
		}
		return match
	})
}

// Unresolved returns the distinct placeholders in text that have no entry
// in values.
func Unresolved(text string, values map[string]string) []string {
	var missing []string
	for _, name := range Names(text) {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// RenderPath renders a slash-separated relative path. A rendered path that
// is absolute or climbs out of its root is rejected.
func RenderPath(rel string, values map[string]string) (string, error) {
	out := path.Clean(Render(rel, values))
	if path.IsAbs(out) || out == ".." || strings.HasPrefix(out, "../") {
		return "", fmt.Errorf("rendered path %q escapes its root", out)
	}
	return out, nil
}
