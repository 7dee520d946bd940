package snippet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuickInsert is the machine-readable insert descriptor written to
// quick-insert.json.
type QuickInsert struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Language    string           `json:"language"`
	Command     string           `json:"command"`
	Parameters  QuickInsertInput `json:"parameters"`
	Tags        []string         `json:"tags"`
}

// QuickInsertInput is a ready-to-send insertSnippet argument object.
type QuickInsertInput struct {
	Name      string            `json:"name"`
	Variables map[string]string `json:"variables"`
}

// NewQuickInsert builds the descriptor for s. Each variable maps to its
// default value, or the empty string.
func NewQuickInsert(s *Snippet) QuickInsert {
	vars := make(map[string]string, len(s.Variables))
	for _, v := range s.Variables {
		vars[v.Name] = v.DefaultValue
	}
	return QuickInsert{
		Name:        s.Name,
		Description: s.Description,
		Language:    s.Language,
		Command:     "insertSnippet",
		Parameters:  QuickInsertInput{Name: s.Name, Variables: vars},
		Tags:        s.Tags,
	}
}

// ExampleUsage renders the human-readable example.md content for s.
func ExampleUsage(s *Snippet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Example usage of %s\n\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", s.Description)
	}

	if len(s.Variables) > 0 {
		b.WriteString("## Variables\n\n")
		for _, v := range s.Variables {
			fmt.Fprintf(&b, "- `%s`: %s", v.Name, v.Description)
			if v.DefaultValue != "" {
				fmt.Fprintf(&b, " (default: %s)", v.DefaultValue)
			}
			if v.Required {
				b.WriteString(" **required**")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	args, _ := json.MarshalIndent(NewQuickInsert(s).Parameters, "", "  ")
	b.WriteString("## Usage\n\n")
	b.WriteString("Call the `insertSnippet` tool with:\n\n")
	fmt.Fprintf(&b, "```json\n%s\n```\n\n", args)
	fmt.Fprintf(&b, "## Template (%s)\n\n```%s\n%s\n```\n", s.Language, Extension(s.Language), s.Template.Code)
	return b.String()
}
