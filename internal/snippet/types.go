// Package snippet implements the snippet repository and the engine that
// saves, lists and inserts snippets.
//
// A snippet lives in its own directory under the repository root, named
// after the snippet:
//
//	<root>/<name>/snippet.json       metadata, variables, usage, template
//	<root>/<name>/template.code      raw template text
//	<root>/<name>/example.md         human-readable usage example
//	<root>/<name>/quick-insert.json  insertSnippet call with default values
//
// Re-saving a name replaces the whole directory. Insertion only mutates the
// usage fields of snippet.json.
package snippet

import (
	"fmt"
	"time"
)

// Variable is a named substitution point declared by a snippet.
type Variable struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DefaultValue string `json:"defaultValue,omitempty"`
	Required     bool   `json:"required"`
}

// LineRange identifies the lines a snippet was captured from.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Context records where a snippet came from.
type Context struct {
	FilePath     string     `json:"filePath,omitempty"`
	LineRange    *LineRange `json:"lineRange,omitempty"`
	Imports      []string   `json:"imports,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	OriginalCode string     `json:"originalCode"`
	LineCount    int        `json:"lineCount"`
	Size         int        `json:"size"`
}

// Usage is the mutable insertion counter.
type Usage struct {
	Count    int        `json:"count"`
	LastUsed *time.Time `json:"lastUsed"`
}

// Template is the stored template text and the placeholders found in it.
type Template struct {
	Code         string   `json:"code"`
	Placeholders []string `json:"placeholders"`
}

// Snippet is the root document persisted as snippet.json.
type Snippet struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Language    string     `json:"language"`
	Tags        []string   `json:"tags"`
	Variables   []Variable `json:"variables"`
	Context     Context    `json:"context"`
	Usage       Usage      `json:"usage"`
	Template    Template   `json:"template"`
}

// --- Insert mode enum ---

// InsertMode controls how rendered content combines with an existing file.
type InsertMode string

const (
	ModeReplace InsertMode = "replace"
	ModeAppend  InsertMode = "append"
	ModePrepend InsertMode = "prepend"
)

// Separator joins rendered content and existing content in append and
// prepend modes.
const Separator = "\n\n"

// ValidateMode returns an error if the mode is not recognized. The empty
// mode is accepted and means replace.
func ValidateMode(m InsertMode) error {
	switch m {
	case "", ModeReplace, ModeAppend, ModePrepend:
		return nil
	}
	return fmt.Errorf("invalid insert mode %q: must be one of: replace, append, prepend", m)
}

// --- Sort key enum ---

// SortKey selects the ordering of list results.
type SortKey string

const (
	SortName    SortKey = "name"
	SortCreated SortKey = "created"
	SortUsage   SortKey = "usage"
	SortSize    SortKey = "size"
)

// ValidateSortKey returns an error if the key is not recognized. The empty
// key is accepted and means created.
func ValidateSortKey(k SortKey) error {
	switch k {
	case "", SortName, SortCreated, SortUsage, SortSize:
		return nil
	}
	return fmt.Errorf("invalid sort key %q: must be one of: name, created, usage, size", k)
}

// --- Engine parameters and results ---

// SaveParams is the input of Engine.Save.
type SaveParams struct {
	Name        string
	Description string
	Code        string
	Language    string
	Tags        []string
	Variables   []Variable
	Context     *Context
}

// Position is accepted by insert for future cursor-aware insertion. It is
// not consulted.
type Position struct {
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
}

// InsertParams is the input of Engine.Insert.
type InsertParams struct {
	Name       string
	Variables  map[string]string
	TargetPath string
	Mode       InsertMode
	Position   *Position
}

// InsertResult is the outcome of Engine.Insert. When Missing is non-empty
// nothing was written and the remaining fields are zero.
type InsertResult struct {
	Missing    []Variable
	FilePath   string
	Operation  string
	Rendered   string
	LineCount  int
	Variables  map[string]string
	UsageCount int
	Language   string
}

// ListParams is the input of Engine.List. Zero values disable a filter.
type ListParams struct {
	Tags     []string
	Language string
	Search   string
	Limit    int
	SortBy   SortKey
}

// ListEntry is one snippet in a list result.
type ListEntry struct {
	Snippet
	Dir     string `json:"dir"`
	Preview string `json:"preview"`
}

// ListResult holds the filtered total and the truncated page.
type ListResult struct {
	Total    int         `json:"total"`
	Snippets []ListEntry `json:"snippets"`
}
