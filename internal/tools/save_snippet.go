package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contextcraft/context-craft/internal/snippet"
	"github.com/mark3labs/mcp-go/mcp"
)

type variableArg struct {
	Name         string `json:"name" jsonschema:"required,minLength=1"`
	Description  string `json:"description,omitempty"`
	DefaultValue string `json:"defaultValue,omitempty"`
	Required     bool   `json:"required,omitempty"`
}

type lineRangeArg struct {
	Start int `json:"start" jsonschema:"required"`
	End   int `json:"end" jsonschema:"required"`
}

type snippetContextArg struct {
	FilePath     string        `json:"filePath,omitempty" jsonschema_description:"Original file path"`
	LineRange    *lineRangeArg `json:"lineRange,omitempty"`
	Imports      []string      `json:"imports,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
}

type saveSnippetArgs struct {
	Name        string             `json:"name" jsonschema:"required,minLength=1,maxLength=50" jsonschema_description:"Snippet name; also names its directory"`
	Description string             `json:"description" jsonschema:"required,maxLength=200" jsonschema_description:"What the snippet is for"`
	Code        string             `json:"code" jsonschema:"required,minLength=1" jsonschema_description:"Template text. {{identifier}} marks a variable"`
	Language    string             `json:"language,omitempty" jsonschema:"default=typescript" jsonschema_description:"Programming language of the snippet"`
	Tags        []string           `json:"tags,omitempty"`
	Variables   []variableArg      `json:"variables,omitempty" jsonschema_description:"Declared variables. Undeclared placeholders are added as required variables"`
	Context     *snippetContextArg `json:"context,omitempty"`
}

// SaveSnippetTool handles the saveSnippet MCP tool.
type SaveSnippetTool struct {
	engine *snippet.Engine
}

// NewSaveSnippetTool creates a SaveSnippetTool.
func NewSaveSnippetTool(engine *snippet.Engine) *SaveSnippetTool {
	return &SaveSnippetTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *SaveSnippetTool) Definition() mcp.Tool {
	return mcp.NewToolWithRawSchema("saveSnippet",
		"Save a piece of code as a reusable snippet template. Placeholders like {{name}} become variables; "+
			"tags are added automatically from the language and code patterns. Saving an existing name replaces it.",
		inputSchema(&saveSnippetArgs{}),
	)
}

// Handle processes the saveSnippet tool call.
func (t *SaveSnippetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args saveSnippetArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	s, err := t.engine.Save(ctx, toSaveParams(args))
	if err != nil {
		if errors.Is(err, snippet.ErrInvalid) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}

	var vars []string
	for _, v := range s.Variables {
		line := fmt.Sprintf("`%s`", v.Name)
		if v.Required {
			line += " (required)"
		}
		if v.DefaultValue != "" {
			line += fmt.Sprintf(" default `%s`", v.DefaultValue)
		}
		vars = append(vars, line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Snippet saved: %s\n\n", s.Name)
	fmt.Fprintf(&b, "- **ID**: %s\n", s.ID)
	fmt.Fprintf(&b, "- **Language**: %s\n", s.Language)
	fmt.Fprintf(&b, "- **Tags**: %s\n", orNone(s.Tags))
	fmt.Fprintf(&b, "- **Lines**: %d\n\n", s.Context.LineCount)
	b.WriteString("### Variables\n\n")
	b.WriteString(bulletList(vars, "no variables"))
	fmt.Fprintf(&b, "\nInsert it with `insertSnippet` and `{\"name\": %q}`.\n", s.Name)

	return structuredResult(b.String(), map[string]any{
		"id":        s.ID,
		"name":      s.Name,
		"language":  s.Language,
		"tags":      s.Tags,
		"variables": s.Variables,
		"dir":       s.Name,
	}), nil
}

func toSaveParams(a saveSnippetArgs) snippet.SaveParams {
	p := snippet.SaveParams{
		Name:        a.Name,
		Description: a.Description,
		Code:        a.Code,
		Language:    a.Language,
		Tags:        a.Tags,
	}
	for _, v := range a.Variables {
		p.Variables = append(p.Variables, snippet.Variable{
			Name:         v.Name,
			Description:  v.Description,
			DefaultValue: v.DefaultValue,
			Required:     v.Required,
		})
	}
	if c := a.Context; c != nil {
		p.Context = &snippet.Context{
			FilePath:     c.FilePath,
			Imports:      c.Imports,
			Dependencies: c.Dependencies,
		}
		if c.LineRange != nil {
			p.Context.LineRange = &snippet.LineRange{Start: c.LineRange.Start, End: c.LineRange.End}
		}
	}
	return p
}
