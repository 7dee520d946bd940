package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/contextcraft/context-craft/internal/snippet"
	"github.com/mark3labs/mcp-go/mcp"
)

type positionArg struct {
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
}

type insertSnippetArgs struct {
	Name       string            `json:"name" jsonschema:"required,minLength=1" jsonschema_description:"Name of the saved snippet"`
	Variables  map[string]string `json:"variables,omitempty" jsonschema_description:"Variable values; they override snippet defaults"`
	TargetPath string            `json:"targetPath,omitempty" jsonschema_description:"File to write. Defaults to <name>.<ext> in the working directory"`
	InsertMode string            `json:"insertMode,omitempty" jsonschema:"enum=replace,enum=append,enum=prepend,default=replace"`
	Position   *positionArg      `json:"position,omitempty" jsonschema_description:"Reserved for cursor-aware insertion; currently ignored"`
}

// InsertSnippetTool handles the insertSnippet MCP tool.
type InsertSnippetTool struct {
	engine *snippet.Engine
}

// NewInsertSnippetTool creates an InsertSnippetTool.
func NewInsertSnippetTool(engine *snippet.Engine) *InsertSnippetTool {
	return &InsertSnippetTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *InsertSnippetTool) Definition() mcp.Tool {
	return mcp.NewToolWithRawSchema("insertSnippet",
		"Render a saved snippet with variable values and write it to a file. "+
			"insertMode replace overwrites the file; append and prepend join with a blank line. "+
			"If required variables are missing nothing is written and they are listed in missingVariables.",
		inputSchema(&insertSnippetArgs{}),
	)
}

// Handle processes the insertSnippet tool call.
func (t *InsertSnippetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args insertSnippetArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	p := snippet.InsertParams{
		Name:       args.Name,
		Variables:  args.Variables,
		TargetPath: args.TargetPath,
		Mode:       snippet.InsertMode(args.InsertMode),
	}
	if args.Position != nil {
		p.Position = &snippet.Position{Line: args.Position.Line, Column: args.Position.Column}
	}

	res, err := t.engine.Insert(ctx, p)
	switch {
	case errors.Is(err, snippet.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("Snippet '%s' not found. Use listSnippets to see saved snippets.", args.Name)), nil
	case errors.Is(err, snippet.ErrInvalid):
		return mcp.NewToolResultError(err.Error()), nil
	case err != nil:
		return nil, err
	}

	if len(res.Missing) > 0 {
		return missingResult(res.Missing), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Snippet '%s' %s %s\n\n", args.Name, res.Operation, displayPath(res.FilePath))
	fmt.Fprintf(&b, "- **Lines**: %d\n", res.LineCount)
	fmt.Fprintf(&b, "- **Language**: %s\n", res.Language)
	fmt.Fprintf(&b, "- **Variables used**: %s\n", orNone(sortedKeys(res.Variables)))
	fmt.Fprintf(&b, "- **Usage count**: %d\n", res.UsageCount)

	return structuredResult(b.String(), map[string]any{
		"filePath":   res.FilePath,
		"operation":  res.Operation,
		"lineCount":  res.LineCount,
		"variables":  res.Variables,
		"usageCount": res.UsageCount,
	}), nil
}

func missingResult(missing []snippet.Variable) *mcp.CallToolResult {
	names := make([]string, 0, len(missing))
	lines := make([]string, 0, len(missing))
	for _, v := range missing {
		names = append(names, v.Name)
		lines = append(lines, fmt.Sprintf("`%s`: %s", v.Name, v.Description))
	}

	var b strings.Builder
	b.WriteString("## Missing required variables\n\n")
	b.WriteString(bulletList(lines, ""))
	b.WriteString("\nProvide them in the `variables` argument. Nothing was written.\n")
	return structuredResult(b.String(), map[string]any{
		"missingVariables": names,
	})
}

// displayPath shows p relative to the working directory when it lies
// inside it.
func displayPath(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(wd, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
