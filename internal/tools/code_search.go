package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/contextcraft/context-craft/internal/devtools"
	"github.com/mark3labs/mcp-go/mcp"
)

// CodeSearchTool handles the codeSearch MCP tool.
type CodeSearchTool struct {
	tb *devtools.Toolbox
}

// NewCodeSearchTool creates a CodeSearchTool.
func NewCodeSearchTool(tb *devtools.Toolbox) *CodeSearchTool {
	return &CodeSearchTool{tb: tb}
}

// Definition returns the MCP tool definition for registration.
func (t *CodeSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("codeSearch",
		mcp.WithDescription(
			"Keyword search through the project's source files. Case-insensitive substring match; "+
				"node_modules, dist and .git are skipped. Returns up to five matching lines per file.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Text to search for"),
		),
		mcp.WithString("path",
			mcp.DefaultString("."),
			mcp.Description("Directory to search, relative to the working directory"),
		),
		mcp.WithArray("fileTypes",
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("File extensions to include, e.g. [\".ts\", \".go\"]"),
		),
		mcp.WithNumber("maxResults",
			mcp.Min(1),
			mcp.Max(50),
			mcp.DefaultNumber(devtools.DefaultMaxResults),
			mcp.Description("Maximum number of files to return"),
		),
	)
}

// Handle processes the codeSearch tool call.
func (t *CodeSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	res, err := t.tb.Search(ctx, devtools.SearchRequest{
		Query:      query,
		Path:       req.GetString("path", "."),
		FileTypes:  req.GetStringSlice("fileTypes", nil),
		MaxResults: req.GetInt("maxResults", devtools.DefaultMaxResults),
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matches for %q:\n\n", len(res.Matches), query)
	for _, m := range res.Matches {
		fmt.Fprintf(&b, "%s\n", m.File)
		for _, l := range m.Matches {
			fmt.Fprintf(&b, "  %d: %s\n", l.Line, l.Content)
		}
		b.WriteString("\n")
	}

	return structuredResult(b.String(), res), nil
}
