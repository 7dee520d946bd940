package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contextcraft/context-craft/internal/snippet"
	"github.com/mark3labs/mcp-go/mcp"
)

type listSnippetsArgs struct {
	Tags     []string `json:"tags,omitempty" jsonschema_description:"Keep snippets carrying any of these tags"`
	Language string   `json:"language,omitempty" jsonschema_description:"Case-insensitive substring of the language"`
	Search   string   `json:"search,omitempty" jsonschema_description:"Case-insensitive text matched against name, description and tags"`
	Limit    int      `json:"limit,omitempty" jsonschema:"minimum=1,maximum=50,default=10"`
	SortBy   string   `json:"sortBy,omitempty" jsonschema:"enum=name,enum=created,enum=usage,enum=size,default=created"`
}

// ListSnippetsTool handles the listSnippets MCP tool.
type ListSnippetsTool struct {
	engine *snippet.Engine
}

// NewListSnippetsTool creates a ListSnippetsTool.
func NewListSnippetsTool(engine *snippet.Engine) *ListSnippetsTool {
	return &ListSnippetsTool{engine: engine}
}

// Definition returns the MCP tool definition for registration.
func (t *ListSnippetsTool) Definition() mcp.Tool {
	return mcp.NewToolWithRawSchema("listSnippets",
		"List saved snippets with optional tag, language and text filters. "+
			"Results are sorted (created by default) and truncated to limit; total counts every match.",
		inputSchema(&listSnippetsArgs{}),
	)
}

// Handle processes the listSnippets tool call.
func (t *ListSnippetsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listSnippetsArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	res, err := t.engine.List(ctx, snippet.ListParams{
		Tags:     args.Tags,
		Language: args.Language,
		Search:   args.Search,
		Limit:    args.Limit,
		SortBy:   snippet.SortKey(args.SortBy),
	})
	if err != nil {
		if errors.Is(err, snippet.ErrInvalid) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}

	data := map[string]any{"total": res.Total, "snippets": res.Snippets}
	if res.Total == 0 {
		return structuredResult(
			"No snippets found. Save one with `saveSnippet`, for example "+
				"`{\"name\": \"my-first-snippet\", \"description\": \"...\", \"code\": \"// code\", \"language\": \"typescript\"}`.",
			data,
		), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Found %d snippet", res.Total)
	if res.Total != 1 {
		b.WriteString("s")
	}
	if res.Total > len(res.Snippets) {
		fmt.Fprintf(&b, " (showing %d)", len(res.Snippets))
	}
	b.WriteString("\n\n")

	for i, s := range res.Snippets {
		fmt.Fprintf(&b, "%d. **%s** (%s)", i+1, s.Name, s.Language)
		if s.Description != "" {
			fmt.Fprintf(&b, ": %s", s.Description)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "   Tags: %s | %d lines | %d variables | %d uses\n",
			orNone(s.Tags), s.Context.LineCount, len(s.Variables), s.Usage.Count)
	}

	return structuredResult(b.String(), data), nil
}
