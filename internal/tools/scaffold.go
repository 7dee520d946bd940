package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contextcraft/context-craft/internal/journal"
	"github.com/contextcraft/context-craft/internal/scaffold"
	"github.com/mark3labs/mcp-go/mcp"
)

// ScaffoldTool handles the scaffold MCP tool.
type ScaffoldTool struct {
	gen *scaffold.Generator
}

// NewScaffoldTool creates a ScaffoldTool.
func NewScaffoldTool(gen *scaffold.Generator) *ScaffoldTool {
	return &ScaffoldTool{gen: gen}
}

// Definition returns the MCP tool definition for registration.
func (t *ScaffoldTool) Definition() mcp.Tool {
	return mcp.NewTool("scaffold",
		mcp.WithDescription(
			"Generate a project or component skeleton from a template directory. "+
				"File contents and names may use {{name}}, {{PascalName}}, {{kebabName}}, {{lang}} and {{features}}. "+
				"Existing output files are overwritten.",
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Enum(scaffold.Types...),
			mcp.Description("Scaffold type; names the template directory"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.MaxLength(50),
			mcp.Description("Name of the generated project or component"),
		),
		mcp.WithString("lang",
			mcp.Enum("ts", "js"),
			mcp.DefaultString("ts"),
			mcp.Description("Target language"),
		),
		mcp.WithArray("features",
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("Optional features, exposed to templates as {{features}}"),
		),
	)
}

// Handle processes the scaffold tool call.
func (t *ScaffoldTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := scaffold.Request{
		Type:     req.GetString("type", ""),
		Name:     strings.TrimSpace(req.GetString("name", "")),
		Lang:     req.GetString("lang", "ts"),
		Features: req.GetStringSlice("features", nil),
	}

	res, err := t.gen.Generate(ctx, r)
	if err != nil {
		if errors.Is(err, scaffold.ErrTemplateNotFound) || errors.Is(err, scaffold.ErrInvalid) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Generated %s scaffolding for '%s'\n\n", r.Type, r.Name)

	var steps []journal.Step
	if ann, ok := journal.FromContext(ctx); ok {
		steps = ann.Steps
		b.WriteString("### Thinking process\n\n")
		for _, s := range steps {
			fmt.Fprintf(&b, "%d. %s\n", s.Number, s.Content)
		}
		b.WriteString("\n")
	}

	paths := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		paths = append(paths, f.Path)
	}
	fmt.Fprintf(&b, "### Generated files in %s\n\n", displayPath(res.OutputDir))
	b.WriteString(bulletList(paths, "template directory is empty"))

	return structuredResult(b.String(), map[string]any{
		"outputDir": res.OutputDir,
		"files":     res.Files,
		"thinking":  steps,
	}), nil
}
