package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contextcraft/context-craft/internal/capture"
	"github.com/mark3labs/mcp-go/mcp"
)

type templateMetadataArg struct {
	TechStack []string `json:"techStack,omitempty" jsonschema_description:"Overrides tech stack detection"`
	Features  []string `json:"features,omitempty" jsonschema_description:"Overrides feature detection"`
	Tags      []string `json:"tags,omitempty"`
}

type saveContextTemplateArgs struct {
	Name            string               `json:"name" jsonschema:"required,minLength=1,maxLength=50" jsonschema_description:"Template name; also names its directory"`
	Description     string               `json:"description" jsonschema:"required,maxLength=200"`
	IncludePatterns []string             `json:"includePatterns,omitempty" jsonschema_description:"Glob patterns (** supported) of files to copy into the template"`
	ExcludePatterns []string             `json:"excludePatterns,omitempty" jsonschema_description:"Glob patterns of files to leave out"`
	Metadata        *templateMetadataArg `json:"metadata,omitempty"`
}

// SaveContextTemplateTool handles the saveContextTemplate MCP tool.
type SaveContextTemplateTool struct {
	capturer *capture.Capturer
}

// NewSaveContextTemplateTool creates a SaveContextTemplateTool.
func NewSaveContextTemplateTool(c *capture.Capturer) *SaveContextTemplateTool {
	return &SaveContextTemplateTool{capturer: c}
}

// Definition returns the MCP tool definition for registration.
func (t *SaveContextTemplateTool) Definition() mcp.Tool {
	return mcp.NewToolWithRawSchema("saveContextTemplate",
		"Save the current project's structure, tech stack and selected files as a reusable template "+
			"under templates/saved/<name>. Tech stack and features are detected unless given in metadata.",
		inputSchema(&saveContextTemplateArgs{}),
	)
}

// Handle processes the saveContextTemplate tool call.
func (t *SaveContextTemplateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args saveContextTemplateArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	r := capture.Request{
		Name:            args.Name,
		Description:     args.Description,
		IncludePatterns: args.IncludePatterns,
		ExcludePatterns: args.ExcludePatterns,
	}
	if m := args.Metadata; m != nil {
		r.Metadata = &capture.Metadata{TechStack: m.TechStack, Features: m.Features, Tags: m.Tags}
	}

	res, err := t.capturer.Capture(ctx, r)
	if err != nil {
		if errors.Is(err, capture.ErrInvalid) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	meta := res.Template.Metadata
	var b strings.Builder
	fmt.Fprintf(&b, "## Template '%s' saved\n\n", args.Name)
	fmt.Fprintf(&b, "- **Files saved**: %d\n", len(res.Files))
	if len(res.Skipped) > 0 {
		fmt.Fprintf(&b, "- **Skipped (unreadable)**: %d\n", len(res.Skipped))
	}
	fmt.Fprintf(&b, "- **Tech stack**: %s\n", orNone(meta.TechStack))
	fmt.Fprintf(&b, "- **Features**: %s\n", orNone(meta.Features))
	fmt.Fprintf(&b, "- **Lines**: %d\n", res.Template.ProjectInfo.Stats.TotalLines)
	fmt.Fprintf(&b, "- **Location**: %s\n", displayPath(res.Dir))

	return structuredResult(b.String(), map[string]any{
		"templateName": args.Name,
		"files":        res.Files,
		"skipped":      res.Skipped,
		"metadata":     meta,
		"structure":    res.Structure,
	}), nil
}
