package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/contextcraft/context-craft/internal/journal"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolHistoryTool handles the toolHistory MCP tool. It reads the
// invocation journal.
type ToolHistoryTool struct {
	store *journal.Store
}

// NewToolHistoryTool creates a ToolHistoryTool.
func NewToolHistoryTool(store *journal.Store) *ToolHistoryTool {
	return &ToolHistoryTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ToolHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("toolHistory",
		mcp.WithDescription("Show recent tool invocations from the journal with per-tool totals and failure counts."),
		mcp.WithString("tool",
			mcp.Description("Only show invocations of this tool"),
		),
		mcp.WithNumber("limit",
			mcp.Min(1),
			mcp.Max(100),
			mcp.DefaultNumber(20),
			mcp.Description("Maximum number of invocations to return"),
		),
		mcp.WithBoolean("includeSteps",
			mcp.DefaultBool(false),
			mcp.Description("Include the annotation steps of each invocation"),
		),
	)
}

// Handle processes the toolHistory tool call.
func (t *ToolHistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool := req.GetString("tool", "")
	limit := req.GetInt("limit", 20)

	// The running toolHistory call is itself in the journal; leave it out.
	var self string
	fetch := limit
	if ann, ok := journal.FromContext(ctx); ok {
		self = ann.InvocationID
		fetch++
	}
	all, err := t.store.RecentInvocations(tool, fetch)
	if err != nil {
		return nil, fmt.Errorf("reading invocations: %w", err)
	}
	invs := make([]journal.Invocation, 0, len(all))
	for _, inv := range all {
		if inv.ID != self && len(invs) < limit {
			invs = append(invs, inv)
		}
	}
	stats, err := t.store.Stats()
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	withSteps := req.GetBool("includeSteps", false)
	steps := map[string][]journal.Step{}

	var b strings.Builder
	b.WriteString("## Tool history\n\n")
	if len(stats) > 0 {
		b.WriteString("| Tool | Calls | Failures |\n|---|---|---|\n")
		for _, s := range stats {
			fmt.Fprintf(&b, "| %s | %d | %d |\n", s.Tool, s.Total, s.Failures)
		}
		b.WriteString("\n")
	}

	if len(invs) == 0 {
		b.WriteString("_No invocations recorded._\n")
	}
	for _, inv := range invs {
		fmt.Fprintf(&b, "- %s **%s** %s", inv.StartedAt, inv.Tool, inv.Status)
		if inv.DurationMS != nil {
			fmt.Fprintf(&b, " (%dms)", *inv.DurationMS)
		}
		if inv.Error != nil {
			fmt.Fprintf(&b, ": %s", *inv.Error)
		}
		b.WriteString("\n")

		if withSteps {
			st, err := t.store.Steps(inv.ID)
			if err != nil {
				return nil, fmt.Errorf("reading steps: %w", err)
			}
			steps[inv.ID] = st
			for _, s := range st {
				fmt.Fprintf(&b, "  %d. %s\n", s.Number, s.Content)
			}
		}
	}

	data := map[string]any{"invocations": invs, "stats": stats}
	if withSteps {
		data["steps"] = steps
	}
	return structuredResult(b.String(), data), nil
}
