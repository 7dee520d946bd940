package tools

import (
	"context"
	"fmt"

	"github.com/contextcraft/context-craft/internal/devtools"
	"github.com/mark3labs/mcp-go/mcp"
)

// RunTestsTool handles the runTests MCP tool.
type RunTestsTool struct {
	tb *devtools.Toolbox
}

// NewRunTestsTool creates a RunTestsTool.
func NewRunTestsTool(tb *devtools.Toolbox) *RunTestsTool {
	return &RunTestsTool{tb: tb}
}

// Definition returns the MCP tool definition for registration.
func (t *RunTestsTool) Definition() mcp.Tool {
	return mcp.NewTool("runTests",
		mcp.WithDescription(
			"Run the project's test command and report pass/fail counts scraped from the "+
				"\"Tests: N passed, N failed, N total\" summary line.",
		),
		mcp.WithArray("testFiles",
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("Test files appended to the command"),
		),
		mcp.WithString("testCommand",
			mcp.DefaultString(devtools.DefaultTestCommand),
			mcp.Description("Command to run, split on whitespace"),
		),
		mcp.WithBoolean("coverage",
			mcp.DefaultBool(false),
			mcp.Description("Append --coverage"),
		),
		mcp.WithBoolean("watch",
			mcp.DefaultBool(false),
			mcp.Description("Append --watch. The run is still bounded by the command timeout"),
		),
	)
}

// Handle processes the runTests tool call. A failure to run the command is
// reported as text with zero counts, not as an error.
func (t *RunTestsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.tb.RunTests(ctx, devtools.TestRequest{
		TestFiles: req.GetStringSlice("testFiles", nil),
		Command:   req.GetString("testCommand", devtools.DefaultTestCommand),
		Coverage:  req.GetBool("coverage", false),
		Watch:     req.GetBool("watch", false),
	})
	if err != nil {
		return structuredResult(fmt.Sprintf("Test execution failed: %v", err), map[string]any{
			"exitCode": 1,
			"passed":   0,
			"failed":   0,
			"total":    0,
			"coverage": nil,
		}), nil
	}

	coverage := res.Coverage
	if coverage == "" {
		coverage = "N/A"
	}
	output := res.Output
	if output == "" {
		output = "No output"
	}
	text := fmt.Sprintf("Test Results:\nExit Code: %d\nPassed: %d\nFailed: %d\nTotal: %d\nCoverage: %s\n\nOutput:\n%s",
		res.ExitCode, res.Passed, res.Failed, res.Total, coverage, output)

	return structuredResult(text, res), nil
}
