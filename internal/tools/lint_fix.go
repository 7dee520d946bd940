package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/contextcraft/context-craft/internal/devtools"
	"github.com/mark3labs/mcp-go/mcp"
)

// LintFixTool handles the lintFix MCP tool.
type LintFixTool struct {
	tb *devtools.Toolbox
}

// NewLintFixTool creates a LintFixTool.
func NewLintFixTool(tb *devtools.Toolbox) *LintFixTool {
	return &LintFixTool{tb: tb}
}

// Definition returns the MCP tool definition for registration.
func (t *LintFixTool) Definition() mcp.Tool {
	return mcp.NewTool("lintFix",
		mcp.WithDescription("Lint and optionally auto-fix JavaScript/TypeScript files with ESLint (run through npx)."),
		mcp.WithArray("files",
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("Files or globs to lint. Defaults to src/**/*.{js,ts,jsx,tsx}"),
		),
		mcp.WithString("config",
			mcp.DefaultString(devtools.DefaultLintConfig),
			mcp.Description("ESLint config file"),
		),
		mcp.WithBoolean("fix",
			mcp.DefaultBool(true),
			mcp.Description("Apply automatic fixes"),
		),
	)
}

// Handle processes the lintFix tool call. A failure to run ESLint is
// reported as text with empty results, not as an error.
func (t *LintFixTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.tb.Lint(ctx, devtools.LintRequest{
		Files:  req.GetStringSlice("files", nil),
		Config: req.GetString("config", devtools.DefaultLintConfig),
		Fix:    req.GetBool("fix", true),
	})
	if err != nil {
		return structuredResult(fmt.Sprintf("Lint failed: %v", err), map[string]any{
			"fixedFiles":      []string{},
			"remainingIssues": []devtools.FileReport{},
		}), nil
	}

	var b strings.Builder
	b.WriteString("Lint results:\n")
	fmt.Fprintf(&b, "Fixed files: %d\n", len(res.FixedFiles))
	fmt.Fprintf(&b, "Remaining issues: %d\n", len(res.RemainingIssues))
	for _, r := range res.RemainingIssues {
		fmt.Fprintf(&b, "\n%s: %d issues\n", r.FilePath, len(r.Messages))
		for _, m := range r.Messages {
			fmt.Fprintf(&b, "  Line %d: %s\n", m.Line, m.Message)
		}
	}
	if len(res.FixedFiles) == 0 && len(res.RemainingIssues) == 0 && res.Stderr != "" {
		fmt.Fprintf(&b, "\nESLint stderr:\n%s\n", res.Stderr)
	}

	return structuredResult(b.String(), res), nil
}
