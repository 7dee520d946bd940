// Package prompts implements MCP prompts: user-triggered workflows that
// tell the assistant which tools to call and in what order.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReusePrompt handles the reuse-snippet MCP prompt. It steers the
// assistant to an existing snippet before writing new code.
type ReusePrompt struct{}

// NewReusePrompt creates a ReusePrompt.
func NewReusePrompt() *ReusePrompt {
	return &ReusePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReusePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("reuse-snippet",
		mcp.WithPromptDescription(
			"Find a saved snippet that fits a task and insert it, filling in its variables.",
		),
		mcp.WithArgument("task",
			mcp.ArgumentDescription("What the code should do"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("target",
			mcp.ArgumentDescription("File to insert into. Default: a new file named after the snippet"),
		),
	)
}

// Handle processes the reuse-snippet prompt request.
func (p *ReusePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	task := req.Params.Arguments["task"]
	if task == "" {
		return nil, fmt.Errorf("argument 'task' is required")
	}

	target := "a new file named after the snippet"
	if t := req.Params.Arguments["target"]; t != "" {
		target = fmt.Sprintf("`%s` (append, keep existing content)", t)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Reuse a snippet for: %s", task),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I need code that does this: %s\n\n"+
						"Please:\n"+
						"1. Run `listSnippets` with a `search` term taken from the task\n"+
						"2. Pick the closest snippet and tell me why; if none fits, say so and stop\n"+
						"3. Run `insertSnippet` into %s\n"+
						"4. If it reports missing variables, ask me for them and run it again\n"+
						"5. Show me the inserted code",
					task, target,
				)),
			},
		},
	}, nil
}
