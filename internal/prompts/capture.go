package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// CapturePrompt handles the capture-template MCP prompt. It saves the
// current project as a context template.
type CapturePrompt struct{}

// NewCapturePrompt creates a CapturePrompt.
func NewCapturePrompt() *CapturePrompt {
	return &CapturePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *CapturePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("capture-template",
		mcp.WithPromptDescription(
			"Save this project's structure and key files as a reusable context template.",
		),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Template name. Default: the project directory name"),
		),
	)
}

// Handle processes the capture-template prompt request.
func (p *CapturePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := req.Params.Arguments["name"]
	naming := "Use the project directory name as the template name"
	if name != "" {
		naming = fmt.Sprintf("Use '%s' as the template name", name)
	}

	return &mcp.GetPromptResult{
		Description: "Capture project template",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Save this project as a context template.\n\n" +
						"Please:\n" +
						"1. " + naming + " and write a one-line description from the README or package.json\n" +
						"2. Run `saveContextTemplate` with the default include patterns\n" +
						"3. Report the detected tech stack and features and ask me to correct them\n" +
						"4. If I correct them, run `saveContextTemplate` again with `metadata` set",
				),
			},
		},
	}, nil
}
