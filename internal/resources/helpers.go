package resources

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/contextcraft/context-craft/internal/snippet"
	"github.com/mark3labs/mcp-go/mcp"
)

// nameFromURI extracts and validates the {name} segment of a snippet URI.
func nameFromURI(uri string) (string, error) {
	name, ok := strings.CutPrefix(uri, SnippetsURI+"/")
	if !ok || name == "" {
		return "", fmt.Errorf("not a snippet URI: %s", uri)
	}
	name, err := url.PathUnescape(name)
	if err != nil {
		return "", fmt.Errorf("bad snippet URI %s: %w", uri, err)
	}
	if err := snippet.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
