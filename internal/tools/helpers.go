// Package tools implements the MCP tool handlers.
//
// Each tool is a struct that receives its dependencies at construction and
// exposes Definition and Handle, so the dispatcher can register it.
//
// Design principles:
//   - SRP: each file = one tool
//   - DIP: tools depend on the engine, generator and toolbox they drive
//   - caller mistakes become tool error results; internal failures are
//     returned as errors for the dispatcher to log
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
)

// reflector builds input schemas for tools whose arguments nest objects.
// Only fields tagged required are required, and unknown properties are
// tolerated.
var reflector = &jsonschema.Reflector{
	DoNotReference:             true,
	Anonymous:                  true,
	AllowAdditionalProperties:  true,
	RequiredFromJSONSchemaTags: true,
}

// inputSchema reflects the JSON schema of an argument struct.
func inputSchema(args any) json.RawMessage {
	s := reflector.Reflect(args)
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("reflecting input schema for %T: %v", args, err))
	}
	return data
}

// structuredResult returns a text result that also carries data as
// structured content.
func structuredResult(text string, data any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(text)},
		StructuredContent: data,
	}
}

// bulletList renders items as a markdown list, or a placeholder when empty.
func bulletList(items []string, empty string) string {
	if len(items) == 0 {
		return "_" + empty + "_\n"
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	return b.String()
}

// orNone joins values or returns "none".
func orNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
