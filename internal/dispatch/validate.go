package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Issue is a single schema violation.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Keyword string `json:"keyword,omitempty"`
}

// SchemaValidationError reports arguments that do not satisfy a tool's
// input schema.
type SchemaValidationError struct {
	Tool   string
	Issues []Issue
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Path == "" {
			parts = append(parts, is.Message)
			continue
		}
		parts = append(parts, is.Path+": "+is.Message)
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(parts, "; "))
}

// compileSchema compiles the input schema declared by a tool definition.
func compileSchema(tool mcp.Tool) (*jsonschema.Schema, error) {
	raw := []byte(tool.RawInputSchema)
	if len(raw) == 0 {
		var err error
		if raw, err = json.Marshal(tool.InputSchema); err != nil {
			return nil, fmt.Errorf("marshaling schema for %s: %w", tool.Name, err)
		}
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshaling schema for %s: %w", tool.Name, err)
	}

	url := tool.Name + ".schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("adding schema resource for %s: %w", tool.Name, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %s: %w", tool.Name, err)
	}
	return schema, nil
}

// validate checks args against schema. The error is a
// *SchemaValidationError when the arguments are at fault.
func validate(tool string, schema *jsonschema.Schema, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return &SchemaValidationError{Tool: tool, Issues: []Issue{{Message: err.Error()}}}
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("preparing arguments for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("unexpected validation error type: %w", err)
	}
	return &SchemaValidationError{Tool: tool, Issues: extractIssues(ve)}
}

// extractIssues walks the ValidationError tree and returns leaf-level
// issues, deduplicated.
func extractIssues(ve *jsonschema.ValidationError) []Issue {
	var issues []Issue
	collectIssues(ve, &issues)
	if len(issues) == 0 {
		return []Issue{{Message: ve.Error()}}
	}

	seen := make(map[string]bool, len(issues))
	out := issues[:0]
	for _, is := range issues {
		key := is.Path + "|" + is.Keyword + "|" + is.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, is)
	}
	return out
}

func collectIssues(ve *jsonschema.ValidationError, issues *[]Issue) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectIssues(cause, issues)
		}
		return
	}

	var keyword, msg string
	if ve.ErrorKind != nil {
		if kw := ve.ErrorKind.KeywordPath(); len(kw) > 0 {
			keyword = kw[len(kw)-1]
		}
		msg = ve.ErrorKind.LocalizedString(printer)
	}
	switch keyword {
	case "", "oneOf", "anyOf", "allOf", "$ref":
		return
	}

	path := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}
	*issues = append(*issues, Issue{Path: path, Message: msg, Keyword: keyword})
}
