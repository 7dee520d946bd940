package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Dispatcher validates and invokes registered tools.
//
// A call moves through lookup, schema validation, the middleware chain and
// the tool handler. Lookup and validation failures never reach a handler.
// Handler errors are logged and returned as they are; there is no retry.
type Dispatcher struct {
	registry   *Registry
	schemas    map[string]*jsonschema.Schema
	middleware []server.ToolHandlerMiddleware
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMiddleware appends middleware. The first one added is the outermost
// and sees the call first.
func WithMiddleware(mw ...server.ToolHandlerMiddleware) Option {
	return func(d *Dispatcher) { d.middleware = append(d.middleware, mw...) }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New compiles the input schema of every registered tool.
func New(registry *Registry, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		registry: registry,
		schemas:  make(map[string]*jsonschema.Schema),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, def := range registry.Definitions() {
		schema, err := compileSchema(def)
		if err != nil {
			return nil, err
		}
		d.schemas[def.Name] = schema
	}
	return d, nil
}

// Dispatch invokes the named tool with args.
//
// It returns an error wrapping ErrUnknownTool for unregistered names and a
// *SchemaValidationError when args do not satisfy the tool's schema.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return d.call(ctx, req)
}

func (d *Dispatcher) call(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.Params.Name
	tool, err := d.registry.Lookup(name)
	if err != nil {
		d.logger.WarnContext(ctx, "tool rejected", "tool", name)
		return nil, err
	}

	schema, ok := d.schemas[name]
	if !ok {
		// Registered after New.
		if schema, err = compileSchema(tool.Definition()); err != nil {
			return nil, err
		}
	}
	if err := validate(name, schema, req.GetArguments()); err != nil {
		d.logger.WarnContext(ctx, "tool arguments invalid", "tool", name, "error", err)
		return nil, err
	}

	d.logger.InfoContext(ctx, "Invoking tool", "tool", name)
	d.logger.DebugContext(ctx, "tool arguments", "tool", name, "arguments", req.GetArguments())

	handler := server.ToolHandlerFunc(tool.Handle)
	for i := len(d.middleware) - 1; i >= 0; i-- {
		handler = d.middleware[i](handler)
	}

	res, err := handler(ctx, req)
	if err != nil {
		d.logger.ErrorContext(ctx, "tool failed", "tool", name, "error", err)
		return nil, err
	}
	return res, nil
}

// Handler adapts the dispatcher to an MCP tool handler. Unknown tools,
// invalid arguments and tool failures all become isError results so the
// session keeps serving.
func (d *Dispatcher) Handler() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := d.call(ctx, req)
		if err == nil {
			return res, nil
		}

		var sve *SchemaValidationError
		switch {
		case errors.As(err, &sve):
			return mcp.NewToolResultError(sve.Error()), nil
		case errors.Is(err, ErrUnknownTool):
			return mcp.NewToolResultError(err.Error()), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", req.Params.Name, err)), nil
		}
	}
}

// Register adds every registered tool to s, routed through the dispatcher.
func (d *Dispatcher) Register(s *server.MCPServer) {
	h := d.Handler()
	for _, def := range d.registry.Definitions() {
		s.AddTool(def, h)
	}
}
