// Package dispatch routes tool calls: it looks a tool up by name, validates
// the arguments against the tool's input schema, runs the middleware chain
// and invokes the tool.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrUnknownTool is returned when no tool is registered under a name.
var ErrUnknownTool = errors.New("unknown tool")

// Tool is the uniform interface every tool implements.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Registry maps tool names to tools. Registration order is preserved for
// listing.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds tools. A name registered twice is an error.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tools {
		name := t.Definition().Name
		if name == "" {
			return errors.New("tool definition has no name")
		}
		if _, dup := r.tools[name]; dup {
			return fmt.Errorf("tool %q already registered", name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions returns every tool definition in registration order.
func (r *Registry) Definitions() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}
