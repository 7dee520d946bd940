// Package resources exposes the snippet library and the invocation journal
// as read-only MCP resources.
//
// Resources use context-craft:// URIs. Individual snippets are addressed
// through a URI template so hosts can read one without listing all.
package resources

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/contextcraft/context-craft/internal/journal"
	"github.com/contextcraft/context-craft/internal/snippet"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// SnippetsURI lists every saved snippet.
	SnippetsURI = "context-craft://snippets"
	// SnippetURITemplate addresses one snippet by name.
	SnippetURITemplate = "context-craft://snippets/{name}"
	// JournalStatsURI reports per-tool invocation counts.
	JournalStatsURI = "context-craft://journal/stats"
)

// Handler serves resource reads.
type Handler struct {
	store   snippet.Store
	journal *journal.Store
}

// NewHandler creates a resource Handler. A nil journal disables the stats
// resource.
func NewHandler(store snippet.Store, j *journal.Store) *Handler {
	return &Handler{store: store, journal: j}
}

// SnippetsResource returns the definition of the snippet list resource.
func (h *Handler) SnippetsResource() mcp.Resource {
	return mcp.NewResource(
		SnippetsURI,
		"Saved snippets",
		mcp.WithResourceDescription("Name, language, tags, variables and usage of every saved snippet"),
		mcp.WithMIMEType("application/json"),
	)
}

type listEntry struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Language    string             `json:"language"`
	Tags        []string           `json:"tags"`
	Variables   []snippet.Variable `json:"variables"`
	Usage       snippet.Usage      `json:"usage"`
	URI         string             `json:"uri"`
}

// HandleSnippets returns the snippet list as JSON.
func (h *Handler) HandleSnippets(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	snippets, skipped, err := h.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	entries := make([]listEntry, 0, len(snippets))
	for _, s := range snippets {
		entries = append(entries, listEntry{
			Name:        s.Name,
			Description: s.Description,
			Language:    s.Language,
			Tags:        s.Tags,
			Variables:   s.Variables,
			Usage:       s.Usage,
			URI:         SnippetsURI + "/" + url.PathEscape(s.Name),
		})
	}
	return jsonResource(req.Params.URI, map[string]any{
		"snippets": entries,
		"skipped":  skipped,
	})
}

// SnippetTemplate returns the URI template for single snippets.
func (h *Handler) SnippetTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		SnippetURITemplate,
		"Snippet",
		mcp.WithTemplateDescription("Metadata and raw template text of one snippet"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// HandleSnippet returns one snippet with its template text. Unknown names
// produce an error document rather than a protocol error.
func (h *Handler) HandleSnippet(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name, err := nameFromURI(req.Params.URI)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	s, err := h.store.Load(name)
	if err != nil {
		if errors.Is(err, snippet.ErrNotFound) || errors.Is(err, snippet.ErrInvalid) {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		return nil, fmt.Errorf("loading snippet %q: %w", name, err)
	}
	code, err := h.store.LoadTemplate(name)
	if err != nil {
		return nil, fmt.Errorf("loading template %q: %w", name, err)
	}
	s.Template.Code = code
	return jsonResource(req.Params.URI, s)
}

// JournalStatsResource returns the definition of the journal stats resource.
func (h *Handler) JournalStatsResource() mcp.Resource {
	return mcp.NewResource(
		JournalStatsURI,
		"Tool invocation stats",
		mcp.WithResourceDescription("Per-tool call and failure counts from the invocation journal"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleJournalStats returns the journal stats as JSON.
func (h *Handler) HandleJournalStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.journal == nil {
		return errorResource(req.Params.URI, "journal disabled"), nil
	}
	stats, err := h.journal.Stats()
	if err != nil {
		return nil, fmt.Errorf("reading journal stats: %w", err)
	}
	return jsonResource(req.Params.URI, map[string]any{"tools": stats})
}
