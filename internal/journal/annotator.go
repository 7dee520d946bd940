package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	projectContext = "TypeScript project with ESLint, Vitest, Fastify patterns"
	codingStandard = "Clean architecture, SOLID principles, comprehensive testing"
	cacheKeyLen    = 50
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Annotator computes the three-step context annotation for a tool call and
// records it. A nil store keeps annotations in the request context only.
type Annotator struct {
	store  *Store
	logger *slog.Logger
}

// NewAnnotator creates an Annotator writing to store.
func NewAnnotator(store *Store, logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Annotator{store: store, logger: logger}
}

// Annotate builds the annotation for one invocation and persists it with a
// running invocation record.
func (a *Annotator) Annotate(ctx context.Context, tool string, args map[string]any) (*Annotation, error) {
	params, err := json.Marshal(args)
	if err != nil {
		params = []byte("{}")
	}

	ann := &Annotation{
		InvocationID: uuid.NewString(),
		Tool:         tool,
		CacheKey:     cacheKey(tool + " " + string(params)),
		CreatedAt:    timeNow().UTC(),
		Steps: []Step{
			{Number: 1, Kind: "understanding", Content: "Processing " + tool + " with params: " + string(params)},
			{Number: 2, Kind: "context_analysis", Content: "Analyzing project context and requirements", Detail: projectContext},
			{Number: 3, Kind: "best_practice", Content: "Applying business rules and standards", Detail: codingStandard},
		},
	}

	if a.store != nil {
		if err := a.store.BeginInvocation(ann, args); err != nil {
			return ann, err
		}
	}
	a.logger.DebugContext(ctx, "annotation recorded", "tool", tool, "invocation", ann.InvocationID)
	return ann, nil
}

// Finish records the outcome of an annotated invocation. Failures are
// logged, never returned.
func (a *Annotator) Finish(ctx context.Context, ann *Annotation, status Status, errMsg string, d time.Duration) {
	if a.store == nil || ann == nil {
		return
	}
	if err := a.store.FinishInvocation(ann.InvocationID, status, errMsg, d); err != nil {
		a.logger.WarnContext(ctx, "journal finish failed", "invocation", ann.InvocationID, "error", err)
	}
}

// Middleware annotates every call before it reaches next. The annotation is
// attached to the handler context even when the journal write fails; that
// failure is only logged.
func (a *Annotator) Middleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ann, err := a.Annotate(ctx, req.Params.Name, req.GetArguments())
		if err != nil {
			a.logger.WarnContext(ctx, "annotation failed", "tool", req.Params.Name, "error", err)
			if ann == nil {
				return next(ctx, req)
			}
			return next(WithAnnotation(ctx, ann), req)
		}

		start := timeNow()
		res, err := next(WithAnnotation(ctx, ann), req)
		status, msg := outcome(res, err)
		a.Finish(ctx, ann, status, msg, timeNow().Sub(start))
		return res, err
	}
}

func outcome(res *mcp.CallToolResult, err error) (Status, string) {
	switch {
	case err != nil:
		return StatusFailed, err.Error()
	case res != nil && res.IsError:
		var msg string
		if len(res.Content) > 0 {
			if tc, ok := res.Content[0].(mcp.TextContent); ok {
				msg = tc.Text
			}
		}
		return StatusSoft, msg
	default:
		return StatusOK, ""
	}
}

func cacheKey(s string) string {
	key := whitespaceRe.ReplaceAllString(strings.ToLower(s), "_")
	if r := []rune(key); len(r) > cacheKeyLen {
		key = string(r[:cacheKeyLen])
	}
	return key
}

// ─── Context ─────────────────────────────────────────────────────────────────

type annotationKey struct{}

// WithAnnotation returns a copy of ctx carrying ann.
func WithAnnotation(ctx context.Context, ann *Annotation) context.Context {
	return context.WithValue(ctx, annotationKey{}, ann)
}

// FromContext returns the annotation attached to ctx, if any.
func FromContext(ctx context.Context) (*Annotation, bool) {
	ann, ok := ctx.Value(annotationKey{}).(*Annotation)
	return ann, ok && ann != nil
}
