// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it builds the stores, engines and tools,
// registers the tools with the dispatcher and hands the dispatcher to the
// MCP server. No business logic lives here.
package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/contextcraft/context-craft/internal/capture"
	"github.com/contextcraft/context-craft/internal/config"
	"github.com/contextcraft/context-craft/internal/devtools"
	"github.com/contextcraft/context-craft/internal/dispatch"
	"github.com/contextcraft/context-craft/internal/journal"
	"github.com/contextcraft/context-craft/internal/prompts"
	"github.com/contextcraft/context-craft/internal/resources"
	"github.com/contextcraft/context-craft/internal/scaffold"
	"github.com/contextcraft/context-craft/internal/snippet"
	"github.com/contextcraft/context-craft/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Name is the MCP server name reported to hosts.
const Name = "context-craft"

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with every tool, prompt and
// resource registered. Relative directories in cfg resolve against the
// working directory, which is also the project the tools operate on.
//
// The returned cleanup function closes the journal and must be called on
// shutdown. It is always non-nil.
func New(cfg *config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, noop, fmt.Errorf("getting working directory: %w", err)
	}
	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}

	// --- Journal ---
	//
	// The journal is optional: if it fails to open, tools still run and
	// annotations live only in the request context.

	cleanup := noop
	var store *journal.Store
	if js, err := journal.New(journal.DefaultConfig(abs(cfg.DataDir))); err != nil {
		logger.Warn("journal disabled", "error", err)
	} else {
		store = js
		cleanup = func() {
			if err := js.Close(); err != nil {
				logger.Warn("journal close", "error", err)
			}
		}
	}
	annotator := journal.NewAnnotator(store, logger)

	// --- Domain components ---

	snippets := snippet.NewFileStore(abs(cfg.SnippetsDir))
	engine := snippet.NewEngine(snippets, root, logger)
	generator := scaffold.NewGenerator(abs(cfg.TemplatesDir), abs(cfg.GeneratedDir))
	capturer := capture.New(root, abs(cfg.SavedDir), logger)
	toolbox := devtools.New(root, cfg.CommandTimeout())

	// --- Tools ---

	registry := dispatch.NewRegistry()
	if err := registry.Register(
		tools.NewScaffoldTool(generator),
		tools.NewCodeSearchTool(toolbox),
		tools.NewLintFixTool(toolbox),
		tools.NewRunTestsTool(toolbox),
		tools.NewSaveContextTemplateTool(capturer),
		tools.NewSaveSnippetTool(engine),
		tools.NewInsertSnippetTool(engine),
		tools.NewListSnippetsTool(engine),
	); err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("registering tools: %w", err)
	}
	if store != nil {
		if err := registry.Register(tools.NewToolHistoryTool(store)); err != nil {
			cleanup()
			return nil, noop, fmt.Errorf("registering tools: %w", err)
		}
	}

	d, err := dispatch.New(registry,
		dispatch.WithMiddleware(annotator.Middleware),
		dispatch.WithLogger(logger),
	)
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("creating dispatcher: %w", err)
	}

	// --- MCP server ---

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)
	d.Register(s)

	reuse := prompts.NewReusePrompt()
	s.AddPrompt(reuse.Definition(), reuse.Handle)
	capturePrompt := prompts.NewCapturePrompt()
	s.AddPrompt(capturePrompt.Definition(), capturePrompt.Handle)

	rh := resources.NewHandler(snippets, store)
	s.AddResource(rh.SnippetsResource(), rh.HandleSnippets)
	s.AddResourceTemplate(rh.SnippetTemplate(), rh.HandleSnippet)
	if store != nil {
		s.AddResource(rh.JournalStatsResource(), rh.HandleJournalStats)
	}

	logger.Info("server ready", "tools", len(registry.Names()), "root", root)
	return s, cleanup, nil
}

// noop is the cleanup used when nothing needs closing.
func noop() {}

// serverInstructions tells the assistant how to use the tools.
func serverInstructions() string {
	return `You have access to context-craft, a code snippet and scaffolding server.

## Snippets
- Before writing boilerplate, run listSnippets with a search term. Reuse what fits.
- insertSnippet renders {{variable}} placeholders. If it reports missingVariables,
  ask the user for those values and call it again. Nothing is written until then.
- When the user writes code worth keeping, offer saveSnippet. Placeholders in the
  code become variables automatically.

## Projects
- scaffold generates a project from templates/<type>. web-api also ships built in.
- saveContextTemplate captures the current project as a reusable template.

## Development
- codeSearch finds text in source files. lintFix runs ESLint. runTests runs the
  test command and reports pass/fail counts.
- toolHistory shows recent tool calls and failures.`
}
