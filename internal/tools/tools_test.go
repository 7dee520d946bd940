package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/contextcraft/context-craft/internal/capture"
	"github.com/contextcraft/context-craft/internal/devtools"
	"github.com/contextcraft/context-craft/internal/journal"
	"github.com/contextcraft/context-craft/internal/scaffold"
	"github.com/contextcraft/context-craft/internal/snippet"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Test helpers ---

// setupWorkspace creates a temp dir and changes cwd to it for the duration
// of the test.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("setup: getwd: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("setup: chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	// Resolve symlinks so paths compare equal to os.Getwd output.
	if wd, err := os.Getwd(); err == nil {
		tmpDir = wd
	}
	return tmpDir
}

func newEngine(dir string) *snippet.Engine {
	store := snippet.NewFileStore(filepath.Join(dir, "templates", "snippets"))
	return snippet.NewEngine(store, dir, nil)
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// structured round-trips the structured content through JSON.
func structured(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(result.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("structured content is not an object: %s", data)
	}
	return m
}

func mustHandle(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := h(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	return result
}

func helloWorldArgs() map[string]interface{} {
	return map[string]interface{}{
		"name":        "hello-world",
		"description": "Greeting function",
		"code":        "function {{functionName}}({{name}}) { return {{name}}; }",
		"language":    "javascript",
		"variables": []interface{}{
			map[string]interface{}{"name": "functionName", "description": "Function name", "required": true},
			map[string]interface{}{"name": "name", "description": "Who to greet", "defaultValue": "World"},
		},
	}
}

// --- SaveSnippetTool ---

func TestSaveSnippetTool_ScenarioA(t *testing.T) {
	dir := setupWorkspace(t)
	tool := NewSaveSnippetTool(newEngine(dir))

	result := mustHandle(t, tool.Handle, helloWorldArgs())
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	text := getResultText(result)
	if !strings.Contains(text, "Snippet saved: hello-world") {
		t.Errorf("unexpected text: %s", text)
	}

	vars, ok := structured(t, result)["variables"].([]interface{})
	if !ok || len(vars) != 2 {
		t.Fatalf("variables = %v, want 2 entries", structured(t, result)["variables"])
	}

	if _, err := os.Stat(filepath.Join(dir, "templates", "snippets", "hello-world", snippet.MetaFile)); err != nil {
		t.Errorf("snippet.json not written: %v", err)
	}
}

func TestSaveSnippetTool_ContextAndAutoVariables(t *testing.T) {
	dir := setupWorkspace(t)
	tool := NewSaveSnippetTool(newEngine(dir))

	result := mustHandle(t, tool.Handle, map[string]interface{}{
		"name":        "hook",
		"description": "",
		"code":        "const [{{state}}, set{{State}}] = useState({{initial}})",
		"language":    "react",
		"context": map[string]interface{}{
			"filePath":  "src/App.tsx",
			"lineRange": map[string]interface{}{"start": 3, "end": 3},
		},
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	s, err := snippet.NewFileStore(filepath.Join(dir, "templates", "snippets")).Load("hook")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Variables) != 3 {
		t.Errorf("variables = %d, want 3 auto-detected", len(s.Variables))
	}
	if s.Context.FilePath != "src/App.tsx" || s.Context.LineRange == nil || s.Context.LineRange.Start != 3 {
		t.Errorf("context not stored: %+v", s.Context)
	}
}

func TestSaveSnippetTool_InvalidName(t *testing.T) {
	dir := setupWorkspace(t)
	tool := NewSaveSnippetTool(newEngine(dir))

	args := helloWorldArgs()
	args["name"] = "../escape"
	result := mustHandle(t, tool.Handle, args)
	if !isErrorResult(result) {
		t.Fatal("expected error result for path traversal")
	}
}

// --- InsertSnippetTool ---

func TestInsertSnippetTool_ScenarioB(t *testing.T) {
	dir := setupWorkspace(t)
	engine := newEngine(dir)
	mustHandle(t, NewSaveSnippetTool(engine).Handle, helloWorldArgs())

	result := mustHandle(t, NewInsertSnippetTool(engine).Handle, map[string]interface{}{
		"name":      "hello-world",
		"variables": map[string]interface{}{"functionName": "greet"},
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}

	target := filepath.Join(dir, "hello-world.js")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("target not created: %v", err)
	}
	if string(data) != "function greet(World) { return World; }" {
		t.Errorf("rendered = %q", data)
	}

	sc := structured(t, result)
	if sc["filePath"] != target {
		t.Errorf("filePath = %v, want %s", sc["filePath"], target)
	}
	if sc["operation"] != "created" {
		t.Errorf("operation = %v, want created", sc["operation"])
	}
	if sc["usageCount"] != float64(1) {
		t.Errorf("usageCount = %v, want 1", sc["usageCount"])
	}
	if !strings.Contains(getResultText(result), "created hello-world.js") {
		t.Errorf("text should show relative path: %s", getResultText(result))
	}
}

func TestInsertSnippetTool_ScenarioC_MissingVariables(t *testing.T) {
	dir := setupWorkspace(t)
	engine := newEngine(dir)
	mustHandle(t, NewSaveSnippetTool(engine).Handle, helloWorldArgs())

	result := mustHandle(t, NewInsertSnippetTool(engine).Handle, map[string]interface{}{"name": "hello-world"})
	if isErrorResult(result) {
		t.Fatal("missing variables is a soft result, not a tool error")
	}

	missing, ok := structured(t, result)["missingVariables"].([]interface{})
	if !ok || len(missing) != 1 || missing[0] != "functionName" {
		t.Errorf("missingVariables = %v, want [functionName]", structured(t, result)["missingVariables"])
	}
	if _, err := os.Stat(filepath.Join(dir, "hello-world.js")); !os.IsNotExist(err) {
		t.Error("no file should be created when variables are missing")
	}

	s, _ := snippet.NewFileStore(filepath.Join(dir, "templates", "snippets")).Load("hello-world")
	if s.Usage.Count != 0 {
		t.Errorf("usage = %d, want 0", s.Usage.Count)
	}
}

func TestInsertSnippetTool_ScenarioD_AppendTwice(t *testing.T) {
	dir := setupWorkspace(t)
	engine := newEngine(dir)
	mustHandle(t, NewSaveSnippetTool(engine).Handle, helloWorldArgs())

	target := filepath.Join(dir, "out.js")
	if err := os.WriteFile(target, []byte("// header"), 0o644); err != nil {
		t.Fatal(err)
	}

	insert := NewInsertSnippetTool(engine)
	for _, fn := range []string{"first", "second"} {
		result := mustHandle(t, insert.Handle, map[string]interface{}{
			"name":       "hello-world",
			"variables":  map[string]interface{}{"functionName": fn},
			"targetPath": "out.js",
			"insertMode": "append",
		})
		if isErrorResult(result) {
			t.Fatalf("insert %s: %s", fn, getResultText(result))
		}
		if structured(t, result)["operation"] != "appended to" {
			t.Errorf("operation = %v", structured(t, result)["operation"])
		}
	}

	data, _ := os.ReadFile(target)
	want := "// header\n\nfunction first(World) { return World; }\n\nfunction second(World) { return World; }"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}

	s, _ := snippet.NewFileStore(filepath.Join(dir, "templates", "snippets")).Load("hello-world")
	if s.Usage.Count != 2 {
		t.Errorf("usage = %d, want 2", s.Usage.Count)
	}
}

func TestInsertSnippetTool_NotFound(t *testing.T) {
	dir := setupWorkspace(t)
	result := mustHandle(t, NewInsertSnippetTool(newEngine(dir)).Handle, map[string]interface{}{"name": "ghost"})
	if !isErrorResult(result) {
		t.Fatal("expected error result for unknown snippet")
	}
	if !strings.Contains(getResultText(result), "not found") {
		t.Errorf("unexpected text: %s", getResultText(result))
	}
}

func TestInsertSnippetTool_InvalidMode(t *testing.T) {
	dir := setupWorkspace(t)
	engine := newEngine(dir)
	mustHandle(t, NewSaveSnippetTool(engine).Handle, helloWorldArgs())

	result := mustHandle(t, NewInsertSnippetTool(engine).Handle, map[string]interface{}{
		"name":       "hello-world",
		"variables":  map[string]interface{}{"functionName": "f"},
		"insertMode": "sideways",
	})
	if !isErrorResult(result) {
		t.Fatal("expected error result for invalid mode")
	}
}

// --- ListSnippetsTool ---

func TestListSnippetsTool_Empty(t *testing.T) {
	dir := setupWorkspace(t)
	result := mustHandle(t, NewListSnippetsTool(newEngine(dir)).Handle, map[string]interface{}{})
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), "No snippets found") {
		t.Errorf("unexpected text: %s", getResultText(result))
	}
	if structured(t, result)["total"] != float64(0) {
		t.Errorf("total = %v", structured(t, result)["total"])
	}
}

func TestListSnippetsTool_TotalAndLimit(t *testing.T) {
	dir := setupWorkspace(t)
	engine := newEngine(dir)
	save := NewSaveSnippetTool(engine)
	for _, name := range []string{"alpha", "beta", "gamma"} {
		mustHandle(t, save.Handle, map[string]interface{}{
			"name":        name,
			"description": name + " snippet",
			"code":        "export const " + name + " = 1",
		})
	}

	result := mustHandle(t, NewListSnippetsTool(engine).Handle, map[string]interface{}{
		"limit":  float64(2),
		"sortBy": "name",
	})
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}

	sc := structured(t, result)
	if sc["total"] != float64(3) {
		t.Errorf("total = %v, want 3", sc["total"])
	}
	list, _ := sc["snippets"].([]interface{})
	if len(list) != 2 {
		t.Fatalf("snippets = %d, want 2", len(list))
	}
	first, _ := list[0].(map[string]interface{})
	if first["name"] != "alpha" || first["dir"] != "alpha" {
		t.Errorf("first = %v", first)
	}
	if !strings.Contains(getResultText(result), "(showing 2)") {
		t.Errorf("text should mark truncation: %s", getResultText(result))
	}
}

func TestListSnippetsTool_InvalidSort(t *testing.T) {
	dir := setupWorkspace(t)
	result := mustHandle(t, NewListSnippetsTool(newEngine(dir)).Handle, map[string]interface{}{"sortBy": "random"})
	if !isErrorResult(result) {
		t.Fatal("expected error result for invalid sortBy")
	}
}

// --- ScaffoldTool ---

func writeTemplate(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScaffoldTool_GeneratesWithThinking(t *testing.T) {
	dir := setupWorkspace(t)
	templatesDir := filepath.Join(dir, "templates")
	writeTemplate(t, templatesDir, "cli/src/{{kebabName}}.ts", "export const {{PascalName}} = '{{lang}}'")

	tool := NewScaffoldTool(scaffold.NewGenerator(templatesDir, filepath.Join(dir, "generated")))
	ann, err := journal.NewAnnotator(nil, nil).Annotate(context.Background(), "scaffold", map[string]any{"name": "myTool"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := journal.WithAnnotation(context.Background(), ann)

	result, err := tool.Handle(ctx, makeReq(map[string]interface{}{"type": "cli", "name": "myTool"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}

	data, err := os.ReadFile(filepath.Join(dir, "generated", "myTool", "src", "my-tool.ts"))
	if err != nil {
		t.Fatalf("generated file missing: %v", err)
	}
	if string(data) != "export const MyTool = 'ts'" {
		t.Errorf("content = %q", data)
	}

	text := getResultText(result)
	if !strings.Contains(text, "Thinking process") || !strings.Contains(text, "Processing scaffold with params") {
		t.Errorf("thinking steps missing: %s", text)
	}
	if steps, _ := structured(t, result)["thinking"].([]interface{}); len(steps) != 3 {
		t.Errorf("thinking = %v, want 3 steps", structured(t, result)["thinking"])
	}
}

func TestScaffoldTool_MissingTemplate(t *testing.T) {
	dir := setupWorkspace(t)
	tool := NewScaffoldTool(scaffold.NewGenerator(filepath.Join(dir, "templates"), filepath.Join(dir, "generated")))

	result := mustHandle(t, tool.Handle, map[string]interface{}{"type": "microservice", "name": "svc"})
	if !isErrorResult(result) {
		t.Fatal("expected error result for missing template directory")
	}
}

// --- CodeSearchTool ---

func TestCodeSearchTool_FindsMatches(t *testing.T) {
	dir := setupWorkspace(t)
	writeTemplate(t, dir, "src/auth.ts", "export function login() {}\n")

	tool := NewCodeSearchTool(devtools.New(dir, 0))
	result := mustHandle(t, tool.Handle, map[string]interface{}{"query": "LOGIN"})
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), "Found 1 matches") {
		t.Errorf("unexpected text: %s", getResultText(result))
	}
	matches, _ := structured(t, result)["matches"].([]interface{})
	if len(matches) != 1 {
		t.Errorf("matches = %v", matches)
	}
}

// --- LintFixTool / RunTestsTool ---

func failingRunner(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
	return "", "", -1, os.ErrNotExist
}

func TestLintFixTool_ExecFailureIsSoft(t *testing.T) {
	tb := devtools.New(t.TempDir(), 0)
	tb.Run = failingRunner

	result := mustHandle(t, NewLintFixTool(tb).Handle, map[string]interface{}{})
	if isErrorResult(result) {
		t.Fatal("exec failures are reported as text, not tool errors")
	}
	if !strings.HasPrefix(getResultText(result), "Lint failed") {
		t.Errorf("unexpected text: %s", getResultText(result))
	}
}

func TestLintFixTool_Reports(t *testing.T) {
	tb := devtools.New(t.TempDir(), 0)
	tb.Run = func(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
		return `[{"filePath":"a.ts","messages":[{"line":2,"message":"Missing semicolon."}]}]`, "", 1, nil
	}

	result := mustHandle(t, NewLintFixTool(tb).Handle, map[string]interface{}{"fix": false})
	text := getResultText(result)
	if !strings.Contains(text, "Remaining issues: 1") || !strings.Contains(text, "Line 2: Missing semicolon.") {
		t.Errorf("unexpected text: %s", text)
	}
}

func TestRunTestsTool_ParsesSummary(t *testing.T) {
	tb := devtools.New(t.TempDir(), 0)
	tb.Run = func(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
		return "Tests:       4 passed, 1 failed, 5 total\n", "", 1, nil
	}

	result := mustHandle(t, NewRunTestsTool(tb).Handle, map[string]interface{}{"coverage": true})
	sc := structured(t, result)
	if sc["passed"] != float64(4) || sc["failed"] != float64(1) || sc["total"] != float64(5) || sc["exitCode"] != float64(1) {
		t.Errorf("structured = %v", sc)
	}
	if !strings.Contains(getResultText(result), "Coverage: N/A") {
		t.Errorf("unexpected text: %s", getResultText(result))
	}
}

func TestRunTestsTool_ExecFailureIsSoft(t *testing.T) {
	tb := devtools.New(t.TempDir(), 0)
	tb.Run = failingRunner

	result := mustHandle(t, NewRunTestsTool(tb).Handle, map[string]interface{}{})
	if isErrorResult(result) {
		t.Fatal("exec failures are reported as text, not tool errors")
	}
	if structured(t, result)["exitCode"] != float64(1) {
		t.Errorf("exitCode = %v", structured(t, result)["exitCode"])
	}
}

// --- SaveContextTemplateTool ---

func TestSaveContextTemplateTool_Captures(t *testing.T) {
	dir := setupWorkspace(t)
	writeTemplate(t, dir, "package.json", `{"dependencies":{"express":"^4"}}`)
	writeTemplate(t, dir, "src/index.js", "console.log('hi')\n")

	saved := filepath.Join(dir, "templates", "saved")
	tool := NewSaveContextTemplateTool(capture.New(dir, saved, nil))

	result := mustHandle(t, tool.Handle, map[string]interface{}{
		"name":        "express-app",
		"description": "Express starter",
		"metadata":    map[string]interface{}{"tags": []interface{}{"backend"}},
	})
	if isErrorResult(result) {
		t.Fatalf("unexpected error: %s", getResultText(result))
	}

	if !strings.Contains(getResultText(result), "Express") {
		t.Errorf("tech stack missing: %s", getResultText(result))
	}
	for _, f := range []string{capture.TemplateFile, capture.StructureFile, "package.json", "src/index.js"} {
		if _, err := os.Stat(filepath.Join(saved, "express-app", filepath.FromSlash(f))); err != nil {
			t.Errorf("%s not written: %v", f, err)
		}
	}
}

func TestSaveContextTemplateTool_InvalidName(t *testing.T) {
	dir := setupWorkspace(t)
	tool := NewSaveContextTemplateTool(capture.New(dir, filepath.Join(dir, "saved"), nil))

	result := mustHandle(t, tool.Handle, map[string]interface{}{"name": "a/b", "description": ""})
	if !isErrorResult(result) {
		t.Fatal("expected error result")
	}
}

// --- ToolHistoryTool ---

func TestToolHistoryTool_ShowsInvocations(t *testing.T) {
	store, err := journal.New(journal.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	a := journal.NewAnnotator(store, nil)
	handler := a.Middleware(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	})
	req := makeReq(map[string]interface{}{"query": "x"})
	req.Params.Name = "codeSearch"
	if _, err := handler(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	result := mustHandle(t, NewToolHistoryTool(store).Handle, map[string]interface{}{"includeSteps": true})
	text := getResultText(result)
	if !strings.Contains(text, "**codeSearch** ok") {
		t.Errorf("invocation missing: %s", text)
	}
	if !strings.Contains(text, "| codeSearch | 1 | 0 |") {
		t.Errorf("stats missing: %s", text)
	}
	if !strings.Contains(text, "1. Processing codeSearch") {
		t.Errorf("steps missing: %s", text)
	}
}

func TestToolHistoryTool_OmitsOwnInvocation(t *testing.T) {
	store, err := journal.New(journal.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	a := journal.NewAnnotator(store, nil)
	for i := 0; i < 2; i++ {
		if _, err := a.Annotate(context.Background(), "listSnippets", nil); err != nil {
			t.Fatal(err)
		}
	}

	history := a.Middleware(NewToolHistoryTool(store).Handle)
	req := makeReq(map[string]interface{}{"limit": 2})
	req.Params.Name = "toolHistory"
	result, err := history(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	text := getResultText(result)
	if strings.Contains(text, "**toolHistory**") {
		t.Errorf("history lists its own call: %s", text)
	}
	if n := strings.Count(text, "**listSnippets**"); n != 2 {
		t.Errorf("listSnippets entries = %d, want 2: %s", n, text)
	}
}

// --- Schemas ---

func TestInputSchema_InsertSnippet(t *testing.T) {
	var schema struct {
		Type       string                            `json:"type"`
		Required   []string                          `json:"required"`
		Properties map[string]map[string]interface{} `json:"properties"`
	}
	if err := json.Unmarshal(inputSchema(&insertSnippetArgs{}), &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}

	if schema.Type != "object" {
		t.Errorf("type = %q, want object", schema.Type)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "name" {
		t.Errorf("required = %v, want [name]", schema.Required)
	}
	enum, _ := schema.Properties["insertMode"]["enum"].([]interface{})
	if len(enum) != 3 {
		t.Errorf("insertMode enum = %v", schema.Properties["insertMode"]["enum"])
	}
	if schema.Properties["variables"]["type"] != "object" {
		t.Errorf("variables should be an object: %v", schema.Properties["variables"])
	}
}

func TestDefinitions_Names(t *testing.T) {
	dir := t.TempDir()
	engine := newEngine(dir)
	tb := devtools.New(dir, 0)

	want := map[string]interface{ Definition() mcp.Tool }{
		"scaffold":            NewScaffoldTool(scaffold.NewGenerator(dir, dir)),
		"codeSearch":          NewCodeSearchTool(tb),
		"lintFix":             NewLintFixTool(tb),
		"runTests":            NewRunTestsTool(tb),
		"saveContextTemplate": NewSaveContextTemplateTool(capture.New(dir, dir, nil)),
		"saveSnippet":         NewSaveSnippetTool(engine),
		"insertSnippet":       NewInsertSnippetTool(engine),
		"listSnippets":        NewListSnippetsTool(engine),
		"toolHistory":         NewToolHistoryTool(nil),
	}
	for name, tool := range want {
		def := tool.Definition()
		if def.Name != name {
			t.Errorf("Definition().Name = %q, want %q", def.Name, name)
		}
		if def.Description == "" {
			t.Errorf("%s has no description", name)
		}
	}
}
