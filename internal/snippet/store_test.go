package snippet

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testSnippet(name string) *Snippet {
	return &Snippet{
		ID:          "abcd1234",
		Name:        name,
		Description: "test snippet",
		Language:    "go",
		Tags:        []string{"go"},
		Variables: []Variable{
			{Name: "pkg", Description: "package name", DefaultValue: "main", Required: true},
			{Name: "fn", Description: "function name"},
		},
		Template: Template{Code: "package {{pkg}}\n\nfunc {{fn}}() {}", Placeholders: []string{"pkg", "fn"}},
	}
}

// --- Paths ---

func TestFileStore_Dir(t *testing.T) {
	store := NewFileStore("/repo")
	got := store.Dir("my-snippet")
	want := filepath.Join("/repo", "my-snippet")
	if got != want {
		t.Errorf("Dir = %s, want %s", got, want)
	}
}

// --- Replace ---

func TestReplace_WritesQuickInsertDefaults(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Replace(testSnippet("gofn")); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir("gofn"), QuickInsertFile))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var qi QuickInsert
	if err := json.Unmarshal(data, &qi); err != nil {
		t.Fatalf("quick-insert.json is not valid JSON: %v", err)
	}
	if qi.Command != "insertSnippet" {
		t.Errorf("Command = %s, want insertSnippet", qi.Command)
	}
	if qi.Parameters.Variables["pkg"] != "main" {
		t.Errorf("pkg default = %q, want main", qi.Parameters.Variables["pkg"])
	}
	if v, ok := qi.Parameters.Variables["fn"]; !ok || v != "" {
		t.Errorf("fn default = %q (present %v), want empty string", v, ok)
	}
}

func TestReplace_WritesExample(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Replace(testSnippet("gofn")); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir("gofn"), ExampleFile))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	text := string(data)
	for _, want := range []string{"# Example usage of gofn", "`pkg`: package name (default: main)", "insertSnippet", "```go"} {
		if !strings.Contains(text, want) {
			t.Errorf("example missing %q", want)
		}
	}
}

func TestReplace_RejectsTraversal(t *testing.T) {
	store := NewFileStore(t.TempDir())
	err := store.Replace(testSnippet("a/b"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Replace(a/b) error = %v, want ErrInvalid", err)
	}
}

func TestReplace_WriteFailureIsFilesystemError(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file-not-dir")
	if err := os.WriteFile(root, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	store := NewFileStore(root)

	err := store.Replace(testSnippet("gofn"))
	var fsErr *FilesystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("Replace error = %v, want *FilesystemError", err)
	}
}

// --- Load ---

func TestLoad_NotFound(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.Load("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
}

func TestLoad_RoundTripsUsage(t *testing.T) {
	store := NewFileStore(t.TempDir())
	s := testSnippet("gofn")
	if err := store.Replace(s); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	s.Usage.Count = 4
	if err := store.SaveMeta(s); err != nil {
		t.Fatalf("SaveMeta failed: %v", err)
	}

	loaded, err := store.Load("gofn")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Usage.Count != 4 {
		t.Errorf("Usage.Count = %d, want 4", loaded.Usage.Count)
	}
	if loaded.Usage.LastUsed != nil {
		t.Error("LastUsed should stay null until an insert happens")
	}
}

func TestMetadata_UsesCamelCaseKeys(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Replace(testSnippet("gofn")); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(store.Dir("gofn"), MetaFile))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	for _, key := range []string{`"defaultValue"`, `"lastUsed": null`, `"placeholders"`, `"originalCode"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("snippet.json missing %s", key)
		}
	}
}

// --- List ---

func TestList_ReportsSkipped(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Replace(testSnippet("good")); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if err := os.MkdirAll(store.Dir("bad"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Root(), "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	snippets, skipped, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(snippets) != 1 || snippets[0].Name != "good" {
		t.Errorf("snippets = %+v, want only good", snippets)
	}
	if len(skipped) != 1 || skipped[0] != "bad" {
		t.Errorf("skipped = %v, want [bad]", skipped)
	}
}

// --- Languages and tags ---

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"typescript": "ts",
		"react":      "tsx",
		"go":         "go",
		"TypeScript": "txt",
		"brainfuck":  "txt",
		"":           "txt",
	}
	for lang, want := range cases {
		if got := Extension(lang); got != want {
			t.Errorf("Extension(%q) = %s, want %s", lang, got, want)
		}
	}
}

func TestAutoTags(t *testing.T) {
	got := AutoTags("class Foo { async run() { useEffect(() => {}) } }", "react")
	want := []string{"react", "jsx", "tsx", "function", "class", "async", "react-hooks"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("AutoTags = %v, want %v", got, want)
	}
}

func TestAutoTags_UnknownLanguageNoContent(t *testing.T) {
	if got := AutoTags("SELECT 1", "sql"); len(got) != 0 {
		t.Errorf("AutoTags = %v, want none", got)
	}
}
