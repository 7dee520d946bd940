package scaffold

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTemplate creates files under root/<type> from a path → content map.
func writeTemplate(t *testing.T, root, typ string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, typ, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestData_DerivedNames(t *testing.T) {
	data := Data(Request{Name: "userProfile", Lang: "ts", Features: []string{"auth", "db"}})
	assert.Equal(t, "userProfile", data["name"])
	assert.Equal(t, "UserProfile", data["PascalName"])
	assert.Equal(t, "user-profile", data["kebabName"])
	assert.Equal(t, "ts", data["lang"])
	assert.Equal(t, "auth, db", data["features"])
}

func TestData_LeadingUpper(t *testing.T) {
	data := Data(Request{Name: "OrderService"})
	assert.Equal(t, "OrderService", data["PascalName"])
	assert.Equal(t, "order-service", data["kebabName"])
}

func TestGenerate_RendersContentsAndPaths(t *testing.T) {
	templates := t.TempDir()
	out := t.TempDir()
	writeTemplate(t, templates, "web-api", map[string]string{
		"src/index.ts":                  "app.get('/{{kebabName}}s') // {{name}} {{unknown}}",
		"src/{{kebabName}}/handler.ts":  "export class {{PascalName}}Handler {}",
		"{{name}}.config.json":          `{"lang": "{{lang}}"}`,
		"node_modules/ignored/index.js": "ignored",
	})

	g := NewGenerator(templates, out)
	res, err := g.Generate(context.Background(), Request{Type: "web-api", Name: "userProfile", Lang: "ts"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "userProfile"), res.OutputDir)
	assert.Len(t, res.Files, 3)

	index, err := os.ReadFile(filepath.Join(out, "userProfile", "src", "index.ts"))
	require.NoError(t, err)
	assert.Equal(t, "app.get('/user-profiles') // userProfile {{unknown}}", string(index))

	handler, err := os.ReadFile(filepath.Join(out, "userProfile", "src", "user-profile", "handler.ts"))
	require.NoError(t, err)
	assert.Equal(t, "export class UserProfileHandler {}", string(handler))

	cfg, err := os.ReadFile(filepath.Join(out, "userProfile", "userProfile.config.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"lang": "ts"}`, string(cfg))

	_, err = os.Stat(filepath.Join(out, "userProfile", "node_modules"))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerate_OverwritesExistingOutput(t *testing.T) {
	templates := t.TempDir()
	out := t.TempDir()
	writeTemplate(t, templates, "cli", map[string]string{"main.go": "package {{name}}"})

	existing := filepath.Join(out, "tool", "main.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o644))

	_, err := NewGenerator(templates, out).Generate(context.Background(), Request{Type: "cli", Name: "tool"})
	require.NoError(t, err)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "package tool", string(data))
}

func TestGenerate_MissingTemplate(t *testing.T) {
	_, err := NewGenerator(t.TempDir(), t.TempDir()).Generate(context.Background(), Request{Type: "microservice", Name: "svc"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestGenerate_RejectsTraversal(t *testing.T) {
	g := NewGenerator(t.TempDir(), t.TempDir())
	_, err := g.Generate(context.Background(), Request{Type: "../etc", Name: "x"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = g.Generate(context.Background(), Request{Type: "cli", Name: "../../x"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGenerate_BuiltinWebAPI(t *testing.T) {
	out := t.TempDir()
	res, err := NewGenerator(t.TempDir(), out).Generate(context.Background(), Request{Type: "web-api", Name: "userProfile"})
	require.NoError(t, err)
	assert.Equal(t, "builtin:web-api", res.Source)
	require.Len(t, res.Files, 1)

	index, err := os.ReadFile(filepath.Join(out, "userProfile", "src", "index.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "'/user-profiles'")
	assert.Contains(t, string(index), "List userProfiles")
	assert.NotContains(t, string(index), "{{kebabName}}")
}

func TestGenerate_DiskTemplateOverridesBuiltin(t *testing.T) {
	templates := t.TempDir()
	out := t.TempDir()
	writeTemplate(t, templates, "web-api", map[string]string{"app.ts": "// {{PascalName}}"})

	res, err := NewGenerator(templates, out).Generate(context.Background(), Request{Type: "web-api", Name: "orders"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(templates, "web-api"), res.Source)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "app.ts", res.Files[0].Path)

	_, err = os.Stat(filepath.Join(out, "orders", "src", "index.ts"))
	assert.True(t, os.IsNotExist(err))
}
