package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at fresh temp dirs so
// neither a real config file nor a real .env leaks into the test.
func isolate(t *testing.T) (home, wd string) {
	t.Helper()
	home = t.TempDir()
	wd = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Chdir(wd)
	return home, wd
}

func TestLoad_Defaults(t *testing.T) {
	home, _ := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("templates", "snippets"), cfg.SnippetsDir)
	assert.Equal(t, "templates", cfg.TemplatesDir)
	assert.Equal(t, "generated", cfg.GeneratedDir)
	assert.Equal(t, filepath.Join(home, HomeDir), cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 300, cfg.CommandTimeoutSec)
	assert.Equal(t, "5m0s", cfg.CommandTimeout().String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CONTEXT_CRAFT_LOG_LEVEL", "debug")
	t.Setenv("CONTEXT_CRAFT_COMMAND_TIMEOUT_SEC", "30")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30, cfg.CommandTimeoutSec)
}

func TestLoad_DotEnv(t *testing.T) {
	_, wd := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(wd, ".env"), []byte("CONTEXT_CRAFT_GENERATED_DIR=out\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("CONTEXT_CRAFT_GENERATED_DIR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.GeneratedDir)
}

func TestLoad_ConfigFile(t *testing.T) {
	_, wd := isolate(t)
	path := filepath.Join(wd, "cc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates_dir: tpl\nlog_level: warn\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tpl", cfg.TemplatesDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "generated", cfg.GeneratedDir)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	_, wd := isolate(t)
	path := filepath.Join(wd, "cc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o644))
	t.Setenv("CONTEXT_CRAFT_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, wd := isolate(t)
	_, err := Load(filepath.Join(wd, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_NegativeTimeout(t *testing.T) {
	isolate(t)
	t.Setenv("CONTEXT_CRAFT_COMMAND_TIMEOUT_SEC", "-1")
	_, err := Load("")
	assert.Error(t, err)
}

func TestSave_DefaultLocationRoundTrip(t *testing.T) {
	home, _ := isolate(t)

	d := Defaults()
	d.LogLevel = "debug"
	path, err := Save(d, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, HomeDir, "config.yaml"), path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}
