// Package config loads server settings from defaults, an optional YAML
// file, a .env file and CONTEXT_CRAFT_* environment variables.
//
// Precedence: environment > config file > defaults. A .env file in the
// working directory is loaded into the environment first and never
// overrides variables that are already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is prepended to every environment override.
	EnvPrefix = "CONTEXT_CRAFT"
	// HomeDir is the per-user directory under $HOME.
	HomeDir = ".context-craft"

	fileName = "config"
	fileType = "yaml"
)

// Config holds the effective server settings.
type Config struct {
	SnippetsDir       string `mapstructure:"snippets_dir" yaml:"snippets_dir"`
	TemplatesDir      string `mapstructure:"templates_dir" yaml:"templates_dir"`
	GeneratedDir      string `mapstructure:"generated_dir" yaml:"generated_dir"`
	SavedDir          string `mapstructure:"saved_dir" yaml:"saved_dir"`
	DataDir           string `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel          string `mapstructure:"log_level" yaml:"log_level"`
	CommandTimeoutSec int    `mapstructure:"command_timeout_sec" yaml:"command_timeout_sec"`
	UpdateRepo        string `mapstructure:"update_repo" yaml:"update_repo"`
	CheckUpdates      bool   `mapstructure:"check_updates" yaml:"check_updates"`
}

// CommandTimeout is the bound applied to lint and test commands.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSec) * time.Second
}

// Dir returns ~/.context-craft, falling back to the working directory
// when no home directory is known.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return HomeDir
	}
	return filepath.Join(home, HomeDir)
}

// FilePath returns the default config file location.
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		SnippetsDir:       filepath.Join("templates", "snippets"),
		TemplatesDir:      "templates",
		GeneratedDir:      "generated",
		SavedDir:          filepath.Join("templates", "saved"),
		DataDir:           Dir(),
		LogLevel:          "info",
		CommandTimeoutSec: 300,
		CheckUpdates:      true,
	}
}

// Load reads configuration. cfgFile overrides the default location; a
// missing default file is not an error, a missing explicit one is.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("snippets_dir", d.SnippetsDir)
	v.SetDefault("templates_dir", d.TemplatesDir)
	v.SetDefault("generated_dir", d.GeneratedDir)
	v.SetDefault("saved_dir", d.SavedDir)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("command_timeout_sec", d.CommandTimeoutSec)
	v.SetDefault("update_repo", d.UpdateRepo)
	v.SetDefault("check_updates", d.CheckUpdates)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigFile(FilePath())
		v.SetConfigType(fileType)
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", FilePath(), err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.CommandTimeoutSec < 0 {
		return nil, fmt.Errorf("command_timeout_sec must not be negative, got %d", c.CommandTimeoutSec)
	}
	return &c, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

// Save writes c as YAML to path, or to the default location when path is
// empty. Parent directories are created as needed.
func Save(c *Config, path string) (string, error) {
	if path == "" {
		path = FilePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
