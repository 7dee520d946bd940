// context-craft: code snippet, scaffolding and dev-tool MCP server.
//
// Usage:
//
//	context-craft serve         # Start MCP server (stdio transport)
//	context-craft config init   # Write the default config file
//	context-craft update        # Update to the latest release
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/contextcraft/context-craft/internal/config"
	"github.com/contextcraft/context-craft/internal/logging"
	ccserver "github.com/contextcraft/context-craft/internal/server"
	"github.com/contextcraft/context-craft/internal/updater"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "context-craft",
		Short:         "Code snippet, scaffolding and dev-tool MCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.context-craft/config.yaml)")

	root.AddCommand(
		newServeCmd(&cfgFile),
		newVersionCmd(),
		newConfigCmd(&cfgFile),
		newUpdateCmd(&cfgFile),
	)
	return root
}

func newServeCmd(cfgFile *string) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			logger, err := logging.New(os.Stderr, cfg.LogLevel)
			if err != nil {
				return err
			}

			s, cleanup, err := ccserver.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.CheckUpdates {
				go checkForUpdates(ctx, cfg.UpdateRepo, logger)
			}

			return server.ServeStdio(s, server.WithErrorLogger(logging.StdLogger(logger)))
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	return cmd
}

// checkForUpdates logs a notice when a newer release exists. Failures are
// logged at debug level only.
func checkForUpdates(ctx context.Context, repo string, logger *slog.Logger) {
	res, _, err := updater.New(repo).Check(ctx, ccserver.Version)
	if err != nil {
		logger.Debug("update check failed", "error", err)
		return
	}
	if res.UpdateAvailable {
		logger.Info("update available",
			"current", res.CurrentVersion,
			"latest", res.LatestVersion,
			"release", res.ReleaseURL,
			"run", "context-craft update",
		)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "context-craft v%s\n", ccserver.Version)
		},
	}
}

func newConfigCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *cfgFile
			if path == "" {
				path = config.FilePath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			written, err := config.Save(config.Defaults(), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", written)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func printConfig(w io.Writer, c *config.Config) error {
	_, err := fmt.Fprintf(w,
		"snippets_dir: %s\ntemplates_dir: %s\ngenerated_dir: %s\nsaved_dir: %s\ndata_dir: %s\nlog_level: %s\ncommand_timeout_sec: %d\ncheck_updates: %t\n",
		c.SnippetsDir, c.TemplatesDir, c.GeneratedDir, c.SavedDir, c.DataDir, c.LogLevel, c.CommandTimeoutSec, c.CheckUpdates,
	)
	return err
}

func newUpdateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update to the latest release",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			out := cmd.ErrOrStderr()
			fmt.Fprintln(out, "Checking for updates...")

			res, err := updater.New(cfg.UpdateRepo).Apply(cmd.Context(), ccserver.Version)
			if errors.Is(err, updater.ErrUpToDate) {
				fmt.Fprintf(out, "Already at the latest version (v%s)\n", res.CurrentVersion)
				return nil
			}
			if err != nil {
				if res != nil && res.ReleaseURL != "" {
					fmt.Fprintf(out, "You can download manually from:\n  %s\n", res.ReleaseURL)
				}
				return fmt.Errorf("update failed: %w", err)
			}
			fmt.Fprintf(out, "Updated v%s -> v%s. Restart the server to use it.\n", res.CurrentVersion, res.LatestVersion)
			return nil
		},
	}
}
