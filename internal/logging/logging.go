// Package logging builds the process logger. Everything goes to stderr:
// stdout carries the MCP stdio transport.
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
)

// ParseLevel maps debug, info, warn (or warning) and error to a slog
// level. The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (use debug, info, warn or error)", s)
}

// New returns a text logger writing to w at the given level.
func New(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// StdLogger adapts l for APIs that take a *log.Logger, such as the stdio
// transport's error log. Lines are logged at error level.
func StdLogger(l *slog.Logger) *log.Logger {
	return slog.NewLogLogger(l.Handler(), slog.LevelError)
}
