// Package devtools wraps the external developer tools the server shells out
// to (ESLint and the project test command) and a keyword code search.
//
// Only the boundaries are modeled: commands are run, their output is
// parsed loosely and anything unparseable degrades to empty results.
package devtools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Runner executes a command in dir. A non-zero exit is reported through
// exitCode, not err; err is reserved for commands that could not run.
type Runner func(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, exitCode int, err error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return stdout.String(), stderr.String(), 0, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
	case ctx.Err() != nil:
		return stdout.String(), stderr.String(), -1, fmt.Errorf("%s: %w", name, ctx.Err())
	default:
		return stdout.String(), stderr.String(), -1, fmt.Errorf("running %s: %w", name, err)
	}
}

// Toolbox runs the developer tools against one project directory.
type Toolbox struct {
	Dir     string
	Timeout time.Duration
	Run     Runner
}

// New creates a Toolbox for dir. A zero timeout leaves commands bounded
// only by the caller's context.
func New(dir string, timeout time.Duration) *Toolbox {
	return &Toolbox{Dir: dir, Timeout: timeout, Run: ExecRunner}
}

func (t *Toolbox) run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	run := t.Run
	if run == nil {
		run = ExecRunner
	}
	return run(ctx, t.Dir, name, args...)
}
