package devtools

import (
	"context"
	"encoding/json"
	"strings"
)

const (
	// DefaultLintConfig is the ESLint config used when none is given.
	DefaultLintConfig = ".eslintrc.js"
	defaultLintTarget = "src/**/*.{js,ts,jsx,tsx}"
)

// LintRequest describes one ESLint run.
type LintRequest struct {
	Files  []string
	Config string
	Fix    bool
}

// LintMessage is one ESLint finding.
type LintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// FileReport is ESLint's JSON report for one file.
type FileReport struct {
	FilePath     string        `json:"filePath"`
	Messages     []LintMessage `json:"messages"`
	ErrorCount   int           `json:"errorCount"`
	WarningCount int           `json:"warningCount"`
}

// LintResult splits reports into clean files and files with findings.
type LintResult struct {
	FixedFiles      []string     `json:"fixedFiles"`
	RemainingIssues []FileReport `json:"remainingIssues"`
	ExitCode        int          `json:"exitCode"`
	Stderr          string       `json:"stderr,omitempty"`
}

// Lint runs `npx eslint` with JSON output. ESLint exiting non-zero because
// findings remain is not an error.
func (t *Toolbox) Lint(ctx context.Context, req LintRequest) (*LintResult, error) {
	files := req.Files
	if len(files) == 0 {
		files = []string{defaultLintTarget}
	}
	config := req.Config
	if config == "" {
		config = DefaultLintConfig
	}

	args := append([]string{"eslint"}, files...)
	if req.Fix {
		args = append(args, "--fix")
	}
	args = append(args, "--format", "json", "--config", config)

	stdout, stderr, code, err := t.run(ctx, "npx", args...)
	if err != nil {
		return nil, err
	}

	result := &LintResult{FixedFiles: []string{}, RemainingIssues: []FileReport{}, ExitCode: code, Stderr: strings.TrimSpace(stderr)}
	for _, r := range ParseESLint(stdout) {
		if len(r.Messages) == 0 {
			result.FixedFiles = append(result.FixedFiles, r.FilePath)
			continue
		}
		result.RemainingIssues = append(result.RemainingIssues, r)
	}
	return result, nil
}

// ParseESLint decodes ESLint's JSON formatter output. Output that is not a
// JSON report yields no reports.
func ParseESLint(stdout string) []FileReport {
	stdout = strings.TrimSpace(stdout)
	if stdout == "" {
		return nil
	}
	var reports []FileReport
	if err := json.Unmarshal([]byte(stdout), &reports); err != nil {
		return nil
	}
	return reports
}
