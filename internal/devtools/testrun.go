package devtools

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTestCommand runs when a request names none.
const DefaultTestCommand = "npm test"

var summaryRe = regexp.MustCompile(`(\d+) passed, (\d+) failed, (\d+) total`)

// TestRequest describes one test run.
type TestRequest struct {
	TestFiles []string
	Command   string
	Coverage  bool
	Watch     bool
}

// TestSummary holds the counts scraped from runner output.
type TestSummary struct {
	Passed   int    `json:"passed"`
	Failed   int    `json:"failed"`
	Total    int    `json:"total"`
	Coverage string `json:"coverage,omitempty"`
}

// TestResult is the outcome of a test run.
type TestResult struct {
	TestSummary
	ExitCode int    `json:"exitCode"`
	Output   string `json:"output"`
}

// RunTests runs the test command with optional coverage, watch and file
// arguments appended, then scrapes its summary line.
func (t *Toolbox) RunTests(ctx context.Context, req TestRequest) (*TestResult, error) {
	command := req.Command
	if strings.TrimSpace(command) == "" {
		command = DefaultTestCommand
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("empty test command")
	}

	args := append([]string{}, fields[1:]...)
	if req.Coverage {
		args = append(args, "--coverage")
	}
	if req.Watch {
		args = append(args, "--watch")
	}
	args = append(args, req.TestFiles...)

	stdout, stderr, code, err := t.run(ctx, fields[0], args...)
	if err != nil {
		return nil, err
	}

	output := stdout
	if output == "" {
		output = stderr
	}
	return &TestResult{
		TestSummary: ParseTestOutput(stdout),
		ExitCode:    code,
		Output:      output,
	}, nil
}

// ParseTestOutput scans runner output for a "Tests:" line of the form
// "N passed, N failed, N total" and a line mentioning "% coverage". The
// last match of each wins.
func ParseTestOutput(output string) TestSummary {
	var s TestSummary
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Tests:") {
			if m := summaryRe.FindStringSubmatch(line); m != nil {
				s.Passed, _ = strconv.Atoi(m[1])
				s.Failed, _ = strconv.Atoi(m[2])
				s.Total, _ = strconv.Atoi(m[3])
			}
		}
		if strings.Contains(line, "% coverage") {
			s.Coverage = strings.TrimSpace(line)
		}
	}
	return s
}
