package conformance

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Checker runs one Layer's check against a Target, grounded on
// pkg/agent/controller/tool_execution.go's pattern of invoking an external
// call and capturing a structured result (there an MCP tool call, here a
// subprocess or in-process rule evaluation).
type Checker interface {
	Layer() Layer
	Check(ctx context.Context, target Target) (VerificationResult, error)
}

// SubprocessChecker runs an external command (linter, type checker, test
// runner) and interprets its exit code / stdout as violations, the same
// subprocess-with-timeout shape pkg/mcp/client.go uses for stdio MCP
// servers, generalized from "talk the MCP protocol over stdin/stdout" to
// "run once, parse output."
type SubprocessChecker struct {
	LayerName string
	Command   string
	Args      []string
	Timeout   time.Duration
	// Parse converts raw (stdout+stderr, exit error) into violations.
	// A nil Parse treats any non-nil exit error as one unlocated violation.
	Parse func(output []byte, runErr error) []Violation
}

func (c *SubprocessChecker) Layer() Layer { return Layer(c.LayerName) }

func (c *SubprocessChecker) Check(ctx context.Context, target Target) (VerificationResult, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string{}, c.Args...)
	args = append(args, target.FilePath)
	cmd := exec.CommandContext(runCtx, c.Command, args...)
	cmd.Dir = target.RepoRoot

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()

	var violations []Violation
	if c.Parse != nil {
		violations = c.Parse(out.Bytes(), runErr)
	} else if runErr != nil {
		violations = []Violation{{RuleID: c.LayerName, Message: fmt.Sprintf("%s failed: %s", c.Command, out.String())}}
	}

	return VerificationResult{
		Layer:      Layer(c.LayerName),
		Passed:     len(violations) == 0,
		Violations: violations,
		CheckedAt:  nowUTC(),
	}, nil
}

// RuleFunc is one declarative in-process rule (regex, AST match, dependency
// constraint) spec.md §4.3 describes for the style/architecture/pattern/
// security layers.
type RuleFunc func(target Target) []Violation

// RuleSetChecker runs a list of in-process RuleFuncs and aggregates their
// violations under a single Layer — the common case for checks that don't
// need an external process (regex-based style rules, import-graph
// constraints).
type RuleSetChecker struct {
	LayerName string
	Rules     []RuleFunc
}

func (c *RuleSetChecker) Layer() Layer { return Layer(c.LayerName) }

func (c *RuleSetChecker) Check(_ context.Context, target Target) (VerificationResult, error) {
	var violations []Violation
	for _, rule := range c.Rules {
		violations = append(violations, rule(target)...)
	}
	return VerificationResult{
		Layer:      Layer(c.LayerName),
		Passed:     len(violations) == 0,
		Violations: violations,
		CheckedAt:  nowUTC(),
	}, nil
}

func nowUTC() time.Time { return time.Now().UTC() }
