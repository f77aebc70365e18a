package conformance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleSetCheckerAggregatesViolations(t *testing.T) {
	ruleA := func(target Target) []Violation {
		if len(target.Content) == 0 {
			return []Violation{{RuleID: "non-empty", Message: "file is empty"}}
		}
		return nil
	}
	ruleB := func(target Target) []Violation {
		return []Violation{{RuleID: "always-fails", Message: "demo"}}
	}

	checker := &RuleSetChecker{LayerName: "style", Rules: []RuleFunc{ruleA, ruleB}}
	result, err := checker.Check(context.Background(), Target{Content: []byte("x")})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
}

func TestRuleSetCheckerPassesWithNoViolations(t *testing.T) {
	checker := &RuleSetChecker{LayerName: "style", Rules: []RuleFunc{func(Target) []Violation { return nil }}}
	result, err := checker.Check(context.Background(), Target{})
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestSubprocessCheckerRunsCommand(t *testing.T) {
	checker := &SubprocessChecker{
		LayerName: "syntax",
		Command:   "true",
	}
	result, err := checker.Check(context.Background(), Target{FilePath: "a.go"})
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestSubprocessCheckerFailingCommandProducesViolation(t *testing.T) {
	checker := &SubprocessChecker{
		LayerName: "syntax",
		Command:   "false",
	}
	result, err := checker.Check(context.Background(), Target{FilePath: "a.go"})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.NotEmpty(t, result.Violations)
}

func TestSubprocessCheckerCustomParse(t *testing.T) {
	checker := &SubprocessChecker{
		LayerName: "syntax",
		Command:   "false",
		Parse: func(output []byte, runErr error) []Violation {
			return []Violation{{RuleID: "custom", Message: "parsed"}}
		},
	}
	result, err := checker.Check(context.Background(), Target{FilePath: "a.go"})
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "custom", result.Violations[0].RuleID)
}
