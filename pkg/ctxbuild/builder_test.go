package ctxbuild

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput(recentActions int) Input {
	steps := make([]StepSummary, 0, recentActions)
	for i := 0; i < recentActions; i++ {
		steps = append(steps, StepSummary{StepIndex: i, Summary: "ran a tool and got a short result"})
	}
	return Input{
		SystemPrompt: "You are an AgentForge stage executor.",
		Frame: TaskFrame{
			TaskID:          "task-1",
			GoalSentence:    "Fix the failing contract violation in pkg/store.",
			SuccessCriteria: []string{"conformance gate passes", "no regressions"},
			Constraints:     []string{"do not touch pkg/contract"},
			CurrentPhase:    "fix_violation",
		},
		State: CurrentState{
			Kind:   TaskKindFixViolation,
			Inputs: map[string]string{"violation_report": "rule non-empty-string failed on field X"},
			FileView: &FileView{
				Path:    "pkg/store/store.go",
				Content: "package store\n\nfunc CreateTask() {}\n",
			},
		},
		RecentActions: steps,
		Verification: &VerificationSummary{
			Passed:         false,
			FailingLayers:  []string{"style"},
			ViolationCount: 1,
		},
		AvailableActions: []AvailableAction{
			{Name: "edit_file", Description: "edit a file under the task's allowed paths"},
			{Name: "run_tests", Description: "run the package test suite"},
		},
	}
}

func TestBuildProducesAllSections(t *testing.T) {
	ctx := Build(sampleInput(2))
	assert.NotEmpty(t, ctx.SystemPrompt)
	assert.Contains(t, ctx.TaskFrame, "task-1")
	assert.Contains(t, ctx.CurrentState, "fix violation")
	assert.Contains(t, ctx.RecentActions, "Step 0")
	assert.Contains(t, ctx.VerificationStatus, "style")
	assert.Contains(t, ctx.AvailableActions, "edit_file")
	assert.Greater(t, ctx.TotalTokens, 0)
}

func TestBuildNoRecentActionsPlaceholder(t *testing.T) {
	in := sampleInput(0)
	ctx := Build(in)
	assert.Contains(t, ctx.RecentActions, "no prior actions")
}

func TestBuildVerificationPassedMessage(t *testing.T) {
	in := sampleInput(1)
	in.Verification = &VerificationSummary{Passed: true}
	ctx := Build(in)
	assert.Contains(t, ctx.VerificationStatus, "passed")
}

// TestBuildTokenCountStableAcrossSteps verifies spec.md §4.5's explicit
// invariant: token totals should not vary by more than ~10% between
// adjacent steps when the underlying content is of comparable size, since
// compression keeps every section within its fixed budget.
func TestBuildTokenCountStableAcrossSteps(t *testing.T) {
	ctxA := Build(sampleInput(3))
	ctxB := Build(sampleInput(4))

	low := float64(ctxA.TotalTokens) * 0.90
	high := float64(ctxA.TotalTokens) * 1.10
	assert.True(t, float64(ctxB.TotalTokens) >= low-50 && float64(ctxB.TotalTokens) <= high+50,
		"token totals diverged beyond tolerance: a=%d b=%d", ctxA.TotalTokens, ctxB.TotalTokens)
}

func TestBuildCompressesOversizedFileView(t *testing.T) {
	var longFile strings.Builder
	for i := 0; i < 2000; i++ {
		longFile.WriteString("line of source code that takes up real space\n")
	}
	in := sampleInput(1)
	in.State.FileView = &FileView{
		Path:      "pkg/big/file.go",
		Content:   longFile.String(),
		FocusLine: 1000,
		Truncated: true,
	}
	ctx := Build(in)
	require.LessOrEqual(t, EstimateTokens(ctx.CurrentState), sectionBudget[SectionCurrentState]+capErrorMessageAllowance())
}

// capErrorMessageAllowance accounts for the fixed overhead the cap-error-
// message step's truncation marker adds, so the assertion above isn't
// flaky by a handful of tokens.
func capErrorMessageAllowance() int {
	return EstimateTokens("... [truncated, 99999 chars total]")
}

func TestBuildCompressesManyRecentActions(t *testing.T) {
	in := sampleInput(0)
	for i := 0; i < 50; i++ {
		in.RecentActions = append(in.RecentActions, StepSummary{
			StepIndex: i,
			Summary:   strings.Repeat("ran a tool and produced a fairly verbose multi-clause result summary ", 3),
		})
	}
	ctx := Build(in)
	assert.LessOrEqual(t, EstimateTokens(ctx.RecentActions), sectionBudget[SectionRecentActions]+50)
}
