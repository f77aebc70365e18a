package ctxbuild

import (
	"fmt"
	"strings"
)

// Input is everything Build needs to assemble a step's context — all of it
// sourced by the caller from the State Store alone, per spec.md §4.5: "the
// Context Builder never consults prior LLM messages, only the State
// Store." ctxbuild itself has no store dependency; the executor reads
// the task/stage/working-memory/verification records and hands them in
// here, keeping this package independently testable.
type Input struct {
	SystemPrompt     string
	Frame            TaskFrame
	State            CurrentState
	RecentActions    []StepSummary
	Verification     *VerificationSummary
	AvailableActions []AvailableAction
}

// Build assembles the fixed six-section Context for one executor step,
// applying the defined compression order to any section that exceeds its
// token budget (spec.md §4.5).
func Build(in Input) *Context {
	ctx := &Context{
		SystemPrompt:       in.SystemPrompt,
		TaskFrame:          renderTaskFrame(in.Frame),
		CurrentState:       renderCurrentState(in.State),
		RecentActions:      renderRecentActions(in.RecentActions),
		VerificationStatus: renderVerificationStatus(in.Verification),
		AvailableActions:   renderAvailableActions(in.AvailableActions),
	}
	applyCompression(ctx)
	ctx.TotalTokens = totalTokens(ctx)
	return ctx
}

func totalTokens(ctx *Context) int {
	total := 0
	for _, body := range ctx.sections() {
		total += EstimateTokens(*body)
	}
	return total
}

func renderTaskFrame(f TaskFrame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Task %s\n\n%s\n\n", f.TaskID, f.GoalSentence)
	if f.CurrentPhase != "" {
		fmt.Fprintf(&b, "Current phase: %s\n\n", f.CurrentPhase)
	}
	if len(f.SuccessCriteria) > 0 {
		b.WriteString("### Success criteria\n\n")
		for _, c := range f.SuccessCriteria {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}
	if len(f.Constraints) > 0 {
		b.WriteString("### Constraints\n\n")
		for _, c := range f.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}

// renderRecentActions renders step summaries newest-last, the same order
// pkg/agent/context/investigation_formatter.go walks its investigation
// history in.
func renderRecentActions(steps []StepSummary) string {
	if len(steps) == 0 {
		return "(no prior actions this stage)"
	}
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		parts = append(parts, fmt.Sprintf("Step %d: %s", s.StepIndex, s.Summary))
	}
	return strings.Join(parts, "\n\n")
}

func renderVerificationStatus(v *VerificationSummary) string {
	if v == nil {
		return "(no verification run yet)"
	}
	if v.Passed {
		return "All conformance layers passed."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d violation(s) across layers: %s\n", v.ViolationCount, strings.Join(v.FailingLayers, ", "))
	return b.String()
}

func renderAvailableActions(actions []AvailableAction) string {
	if len(actions) == 0 {
		return "(no actions available)"
	}
	var b strings.Builder
	for _, a := range actions {
		fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.Description)
	}
	return b.String()
}
