package executor

import (
	"github.com/agentforge/agentforge/pkg/ctxbuild"
	"github.com/agentforge/agentforge/pkg/registry"
	"github.com/agentforge/agentforge/pkg/toolbridge"
)

// Focus is the stage-specific slice of current-state the caller (the stage
// executor, which alone knows a template's per-stage wiring) has already
// resolved from the State Store: which task kind this stage is, which
// verified inputs feed it, and which file (if any) is the center of
// attention this step.
type Focus struct {
	Kind              ctxbuild.TaskKind
	Inputs            map[string]string
	FileView          *ctxbuild.FileView
	IterationFeedback []string
}

// StepInput is everything RunStep needs beyond Deps. GoalSentence,
// SuccessCriteria and Constraints come from the task/template, not from
// this package — the executor builds context from the State Store but
// does not itself understand pipeline templates (spec.md §4.9 owns that).
type StepInput struct {
	TaskID string
	Stage  string

	Instance registry.Instance
	Policy   toolbridge.Policy

	GoalSentence    string
	SuccessCriteria []string
	Constraints     []string
	RepoRoot        string

	Focus Focus

	// MaxRecentActions bounds how many of this stage's prior steps are
	// rendered into the recent-actions section before compression even
	// runs. 0 selects a sane default.
	MaxRecentActions int

	Cancel CancelSignal
}

func (in StepInput) maxRecentActions() int {
	if in.MaxRecentActions > 0 {
		return in.MaxRecentActions
	}
	return 10
}
