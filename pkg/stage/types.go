// Package stage implements AgentForge's Stage Executor (spec.md §4.8, C8):
// it drives the Minimal-Context Executor (C6) in a loop for a single stage,
// validates the resulting artifact against its contract (C2), feeds
// contract failures back to the agent as revision rounds up to a
// configured limit, and escalates when that limit or the step cap is
// exceeded. Grounded on tarsy's `pkg/queue/executor.go` `executeStage`:
// same step-cap / revision-round / escalate-on-cap-exceeded control flow,
// generalized from "agent investigation stage" to "pipeline template
// stage."
package stage

import (
	"github.com/agentforge/agentforge/pkg/conformance"
	"github.com/agentforge/agentforge/pkg/contract"
	"github.com/agentforge/agentforge/pkg/executor"
)

// OutcomeKind is the stage-level result spec.md §4.8 defines.
type OutcomeKind string

const (
	// OutcomeApproved: the artifact passed contract validation. The
	// pipeline controller (C9) decides next steps (advance, or enter
	// pending_review if the stage is iterable).
	OutcomeApproved OutcomeKind = "approved"
	// OutcomeEscalated: handed to C10, either because the agent itself
	// called escalate/cannot_fix, the revision limit was exhausted, or the
	// step cap was exceeded.
	OutcomeEscalated OutcomeKind = "escalated"
	// OutcomeAborted: an unrecoverable step error (e.g. LLM failure with
	// no retry left) aborted the stage without escalation.
	OutcomeAborted OutcomeKind = "aborted"
	// OutcomePaused: a cancellation signal was observed mid-stage; the
	// stage is cleanly resumable from C1.
	OutcomePaused OutcomeKind = "paused"
)

// Outcome is RunStage's return value.
type Outcome struct {
	Kind             OutcomeKind
	ArtifactHash     string           // set when Kind == OutcomeApproved
	ValidationResult *contract.Result // set when Kind == OutcomeApproved
	EscalationID     string           // set when Kind == OutcomeEscalated
	Reason           string           // set when Kind == OutcomeEscalated
	Err              error            // set when Kind == OutcomeAborted
	Steps            int              // number of RunStep calls made
	Revisions        int              // number of revision rounds consumed (contract or conformance failures)
}

const (
	defaultStepCap       = 100
	defaultRevisionLimit = 3
)

// Deps bundles the executor (C6) dependencies plus C2, the step cap, and
// the revision-round limit spec.md §4.8 requires.
type Deps struct {
	Executor  executor.Deps
	Contracts *contract.Registry

	// ExitPredicate gates OutcomeApproved on the stage's latest
	// conformance bundle (spec.md §4.3's phase-exit predicate), not just
	// contract validation. A nil bundle (no edit_file call this stage, so
	// C3 never ran) always passes — the predicate only applies to stages
	// that actually touch files. Zero value selects
	// conformance.AllLayersPass(LayerSyntax, LayerTests).
	ExitPredicate conformance.ExitPredicate

	StepCap       int // safety cap on total steps for this stage; default 100
	RevisionLimit int // max revision rounds before escalate; default 3
}

func (d Deps) stepCap() int {
	if d.StepCap > 0 {
		return d.StepCap
	}
	return defaultStepCap
}

func (d Deps) revisionLimit() int {
	if d.RevisionLimit > 0 {
		return d.RevisionLimit
	}
	return defaultRevisionLimit
}

func (d Deps) exitPredicate() conformance.ExitPredicate {
	if d.ExitPredicate != nil {
		return d.ExitPredicate
	}
	return conformance.AllLayersPass(conformance.LayerSyntax, conformance.LayerTests)
}
