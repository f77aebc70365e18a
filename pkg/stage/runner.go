package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/agentforge/agentforge/pkg/conformance"
	"github.com/agentforge/agentforge/pkg/contract"
	"github.com/agentforge/agentforge/pkg/errorkind"
	"github.com/agentforge/agentforge/pkg/executor"
	"github.com/agentforge/agentforge/pkg/store"
)

// RunStage drives RunStep in a loop for a single (task, stage) until a
// terminal Outcome is reached, per spec.md §4.8. in is the same StepInput
// executor.RunStep takes — the stage loop only adds the cap/revision/
// contract-validation wrapper around it; Focus.IterationFeedback is
// extended with structured validation feedback between revision rounds, so
// the next step's context (built fresh by C5 from C1) sees it.
func RunStage(ctx context.Context, deps Deps, in executor.StepInput) (*Outcome, error) {
	revisions := 0

	for step := 1; step <= deps.stepCap(); step++ {
		out, err := executor.RunStep(ctx, deps.Executor, in)
		if err != nil {
			return nil, err
		}

		switch out.Kind {
		case executor.OutcomeContinue:
			continue

		case executor.OutcomePaused:
			return &Outcome{Kind: OutcomePaused, Steps: step, Revisions: revisions}, nil

		case executor.OutcomeAborted:
			return &Outcome{Kind: OutcomeAborted, Err: out.Err, Steps: step, Revisions: revisions}, nil

		case executor.OutcomeEscalate:
			escID, escErr := createEscalation(deps, in, out.Reason)
			if escErr != nil {
				return nil, escErr
			}
			return &Outcome{Kind: OutcomeEscalated, EscalationID: escID, Reason: out.Reason, Steps: step, Revisions: revisions}, nil

		case executor.OutcomeStageComplete:
			content, lerr := deps.Executor.Store.LoadArtifact(in.TaskID, in.Stage, out.ArtifactHash)
			if lerr != nil {
				return nil, fmt.Errorf("load completed artifact: %w", lerr)
			}
			result, verr := deps.Contracts.Validate(content, in.Instance.Definition.OutputContractID)
			if verr != nil {
				return nil, fmt.Errorf("validate artifact: %w", verr)
			}
			if result.Passed {
				if out.Bundle != nil && !deps.exitPredicate()(out.Bundle) {
					revisions++
					if revisions > deps.revisionLimit() {
						reason := fmt.Sprintf("conformance bundle failed the phase-exit predicate after %d revision round(s): %s",
							deps.revisionLimit(), summarizeBundle(out.Bundle))
						escID, escErr := createEscalation(deps, in, reason)
						if escErr != nil {
							return nil, escErr
						}
						return &Outcome{Kind: OutcomeEscalated, EscalationID: escID, Reason: reason, Steps: step, Revisions: revisions}, nil
					}
					in.Focus.IterationFeedback = append(in.Focus.IterationFeedback, formatBundleFeedback(out.Bundle))
					continue
				}
				return &Outcome{Kind: OutcomeApproved, ArtifactHash: out.ArtifactHash, ValidationResult: result, Steps: step, Revisions: revisions}, nil
			}

			revisions++
			if revisions > deps.revisionLimit() {
				reason := fmt.Sprintf("contract %q failed validation after %d revision round(s): %s",
					in.Instance.Definition.OutputContractID, deps.revisionLimit(), summarizeValidation(result))
				escID, escErr := createEscalation(deps, in, reason)
				if escErr != nil {
					return nil, escErr
				}
				return &Outcome{Kind: OutcomeEscalated, EscalationID: escID, Reason: reason, Steps: step, Revisions: revisions}, nil
			}
			in.Focus.IterationFeedback = append(in.Focus.IterationFeedback, formatRevisionFeedback(result))
		}
	}

	reason := fmt.Sprintf("step budget of %d exhausted", deps.stepCap())
	escID, escErr := createEscalation(deps, in, reason)
	if escErr != nil {
		return nil, escErr
	}
	return &Outcome{
		Kind:         OutcomeEscalated,
		EscalationID: escID,
		Reason:       reason,
		Err:          errorkind.New(errorkind.StepBudgetExhausted, reason),
		Steps:        deps.stepCap(),
		Revisions:    revisions,
	}, nil
}

// createEscalation records a new escalation (C10's storage contract, still
// backed directly by C1 per spec.md §4.1's create_escalation/
// resolve_escalation operations) and marks the stage escalated so the
// pipeline controller stops advancing it until resolved.
func createEscalation(deps Deps, in executor.StepInput, reason string) (string, error) {
	id := "esc-" + uuid.New().String()
	if err := deps.Executor.Store.CreateEscalation(store.Escalation{
		ID:     id,
		TaskID: in.TaskID,
		Stage:  in.Stage,
		Reason: reason,
	}); err != nil {
		return "", fmt.Errorf("create escalation: %w", err)
	}
	if err := deps.Executor.Store.UpdateState(in.TaskID, func(st *store.TaskState) error {
		ss, ok := st.Stages[in.Stage]
		if !ok {
			ss = &store.StageState{Stage: in.Stage}
			st.Stages[in.Stage] = ss
		}
		ss.Status = store.StageStatusEscalated
		return nil
	}); err != nil {
		return "", fmt.Errorf("mark stage escalated: %w", err)
	}
	return id, nil
}

// formatRevisionFeedback turns a failed contract.Result into the
// structured iteration-feedback string fed back to the primary agent's
// next context, per spec.md §4.9's revision-round description.
func formatRevisionFeedback(result *contract.Result) string {
	var sb strings.Builder
	sb.WriteString("Contract validation failed; fix the following and resubmit:")
	for _, e := range result.Errors {
		fmt.Fprintf(&sb, "\n- %s: %s", e.Path, e.Message)
	}
	return sb.String()
}

// formatBundleFeedback turns a bundle that failed the phase-exit predicate
// into iteration feedback, naming every non-skipped failing layer and its
// violations, per spec.md §4.3's bundle shape.
func formatBundleFeedback(bundle *conformance.Bundle) string {
	var sb strings.Builder
	sb.WriteString("Conformance gate did not pass; fix the following and resubmit:")
	for _, r := range bundle.Results {
		if r.Skipped || r.Passed {
			continue
		}
		fmt.Fprintf(&sb, "\n- %s:", r.Layer)
		for _, v := range r.Violations {
			fmt.Fprintf(&sb, "\n  - %s: %s", v.RuleID, v.Message)
		}
	}
	return sb.String()
}

func summarizeBundle(bundle *conformance.Bundle) string {
	var failing []string
	for _, r := range bundle.Results {
		if !r.Skipped && !r.Passed {
			failing = append(failing, string(r.Layer))
		}
	}
	if len(failing) == 0 {
		return "no details"
	}
	return "failing layers: " + strings.Join(failing, ", ")
}

func summarizeValidation(result *contract.Result) string {
	if len(result.Errors) == 0 {
		return "no details"
	}
	parts := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Path, e.Message))
	}
	return strings.Join(parts, "; ")
}
