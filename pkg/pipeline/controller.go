package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/agentforge/agentforge/pkg/contract"
	"github.com/agentforge/agentforge/pkg/errorkind"
	"github.com/agentforge/agentforge/pkg/executor"
	"github.com/agentforge/agentforge/pkg/registry"
	"github.com/agentforge/agentforge/pkg/stage"
	"github.com/agentforge/agentforge/pkg/store"
	"github.com/agentforge/agentforge/pkg/toolbridge"
)

// Run advances a task as far as it can go without further input: it loops
// over stages starting from state.yaml's current_stage, running each to
// completion and handing off to the next, until it hits a suspend point
// (iteration review, supervised checkpoint, escalation, pause, abort) or
// the task has no more stages. Each iteration re-reads state fresh, per
// spec.md §5: "Resumption ... re-enters via C9 with no in-memory
// context" — Run makes no assumption about what happened before this
// call, including whether it's being called for the first time or after
// a crash mid-pipeline.
func (c *Controller) Run(ctx context.Context, taskID string) (*Outcome, error) {
	for {
		task, err := c.Deps.Store.LoadTask(taskID)
		if err != nil {
			return nil, err
		}
		st, err := c.Deps.Store.LoadState(taskID)
		if err != nil {
			return nil, err
		}
		if st.CurrentStage == "" {
			return &Outcome{Kind: OutcomeCompleted}, nil
		}

		pending, err := c.Deps.Store.PendingEscalations(taskID)
		if err != nil {
			return nil, err
		}
		if len(pending) > 0 {
			return &Outcome{Kind: OutcomeEscalated, Stage: st.CurrentStage, EscalationID: pending[0].ID, Reason: pending[0].Reason}, nil
		}

		tmpl, err := c.Deps.Templates.Get(task.Template)
		if err != nil {
			return nil, err
		}
		cur := st.CurrentStage
		stTmpl, ok := tmpl.Stage(cur)
		if !ok {
			return nil, errStageNotInTemplate(tmpl.ID, cur)
		}
		ss, ok := st.Stages[cur]
		if !ok {
			ss = &store.StageState{Stage: cur, Status: store.StageStatusPending}
		}

		switch ss.Status {
		case store.StageStatusSkipped, store.StageStatusCompleted:
			if err := c.advance(taskID, st.StageOrder, cur); err != nil {
				return nil, err
			}
			continue

		case store.StageStatusPending, store.StageStatusIterating:
			out, err := c.runStage(ctx, taskID, cur, stTmpl)
			if err != nil {
				return nil, err
			}
			switch out.Kind {
			case stage.OutcomePaused:
				return &Outcome{Kind: OutcomePaused, Stage: cur}, nil
			case stage.OutcomeAborted:
				return &Outcome{Kind: OutcomeAborted, Stage: cur, Err: out.Err}, nil
			case stage.OutcomeEscalated:
				return &Outcome{Kind: OutcomeEscalated, Stage: cur, EscalationID: out.EscalationID, Reason: out.Reason}, nil
			case stage.OutcomeApproved:
				reviewOut, err := c.runReviewLoop(ctx, taskID, cur, stTmpl, out.ArtifactHash)
				if err != nil {
					return nil, err
				}
				if reviewOut != nil {
					return reviewOut, nil
				}
				if stTmpl.Iterable {
					if c.Deps.Audit != nil {
						if _, err := c.Deps.Audit.IterationPresented(taskID, cur, stTmpl.AgentRole, out.ArtifactHash); err != nil {
							return nil, err
						}
					}
					return &Outcome{Kind: OutcomeAwaitingReview, Stage: cur}, nil
				}
				if err := c.markValidated(taskID, cur); err != nil {
					return nil, err
				}
				if task.Supervised {
					return &Outcome{Kind: OutcomeAwaitingApproval, Stage: cur}, nil
				}
				if err := c.advance(taskID, st.StageOrder, cur); err != nil {
					return nil, err
				}
				continue
			}

		case store.StageStatusReviewing:
			return &Outcome{Kind: OutcomeAwaitingReview, Stage: cur}, nil

		case store.StageStatusApproved:
			return &Outcome{Kind: OutcomeAwaitingApproval, Stage: cur}, nil

		case store.StageStatusEscalated:
			return &Outcome{Kind: OutcomeEscalated, Stage: cur}, nil

		default:
			return nil, fmt.Errorf("stage %q in unexpected status %q", cur, ss.Status)
		}
	}
}

// runStage resolves the primary agent and calls C8, folding in any
// review/iteration feedback already recorded for this stage. The agent
// instance's iteration number is the stage's current artifact version —
// how many times this stage has already produced a submission — since
// StageState.Iteration is the executor's own per-step counter, not a
// revision-round count (spec.md §3's ArtifactVersion is the controller's
// revision counter).
func (c *Controller) runStage(ctx context.Context, taskID, stageName string, tmpl *StageTemplate) (*stage.Outcome, error) {
	revision := 0
	var feedback []string
	if st, err := c.Deps.Store.LoadState(taskID); err == nil {
		if ss, ok := st.Stages[stageName]; ok {
			revision = ss.ArtifactVersion
			feedback = append([]string{}, ss.ReviewFeedback...)
		}
	}

	inst, err := c.Deps.Agents.NewInstance(tmpl.AgentRole, taskID, stageName, revision)
	if err != nil {
		return nil, err
	}
	in := executor.StepInput{
		TaskID:          taskID,
		Stage:           stageName,
		Instance:        *inst,
		Policy:          policyFor(inst.Definition),
		GoalSentence:    tmpl.GoalSentence,
		SuccessCriteria: tmpl.SuccessCriteria,
		Constraints:     tmpl.Constraints,
		Focus:           executor.Focus{IterationFeedback: feedback},
	}
	return stage.RunStage(ctx, c.Deps.stageDeps(), in)
}

func (c *Controller) runReviewer(ctx context.Context, taskID, stageName string, rv ReviewerConfig, artifact []byte) (*reviewerOutput, *stage.Outcome, error) {
	reviewStage := stageName + "__review__" + rv.Role
	inst, err := c.Deps.Agents.NewInstance(rv.Role, taskID, reviewStage, 0)
	if err != nil {
		return nil, nil, err
	}
	in := executor.StepInput{
		TaskID:          taskID,
		Stage:           reviewStage,
		Instance:        *inst,
		Policy:          policyFor(inst.Definition),
		GoalSentence:    fmt.Sprintf("Review the %q stage's artifact and report any issues.", stageName),
		SuccessCriteria: []string{"every blocking issue is reported"},
		Focus:           executor.Focus{Inputs: map[string]string{"artifact": string(artifact)}},
	}
	out, err := stage.RunStage(ctx, c.Deps.stageDeps(), in)
	if err != nil {
		return nil, nil, err
	}
	if out.Kind != stage.OutcomeApproved {
		return nil, out, nil
	}
	content, err := c.Deps.Store.LoadArtifact(taskID, reviewStage, out.ArtifactHash)
	if err != nil {
		return nil, nil, err
	}
	var parsed reviewerOutput
	if err := yaml.Unmarshal(content, &parsed); err != nil {
		return nil, nil, errorkind.Wrap(errorkind.ContractViolation, "reviewer artifact is not a valid review record", err)
	}
	return &parsed, out, nil
}

// runReviewLoop runs every configured reviewer against artifactHash,
// feeding blocking issues back to the primary agent for bounded
// resubmission rounds, per spec.md §4.9 points 1-4. Returns a non-nil
// Outcome only when the loop itself must suspend/escalate/abort/pause;
// nil means "reviews satisfied, proceed."
func (c *Controller) runReviewLoop(ctx context.Context, taskID, stageName string, tmpl *StageTemplate, artifactHash string) (*Outcome, error) {
	if len(tmpl.Reviewers) == 0 {
		return nil, nil
	}

	rounds := 0
	for {
		content, err := c.Deps.Store.LoadArtifact(taskID, stageName, artifactHash)
		if err != nil {
			return nil, err
		}

		verdicts := make([]store.ReviewVerdict, 0, len(tmpl.Reviewers))
		var blocking []string
		for _, rv := range tmpl.Reviewers {
			out, stageOut, err := c.runReviewer(ctx, taskID, stageName, rv, content)
			if err != nil {
				return nil, err
			}
			if stageOut != nil {
				switch stageOut.Kind {
				case stage.OutcomePaused:
					return &Outcome{Kind: OutcomePaused, Stage: stageName}, nil
				case stage.OutcomeAborted:
					return &Outcome{Kind: OutcomeAborted, Stage: stageName, Err: stageOut.Err}, nil
				case stage.OutcomeEscalated:
					return &Outcome{Kind: OutcomeEscalated, Stage: stageName, EscalationID: stageOut.EscalationID, Reason: stageOut.Reason}, nil
				}
			}
			verdicts = append(verdicts, store.ReviewVerdict{ReviewerRole: rv.Role, Mode: rv.Mode, Blocking: out.Blocking, Advisory: out.Advisory})
			if rv.Mode == ReviewModeBlocking {
				blocking = append(blocking, out.Blocking...)
			}
			if c.Deps.Audit != nil {
				if _, err := c.Deps.Audit.ReviewVerdictRecorded(taskID, stageName, rv.Role, rv.Mode, len(out.Blocking)); err != nil {
					return nil, err
				}
			}
		}

		if err := c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
			ss := s.Stages[stageName]
			ss.ReviewVerdicts = verdicts
			return nil
		}); err != nil {
			return nil, err
		}

		if len(blocking) == 0 {
			return nil, nil
		}

		rounds++
		if rounds > c.Deps.reviewRoundLimit(tmpl) {
			reason := fmt.Sprintf("review loop exhausted after %d round(s): %s", rounds-1, strings.Join(blocking, "; "))
			escID, err := c.createEscalation(taskID, stageName, reason)
			if err != nil {
				return nil, err
			}
			return &Outcome{Kind: OutcomeEscalated, Stage: stageName, EscalationID: escID, Reason: reason}, nil
		}

		feedback := "Reviewer blocking issues:\n- " + strings.Join(blocking, "\n- ")
		if err := c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
			ss := s.Stages[stageName]
			ss.ReviewFeedback = append(ss.ReviewFeedback, feedback)
			ss.Status = store.StageStatusIterating
			return nil
		}); err != nil {
			return nil, err
		}

		out, err := c.runStage(ctx, taskID, stageName, tmpl)
		if err != nil {
			return nil, err
		}
		switch out.Kind {
		case stage.OutcomeApproved:
			artifactHash = out.ArtifactHash
			continue
		case stage.OutcomePaused:
			return &Outcome{Kind: OutcomePaused, Stage: stageName}, nil
		case stage.OutcomeAborted:
			return &Outcome{Kind: OutcomeAborted, Stage: stageName, Err: out.Err}, nil
		case stage.OutcomeEscalated:
			return &Outcome{Kind: OutcomeEscalated, Stage: stageName, EscalationID: out.EscalationID, Reason: out.Reason}, nil
		}
	}
}

// Decide applies a human decision to a stage currently awaiting one
// (status StageStatusReviewing, i.e. OutcomeAwaitingReview was last
// returned), per spec.md §4.9's iteration loop.
func (c *Controller) Decide(ctx context.Context, taskID string, decision Decision, input string) (*Outcome, error) {
	task, err := c.Deps.Store.LoadTask(taskID)
	if err != nil {
		return nil, err
	}
	st, err := c.Deps.Store.LoadState(taskID)
	if err != nil {
		return nil, err
	}
	cur := st.CurrentStage
	ss, ok := st.Stages[cur]
	if !ok || ss.Status != store.StageStatusReviewing {
		return nil, errorkind.New(errorkind.InvalidInput, fmt.Sprintf("stage %q is not awaiting a decision", cur))
	}
	tmpl, err := c.Deps.Templates.Get(task.Template)
	if err != nil {
		return nil, err
	}
	stTmpl, ok := tmpl.Stage(cur)
	if !ok {
		return nil, errStageNotInTemplate(tmpl.ID, cur)
	}

	if c.Deps.Audit != nil {
		if _, err := c.Deps.Audit.UserDecision(taskID, cur, string(decision)); err != nil {
			return nil, err
		}
	}

	switch decision {
	case DecisionApprove:
		if err := c.Deps.Store.SetArtifactLifecycle(taskID, cur, ss.ArtifactHash, store.ArtifactApproved); err != nil {
			return nil, err
		}
		if err := c.markValidated(taskID, cur); err != nil {
			return nil, err
		}
		if task.Supervised {
			return &Outcome{Kind: OutcomeAwaitingApproval, Stage: cur}, nil
		}
		if err := c.advance(taskID, st.StageOrder, cur); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeAdvanced, Stage: cur}, nil

	case DecisionRevise:
		if ss.ArtifactVersion >= stTmpl.revisionCap() {
			reason := fmt.Sprintf("iteration limit of %d reached for stage %q", stTmpl.revisionCap(), cur)
			escID, err := c.createEscalation(taskID, cur, reason)
			if err != nil {
				return nil, err
			}
			return &Outcome{Kind: OutcomeEscalated, Stage: cur, EscalationID: escID, Reason: reason}, nil
		}
		if err := c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
			sss := s.Stages[cur]
			sss.ReviewFeedback = append(sss.ReviewFeedback, input)
			sss.Status = store.StageStatusIterating
			return nil
		}); err != nil {
			return nil, err
		}
		out, err := c.runStage(ctx, taskID, cur, stTmpl)
		if err != nil {
			return nil, err
		}
		return c.outcomeFromStageResult(cur, out)

	case DecisionReject:
		prev, ok := previousInOrder(st.StageOrder, cur)
		if !ok {
			return nil, errorkind.New(errorkind.InvalidInput, "no previous stage to reject to")
		}
		if err := c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
			s.Stages[prev] = &store.StageState{Stage: prev, Status: store.StageStatusPending}
			s.CurrentStage = prev
			return nil
		}); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeAdvanced, Stage: prev}, nil

	case DecisionExit:
		if err := c.Deps.Store.SetArtifactLifecycle(taskID, cur, ss.ArtifactHash, store.ArtifactFinal); err != nil {
			return nil, err
		}
		if err := c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
			s.Stages[cur].Status = store.StageStatusCompleted
			s.CurrentStage = ""
			return nil
		}); err != nil {
			return nil, err
		}
		if c.Deps.Audit != nil {
			if _, err := c.Deps.Audit.PipelineExit(taskID, cur, string(OutcomeCompleted), "exit decision"); err != nil {
				return nil, err
			}
		}
		return &Outcome{Kind: OutcomeCompleted, Stage: cur, DeliverableHash: ss.ArtifactHash}, nil

	case DecisionExtend:
		return c.extend(taskID, cur, ss.ArtifactHash, input)

	default:
		return nil, errorkind.New(errorkind.InvalidInput, "unknown decision: "+string(decision))
	}
}

// SupervisorDecide resolves the per-stage checkpoint spec.md §4.9's
// supervised mode requires for non-iterable stages (iterable stages use
// Decide instead, which already suspends every stage regardless of
// supervision).
func (c *Controller) SupervisorDecide(taskID string, approve bool) (*Outcome, error) {
	st, err := c.Deps.Store.LoadState(taskID)
	if err != nil {
		return nil, err
	}
	cur := st.CurrentStage
	ss, ok := st.Stages[cur]
	if !ok || ss.Status != store.StageStatusApproved {
		return nil, errorkind.New(errorkind.InvalidInput, fmt.Sprintf("stage %q is not awaiting supervisor approval", cur))
	}
	if !approve {
		if err := c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
			s.Stages[cur] = &store.StageState{Stage: cur, Status: store.StageStatusPending}
			return nil
		}); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeAdvanced, Stage: cur}, nil
	}
	if err := c.advance(taskID, st.StageOrder, cur); err != nil {
		return nil, err
	}
	return &Outcome{Kind: OutcomeAdvanced, Stage: cur}, nil
}

// AdmitExternalArtifact validates a user-supplied artifact against a
// contract and, if it passes, marks the corresponding stage skipped with
// a recorded validation hash, per spec.md §4.9's external-artifact
// admission. Must be called before Run ever reaches stageName.
func (c *Controller) AdmitExternalArtifact(taskID, stageName string, content []byte, contractID string) (string, error) {
	result, err := c.Deps.Contracts.Validate(content, contractID)
	if err != nil {
		return "", err
	}
	if !result.Passed {
		return "", errorkind.New(errorkind.ContractViolation, "external artifact failed validation: "+summarizeValidation(result.Errors))
	}
	hash, err := c.Deps.Store.SaveArtifact(taskID, stageName, content, contractID, store.ArtifactValidated)
	if err != nil {
		return "", err
	}
	if err := c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
		s.Stages[stageName] = &store.StageState{
			Stage: stageName, Status: store.StageStatusSkipped,
			ArtifactHash: hash, ValidationHash: hash,
		}
		return nil
	}); err != nil {
		return "", err
	}
	if c.Deps.Audit != nil {
		if _, err := c.Deps.Audit.ExternalArtifactImported(taskID, stageName, hash); err != nil {
			return "", err
		}
	}
	return hash, nil
}

// ImportArtifact admits an artifact referenced from a prior task, per
// spec.md §4.9's task composition: re-validated via C2, and refused if
// the prior task's recorded codebase hash no longer matches the current
// one.
func (c *Controller) ImportArtifact(taskID, stageName string, content []byte, contractID, recordedCodebaseHash, currentCodebaseHash string) (string, error) {
	if err := StalenessCheck(recordedCodebaseHash, currentCodebaseHash); err != nil {
		return "", err
	}
	return c.AdmitExternalArtifact(taskID, stageName, content, contractID)
}

// StalenessCheck refuses an import whose recorded codebase hash diverges
// from the current one, per spec.md §4.9: "significant differences
// refuse the import with a descriptive error."
func StalenessCheck(recorded, current string) error {
	if recorded != "" && current != "" && recorded != current {
		return errorkind.New(errorkind.StaleExternal, fmt.Sprintf("imported artifact's recorded codebase hash %q no longer matches current codebase hash %q", recorded, current))
	}
	return nil
}

func (c *Controller) extend(taskID, curStage, deliverableHash, followOnTemplateID string) (*Outcome, error) {
	followOn, err := c.Deps.Templates.Get(followOnTemplateID)
	if err != nil {
		return nil, err
	}
	if err := c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
		for _, st := range followOn.Stages {
			if _, exists := s.Stages[st.Name]; !exists {
				s.Stages[st.Name] = &store.StageState{Stage: st.Name, Status: store.StageStatusPending}
			}
			s.StageOrder = append(s.StageOrder, st.Name)
		}
		s.Stages[curStage].Status = store.StageStatusCompleted
		s.Extended = true
		s.CurrentStage = followOn.Stages[0].Name
		return nil
	}); err != nil {
		return nil, err
	}
	return &Outcome{Kind: OutcomeAdvanced, Stage: curStage}, nil
}

func (c *Controller) outcomeFromStageResult(stageName string, out *stage.Outcome) (*Outcome, error) {
	switch out.Kind {
	case stage.OutcomeApproved:
		return &Outcome{Kind: OutcomeAwaitingReview, Stage: stageName}, nil
	case stage.OutcomeEscalated:
		return &Outcome{Kind: OutcomeEscalated, Stage: stageName, EscalationID: out.EscalationID, Reason: out.Reason}, nil
	case stage.OutcomeAborted:
		return &Outcome{Kind: OutcomeAborted, Stage: stageName, Err: out.Err}, nil
	case stage.OutcomePaused:
		return &Outcome{Kind: OutcomePaused, Stage: stageName}, nil
	default:
		return nil, fmt.Errorf("unexpected stage outcome %q", out.Kind)
	}
}

// markValidated records that a stage's artifact passed contract (and, if
// configured, review) validation and is now waiting on a handoff —
// either an automatic advance, or a supervised checkpoint.
func (c *Controller) markValidated(taskID, stageName string) error {
	return c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
		s.Stages[stageName].Status = store.StageStatusApproved
		return nil
	})
}

// advance marks fromStage completed and moves current_stage to the next
// entry in order, producing the stage_transition handoff spec.md §4.9
// requires.
func (c *Controller) advance(taskID string, order []string, fromStage string) error {
	isLastStage := false
	if err := c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
		s.Stages[fromStage].Status = store.StageStatusCompleted
		next, ok := nextInOrder(order, fromStage)
		if !ok {
			s.CurrentStage = ""
			isLastStage = true
			return nil
		}
		s.CurrentStage = next
		return nil
	}); err != nil {
		return err
	}
	if c.Deps.Audit == nil {
		return nil
	}
	if _, err := c.Deps.Audit.StageTransition(taskID, fromStage, store.StageStatusCompleted); err != nil {
		return err
	}
	if isLastStage {
		if _, err := c.Deps.Audit.PipelineExit(taskID, fromStage, string(OutcomeCompleted), "no stages remaining"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) createEscalation(taskID, stageName, reason string) (string, error) {
	id := "esc-" + uuid.New().String()
	if err := c.Deps.Store.CreateEscalation(store.Escalation{ID: id, TaskID: taskID, Stage: stageName, Reason: reason}); err != nil {
		return "", err
	}
	if err := c.Deps.Store.UpdateState(taskID, func(s *store.TaskState) error {
		ss, ok := s.Stages[stageName]
		if !ok {
			ss = &store.StageState{Stage: stageName}
			s.Stages[stageName] = ss
		}
		ss.Status = store.StageStatusEscalated
		return nil
	}); err != nil {
		return "", err
	}
	return id, nil
}

func nextInOrder(order []string, cur string) (string, bool) {
	for i, name := range order {
		if name == cur && i+1 < len(order) {
			return order[i+1], true
		}
	}
	return "", false
}

func previousInOrder(order []string, cur string) (string, bool) {
	for i, name := range order {
		if name == cur && i > 0 {
			return order[i-1], true
		}
	}
	return "", false
}

func policyFor(def registry.AgentDefinition) toolbridge.Policy {
	return toolbridge.Policy{Allowed: def.AllowedTools, Forbidden: def.ForbiddenTools, PathConstraints: def.PathConstraints}
}

func summarizeValidation(errs []contract.ValidationError) string {
	if len(errs) == 0 {
		return "no details"
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Path, e.Message))
	}
	return strings.Join(parts, "; ")
}
