package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentforge/agentforge/pkg/conformance"
	"github.com/agentforge/agentforge/pkg/ctxbuild"
	"github.com/agentforge/agentforge/pkg/errorkind"
	"github.com/agentforge/agentforge/pkg/llmclient"
	"github.com/agentforge/agentforge/pkg/store"
	"github.com/agentforge/agentforge/pkg/toolbridge"
)

// RunStep executes exactly one step of the minimal-context loop (spec.md
// §4.6): load, build context, call the LLM once, dispatch any tool calls
// (running conformance on successful edits), persist, and report what
// happened. It never retries and never iterates — that is the stage
// executor's (C8) job.
func RunStep(ctx context.Context, deps Deps, in StepInput) (*Outcome, error) {
	// Step 1: load task/state/working-memory/prior-steps from C1.
	state, err := deps.Store.LoadState(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	wm, err := deps.Store.LoadWorkingMemory(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load working memory: %w", err)
	}
	priorRecords, err := loadStepRecords(deps.Store, in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load prior steps: %w", err)
	}
	stageRecords := filterStage(priorRecords, in.Stage)
	iteration := len(stageRecords) + 1

	// Step 2: ask C5 for fresh context.
	cctx := ctxbuild.Build(buildContextInput(in, state, wm, stageRecords, deps.ToolRegistry))

	// Step 3: call C12 with exactly two messages and the agent's declared
	// tool schema.
	genInput := &llmclient.GenerateInput{
		TaskID:    in.TaskID,
		StageName: in.Stage,
		Messages: []llmclient.ConversationMessage{
			{Role: llmclient.RoleSystem, Content: in.Instance.SystemPrompt},
			{Role: llmclient.RoleUser, Content: renderUserMessage(cctx)},
		},
		Tools: buildToolSchema(deps.ToolRegistry, in.Instance.Definition.AllowedTools),
	}

	llmCtx, cancel := context.WithTimeout(ctx, deps.llmTimeout())
	defer cancel()

	chunks, err := deps.LLM.Generate(llmCtx, genInput)
	if err != nil {
		return abortOutcome(deps, in, iteration, err)
	}

	// Step 4: parse the response into zero-or-more tool calls plus an
	// optional terminal action.
	thinking, calls, usage, genErr := drainChunks(chunks)
	if genErr != nil {
		return abortOutcome(deps, in, iteration, genErr)
	}

	if cancelled(in.Cancel) {
		return pauseOutcome(deps, in, iteration)
	}

	regular, terminal := splitTerminal(calls)

	// Step 5: dispatch each tool call via C4; run C3 immediately after a
	// successful edit_file.
	var (
		toolRecords []ToolCallRecord
		lastBundle  *conformance.Bundle
	)
	for _, call := range regular {
		result, bundle, derr := dispatchTool(ctx, deps, in.Policy, in.RepoRoot, call)
		if derr != nil {
			return abortOutcome(deps, in, iteration, derr)
		}
		toolRecords = append(toolRecords, ToolCallRecord{
			CallID:  call.ID,
			Name:    call.Name,
			Args:    call.Arguments,
			Content: result.Content,
			IsError: result.IsError,
		})
		if bundle != nil {
			lastBundle = bundle
		}
	}

	// Step 6: compute the new verification snapshot and phase-exit-ready
	// predicate.
	verificationPassed, failingLayers := verificationSnapshot(lastBundle, stageRecords)

	if cancelled(in.Cancel) {
		return pauseOutcome(deps, in, iteration)
	}

	record := &StepRecord{
		SchemaVersion:      stepRecordSchemaVersion,
		TaskID:             in.TaskID,
		Stage:              in.Stage,
		AgentRole:          in.Instance.Definition.Role,
		Iteration:          iteration,
		Timestamp:          nowUTC(),
		Thinking:           thinking,
		ToolCalls:          toolRecords,
		VerificationPassed: verificationPassed,
		FailingLayers:      failingLayers,
		Usage:              usage,
	}

	var outcome *Outcome
	if terminal != nil {
		record.TerminalAction = terminal.Name
		outcome, err = resolveTerminal(deps, in, *terminal, record)
		if err != nil {
			return abortOutcome(deps, in, iteration, err)
		}
	} else {
		outcome = &Outcome{Kind: OutcomeContinue}
	}
	outcome.Record = record
	if outcome.Kind == OutcomeStageComplete {
		outcome.Bundle = lastBundle
	}

	// Step 7: atomically append the step record, update state.yaml, and
	// prune working memory.
	if _, err := deps.Store.AppendStep(in.TaskID, record); err != nil {
		return nil, fmt.Errorf("append step: %w", err)
	}
	if err := deps.Store.UpdateState(in.TaskID, func(st *store.TaskState) error {
		applyOutcomeToState(st, in.Stage, iteration, outcome)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update state: %w", err)
	}
	if err := deps.Store.PruneExpiredWorkingMemory(in.TaskID, record.Index); err != nil {
		return nil, fmt.Errorf("prune working memory: %w", err)
	}

	// Step 8: return the step outcome.
	return outcome, nil
}

func renderUserMessage(c *ctxbuild.Context) string {
	return c.SystemPrompt + "\n\n" + c.TaskFrame + "\n\n" + c.CurrentState + "\n\n" +
		"## Recent actions\n\n" + c.RecentActions + "\n\n" +
		"## Verification status\n\n" + c.VerificationStatus + "\n\n" +
		"## Available actions\n\n" + c.AvailableActions
}

func buildContextInput(in StepInput, state *store.TaskState, wm *store.WorkingMemory, stageRecords []*StepRecord, reg *toolbridge.Registry) ctxbuild.Input {
	stageState := state.Stages[in.Stage]
	phase := ""
	if stageState != nil {
		phase = string(stageState.Status)
	}

	recent := make([]ctxbuild.StepSummary, 0, len(stageRecords))
	start := 0
	if len(stageRecords) > in.maxRecentActions() {
		start = len(stageRecords) - in.maxRecentActions()
	}
	for _, r := range stageRecords[start:] {
		recent = append(recent, ctxbuild.StepSummary{StepIndex: r.Index, Summary: summarizeRecord(r)})
	}

	var verification *ctxbuild.VerificationSummary
	if len(stageRecords) > 0 {
		last := stageRecords[len(stageRecords)-1]
		verification = &ctxbuild.VerificationSummary{
			Passed:         last.VerificationPassed,
			FailingLayers:  last.FailingLayers,
			ViolationCount: len(last.FailingLayers),
		}
	}

	feedback := in.Focus.IterationFeedback
	if len(feedback) == 0 {
		for _, note := range wm.Items {
			if note.Key == "review_feedback" {
				feedback = append(feedback, note.Value)
			}
		}
	}

	return ctxbuild.Input{
		SystemPrompt: in.Instance.SystemPrompt,
		Frame: ctxbuild.TaskFrame{
			TaskID:          in.TaskID,
			GoalSentence:    in.GoalSentence,
			SuccessCriteria: in.SuccessCriteria,
			Constraints:     in.Constraints,
			CurrentPhase:    phase,
		},
		State: ctxbuild.CurrentState{
			Kind:              in.Focus.Kind,
			Inputs:            in.Focus.Inputs,
			FileView:          in.Focus.FileView,
			IterationFeedback: feedback,
		},
		RecentActions:    recent,
		Verification:     verification,
		AvailableActions: availableActions(in.Instance.Definition.AllowedTools, reg),
	}
}

func availableActions(names []string, reg *toolbridge.Registry) []ctxbuild.AvailableAction {
	actions := make([]ctxbuild.AvailableAction, 0, len(names)+3)
	for _, n := range names {
		desc := ""
		if reg != nil {
			if d, err := reg.Definition(n); err == nil {
				desc = d.Description
			}
		}
		actions = append(actions, ctxbuild.AvailableAction{Name: n, Description: desc})
	}
	actions = append(actions,
		ctxbuild.AvailableAction{Name: ToolComplete, Description: "Conclude this stage with a final artifact."},
		ctxbuild.AvailableAction{Name: ToolEscalate, Description: "Hand this task to a human with a reason."},
		ctxbuild.AvailableAction{Name: ToolCannotFix, Description: "Report that this stage's goal cannot be met."},
	)
	return actions
}

func summarizeRecord(r *StepRecord) string {
	if r.TerminalAction != "" {
		return fmt.Sprintf("%s: %s", r.TerminalAction, r.TerminalReason)
	}
	if len(r.ToolCalls) == 0 {
		return "no tool calls"
	}
	names := make([]string, 0, len(r.ToolCalls))
	for _, c := range r.ToolCalls {
		names = append(names, c.Name)
	}
	return "called " + strings.Join(names, ", ")
}

func buildToolSchema(reg *toolbridge.Registry, allowed []string) []llmclient.ToolDefinition {
	if reg == nil {
		return nil
	}
	names := allowed
	if len(names) == 0 {
		names = reg.Names()
	}
	defs := make([]llmclient.ToolDefinition, 0, len(names))
	for _, n := range names {
		d, err := reg.Definition(n)
		if err != nil {
			continue
		}
		defs = append(defs, llmclient.ToolDefinition{
			Name:             d.Name,
			Description:      d.Description,
			ParametersSchema: d.ParametersSchema,
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func drainChunks(chunks <-chan llmclient.Chunk) (thinking string, calls []llmclient.ToolCall, usage llmclient.UsageChunk, err error) {
	for chunk := range chunks {
		switch c := chunk.(type) {
		case *llmclient.ThinkingChunk:
			thinking += c.Content
		case *llmclient.ToolCallChunk:
			calls = append(calls, llmclient.ToolCall{ID: c.CallID, Name: c.Name, Arguments: c.Arguments})
		case *llmclient.UsageChunk:
			usage = *c
		case *llmclient.ErrorChunk:
			err = errorkind.New(errorkind.LLMFailure, c.Message)
		}
	}
	return thinking, calls, usage, err
}

func splitTerminal(calls []llmclient.ToolCall) (regular []llmclient.ToolCall, terminal *llmclient.ToolCall) {
	for i, c := range calls {
		if isTerminal(c.Name) {
			t := calls[i]
			return append([]llmclient.ToolCall{}, calls[:i]...), &t
		}
	}
	return calls, nil
}

func dispatchTool(ctx context.Context, deps Deps, policy toolbridge.Policy, repoRoot string, call llmclient.ToolCall) (*toolbridge.ToolResult, *conformance.Bundle, error) {
	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return &toolbridge.ToolResult{CallID: call.ID, Name: call.Name, Content: "malformed arguments: " + err.Error(), IsError: true}, nil, nil
		}
	}

	toolCtx, cancel := context.WithTimeout(ctx, deps.toolTimeout())
	defer cancel()

	result, err := deps.Bridge.Execute(toolCtx, policy, toolbridge.ToolCall{ID: call.ID, Name: call.Name, Arguments: args})
	if err != nil {
		return nil, nil, err
	}

	var bundle *conformance.Bundle
	if call.Name == "edit_file" && !result.IsError && deps.Gate != nil {
		path, _ := args["path"].(string)
		content, _ := args["content"].(string)
		bundle, err = deps.Gate.Run(ctx, conformance.Target{FilePath: path, Content: []byte(content), RepoRoot: repoRoot})
		if err != nil {
			return nil, nil, fmt.Errorf("run conformance gate: %w", err)
		}
	}
	return result, bundle, nil
}

func verificationSnapshot(bundle *conformance.Bundle, stageRecords []*StepRecord) (passed bool, failingLayers []string) {
	if bundle != nil {
		passed = bundle.Passed()
		for _, r := range bundle.Results {
			if !r.Skipped && !r.Passed {
				failingLayers = append(failingLayers, string(r.Layer))
			}
		}
		return passed, failingLayers
	}
	if len(stageRecords) > 0 {
		last := stageRecords[len(stageRecords)-1]
		return last.VerificationPassed, last.FailingLayers
	}
	return true, nil
}

func resolveTerminal(deps Deps, in StepInput, call llmclient.ToolCall, record *StepRecord) (*Outcome, error) {
	args := map[string]any{}
	if call.Arguments != "" {
		_ = json.Unmarshal([]byte(call.Arguments), &args)
	}

	switch call.Name {
	case ToolComplete:
		content, _ := args["content"].(string)
		contractID := in.Instance.Definition.OutputContractID
		hash, err := deps.Store.SaveArtifact(in.TaskID, in.Stage, []byte(content), contractID, store.ArtifactDraft)
		if err != nil {
			return nil, fmt.Errorf("save artifact: %w", err)
		}
		record.ArtifactHash = hash
		record.TerminalReason = "stage artifact produced"
		return &Outcome{Kind: OutcomeStageComplete, ArtifactHash: hash}, nil
	case ToolEscalate:
		reason, _ := args["reason"].(string)
		record.TerminalReason = reason
		return &Outcome{Kind: OutcomeEscalate, Reason: reason}, nil
	case ToolCannotFix:
		reason, _ := args["reason"].(string)
		record.TerminalReason = "cannot_fix: " + reason
		return &Outcome{Kind: OutcomeEscalate, Reason: record.TerminalReason}, nil
	default:
		return &Outcome{Kind: OutcomeContinue}, nil
	}
}

func applyOutcomeToState(st *store.TaskState, stage string, iteration int, outcome *Outcome) {
	stageState, ok := st.Stages[stage]
	if !ok {
		stageState = &store.StageState{Stage: stage}
		st.Stages[stage] = stageState
	}
	stageState.Iteration = iteration
	stageState.UpdatedAt = nowUTC()

	switch outcome.Kind {
	case OutcomeStageComplete:
		stageState.Status = store.StageStatusReviewing
		stageState.ArtifactHash = outcome.ArtifactHash
		stageState.ArtifactVersion++
	case OutcomeEscalate:
		stageState.Status = store.StageStatusEscalated
	case OutcomePaused:
		// status untouched; resumable purely from C1.
	default:
		if stageState.Status == store.StageStatusPending {
			stageState.Status = store.StageStatusRunning
		} else if stageState.Status == store.StageStatusReviewing {
			stageState.Status = store.StageStatusIterating
		}
	}
}

func abortOutcome(deps Deps, in StepInput, iteration int, cause error) (*Outcome, error) {
	record := &StepRecord{
		SchemaVersion:  stepRecordSchemaVersion,
		TaskID:         in.TaskID,
		Stage:          in.Stage,
		AgentRole:      in.Instance.Definition.Role,
		Iteration:      iteration,
		Timestamp:      nowUTC(),
		TerminalAction: "aborted",
		TerminalReason: cause.Error(),
	}
	if _, err := deps.Store.AppendStep(in.TaskID, record); err != nil {
		return nil, fmt.Errorf("append aborted step: %w", err)
	}
	return &Outcome{Kind: OutcomeAborted, Err: cause, Record: record}, nil
}

func pauseOutcome(deps Deps, in StepInput, iteration int) (*Outcome, error) {
	record := &StepRecord{
		SchemaVersion: stepRecordSchemaVersion,
		TaskID:        in.TaskID,
		Stage:         in.Stage,
		AgentRole:     in.Instance.Definition.Role,
		Iteration:     iteration,
		Timestamp:     nowUTC(),
		Paused:        true,
	}
	if _, err := deps.Store.AppendStep(in.TaskID, record); err != nil {
		return nil, fmt.Errorf("append paused step: %w", err)
	}
	return &Outcome{Kind: OutcomePaused, Record: record}, nil
}

func loadStepRecords(s *store.Store, taskID string) ([]*StepRecord, error) {
	docs, err := s.ReadStepDocs(taskID)
	if err != nil {
		return nil, err
	}
	records := make([]*StepRecord, 0, len(docs))
	for _, doc := range docs {
		var r StepRecord
		if err := yaml.Unmarshal(doc, &r); err != nil {
			return nil, errorkind.Wrap(errorkind.StateCorrupted, "actions.log entry unreadable", err)
		}
		records = append(records, &r)
	}
	return records, nil
}

func filterStage(records []*StepRecord, stage string) []*StepRecord {
	out := make([]*StepRecord, 0, len(records))
	for _, r := range records {
		if r.Stage == stage {
			out = append(out, r)
		}
	}
	return out
}

func nowUTC() time.Time { return time.Now().UTC() }
