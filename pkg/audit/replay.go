package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentforge/agentforge/pkg/errorkind"
	"github.com/agentforge/agentforge/pkg/executor"
	"github.com/agentforge/agentforge/pkg/store"
	"github.com/agentforge/agentforge/pkg/toolbridge"
)

var zeroTime time.Time

// ActionReplay re-executes every recorded edit_file call of taskID's
// actions.log against repoRoot, deterministically and without touching the
// LLM — spec.md §4.11's first replay mode. It is how a reviewer reproduces
// the file-system effect of a run to confirm it is deterministic, or how an
// operator re-applies a task's edits onto a fresh checkout.
func ActionReplay(ctx context.Context, s *store.Store, bridge *toolbridge.Bridge, policy toolbridge.Policy, taskID string) ([]toolbridge.ToolResult, error) {
	docs, err := s.ReadStepDocs(taskID)
	if err != nil {
		return nil, err
	}

	var results []toolbridge.ToolResult
	for _, doc := range docs {
		entry, err := decodeEntry(doc)
		if err != nil {
			return nil, err
		}
		if entry.Step == nil {
			continue
		}
		for _, tc := range entry.Step.ToolCalls {
			if tc.IsError || tc.Name != "edit_file" {
				continue
			}
			args := map[string]any{}
			if tc.Args != "" {
				if err := json.Unmarshal([]byte(tc.Args), &args); err != nil {
					return results, errorkind.Wrap(errorkind.InvalidInput, "replay: malformed recorded arguments for "+tc.CallID, err)
				}
			}
			result, err := bridge.Execute(ctx, policy, toolbridge.ToolCall{ID: tc.CallID, Name: tc.Name, Arguments: args})
			if err != nil {
				return results, fmt.Errorf("replay call %s: %w", tc.CallID, err)
			}
			results = append(results, *result)
		}
	}
	return results, nil
}

// ForkInput configures Fork.
type ForkInput struct {
	SourceStore *store.Store
	DestStore   *store.Store // may equal SourceStore
	SourceTask  string
	NewTaskID   string
	// UpToStep bounds how much of the source task's actions.log is carried
	// into the new task's own log, for audit continuity. It does not
	// rewind StageState: state.yaml only ever holds the latest checkpoint
	// per stage, so Fork resumes from the source task's current persisted
	// state, not a reconstruction of what that state was at UpToStep. A
	// caller wanting an earlier checkpoint should fork from a task that
	// was itself loaded no later than that point.
	UpToStep int
}

// Fork resumes a new task from taskID's current checkpoint, per spec.md
// §4.11's second replay mode: "fork — resumes a new task from any recorded
// step with a fresh executor." The new task gets its own id, a copy of the
// source task's stage order and current StageState, a copy of every
// stage's latest artifact, and a truncated copy of the action log up to
// UpToStep for provenance. A fresh stage.Executor/pipeline.Controller can
// then run the new task exactly as it would any other.
func Fork(in ForkInput) (*store.Task, error) {
	if in.SourceTask == "" || in.NewTaskID == "" {
		return nil, errorkind.New(errorkind.InvalidInput, "fork: source and new task ids are required")
	}
	srcTask, err := in.SourceStore.LoadTask(in.SourceTask)
	if err != nil {
		return nil, err
	}
	srcState, err := in.SourceStore.LoadState(in.SourceTask)
	if err != nil {
		return nil, err
	}

	newTask := *srcTask
	newTask.ID = in.NewTaskID
	newTask.CreatedAt = zeroTime
	if err := in.DestStore.CreateTask(newTask, srcState.StageOrder); err != nil {
		return nil, err
	}

	if err := copyArtifacts(in.SourceStore, in.DestStore, in.SourceTask, in.NewTaskID, srcState); err != nil {
		return nil, err
	}

	if err := in.DestStore.UpdateState(in.NewTaskID, func(st *store.TaskState) error {
		st.CurrentStage = srcState.CurrentStage
		st.Extended = srcState.Extended
		for name, ss := range srcState.Stages {
			copied := *ss
			st.Stages[name] = &copied
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := copyTruncatedLog(in.SourceStore, in.DestStore, in.SourceTask, in.NewTaskID, in.UpToStep); err != nil {
		return nil, err
	}

	return &newTask, nil
}

func copyArtifacts(src, dst *store.Store, sourceTaskID, newTaskID string, state *store.TaskState) error {
	for stage, ss := range state.Stages {
		if ss.ArtifactHash == "" {
			continue
		}
		content, err := src.LoadArtifact(sourceTaskID, stage, ss.ArtifactHash)
		if err != nil {
			return err
		}
		meta, err := src.LoadArtifactMeta(sourceTaskID, stage, ss.ArtifactHash)
		if err != nil {
			return err
		}
		if _, err := dst.SaveArtifact(newTaskID, stage, content, meta.ContractID, meta.Lifecycle); err != nil {
			return err
		}
	}
	return nil
}

func copyTruncatedLog(src, dst *store.Store, sourceTaskID, newTaskID string, upToStep int) error {
	docs, err := src.ReadStepDocs(sourceTaskID)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		entry, err := decodeEntry(doc)
		if err != nil {
			return err
		}
		if upToStep > 0 && entry.Index() > upToStep {
			break
		}
		var rec store.Indexed
		if entry.Step != nil {
			cp := *entry.Step
			rec = &cp
		} else {
			cp := *entry.Event
			rec = &cp
		}
		if _, err := dst.AppendStep(newTaskID, rec); err != nil {
			return err
		}
	}
	return nil
}

// CompareResult is the outcome of Compare: the first timeline index at
// which the two tasks' histories diverge, plus a one-line description of
// each side at that point.
type CompareResult struct {
	Identical     bool
	DivergedAt    int
	BaselineStep  string
	CandidateStep string
}

// Compare re-aligns candidateTaskID's timeline against baselineTaskID's,
// per spec.md §4.11's third replay mode: "compare — re-runs a request and
// aligns the new log against the old." It reports the first point the two
// diverge (by terminal action, artifact hash, or verification outcome) so
// a reviewer can tell whether a re-run reproduced the original run or took
// a different path.
func Compare(s *store.Store, baselineTaskID, candidateTaskID string) (CompareResult, error) {
	baseline, err := timelineSummaries(s, baselineTaskID)
	if err != nil {
		return CompareResult{}, err
	}
	candidate, err := timelineSummaries(s, candidateTaskID)
	if err != nil {
		return CompareResult{}, err
	}

	n := len(baseline)
	if len(candidate) < n {
		n = len(candidate)
	}
	for i := 0; i < n; i++ {
		if baseline[i] != candidate[i] {
			return CompareResult{DivergedAt: i + 1, BaselineStep: baseline[i], CandidateStep: candidate[i]}, nil
		}
	}
	if len(baseline) != len(candidate) {
		return CompareResult{DivergedAt: n + 1, BaselineStep: stepOrEOF(baseline, n), CandidateStep: stepOrEOF(candidate, n)}, nil
	}
	return CompareResult{Identical: true}, nil
}

func stepOrEOF(steps []string, i int) string {
	if i >= len(steps) {
		return "(end of log)"
	}
	return steps[i]
}

func timelineSummaries(s *store.Store, taskID string) ([]string, error) {
	docs, err := s.ReadStepDocs(taskID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		entry, err := decodeEntry(doc)
		if err != nil {
			return nil, err
		}
		if entry.Step != nil {
			r := entry.Step
			out = append(out, fmt.Sprintf("%s|%s|%s|%s|%v", r.Stage, r.TerminalAction, r.ArtifactHash, joinNames(toolNames(r)), r.VerificationPassed))
		} else {
			e := entry.Event
			out = append(out, fmt.Sprintf("%s|%s|%s", e.EventKind, e.Stage, e.Outcome))
		}
	}
	return out, nil
}

func toolNames(r *executor.StepRecord) []string {
	names := make([]string, 0, len(r.ToolCalls))
	for _, c := range r.ToolCalls {
		names = append(names, c.Name)
	}
	return names
}
