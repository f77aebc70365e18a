package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/pkg/conformance"
	"github.com/agentforge/agentforge/pkg/contract"
	"github.com/agentforge/agentforge/pkg/errorkind"
	"github.com/agentforge/agentforge/pkg/executor"
	"github.com/agentforge/agentforge/pkg/llmclient"
	"github.com/agentforge/agentforge/pkg/registry"
	"github.com/agentforge/agentforge/pkg/store"
	"github.com/agentforge/agentforge/pkg/toolbridge"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.CreateTask(store.Task{ID: "task-1", EntryStage: "fix"}, []string{"fix"}))
	return s
}

func newTestGate(t *testing.T) *conformance.Gate {
	t.Helper()
	cache, err := conformance.NewCache(t.TempDir())
	require.NoError(t, err)
	gate := conformance.NewGate(cache)
	gate.Register(&conformance.RuleSetChecker{LayerName: string(conformance.LayerSyntax)})
	return gate
}

func scriptClient(t *testing.T, responses []llmclient.ScriptedResponse) *llmclient.Client {
	t.Helper()
	c, err := llmclient.New(llmclient.Config{Mode: llmclient.ModeSimulated, Script: &llmclient.Script{Responses: responses}})
	require.NoError(t, err)
	return c
}

func noopBridge(t *testing.T) (*toolbridge.Registry, *toolbridge.Bridge) {
	t.Helper()
	reg := toolbridge.NewRegistry()
	return reg, toolbridge.New(reg, nil)
}

func fixContract() *contract.Registry {
	r := contract.NewRegistry()
	r.RegisterSpec(&contract.Spec{
		ID: "fix-report",
		Schema: contract.SchemaNode{
			Type:     contract.TypeObject,
			Required: []string{"summary"},
			Properties: map[string]*contract.SchemaNode{
				"summary": {Type: contract.TypeString},
			},
		},
	})
	return r
}

func baseInput() executor.StepInput {
	return executor.StepInput{
		TaskID: "task-1",
		Stage:  "fix",
		Instance: registry.Instance{
			Definition: registry.AgentDefinition{
				Role:             "fixer",
				AllowedTools:     []string{"edit_file"},
				OutputContractID: "fix-report",
			},
			SystemPrompt: "You fix conformance violations.",
		},
		Policy:          toolbridge.Policy{Allowed: []string{"edit_file"}},
		GoalSentence:    "Fix the violation.",
		SuccessCriteria: []string{"style layer passes"},
	}
}

func TestRunStageApprovesValidArtifact(t *testing.T) {
	s := newTestStore(t)
	reg, bridge := noopBridge(t)
	gate := newTestGate(t)
	client := scriptClient(t, []llmclient.ScriptedResponse{
		{Chunks: []llmclient.ScriptedChunk{
			{Type: "tool_call", Name: executor.ToolComplete, Arguments: `{"content":"summary: fixed it"}`},
		}},
	})

	deps := Deps{
		Executor:  executor.Deps{Store: s, LLM: client, Bridge: bridge, ToolRegistry: reg, Gate: gate},
		Contracts: fixContract(),
	}
	out, err := RunStage(context.Background(), deps, baseInput())
	require.NoError(t, err)
	require.Equal(t, OutcomeApproved, out.Kind)
	assert.NotEmpty(t, out.ArtifactHash)
	assert.True(t, out.ValidationResult.Passed)
	assert.Equal(t, 1, out.Steps)
	assert.Equal(t, 0, out.Revisions)

	st, err := s.LoadState("task-1")
	require.NoError(t, err)
	assert.Equal(t, store.StageStatusReviewing, st.Stages["fix"].Status)
}

func TestRunStageRevisesOnContractFailureThenApproves(t *testing.T) {
	s := newTestStore(t)
	reg, bridge := noopBridge(t)
	gate := newTestGate(t)
	client := scriptClient(t, []llmclient.ScriptedResponse{
		// Missing required "summary" field: fails contract validation.
		{Chunks: []llmclient.ScriptedChunk{{Type: "tool_call", Name: executor.ToolComplete, Arguments: `{"content":"no summary field"}`}}},
		{Chunks: []llmclient.ScriptedChunk{{Type: "tool_call", Name: executor.ToolComplete, Arguments: `{"content":"summary: now it passes"}`}}},
	})

	deps := Deps{
		Executor:      executor.Deps{Store: s, LLM: client, Bridge: bridge, ToolRegistry: reg, Gate: gate},
		Contracts:     fixContract(),
		RevisionLimit: 3,
	}
	out, err := RunStage(context.Background(), deps, baseInput())
	require.NoError(t, err)
	require.Equal(t, OutcomeApproved, out.Kind)
	assert.Equal(t, 2, out.Steps)
	assert.Equal(t, 1, out.Revisions)
}

func TestRunStageEscalatesAfterRevisionLimitExhausted(t *testing.T) {
	s := newTestStore(t)
	reg, bridge := noopBridge(t)
	gate := newTestGate(t)

	// Every attempt is missing the required field, so validation keeps failing.
	responses := make([]llmclient.ScriptedResponse, 0, 3)
	for i := 0; i < 3; i++ {
		responses = append(responses, llmclient.ScriptedResponse{
			Chunks: []llmclient.ScriptedChunk{{Type: "tool_call", Name: executor.ToolComplete, Arguments: `{"content":"never a summary"}`}},
		})
	}
	client := scriptClient(t, responses)

	deps := Deps{
		Executor:      executor.Deps{Store: s, LLM: client, Bridge: bridge, ToolRegistry: reg, Gate: gate},
		Contracts:     fixContract(),
		RevisionLimit: 2,
	}
	out, err := RunStage(context.Background(), deps, baseInput())
	require.NoError(t, err)
	require.Equal(t, OutcomeEscalated, out.Kind)
	assert.NotEmpty(t, out.EscalationID)
	assert.Equal(t, 3, out.Revisions)

	pending, err := s.PendingEscalations("task-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "fix", pending[0].Stage)

	st, err := s.LoadState("task-1")
	require.NoError(t, err)
	assert.Equal(t, store.StageStatusEscalated, st.Stages["fix"].Status)
}

func TestRunStageEscalatesOnAgentEscalateCall(t *testing.T) {
	s := newTestStore(t)
	reg, bridge := noopBridge(t)
	gate := newTestGate(t)
	client := scriptClient(t, []llmclient.ScriptedResponse{
		{Chunks: []llmclient.ScriptedChunk{{Type: "tool_call", Name: executor.ToolEscalate, Arguments: `{"reason":"ambiguous requirements"}`}}},
	})

	deps := Deps{
		Executor:  executor.Deps{Store: s, LLM: client, Bridge: bridge, ToolRegistry: reg, Gate: gate},
		Contracts: fixContract(),
	}
	out, err := RunStage(context.Background(), deps, baseInput())
	require.NoError(t, err)
	require.Equal(t, OutcomeEscalated, out.Kind)
	assert.Equal(t, "ambiguous requirements", out.Reason)

	pending, err := s.PendingEscalations("task-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ambiguous requirements", pending[0].Reason)
}

func TestRunStageEscalatesOnStepBudgetExhausted(t *testing.T) {
	s := newTestStore(t)
	reg, bridge := noopBridge(t)
	gate := newTestGate(t)

	responses := make([]llmclient.ScriptedResponse, 0, 2)
	for i := 0; i < 2; i++ {
		responses = append(responses, llmclient.ScriptedResponse{
			Chunks: []llmclient.ScriptedChunk{{Type: "thinking", Content: "still working"}},
		})
	}
	client := scriptClient(t, responses)

	deps := Deps{
		Executor:  executor.Deps{Store: s, LLM: client, Bridge: bridge, ToolRegistry: reg, Gate: gate},
		Contracts: fixContract(),
		StepCap:   2,
	}
	out, err := RunStage(context.Background(), deps, baseInput())
	require.NoError(t, err)
	require.Equal(t, OutcomeEscalated, out.Kind)
	require.Error(t, out.Err)
	assert.True(t, errorkind.Is(out.Err, errorkind.StepBudgetExhausted))
	assert.Equal(t, 2, out.Steps)
}

func TestRunStagePausesOnCancellation(t *testing.T) {
	s := newTestStore(t)
	reg, bridge := noopBridge(t)
	gate := newTestGate(t)
	client := scriptClient(t, []llmclient.ScriptedResponse{
		{Chunks: []llmclient.ScriptedChunk{{Type: "tool_call", Name: executor.ToolComplete, Arguments: `{"content":"summary: x"}`}}},
	})

	cancelCh := make(chan struct{})
	close(cancelCh)

	in := baseInput()
	in.Cancel = executor.NewCancelSignal(cancelCh)

	deps := Deps{
		Executor:  executor.Deps{Store: s, LLM: client, Bridge: bridge, ToolRegistry: reg, Gate: gate},
		Contracts: fixContract(),
	}
	out, err := RunStage(context.Background(), deps, in)
	require.NoError(t, err)
	require.Equal(t, OutcomePaused, out.Kind)
	assert.Equal(t, 1, out.Steps)
}

func TestRunStageAbortsOnLLMError(t *testing.T) {
	s := newTestStore(t)
	reg, bridge := noopBridge(t)
	gate := newTestGate(t)
	client := scriptClient(t, []llmclient.ScriptedResponse{
		{Chunks: []llmclient.ScriptedChunk{{Type: "error", Message: "provider unavailable"}}},
	})

	deps := Deps{
		Executor:  executor.Deps{Store: s, LLM: client, Bridge: bridge, ToolRegistry: reg, Gate: gate},
		Contracts: fixContract(),
	}
	out, err := RunStage(context.Background(), deps, baseInput())
	require.NoError(t, err)
	require.Equal(t, OutcomeAborted, out.Kind)
	require.Error(t, out.Err)
}
