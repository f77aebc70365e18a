package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/pkg/audit"
	"github.com/agentforge/agentforge/pkg/conformance"
	"github.com/agentforge/agentforge/pkg/contract"
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

func completeResponse(content string) llmclient.ScriptedResponse {
	return llmclient.ScriptedResponse{Chunks: []llmclient.ScriptedChunk{
		{Type: "tool_call", Name: executor.ToolComplete, Arguments: `{"content":` + quoteYAML(content) + `}`},
	}}
}

// quoteYAML produces a JSON-quoted string (tool arguments are JSON) whose
// decoded content is itself valid YAML for the contract registry to
// parse.
func quoteYAML(s string) string {
	out := []byte{'"'}
	for _, r := range s {
		switch r {
		case '"':
			out = append(out, '\\', '"')
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, byte(r))
		}
	}
	out = append(out, '"')
	return string(out)
}

func contractsFixture() *contract.Registry {
	r := contract.NewRegistry()
	r.RegisterSpec(&contract.Spec{
		ID: "artifact",
		Schema: contract.SchemaNode{
			Type:     contract.TypeObject,
			Required: []string{"summary"},
			Properties: map[string]*contract.SchemaNode{
				"summary": {Type: contract.TypeString},
			},
		},
	})
	r.RegisterSpec(&contract.Spec{
		ID:     "review",
		Schema: contract.SchemaNode{Type: contract.TypeObject},
	})
	return r
}

func agentsFixture(t *testing.T, contracts *contract.Registry) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register(registry.AgentDefinition{
		Role: "drafter", OutputContractID: "artifact",
	}, contracts.Has))
	require.NoError(t, reg.Register(registry.AgentDefinition{
		Role: "polisher", OutputContractID: "artifact",
	}, contracts.Has))
	require.NoError(t, reg.Register(registry.AgentDefinition{
		Role: "reviewer", OutputContractID: "review",
	}, contracts.Has))
	return reg
}

func newController(t *testing.T, client *llmclient.Client, templates *Registry) (*Controller, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	reg := toolbridge.NewRegistry()
	bridge := toolbridge.New(reg, nil)
	gate := newTestGate(t)
	contracts := contractsFixture()
	agents := agentsFixture(t, contracts)

	c := NewController(Deps{
		Store:     s,
		Templates: templates,
		Agents:    agents,
		Contracts: contracts,
		Executor:  executor.Deps{Store: s, LLM: client, Bridge: bridge, ToolRegistry: reg, Gate: gate},
	})
	return c, s
}

func TestControllerRunsSequentialStagesToCompletion(t *testing.T) {
	tmpl := &Template{ID: "two-stage", Stages: []StageTemplate{
		{Name: "draft", AgentRole: "drafter", GoalSentence: "Write the draft."},
		{Name: "polish", AgentRole: "polisher", GoalSentence: "Polish the draft."},
	}}
	templates := NewRegistry()
	require.NoError(t, templates.Register(tmpl))

	client := scriptClient(t, []llmclient.ScriptedResponse{
		completeResponse("summary: draft body"),
		completeResponse("summary: polished body"),
	})
	c, s := newController(t, client, templates)

	require.NoError(t, s.CreateTask(store.Task{ID: "task-1", Template: "two-stage", EntryStage: "draft", ExitStage: "polish"}, []string{"draft", "polish"}))

	out, err := c.Run(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, out.Kind)

	st, err := s.LoadState("task-1")
	require.NoError(t, err)
	assert.Equal(t, "", st.CurrentStage)
	assert.Equal(t, store.StageStatusCompleted, st.Stages["draft"].Status)
	assert.Equal(t, store.StageStatusCompleted, st.Stages["polish"].Status)
}

func TestControllerIterableStageAwaitsDecisionThenCompletes(t *testing.T) {
	tmpl := &Template{ID: "single", Stages: []StageTemplate{
		{Name: "draft", AgentRole: "drafter", GoalSentence: "Write the draft.", Iterable: true},
	}}
	templates := NewRegistry()
	require.NoError(t, templates.Register(tmpl))

	client := scriptClient(t, []llmclient.ScriptedResponse{completeResponse("summary: draft body")})
	c, s := newController(t, client, templates)
	require.NoError(t, s.CreateTask(store.Task{ID: "task-1", Template: "single", EntryStage: "draft", ExitStage: "draft"}, []string{"draft"}))

	out, err := c.Run(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeAwaitingReview, out.Kind)

	decideOut, err := c.Decide(context.Background(), "task-1", DecisionApprove, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeAdvanced, decideOut.Kind)

	finalOut, err := c.Run(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, finalOut.Kind)
}

func TestControllerReviewLoopBlockingThenApproves(t *testing.T) {
	tmpl := &Template{ID: "reviewed", Stages: []StageTemplate{
		{Name: "draft", AgentRole: "drafter", GoalSentence: "Write the draft.",
			Reviewers: []ReviewerConfig{{Role: "reviewer", Mode: ReviewModeBlocking}}},
	}}
	templates := NewRegistry()
	require.NoError(t, templates.Register(tmpl))

	client := scriptClient(t, []llmclient.ScriptedResponse{
		completeResponse("summary: first draft"),             // primary, round 1
		completeResponse("blocking: [\"cite a source\"]"),     // reviewer, round 1: blocking
		completeResponse("summary: revised draft with cite"),  // primary, round 2 (revision)
		completeResponse("advisory: [\"minor wording nit\"]"), // reviewer, round 2: clean
	})
	c, s := newController(t, client, templates)
	require.NoError(t, s.CreateTask(store.Task{ID: "task-1", Template: "reviewed", EntryStage: "draft", ExitStage: "draft"}, []string{"draft"}))

	out, err := c.Run(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, out.Kind)

	st, err := s.LoadState("task-1")
	require.NoError(t, err)
	require.Len(t, st.Stages["draft"].ReviewVerdicts, 1)
	assert.Empty(t, st.Stages["draft"].ReviewVerdicts[0].Blocking)
	assert.Equal(t, 2, st.Stages["draft"].ArtifactVersion)
}

func TestControllerSupervisedCheckpoint(t *testing.T) {
	tmpl := &Template{ID: "single", Stages: []StageTemplate{
		{Name: "draft", AgentRole: "drafter", GoalSentence: "Write the draft."},
	}}
	templates := NewRegistry()
	require.NoError(t, templates.Register(tmpl))

	client := scriptClient(t, []llmclient.ScriptedResponse{completeResponse("summary: draft body")})
	c, s := newController(t, client, templates)
	require.NoError(t, s.CreateTask(store.Task{ID: "task-1", Template: "single", EntryStage: "draft", ExitStage: "draft", Supervised: true}, []string{"draft"}))

	out, err := c.Run(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeAwaitingApproval, out.Kind)

	decideOut, err := c.SupervisorDecide("task-1", true)
	require.NoError(t, err)
	require.Equal(t, OutcomeAdvanced, decideOut.Kind)

	finalOut, err := c.Run(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, finalOut.Kind)
}

func TestControllerReturnsEscalatedWhenPendingEscalationExists(t *testing.T) {
	tmpl := &Template{ID: "single", Stages: []StageTemplate{
		{Name: "draft", AgentRole: "drafter", GoalSentence: "Write the draft."},
	}}
	templates := NewRegistry()
	require.NoError(t, templates.Register(tmpl))

	client := scriptClient(t, nil)
	c, s := newController(t, client, templates)
	require.NoError(t, s.CreateTask(store.Task{ID: "task-1", Template: "single", EntryStage: "draft", ExitStage: "draft"}, []string{"draft"}))
	require.NoError(t, s.CreateEscalation(store.Escalation{ID: "esc-1", TaskID: "task-1", Stage: "draft", Reason: "needs a human"}))

	out, err := c.Run(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeEscalated, out.Kind)
	assert.Equal(t, "esc-1", out.EscalationID)
}

func TestControllerAdmitExternalArtifactSkipsStage(t *testing.T) {
	tmpl := &Template{ID: "two-stage", Stages: []StageTemplate{
		{Name: "draft", AgentRole: "drafter", GoalSentence: "Write the draft.", SkipIfInputPresent: "draft"},
		{Name: "polish", AgentRole: "polisher", GoalSentence: "Polish the draft."},
	}}
	templates := NewRegistry()
	require.NoError(t, templates.Register(tmpl))

	client := scriptClient(t, []llmclient.ScriptedResponse{completeResponse("summary: polished body")})
	c, s := newController(t, client, templates)
	require.NoError(t, s.CreateTask(store.Task{ID: "task-1", Template: "two-stage", EntryStage: "draft", ExitStage: "polish"}, []string{"draft", "polish"}))

	hash, err := c.AdmitExternalArtifact("task-1", "draft", []byte("summary: supplied externally"), "artifact")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	out, err := c.Run(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, out.Kind)

	st, err := s.LoadState("task-1")
	require.NoError(t, err)
	assert.Equal(t, store.StageStatusSkipped, st.Stages["draft"].Status)
	assert.Equal(t, hash, st.Stages["draft"].ValidationHash)
}

func TestControllerRecordsAuditTimelineWhenWired(t *testing.T) {
	tmpl := &Template{ID: "single", Stages: []StageTemplate{
		{Name: "draft", AgentRole: "drafter", GoalSentence: "Write the draft.", Iterable: true},
	}}
	templates := NewRegistry()
	require.NoError(t, templates.Register(tmpl))

	client := scriptClient(t, []llmclient.ScriptedResponse{completeResponse("summary: draft body")})
	c, s := newController(t, client, templates)
	c.Deps.Audit = audit.NewLog(s)
	require.NoError(t, s.CreateTask(store.Task{ID: "task-1", Template: "single", EntryStage: "draft", ExitStage: "draft"}, []string{"draft"}))

	out, err := c.Run(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeAwaitingReview, out.Kind)

	decideOut, err := c.Decide(context.Background(), "task-1", DecisionApprove, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeAdvanced, decideOut.Kind)

	finalOut, err := c.Run(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeCompleted, finalOut.Kind)

	timeline, err := c.Deps.Audit.Timeline("task-1")
	require.NoError(t, err)

	var kinds []audit.EventKind
	for _, e := range timeline {
		if e.Event != nil {
			kinds = append(kinds, e.Event.EventKind)
		}
	}
	assert.Contains(t, kinds, audit.EventIterationPresented)
	assert.Contains(t, kinds, audit.EventUserDecision)
	assert.Contains(t, kinds, audit.EventStageTransition)
	assert.Contains(t, kinds, audit.EventPipelineExit)
}
