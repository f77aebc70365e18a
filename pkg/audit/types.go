// Package audit implements AgentForge's Audit Log (spec.md §4.11, C11): a
// unified, append-only timeline of everything that happened to a task —
// both the per-step records the executor (C6) already appends to
// actions.log and the pipeline-level events the controller (C9) and
// escalation manager (C10) raise around them (a stage changing status, an
// iteration being presented for review, a human decision landing, an
// external artifact being admitted). Both record kinds share one task's
// actions.log stream; Log tells them apart on read by the presence of an
// event_kind field the step record never sets, grounded on the way
// tarsy's ent/schema/timelineevent.go layers a handful of categories
// (llm_thinking, llm_tool_call, user_question, ...) over one append-only
// per-session timeline rather than keeping a table per category.
package audit

import (
	"time"

	"github.com/agentforge/agentforge/pkg/executor"
)

// EventKind is the pipeline-level half of the timeline taxonomy — the
// other half is executor.StepRecord, which already covers every
// LLM/tool-call-shaped event.
type EventKind string

const (
	// EventStageTransition: a stage's StageStatus changed.
	EventStageTransition EventKind = "stage_transition"
	// EventIterationPresented: a stage iteration's artifact was handed to a
	// reviewer or a human for a decision.
	EventIterationPresented EventKind = "iteration_presented"
	// EventUserDecision: a human resolved a suspended stage via Decide.
	EventUserDecision EventKind = "user_decision"
	// EventExternalArtifactImported: AdmitExternalArtifact/ImportArtifact
	// accepted a user-supplied artifact in place of an agent-produced one.
	EventExternalArtifactImported EventKind = "external_artifact_imported"
	// EventReviewVerdict: a reviewer agent or blocking gate recorded a
	// verdict on a stage's artifact.
	EventReviewVerdict EventKind = "review_verdict"
	// EventPipelineExit: the pipeline controller returned a terminal
	// Outcome for the task (completed, escalated, or aborted).
	EventPipelineExit EventKind = "pipeline_exit"
)

// Event is one pipeline-level timeline entry. Its concrete shape lives here
// rather than in package store, for the same reason executor.StepRecord
// does: store only knows about the Indexed interface.
type Event struct {
	SchemaVersion int       `yaml:"schema_version"`
	Index         int       `yaml:"step_index"`
	EventKind     EventKind `yaml:"event_kind"`
	TaskID        string    `yaml:"task_id"`
	Stage         string    `yaml:"stage,omitempty"`
	Agent         string    `yaml:"agent,omitempty"`
	Actor         string    `yaml:"actor,omitempty"` // "system" | "human"
	Timestamp     time.Time `yaml:"timestamp"`
	Detail        string    `yaml:"detail,omitempty"`
	ArtifactHash  string    `yaml:"artifact_hash,omitempty"`
	EscalationID  string    `yaml:"escalation_id,omitempty"`
	Outcome       string    `yaml:"outcome,omitempty"`
}

// SetIndex implements store.Indexed.
func (e *Event) SetIndex(idx int) { e.Index = idx }

const eventSchemaVersion = 1

// envelope is decoded first for every raw actions.log document to tell a
// pipeline Event apart from an executor.StepRecord without committing to
// either type.
type envelope struct {
	EventKind EventKind `yaml:"event_kind"`
}

// Entry is one timeline item as returned by Log.Timeline/StageTimeline/
// AgentTimeline: exactly one of Step or Event is set.
type Entry struct {
	Step  *executor.StepRecord
	Event *Event
}

// Index returns the entry's position in the task's actions.log.
func (e Entry) Index() int {
	if e.Step != nil {
		return e.Step.Index
	}
	return e.Event.Index
}

// Stage returns the entry's stage, if it has one.
func (e Entry) Stage() string {
	if e.Step != nil {
		return e.Step.Stage
	}
	return e.Event.Stage
}

// Agent returns the acting agent role, if the entry names one.
func (e Entry) Agent() string {
	if e.Step != nil {
		return e.Step.AgentRole
	}
	return e.Event.Agent
}

// Timestamp returns the entry's wall-clock time.
func (e Entry) Timestamp() time.Time {
	if e.Step != nil {
		return e.Step.Timestamp
	}
	return e.Event.Timestamp
}

// Summary renders a one-line human-readable description of the entry, for
// CLI timeline views.
func (e Entry) Summary() string {
	if e.Event != nil {
		if e.Event.Detail != "" {
			return string(e.Event.EventKind) + ": " + e.Event.Detail
		}
		return string(e.Event.EventKind)
	}
	r := e.Step
	if r.TerminalAction != "" {
		return r.TerminalAction + ": " + r.TerminalReason
	}
	if len(r.ToolCalls) == 0 {
		return "no tool calls"
	}
	names := make([]string, 0, len(r.ToolCalls))
	for _, c := range r.ToolCalls {
		names = append(names, c.Name)
	}
	return "called " + joinNames(names)
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
