// Package executor implements AgentForge's Minimal-Context Executor
// (spec.md §4.6, C6): the single-step loop that builds a fresh context,
// calls the LLM exactly once, dispatches any resulting tool calls, runs
// conformance on edits, and persists the step atomically. It never loops
// internally — the stage executor (C8) calls RunStep repeatedly until a
// terminal outcome comes back, grounded on tarsy's IteratingController,
// generalized from "loop until final answer" down to "run exactly one
// iteration and report what happened."
package executor

import (
	"time"

	"github.com/agentforge/agentforge/pkg/conformance"
	"github.com/agentforge/agentforge/pkg/llmclient"
	"github.com/agentforge/agentforge/pkg/store"
	"github.com/agentforge/agentforge/pkg/toolbridge"
)

// Terminal tool names an agent may call in place of (or alongside) a
// regular tool call, per spec.md §4.4's tool list and §4.6's step 4:
// "parse response into zero-or-more tool calls plus optional terminal
// action (complete, escalate, cannot_fix)."
const (
	ToolComplete  = "complete"
	ToolEscalate  = "escalate"
	ToolCannotFix = "cannot_fix"
)

func isTerminal(name string) bool {
	return name == ToolComplete || name == ToolEscalate || name == ToolCannotFix
}

// ToolCallRecord is one dispatched call and its outcome, persisted inside a
// StepRecord for audit/replay.
type ToolCallRecord struct {
	CallID  string `yaml:"call_id"`
	Name    string `yaml:"name"`
	Args    string `yaml:"arguments,omitempty"`
	Content string `yaml:"content"`
	IsError bool   `yaml:"is_error"`
}

// StepRecord is the unit appended to actions.log by step 7 of the executor
// contract. Its concrete shape belongs here (not to package store, which
// only knows about store.Indexed) and is reused by package audit to
// decode and replay a task's history.
type StepRecord struct {
	SchemaVersion      int              `yaml:"schema_version"`
	Index              int                  `yaml:"step_index"`
	TaskID             string               `yaml:"task_id"`
	Stage              string               `yaml:"stage"`
	AgentRole          string               `yaml:"agent_role"`
	Iteration          int                  `yaml:"iteration"`
	Timestamp          time.Time            `yaml:"timestamp"`
	Thinking           string               `yaml:"thinking,omitempty"`
	ToolCalls          []ToolCallRecord     `yaml:"tool_calls,omitempty"`
	TerminalAction     string               `yaml:"terminal_action,omitempty"`
	TerminalReason     string               `yaml:"terminal_reason,omitempty"`
	VerificationPassed bool                 `yaml:"verification_passed"`
	FailingLayers      []string             `yaml:"failing_layers,omitempty"`
	Usage              llmclient.UsageChunk `yaml:"usage"`
	ArtifactHash       string               `yaml:"artifact_hash,omitempty"`
	Paused             bool                 `yaml:"paused,omitempty"`
}

// SetIndex implements store.Indexed.
func (r *StepRecord) SetIndex(idx int) { r.Index = idx }

const stepRecordSchemaVersion = 1

// OutcomeKind is the step outcome enum spec.md §4.6 defines, plus Paused
// for the clean-cancellation exit path the same section describes
// separately from the error path.
type OutcomeKind string

const (
	OutcomeContinue      OutcomeKind = "continue"
	OutcomeStageComplete OutcomeKind = "stage_complete"
	OutcomeEscalate      OutcomeKind = "escalate"
	OutcomeAborted       OutcomeKind = "aborted"
	OutcomePaused        OutcomeKind = "paused"
)

// Outcome is RunStep's return value: exactly one of the fields relevant to
// Kind is populated.
type Outcome struct {
	Kind         OutcomeKind
	ArtifactHash string              // set when Kind == OutcomeStageComplete
	Bundle       *conformance.Bundle // set when Kind == OutcomeStageComplete and this step ran C3
	Reason       string              // set when Kind == OutcomeEscalate
	Err          error               // set when Kind == OutcomeAborted
	Record       *StepRecord
}

// CancelSignal is polled between the LLM call and tool dispatch, and again
// before the atomic persist, per spec.md §4.6's cancellation contract. A
// nil signal means "never cancelled."
type CancelSignal <-chan struct{}

func cancelled(sig CancelSignal) bool {
	if sig == nil {
		return false
	}
	select {
	case <-sig:
		return true
	default:
		return false
	}
}

// Deps bundles the other components a step needs: C1 (Store), C12
// (LLM), C4 (tool dispatch plus the registry it wraps, so tool schemas can
// be assembled for the LLM call), and C3 (conformance).
type Deps struct {
	Store        *store.Store
	LLM          *llmclient.Client
	Bridge       *toolbridge.Bridge
	ToolRegistry *toolbridge.Registry
	Gate         *conformance.Gate

	LLMTimeout  time.Duration // per spec.md §4.6: "configurable per-step LLM timeout"
	ToolTimeout time.Duration // per spec.md §4.6: "configurable per-tool timeout"
}

const (
	defaultLLMTimeout  = 90 * time.Second
	defaultToolTimeout = 30 * time.Second
)

func (d Deps) llmTimeout() time.Duration {
	if d.LLMTimeout > 0 {
		return d.LLMTimeout
	}
	return defaultLLMTimeout
}

func (d Deps) toolTimeout() time.Duration {
	if d.ToolTimeout > 0 {
		return d.ToolTimeout
	}
	return defaultToolTimeout
}
