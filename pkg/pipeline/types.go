// Package pipeline implements AgentForge's Pipeline Controller (spec.md
// §4.9, C9): it orchestrates the ordered stages of one task — sequencing,
// external-artifact admission, the review loop, the iteration loop, and
// handoff between stages — by driving the Stage Executor (C8) one stage at
// a time and re-reading state fresh from C1 on every call, so a task can
// be suspended and resumed with no in-memory context. Grounded on tarsy's
// `pkg/queue/executor.go` `Execute` chain loop and `pkg/config/chain.go`'s
// ChainConfig/ChainRegistry, generalized from "fixed alert-response chain"
// to "templated pipeline with review/iteration/supervision."
package pipeline

import (
	"github.com/agentforge/agentforge/pkg/audit"
	"github.com/agentforge/agentforge/pkg/conformance"
	"github.com/agentforge/agentforge/pkg/contract"
	"github.com/agentforge/agentforge/pkg/executor"
	"github.com/agentforge/agentforge/pkg/registry"
	"github.com/agentforge/agentforge/pkg/stage"
	"github.com/agentforge/agentforge/pkg/store"
)

// ReviewerConfig names one reviewer role participating in a stage's review
// loop (spec.md §4.9: "If reviewer roles are configured, run the review
// loop"), plus whether its findings block advancement.
type ReviewerConfig struct {
	Role string
	Mode string // "blocking" | "advisory"
}

const (
	ReviewModeBlocking = "blocking"
	ReviewModeAdvisory = "advisory"
)

// StageTemplate is one stage of a pipeline template: which agent runs it,
// the goal/success-criteria/constraints text fed into its context (owned
// here, not by C6 — see executor.StepInput's doc comment), its reviewers,
// and its flexibility flags.
type StageTemplate struct {
	Name            string
	AgentRole       string
	GoalSentence    string
	SuccessCriteria []string
	Constraints     []string
	Reviewers       []ReviewerConfig

	// Iterable marks a stage whose artifact enters pending_review and
	// requires an explicit Decide call before the pipeline advances, per
	// spec.md §4.9's iteration loop.
	Iterable bool

	// MaxRevisions bounds iteration-loop "revise" rounds; 0 selects a
	// sane default.
	MaxRevisions int

	// MaxReviewRounds bounds review-loop re-submission rounds before the
	// controller escalates; 0 selects a sane default.
	MaxReviewRounds int

	// SkipIfInputPresent names a declared external input key. If the
	// caller supplied that input before the pipeline started (via
	// AdmitExternalArtifact), this stage is skipped entirely, per
	// spec.md §4.9's skip_if predicate.
	SkipIfInputPresent string
}

// Template is a named, ordered pipeline of stages — the templated
// analogue of tarsy's ChainConfig.
type Template struct {
	ID         string
	GoalTypes  []string
	Stages     []StageTemplate
}

// Stage returns the named stage's template, or false if undeclared.
func (t *Template) Stage(name string) (*StageTemplate, bool) {
	for i := range t.Stages {
		if t.Stages[i].Name == name {
			return &t.Stages[i], true
		}
	}
	return nil, false
}

// StageOrder computes the ordered stage-name list to execute for a task,
// honoring entry/exit-point choices per spec.md §4.9. Empty entry/exit
// select the template's first/last declared stage. providedInputs names
// the external input keys the caller has already admitted (or is about
// to), per spec.md §4.9's skip_if predicate: any stage in [entry, exit]
// whose SkipIfInputPresent matches one of providedInputs is dropped from
// the returned order entirely, rather than left for the controller to
// discover as skipped at run time.
func (t *Template) StageOrder(entry, exit string, providedInputs ...string) ([]string, error) {
	if len(t.Stages) == 0 {
		return nil, errTemplateEmpty(t.ID)
	}
	startIdx, endIdx := 0, len(t.Stages)-1
	if entry != "" {
		idx := t.indexOf(entry)
		if idx < 0 {
			return nil, errStageNotInTemplate(t.ID, entry)
		}
		startIdx = idx
	}
	if exit != "" {
		idx := t.indexOf(exit)
		if idx < 0 {
			return nil, errStageNotInTemplate(t.ID, exit)
		}
		endIdx = idx
	}
	if startIdx > endIdx {
		return nil, errEntryAfterExit(t.ID, entry, exit)
	}
	order := make([]string, 0, endIdx-startIdx+1)
	for i := startIdx; i <= endIdx; i++ {
		st := t.Stages[i]
		if st.SkipIfInputPresent != "" && containsString(providedInputs, st.SkipIfInputPresent) {
			continue
		}
		order = append(order, st.Name)
	}
	if len(order) == 0 {
		return nil, errAllStagesSkipped(t.ID, entry, exit)
	}
	return order, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func (t *Template) indexOf(name string) int {
	for i := range t.Stages {
		if t.Stages[i].Name == name {
			return i
		}
	}
	return -1
}

// Decision is a human (or supervising) response to a suspended pipeline,
// per spec.md §4.9's iteration loop: "approve | revise | reject | exit |
// extend."
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionRevise  Decision = "revise"
	DecisionReject  Decision = "reject"
	DecisionExit    Decision = "exit"
	DecisionExtend  Decision = "extend"
)

// OutcomeKind is Run/Decide/SupervisorDecide's result: what state the
// task is now in and what (if anything) the caller must do next.
type OutcomeKind string

const (
	// OutcomeAdvanced: the task moved forward (one or more stages
	// completed) and Run should be called again to continue — or the
	// task has no more stages to run without further input.
	OutcomeAdvanced OutcomeKind = "advanced"
	// OutcomeAwaitingReview: an iterable stage's artifact is validated
	// and waiting on Decide.
	OutcomeAwaitingReview OutcomeKind = "awaiting_review"
	// OutcomeAwaitingApproval: a supervised task's non-iterable stage is
	// validated and waiting on SupervisorDecide.
	OutcomeAwaitingApproval OutcomeKind = "awaiting_approval"
	// OutcomeEscalated: handed to C10; the task stays suspended until
	// the escalation resolves.
	OutcomeEscalated OutcomeKind = "escalated"
	// OutcomeAborted: an unrecoverable error aborted the running stage.
	OutcomeAborted OutcomeKind = "aborted"
	// OutcomePaused: cancellation was observed mid-stage; resumable.
	OutcomePaused OutcomeKind = "paused"
	// OutcomeCompleted: the pipeline reached its exit stage (or an
	// "exit" decision was taken) and a deliverable artifact exists.
	OutcomeCompleted OutcomeKind = "completed"
)

// Outcome is the controller's report of what happened during one call.
type Outcome struct {
	Kind            OutcomeKind
	Stage           string
	EscalationID    string
	Reason          string
	Err             error
	DeliverableHash string // set when Kind == OutcomeCompleted
}

const (
	defaultRevisionCap    = 5
	defaultReviewRoundCap = 3
)

func (st *StageTemplate) revisionCap() int {
	if st.MaxRevisions > 0 {
		return st.MaxRevisions
	}
	return defaultRevisionCap
}

func (st *StageTemplate) reviewRoundCap() int {
	if st.MaxReviewRounds > 0 {
		return st.MaxReviewRounds
	}
	return defaultReviewRoundCap
}

// Deps bundles every component the controller drives: C1 directly (for
// sequencing/admission bookkeeping the stage layer doesn't own), C7/C2 to
// resolve agents and contracts by id, and the C6 dependencies shared by
// every agent invocation this controller makes (primary and reviewer
// alike).
type Deps struct {
	Store     *store.Store
	Templates *Registry
	Agents    *registry.Registry
	Contracts *contract.Registry
	Executor  executor.Deps

	// Audit receives the pipeline-level half of C11's timeline (stage
	// transitions, review verdicts, user decisions, external-artifact
	// admission). May be nil — every call site is nil-safe — so existing
	// callers that don't care about the audit trail need not construct
	// one.
	Audit *audit.Log

	StepCap          int
	RevisionLimit    int // C8's contract-revision limit, distinct from a stage template's iteration-loop MaxRevisions
	ReviewRoundLimit int

	// ExitPredicate overrides C8's default phase-exit predicate
	// (conformance.AllLayersPass(LayerSyntax, LayerTests)) for every
	// stage this controller drives. Nil selects that default.
	ExitPredicate conformance.ExitPredicate
}

func (d Deps) stageDeps() stage.Deps {
	return stage.Deps{
		Executor:      d.Executor,
		Contracts:     d.Contracts,
		ExitPredicate: d.ExitPredicate,
		StepCap:       d.StepCap,
		RevisionLimit: d.RevisionLimit,
	}
}

func (d Deps) reviewRoundLimit(st *StageTemplate) int {
	if st.MaxReviewRounds > 0 {
		return st.MaxReviewRounds
	}
	if d.ReviewRoundLimit > 0 {
		return d.ReviewRoundLimit
	}
	return defaultReviewRoundCap
}

// Controller drives one task's pipeline, per spec.md §4.9.
type Controller struct {
	Deps Deps
}

// NewController constructs a Controller.
func NewController(deps Deps) *Controller {
	return &Controller{Deps: deps}
}

// reviewerOutput is the shape a reviewer's artifact is decoded into: the
// same fields store.ReviewVerdict persists, before the controller stamps
// on the reviewer's role and mode.
type reviewerOutput struct {
	Blocking []string `yaml:"blocking"`
	Advisory []string `yaml:"advisory"`
}
