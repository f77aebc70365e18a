// Package errorkind classifies the failures AgentForge's components return.
//
// Component boundaries never panic or raise on recoverable conditions — they
// return a typed *Error carrying one of the Kind values below plus a wrapped
// cause. Only genuinely unrecoverable integrity errors are fatal; everything
// else is routed through contract validation, reviewer approval, or
// escalation (see spec.md §7).
package errorkind

import (
	"errors"
	"fmt"
)

// Kind identifies the category of an AgentForge failure.
type Kind string

const (
	// ContractViolation: C2 rejected an artifact.
	ContractViolation Kind = "contract_violation"
	// ToolPolicyViolation: C4 rejected a disallowed tool or out-of-constraint path.
	ToolPolicyViolation Kind = "tool_policy_violation"
	// VerificationFailure: a C3 conformance layer failed.
	VerificationFailure Kind = "verification_failure"
	// LLMFailure: C12 returned an error or timed out.
	LLMFailure Kind = "llm_failure"
	// ReviewBlocking: a blocking reviewer raised issues.
	ReviewBlocking Kind = "review_blocking"
	// StepBudgetExhausted: C8's per-stage step cap was exceeded.
	StepBudgetExhausted Kind = "step_budget_exhausted"
	// StateCorrupted: C1 detected unrecoverable on-disk corruption.
	StateCorrupted Kind = "state_corrupted"
	// Cancelled: an explicit cancellation signal was observed.
	Cancelled Kind = "cancelled"
	// StaleExternal: an imported artifact's recorded codebase hash no longer
	// matches the current codebase (pipeline composition, spec.md §4.9).
	StaleExternal Kind = "stale_external"
	// NotFound: a requested task/stage/artifact/escalation does not exist.
	NotFound Kind = "not_found"
	// AlreadyExists: a create operation collided with an existing id.
	AlreadyExists Kind = "already_exists"
	// InvalidInput: caller-supplied input failed basic shape validation.
	InvalidInput Kind = "invalid_input"
)

// Error wraps a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, errorkind.New(errorkind.NotFound, "")).
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Kind == e.Kind
	}
	return false
}

// New constructs an *Error with no wrapped cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error wrapping cause.
func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Of returns the Kind of err if it is (or wraps) an *Error, and ok=true.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}
