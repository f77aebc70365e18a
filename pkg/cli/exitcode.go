package cli

import (
	"github.com/agentforge/agentforge/pkg/errorkind"
)

// Exit codes, per spec.md §6's table: "0 success; 1 violations remain;
// 2 configuration error; 3 runtime error; 4 required baseline/external
// missing."
const (
	ExitSuccess          = 0
	ExitViolationsRemain = 1
	ExitConfigurationErr = 2
	ExitRuntimeErr       = 3
	ExitMissingBaseline  = 4
)

// ExitCodeFor maps a command's terminal error to one of §6's exit codes.
// A nil error is success.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	kind, ok := errorkind.Of(err)
	if !ok {
		return ExitRuntimeErr
	}
	switch kind {
	case errorkind.ContractViolation, errorkind.VerificationFailure, errorkind.ReviewBlocking:
		return ExitViolationsRemain
	case errorkind.InvalidInput, errorkind.AlreadyExists:
		return ExitConfigurationErr
	case errorkind.StaleExternal:
		return ExitMissingBaseline
	default:
		return ExitRuntimeErr
	}
}
