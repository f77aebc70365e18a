package escalation

import "github.com/agentforge/agentforge/pkg/errorkind"

func errMissingTaskID() error {
	return errorkind.New(errorkind.InvalidInput, "escalation: task id is required")
}

func errMissingReason() error {
	return errorkind.New(errorkind.InvalidInput, "escalation: reason is required")
}

func errMissingStage() error {
	return errorkind.New(errorkind.InvalidInput, "escalation: stage is required")
}

func errMissingResolution() error {
	return errorkind.New(errorkind.InvalidInput, "escalation: resolution is required")
}
