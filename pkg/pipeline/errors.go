package pipeline

import (
	"fmt"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

func errTemplateNotFound(id string) error {
	return errorkind.New(errorkind.NotFound, "pipeline template not found: "+id)
}

func errTemplateNotFoundForGoalType(goalType string) error {
	return errorkind.New(errorkind.NotFound, "no pipeline template declares goal type: "+goalType)
}

func errTemplateEmpty(id string) error {
	return errorkind.New(errorkind.InvalidInput, "pipeline template "+id+" has no stages")
}

func errStageNotInTemplate(templateID, stage string) error {
	return errorkind.New(errorkind.InvalidInput, fmt.Sprintf("template %q has no stage %q", templateID, stage))
}

func errEntryAfterExit(templateID, entry, exit string) error {
	return errorkind.New(errorkind.InvalidInput, fmt.Sprintf("template %q: entry point %q comes after exit point %q", templateID, entry, exit))
}

func errAllStagesSkipped(templateID, entry, exit string) error {
	return errorkind.New(errorkind.InvalidInput, fmt.Sprintf("template %q: every stage between %q and %q was skipped by a provided external input", templateID, entry, exit))
}
