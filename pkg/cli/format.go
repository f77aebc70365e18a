package cli

import (
	"fmt"

	"github.com/agentforge/agentforge/pkg/pipeline"
)

// formatOutcome renders a pipeline.Outcome as the one-line tabular status
// the CLI prints after every command that advances a task, per spec.md
// §6's "status ... JSON or tabular" (this is the tabular form; status
// --json below produces the structured one).
func formatOutcome(taskID string, out *pipeline.Outcome) string {
	switch out.Kind {
	case pipeline.OutcomeAwaitingReview:
		return fmt.Sprintf("%s  %s  awaiting_review", taskID, out.Stage)
	case pipeline.OutcomeAwaitingApproval:
		return fmt.Sprintf("%s  %s  awaiting_approval", taskID, out.Stage)
	case pipeline.OutcomeEscalated:
		return fmt.Sprintf("%s  %s  escalated  %s  %s", taskID, out.Stage, out.EscalationID, out.Reason)
	case pipeline.OutcomeAborted:
		return fmt.Sprintf("%s  %s  aborted  %v", taskID, out.Stage, out.Err)
	case pipeline.OutcomePaused:
		return fmt.Sprintf("%s  %s  paused", taskID, out.Stage)
	case pipeline.OutcomeCompleted:
		return fmt.Sprintf("%s  completed  %s", taskID, out.DeliverableHash)
	default:
		return fmt.Sprintf("%s  %s  %s", taskID, out.Stage, out.Kind)
	}
}
