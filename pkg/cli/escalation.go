package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

// findEscalationOwner scans every task's pending escalations for escID,
// since spec.md §6's `resolve <escalation_id>` takes only the escalation
// id — escalation ids are globally unique (minted as "esc-"+uuid) but the
// store indexes escalations per task, so resolving by id alone means
// searching.
func (a *App) findEscalationOwner(escID string) (string, error) {
	taskIDs, err := a.Store.ListTasks()
	if err != nil {
		return "", err
	}
	for _, taskID := range taskIDs {
		pending, err := a.Escalations.Pending(taskID)
		if err != nil {
			return "", err
		}
		for _, esc := range pending {
			if esc.ID == escID {
				return taskID, nil
			}
		}
	}
	return "", errorkind.New(errorkind.NotFound, "no pending escalation "+escID)
}

func newResolveCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <escalation_id> <text>",
		Short: "Resolve a pending escalation with human-provided text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			escID, resolution := args[0], args[1]
			taskID, err := app.findEscalationOwner(escID)
			if err != nil {
				return err
			}
			if _, err := app.Escalations.Resolve(cmd.Context(), taskID, escID, resolution); err != nil {
				return err
			}
			return runAndReport(cmd, app, taskID)
		},
	}
}
