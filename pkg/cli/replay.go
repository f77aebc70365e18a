package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentforge/agentforge/pkg/audit"
	"github.com/agentforge/agentforge/pkg/errorkind"
	"github.com/agentforge/agentforge/pkg/toolbridge"
)

func newReplayCmd(flags *appFlags) *cobra.Command {
	var actionsOnly bool
	cmd := &cobra.Command{
		Use:   "replay <task_id>",
		Short: "Replay a task's recorded edits, or print its full timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			taskID := args[0]

			if actionsOnly {
				results, err := audit.ActionReplay(cmd.Context(), app.Store, app.Bridge, toolbridge.Policy{}, taskID)
				if err != nil {
					return err
				}
				for _, r := range results {
					status := "ok"
					if r.IsError {
						status = "error"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", status, r.Content)
				}
				return nil
			}

			entries, err := app.Audit.Timeline(taskID)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%d  %s  %s  %s\n", e.Index(), e.Stage(), e.Agent(), e.Summary())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&actionsOnly, "actions-only", false, "replay only recorded edit_file tool calls against the repository")
	return cmd
}

func newForkCmd(flags *appFlags) *cobra.Command {
	var fromStep int
	cmd := &cobra.Command{
		Use:   "fork <task_id>",
		Short: "Fork a new task from an earlier step of an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromStep <= 0 {
				return errorkind.New(errorkind.InvalidInput, "--from-step is required and must be positive")
			}
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			sourceTaskID := args[0]
			newTaskID := "task-" + uuid.New().String()
			task, err := audit.Fork(audit.ForkInput{
				SourceStore: app.Store,
				DestStore:   app.Store,
				SourceTask:  sourceTaskID,
				NewTaskID:   newTaskID,
				UpToStep:    fromStep,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&fromStep, "from-step", 0, "step index to fork from")
	return cmd
}
