package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

type taskStatus struct {
	TaskID       string   `json:"task_id"`
	GoalType     string   `json:"goal_type"`
	Template     string   `json:"template"`
	CurrentStage string   `json:"current_stage"`
	StageOrder   []string `json:"stage_order"`
	Extended     bool     `json:"extended"`
	Pending      int      `json:"pending_escalations"`
}

func (a *App) statusFor(taskID string) (*taskStatus, error) {
	task, err := a.Store.LoadTask(taskID)
	if err != nil {
		return nil, err
	}
	st, err := a.Store.LoadState(taskID)
	if err != nil {
		return nil, err
	}
	pending, err := a.Escalations.Pending(taskID)
	if err != nil {
		return nil, err
	}
	return &taskStatus{
		TaskID:       task.ID,
		GoalType:     task.GoalType,
		Template:     task.Template,
		CurrentStage: st.CurrentStage,
		StageOrder:   st.StageOrder,
		Extended:     st.Extended,
		Pending:      len(pending),
	}, nil
}

func newStatusCmd(flags *appFlags) *cobra.Command {
	var asJSON bool
	var watch bool
	cmd := &cobra.Command{
		Use:   "status [task_id]",
		Short: "Show task status, or every task's status if task_id is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			for {
				if err := printStatus(cmd, app, args, asJSON); err != nil {
					return err
				}
				if !watch {
					return nil
				}
				time.Sleep(2 * time.Second)
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "poll and reprint status every 2 seconds")
	return cmd
}

func printStatus(cmd *cobra.Command, app *App, args []string, asJSON bool) error {
	var ids []string
	if len(args) == 1 {
		ids = []string{args[0]}
	} else {
		all, err := app.Store.ListTasks()
		if err != nil {
			return err
		}
		sort.Strings(all)
		ids = all
	}

	statuses := make([]*taskStatus, 0, len(ids))
	for _, id := range ids {
		s, err := app.statusFor(id)
		if err != nil {
			return err
		}
		statuses = append(statuses, s)
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}
	for _, s := range statuses {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  pending=%d\n", s.TaskID, s.GoalType, s.CurrentStage, s.Pending)
	}
	return nil
}
