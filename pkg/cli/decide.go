package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentforge/agentforge/pkg/pipeline"
)

func newFeedbackCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <task_id> <text>",
		Short: "Request another revision with feedback text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			if _, err := app.Controller.Decide(context.Background(), args[0], pipeline.DecisionRevise, args[1]); err != nil {
				return err
			}
			return runAndReport(cmd, app, args[0])
		},
	}
}

func newApproveCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <task_id>",
		Short: "Approve the current iteration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			out, err := app.Controller.Decide(context.Background(), args[0], pipeline.DecisionApprove, "")
			if err != nil {
				return err
			}
			if out.Kind == pipeline.OutcomeAwaitingApproval {
				cmd.Println(formatOutcome(args[0], out))
				return nil
			}
			return runAndReport(cmd, app, args[0])
		},
	}
}

func newRejectCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <task_id>",
		Short: "Reject the current iteration, returning to the previous stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			if _, err := app.Controller.Decide(context.Background(), args[0], pipeline.DecisionReject, ""); err != nil {
				return err
			}
			return runAndReport(cmd, app, args[0])
		},
	}
}
