package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentforge/agentforge/pkg/errorkind"
	"github.com/agentforge/agentforge/pkg/pipeline"
)

func newStartCmd(flags *appFlags) *cobra.Command {
	var goalType string
	cmd := &cobra.Command{
		Use:   "start <request>",
		Short: "Launch a full pipeline (default template)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			task, err := app.CreateTask(goalType, args[0], "", "")
			if err != nil {
				return err
			}
			return runAndReport(cmd, app, task.ID)
		},
	}
	cmd.Flags().StringVar(&goalType, "goal-type", GoalFullPipeline, "goal type selecting the template")
	return cmd
}

func newDesignCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "design <request>",
		Short: "Run pipeline to specification exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			task, err := app.CreateTask(GoalDesign, args[0], "", StageSpecification)
			if err != nil {
				return err
			}
			return runAndReport(cmd, app, task.ID)
		},
	}
}

func newImplementCmd(flags *appFlags) *cobra.Command {
	var fromSpec, fromTask string
	cmd := &cobra.Command{
		Use:   "implement <request>",
		Short: "Implementation with optional external inputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromSpec != "" && fromTask != "" {
				return errorkind.New(errorkind.InvalidInput, "--from-spec and --from-task are mutually exclusive")
			}
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			var provided []string
			switch {
			case fromSpec != "":
				provided = append(provided, InputFromSpec)
			case fromTask != "":
				provided = append(provided, InputFromTask)
			}
			task, err := app.CreateTask(GoalImplementFeature, args[0], StageSpecification, "", provided...)
			if err != nil {
				return err
			}

			switch {
			case fromSpec != "":
				content, err := os.ReadFile(fromSpec)
				if err != nil {
					return errorkind.Wrap(errorkind.InvalidInput, "read "+fromSpec, err)
				}
				if _, err := app.AdmitExternalInput(task.ID, StageSpecification, content); err != nil {
					return err
				}
			case fromTask != "":
				content, err := app.ArtifactFromTask(fromTask, StageSpecification)
				if err != nil {
					return err
				}
				if _, err := app.AdmitExternalInput(task.ID, StageSpecification, content); err != nil {
					return err
				}
			}
			return runAndReport(cmd, app, task.ID)
		},
	}
	cmd.Flags().StringVar(&fromSpec, "from-spec", "", "path to an externally authored specification artifact")
	cmd.Flags().StringVar(&fromTask, "from-task", "", "task id to import a specification artifact from")
	return cmd
}

func newTestCmd(flags *appFlags) *cobra.Command {
	var specPath string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run test-authoring only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if specPath == "" {
				return errorkind.New(errorkind.InvalidInput, "--spec is required")
			}
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			task, err := app.CreateTask(GoalWriteTests, "write tests for "+specPath, StageTestAuthoring, StageTestAuthoring)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(specPath)
			if err != nil {
				return errorkind.Wrap(errorkind.InvalidInput, "read "+specPath, err)
			}
			if _, err := app.AdmitExternalInput(task.ID, StageTestAuthoring, content); err != nil {
				return err
			}
			return runAndReport(cmd, app, task.ID)
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "path to the specification artifact to author tests against")
	return cmd
}

func newFixCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fix <violation_id>",
		Short: "Run analyze→implement for a conformance violation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			task, err := app.CreateTask(GoalFixViolation, "fix "+args[0], StageAnalysis, StageImplementation)
			if err != nil {
				return err
			}
			return runAndReport(cmd, app, task.ID)
		},
	}
}

func newContinueCmd(flags *appFlags) *cobra.Command {
	var extendTo string
	var revise bool
	cmd := &cobra.Command{
		Use:   "continue <task_id>",
		Short: "Resume or extend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if extendTo != "" && revise {
				return errorkind.New(errorkind.InvalidInput, "--extend-to and --revise are mutually exclusive")
			}
			app, err := NewApp(flags.toConfig())
			if err != nil {
				return err
			}
			taskID := args[0]
			ctx := context.Background()
			switch {
			case extendTo != "":
				// Per the in-task-extension decision (DESIGN.md §Open
				// questions #2), extendTo names a follow-on pipeline
				// template whose remaining stages are appended to this
				// task, not a bare stage name.
				if _, err := app.Controller.Decide(ctx, taskID, pipeline.DecisionExtend, extendTo); err != nil {
					return err
				}
			case revise:
				if _, err := app.Controller.Decide(ctx, taskID, pipeline.DecisionRevise, ""); err != nil {
					return err
				}
			}
			return runAndReport(cmd, app, taskID)
		},
	}
	cmd.Flags().StringVar(&extendTo, "extend-to", "", "follow-on pipeline template id to extend the task with")
	cmd.Flags().BoolVar(&revise, "revise", false, "request another revision of the current iteration")
	return cmd
}

// runAndReport drives taskID to its next suspend point and prints a
// one-line status, in the tabular style `status` also uses.
func runAndReport(cmd *cobra.Command, app *App, taskID string) error {
	out, err := app.RunTask(context.Background(), taskID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatOutcome(taskID, out))
	return nil
}
