package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/agentforge/agentforge/pkg/errorkind"
	"github.com/agentforge/agentforge/pkg/pipeline"
	"github.com/agentforge/agentforge/pkg/store"
)

// CreateTask resolves goalType to a registered template, computes the
// stage order for (entry, exit), and persists a new task, per spec.md
// §4.1's create_task(request, goal_type, template). entry/exit may be
// empty to select the template's first/last declared stage. providedInputs
// names the external input keys the caller intends to admit (see
// AdmitExternalInput) — any stage whose SkipIfInputPresent matches one of
// them is dropped from the order before the task is ever created, per
// spec.md §4.9's skip_if predicate.
func (a *App) CreateTask(goalType, request, entry, exit string, providedInputs ...string) (*store.Task, error) {
	tmpl, err := a.Templates.GetByGoalType(goalType)
	if err != nil {
		return nil, err
	}
	order, err := tmpl.StageOrder(entry, exit, providedInputs...)
	if err != nil {
		return nil, err
	}

	task := store.Task{
		ID:         "task-" + uuid.New().String(),
		Request:    request,
		GoalType:   goalType,
		Template:   tmpl.ID,
		EntryStage: order[0],
		ExitStage:  order[len(order)-1],
	}
	if err := a.Store.CreateTask(task, order); err != nil {
		return nil, err
	}
	return &task, nil
}

// AdmitExternalInput loads contractID for stageName from the agent bound
// to it, then hands content to the controller's AdmitExternalArtifact —
// the plumbing behind `implement --from-spec`/`--from-task`.
func (a *App) AdmitExternalInput(taskID, stageName string, content []byte) (string, error) {
	tmpl, err := a.templateForTask(taskID)
	if err != nil {
		return "", err
	}
	stTmpl, ok := tmpl.Stage(stageName)
	if !ok {
		return "", errorkind.New(errorkind.InvalidInput, fmt.Sprintf("template %s has no stage %q", tmpl.ID, stageName))
	}
	def, err := a.Agents.Get(stTmpl.AgentRole)
	if err != nil {
		return "", err
	}
	return a.Controller.AdmitExternalArtifact(taskID, stageName, content, def.OutputContractID)
}

// ArtifactFromTask reads taskID's current artifact for stageName, for
// `implement --from-task`.
func (a *App) ArtifactFromTask(taskID, stageName string) ([]byte, error) {
	st, err := a.Store.LoadState(taskID)
	if err != nil {
		return nil, err
	}
	ss, ok := st.Stages[stageName]
	if !ok || ss.ArtifactHash == "" {
		return nil, errorkind.New(errorkind.NotFound, fmt.Sprintf("task %s has no artifact for stage %q", taskID, stageName))
	}
	return a.Store.LoadArtifact(taskID, stageName, ss.ArtifactHash)
}

func (a *App) templateForTask(taskID string) (*pipeline.Template, error) {
	task, err := a.Store.LoadTask(taskID)
	if err != nil {
		return nil, err
	}
	return a.Templates.Get(task.Template)
}

// RunTask drives taskID forward to its next suspend point, per spec.md
// §5's resumption semantics — a thin pass-through kept here so command
// handlers need not reach into a.Controller directly.
func (a *App) RunTask(ctx context.Context, taskID string) (*pipeline.Outcome, error) {
	return a.Controller.Run(ctx, taskID)
}
