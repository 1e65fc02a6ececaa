package system

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/routinely/internal/cli"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

type DebugCmd struct {
	DBPath        *DebugDBPathCmd        `cmd:"" help:"Show database path."`
	DumpRoutine   *DebugDumpRoutineCmd   `cmd:"" help:"Dump a routine with its tasks and conditions as JSON."`
	DumpTask      *DebugDumpTaskCmd      `cmd:"" help:"Dump a task and its current period state as JSON."`
	DumpCondition *DebugDumpConditionCmd `cmd:"" help:"Dump a condition as JSON."`
	DumpOverride  *DebugDumpOverrideCmd  `cmd:"" help:"Dump the stored override of a routine as JSON."`
	DumpSettings  *DebugDumpSettingsCmd  `cmd:"" help:"Dump settings data as JSON."`
}

func printJSON(ctx *cli.Context, what string, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", what, err)
	}
	ctx.Println(string(jsonBytes))
	return nil
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON(ctx, "output", map[string]string{
		"path": maskPassword(ctx.Store.GetConfigPath()),
	})
}

type DebugDumpRoutineCmd struct {
	Routine string `arg:"" help:"Routine ID or name."`
}

type routineDump struct {
	Routine    models.Routine     `json:"routine"`
	Tasks      []models.Task      `json:"tasks"`
	Conditions []models.Condition `json:"conditions"`
}

func (cmd *DebugDumpRoutineCmd) Run(ctx *cli.Context) error {
	r, err := ctx.ResolveRoutine(cmd.Routine)
	if err != nil {
		return err
	}
	tasks, err := ctx.Store.ListTasks(ctx.Context(), r.ID)
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}
	conds, err := ctx.Store.ListConditions(ctx.Context(), r.ID)
	if err != nil {
		return fmt.Errorf("failed to get conditions: %w", err)
	}
	return printJSON(ctx, "routine", routineDump{Routine: r, Tasks: tasks, Conditions: conds})
}

type DebugDumpTaskCmd struct {
	ID string `arg:"" help:"ID of the task to dump."`
}

type taskDump struct {
	Task  models.Task      `json:"task"`
	State models.TaskState `json:"state"`
}

func (cmd *DebugDumpTaskCmd) Run(ctx *cli.Context) error {
	task, err := ctx.Store.GetTask(ctx.Context(), cmd.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return fmt.Errorf("task not found: %s", cmd.ID)
		}
		return fmt.Errorf("failed to get task: %w", err)
	}
	now, periodStart, err := ctx.Period()
	if err != nil {
		return err
	}
	state, err := ctx.Store.GetTaskState(ctx.Context(), task.ID, periodStart, now)
	if err != nil {
		return fmt.Errorf("failed to get task state: %w", err)
	}
	return printJSON(ctx, "task", taskDump{Task: task, State: state})
}

type DebugDumpConditionCmd struct {
	ID string `arg:"" help:"ID of the condition to dump."`
}

func (cmd *DebugDumpConditionCmd) Run(ctx *cli.Context) error {
	cond, err := ctx.Store.GetCondition(ctx.Context(), cmd.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return fmt.Errorf("condition not found: %s", cmd.ID)
		}
		return fmt.Errorf("failed to get condition: %w", err)
	}
	return printJSON(ctx, "condition", cond)
}

type DebugDumpOverrideCmd struct {
	Routine string `arg:"" help:"Routine ID or name."`
}

// Run prints the stored row even when it has already expired.
func (cmd *DebugDumpOverrideCmd) Run(ctx *cli.Context) error {
	r, err := ctx.ResolveRoutine(cmd.Routine)
	if err != nil {
		return err
	}
	o, err := ctx.Store.GetOverride(ctx.Context(), r.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return fmt.Errorf("no override stored for %s", r.Name)
		}
		return fmt.Errorf("failed to get override: %w", err)
	}
	return printJSON(ctx, "override", o)
}

type DebugDumpSettingsCmd struct{}

func (cmd *DebugDumpSettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	return printJSON(ctx, "settings", settings)
}
