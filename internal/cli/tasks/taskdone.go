package tasks

import (
	"fmt"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

type TaskDoneCmd struct {
	Task    string `arg:"" help:"Task ID or name."`
	Routine string `help:"Routine ID or name to disambiguate the task name."`
	Day     string `help:"Day of the completion (YYYY-MM-DD). Defaults to today."`
}

// completionDay returns day, or today in the configured timezone.
func completionDay(ctx *cli.Context, day string) (string, error) {
	now, err := ctx.Now()
	if err != nil {
		return "", err
	}
	if day == "" {
		return now.Format(constants.DateFormat), nil
	}
	d, err := utils.ParseDateInLocation(day, now.Location())
	if err != nil {
		return "", fmt.Errorf("invalid day %q: %w", day, err)
	}
	return d.Format(constants.DateFormat), nil
}

func resolveTask(ctx *cli.Context, ref, routineRef string) (models.Task, error) {
	routineID := ""
	if routineRef != "" {
		r, err := ctx.ResolveRoutine(routineRef)
		if err != nil {
			return models.Task{}, err
		}
		routineID = r.ID
	}
	return ctx.ResolveTask(ref, routineID)
}

func (c *TaskDoneCmd) Run(ctx *cli.Context) error {
	task, err := resolveTask(ctx, c.Task, c.Routine)
	if err != nil {
		return err
	}
	day, err := completionDay(ctx, c.Day)
	if err != nil {
		return err
	}

	comp := models.TaskCompletion{
		ID:     cli.NewID(),
		TaskID: task.ID,
		Day:    day,
	}
	if err := ctx.Store.AddCompletion(ctx.Context(), comp); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}

	ctx.Printf("Completed %s on %s\n", task.Name, day)
	return nil
}

type TaskUndoCmd struct {
	Task    string `arg:"" help:"Task ID or name."`
	Routine string `help:"Routine ID or name to disambiguate the task name."`
	Day     string `help:"Day of the completion to remove (YYYY-MM-DD). Defaults to today."`
}

func (c *TaskUndoCmd) Run(ctx *cli.Context) error {
	task, err := resolveTask(ctx, c.Task, c.Routine)
	if err != nil {
		return err
	}
	day, err := completionDay(ctx, c.Day)
	if err != nil {
		return err
	}

	removed, err := ctx.Store.RemoveCompletion(ctx.Context(), task.ID, day)
	if err != nil {
		return fmt.Errorf("failed to remove completion: %w", err)
	}
	if !removed {
		ctx.Printf("No completion of %s on %s\n", task.Name, day)
		return nil
	}
	ctx.Printf("Removed completion of %s on %s\n", task.Name, day)
	return nil
}
