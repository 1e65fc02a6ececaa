package tasks

import (
	"fmt"

	"github.com/julianstephens/routinely/internal/cli"
)

type TaskDeleteCmd struct {
	Task string `arg:"" help:"Task ID or name to delete."`
}

func (c *TaskDeleteCmd) Run(ctx *cli.Context) error {
	// Check if task exists first
	task, err := ctx.ResolveTask(c.Task, "")
	if err != nil {
		return fmt.Errorf("failed to find task %s: %w", c.Task, err)
	}

	if err := ctx.Store.DeleteTask(ctx.Context(), task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	ctx.Printf("Deleted task: %s (ID: %s)\n", task.Name, task.ID)
	return nil
}
