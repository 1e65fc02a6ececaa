package tasks

import (
	"fmt"
	"strings"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/models"
)

type TaskAddCmd struct {
	Routine  string `arg:"" help:"Routine ID or name the task belongs to."`
	Name     string `arg:"" help:"Task name."`
	Inactive bool   `help:"Create the task inactive (excluded from routine completion)."`
}

func (c *TaskAddCmd) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	return nil
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	routine, err := ctx.ResolveRoutine(c.Routine)
	if err != nil {
		return err
	}
	now, err := ctx.Now()
	if err != nil {
		return err
	}

	task := models.Task{
		ID:        cli.NewID(),
		RoutineID: routine.ID,
		Name:      strings.TrimSpace(c.Name),
		Active:    !c.Inactive,
		CreatedAt: now,
	}
	if err := ctx.Store.AddTask(ctx.Context(), task); err != nil {
		return err
	}

	ctx.Printf("Added task: %s to %s (ID: %s)\n", task.Name, routine.Name, task.ID)
	return nil
}

type TaskActivateCmd struct {
	Task   string `arg:"" help:"Task ID or name."`
	Active bool   `help:"Mark the task active; --no-active deactivates it." negatable:"" default:"true"`
}

func (c *TaskActivateCmd) Run(ctx *cli.Context) error {
	task, err := ctx.ResolveTask(c.Task, "")
	if err != nil {
		return err
	}
	if err := ctx.Store.SetTaskActive(ctx.Context(), task.ID, c.Active); err != nil {
		return err
	}
	state := "active"
	if !c.Active {
		state = "inactive"
	}
	ctx.Printf("Task %s is now %s\n", task.Name, state)
	return nil
}
