package tasks

import (
	"fmt"

	"github.com/julianstephens/routinely/internal/cli"
)

type TaskListCmd struct {
	Routine    string `arg:"" optional:"" help:"Only list tasks of this routine (ID or name)."`
	ActiveOnly bool   `help:"Show only active tasks."`
	ShowIDs    bool   `help:"Show task IDs." name:"show-ids"`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	routineID := ""
	if c.Routine != "" {
		r, err := ctx.ResolveRoutine(c.Routine)
		if err != nil {
			return err
		}
		routineID = r.ID
	}

	tasks, err := ctx.Store.ListTasks(ctx.Context(), routineID)
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}
	if len(tasks) == 0 {
		ctx.Println("No tasks found")
		return nil
	}

	names, err := ctx.RoutineNames()
	if err != nil {
		return err
	}
	now, periodStart, err := ctx.Period()
	if err != nil {
		return err
	}

	ctx.Println("Tasks:")
	for _, task := range tasks {
		if c.ActiveOnly && !task.Active {
			continue
		}

		status := "active"
		if !task.Active {
			status = "inactive"
		}

		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", task.ID)
		}

		st, err := ctx.Store.GetTaskState(ctx.Context(), task.ID, periodStart, now)
		if err != nil {
			return err
		}
		done := " "
		if st.Completed {
			done = "x"
		}
		ctx.Printf("  [%s] %s%s - %s, %s (done %d this period, streak %d)\n",
			done, task.Name, idStr, names[task.RoutineID], status, st.Count, st.Streak)
	}

	return nil
}
