package routines

import (
	"fmt"
	"strings"

	"github.com/julianstephens/routinely/internal/cli"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

type RoutineAddCmd struct {
	Name string `arg:"" help:"Routine name."`
}

func (c *RoutineAddCmd) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("routine name cannot be empty")
	}
	return nil
}

func (c *RoutineAddCmd) Run(ctx *cli.Context) error {
	name := strings.TrimSpace(c.Name)
	if _, err := ctx.Store.GetRoutineByName(ctx.Context(), name); err == nil {
		return fmt.Errorf("a routine named %q already exists", name)
	} else if !apperrors.IsNotFound(err) {
		return err
	}

	now, err := ctx.Now()
	if err != nil {
		return err
	}
	r := models.Routine{
		ID:        cli.NewID(),
		Name:      name,
		CreatedAt: now,
	}
	if err := ctx.Store.AddRoutine(ctx.Context(), r); err != nil {
		return err
	}

	ctx.Printf("Added routine: %s (ID: %s)\n", r.Name, r.ID)
	return nil
}

type RoutineListCmd struct {
	Deleted bool `help:"Include deleted routines."`
	ShowIDs bool `help:"Show routine IDs." name:"show-ids"`
}

func (c *RoutineListCmd) Run(ctx *cli.Context) error {
	routines, err := ctx.Store.ListRoutines(ctx.Context(), c.Deleted)
	if err != nil {
		return fmt.Errorf("failed to get routines: %w", err)
	}
	if len(routines) == 0 {
		ctx.Println("No routines found")
		return nil
	}

	conditions, err := ctx.Store.ListAllConditions(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to get conditions: %w", err)
	}
	counts := make(map[string]int)
	for _, cond := range conditions {
		counts[cond.RoutineID]++
	}

	ctx.Println("Routines:")
	for _, r := range routines {
		tasks, err := ctx.Store.ListTasks(ctx.Context(), r.ID)
		if err != nil {
			return err
		}
		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", r.ID)
		}
		status := ""
		if r.DeletedAt != nil {
			status = " [deleted]"
		}
		ctx.Printf("  %s%s%s - %d tasks, %d conditions\n", r.Name, idStr, status, len(tasks), counts[r.ID])
	}
	return nil
}

type RoutineDeleteCmd struct {
	Routine string `arg:"" help:"Routine ID or name to delete."`
}

func (c *RoutineDeleteCmd) Run(ctx *cli.Context) error {
	r, err := ctx.ResolveRoutine(c.Routine)
	if err != nil {
		return fmt.Errorf("failed to find routine %s: %w", c.Routine, err)
	}

	if err := ctx.Store.DeleteRoutine(ctx.Context(), r.ID); err != nil {
		return fmt.Errorf("failed to delete routine: %w", err)
	}

	ctx.Printf("Deleted routine: %s (ID: %s)\n", r.Name, r.ID)
	return nil
}
