package goals

import (
	"fmt"
	"strings"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

type GoalAddCmd struct {
	Name    string  `arg:"" help:"Goal name."`
	Target  float64 `help:"Target value." required:""`
	Current float64 `help:"Starting value." default:"0"`
}

func (c *GoalAddCmd) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("goal name cannot be empty")
	}
	if c.Target < 0 {
		return fmt.Errorf("target must be non-negative")
	}
	return nil
}

func (c *GoalAddCmd) Run(ctx *cli.Context) error {
	now, err := ctx.Now()
	if err != nil {
		return err
	}
	g := models.Goal{
		ID:        cli.NewID(),
		Name:      strings.TrimSpace(c.Name),
		Current:   c.Current,
		Target:    c.Target,
		CreatedAt: now,
	}
	if c.Target > 0 && c.Current >= c.Target {
		g.AchievedAt = &now
	}
	if err := ctx.Store.AddGoal(ctx.Context(), g); err != nil {
		return err
	}

	ctx.Printf("Added goal: %s (ID: %s)\n", g.Name, g.ID)
	return nil
}

type GoalListCmd struct {
	ShowIDs bool `help:"Show goal IDs." name:"show-ids"`
}

func (c *GoalListCmd) Run(ctx *cli.Context) error {
	goals, err := ctx.Store.ListGoals(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to get goals: %w", err)
	}
	if len(goals) == 0 {
		ctx.Println("No goals found")
		return nil
	}

	ctx.Println("Goals:")
	for _, g := range goals {
		p := storage.GoalProgressFrom(g)
		mark := " "
		if p.Achieved {
			mark = "x"
		}
		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", g.ID)
		}
		ctx.Printf("  [%s] %s%s - %g/%g (%.0f%%)\n", mark, g.Name, idStr, g.Current, g.Target, p.Percent())
	}
	return nil
}

// GoalProgressCmd updates a goal's current value or achieved mark.
type GoalProgressCmd struct {
	Goal     string   `arg:"" help:"Goal ID or name."`
	Current  *float64 `help:"Set the current value."`
	Add      float64  `help:"Add to the current value."`
	Achieved bool     `help:"Mark the goal achieved regardless of its value."`
	Reopen   bool     `help:"Clear an explicit achieved mark."`
}

func (c *GoalProgressCmd) Validate() error {
	if c.Achieved && c.Reopen {
		return fmt.Errorf("--achieved and --reopen are mutually exclusive")
	}
	return nil
}

func (c *GoalProgressCmd) Run(ctx *cli.Context) error {
	g, err := ctx.ResolveGoal(c.Goal)
	if err != nil {
		return err
	}
	now, err := ctx.Now()
	if err != nil {
		return err
	}

	if c.Current != nil {
		g.Current = *c.Current
	}
	g.Current += c.Add

	reached := g.Target > 0 && g.Current >= g.Target
	switch {
	case c.Reopen:
		g.AchievedAt = nil
	case (c.Achieved || reached) && g.AchievedAt == nil:
		g.AchievedAt = &now
	}

	if err := ctx.Store.UpdateGoal(ctx.Context(), g); err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}

	p := storage.GoalProgressFrom(g)
	ctx.Printf("%s: %g/%g (%.0f%%)", g.Name, g.Current, g.Target, p.Percent())
	if p.Achieved {
		ctx.Printf(" - achieved")
	}
	ctx.Println()
	return nil
}

type GoalDeleteCmd struct {
	Goal string `arg:"" help:"Goal ID or name to delete."`
}

func (c *GoalDeleteCmd) Run(ctx *cli.Context) error {
	g, err := ctx.ResolveGoal(c.Goal)
	if err != nil {
		return err
	}
	if err := ctx.Store.DeleteGoal(ctx.Context(), g.ID); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	ctx.Printf("Deleted goal: %s (ID: %s)\n", g.Name, g.ID)
	return nil
}
