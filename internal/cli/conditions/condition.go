package conditions

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/routinely/internal/cli"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/validation"
)

// resolveCondition finds a condition by id or, failing that, by name.
func resolveCondition(ctx *cli.Context, ref string) (models.Condition, error) {
	c, err := ctx.Store.GetCondition(ctx.Context(), ref)
	if err == nil {
		return c, nil
	}
	if !apperrors.IsNotFound(err) {
		return models.Condition{}, err
	}

	all, err := ctx.Store.ListAllConditions(ctx.Context())
	if err != nil {
		return models.Condition{}, err
	}
	var matches []models.Condition
	for _, c := range all {
		if strings.EqualFold(c.Name, ref) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return models.Condition{}, fmt.Errorf("condition %q: %w", ref, apperrors.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return models.Condition{}, fmt.Errorf("condition %q matches %d conditions, use an id: %w", ref, len(matches), cli.ErrAmbiguous)
}

// save lints and stores c. A condition without checks is allowed; it is
// neutral under AND and closed under OR. Targets were resolved when the
// checks were built, so existing dangling references do not block edits.
func save(ctx *cli.Context, c models.Condition) error {
	result := validation.New().ValidateCondition(c)
	blocking := result.Without(validation.ConflictNoChecks)
	if err := blocking.Err(); err != nil {
		return err
	}
	if err := ctx.Store.SaveCondition(ctx.Context(), c); err != nil {
		return fmt.Errorf("failed to save condition: %w", err)
	}
	return nil
}

type ConditionAddCmd struct {
	Routine     string     `arg:"" help:"Routine ID or name the condition gates."`
	Name        string     `help:"Condition name."`
	Description string     `help:"Free-form description."`
	Logic       string     `help:"How the checks combine." enum:"AND,OR,and,or" default:"AND"`
	NoControl   bool       `help:"Keep the condition informational; it will not gate the routine." name:"no-control"`
	Disabled    bool       `help:"Create the condition disabled."`
	Check       CheckFlags `embed:""`
}

func (c *ConditionAddCmd) Validate() error {
	if len(c.Name) > 200 {
		return fmt.Errorf("condition name must be at most 200 characters")
	}
	return nil
}

func (c *ConditionAddCmd) Run(ctx *cli.Context) error {
	routine, err := ctx.ResolveRoutine(c.Routine)
	if err != nil {
		return err
	}
	now, err := ctx.Now()
	if err != nil {
		return err
	}
	existing, err := ctx.Store.ListConditions(ctx.Context(), routine.ID)
	if err != nil {
		return err
	}

	cond := models.Condition{
		ID:              cli.NewID(),
		RoutineID:       routine.ID,
		Name:            strings.TrimSpace(c.Name),
		Description:     c.Description,
		Logic:           models.Logic(strings.ToUpper(c.Logic)),
		ControlsRoutine: !c.NoControl,
		Enabled:         !c.Disabled,
		Position:        len(existing),
		Checks:          []models.ConditionCheck{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !c.Check.Empty() {
		ch, err := c.Check.Build(ctx)
		if err != nil {
			return err
		}
		cond.Checks = append(cond.Checks, ch)
	}

	if err := save(ctx, cond); err != nil {
		return err
	}

	ctx.Printf("Added condition: %s to %s (ID: %s)\n", cond.Label(), routine.Name, cond.ID)
	if len(cond.Checks) == 0 {
		ctx.Println("Note: the condition has no checks yet; add some with `routinely condition check add`")
	}
	return nil
}

type ConditionListCmd struct {
	Routine string `arg:"" optional:"" help:"Only list conditions of this routine (ID or name)."`
	ShowIDs bool   `help:"Show condition and check IDs." name:"show-ids"`
}

func (c *ConditionListCmd) Run(ctx *cli.Context) error {
	var conds []models.Condition
	var err error
	if c.Routine != "" {
		r, rerr := ctx.ResolveRoutine(c.Routine)
		if rerr != nil {
			return rerr
		}
		conds, err = ctx.Store.ListConditions(ctx.Context(), r.ID)
	} else {
		conds, err = ctx.Store.ListAllConditions(ctx.Context())
	}
	if err != nil {
		return fmt.Errorf("failed to get conditions: %w", err)
	}
	if len(conds) == 0 {
		ctx.Println("No conditions found")
		return nil
	}

	names, err := ctx.RoutineNames()
	if err != nil {
		return err
	}

	ctx.Println("Conditions:")
	for _, cond := range conds {
		var flags []string
		if !cond.Enabled {
			flags = append(flags, "disabled")
		}
		if !cond.ControlsRoutine {
			flags = append(flags, "informational")
		}
		status := ""
		if len(flags) > 0 {
			status = " [" + strings.Join(flags, ", ") + "]"
		}
		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", cond.ID)
		}
		routineName := names[cond.RoutineID]
		if routineName == "" {
			routineName = cond.RoutineID
		}
		ctx.Printf("  %s%s - %s, %s%s\n", cond.Label(), idStr, routineName, cond.Logic, status)
		for i, ch := range cond.Checks {
			checkID := ""
			if c.ShowIDs {
				checkID = fmt.Sprintf(" (ID: %s)", ch.ID)
			}
			ctx.Printf("    #%d %s%s\n", i+1, ch.Describe(), checkID)
		}
	}
	return nil
}

type ConditionEnableCmd struct {
	Condition string `arg:"" help:"Condition ID or name."`
}

func (c *ConditionEnableCmd) Run(ctx *cli.Context) error {
	return setEnabled(ctx, c.Condition, true)
}

type ConditionDisableCmd struct {
	Condition string `arg:"" help:"Condition ID or name."`
}

func (c *ConditionDisableCmd) Run(ctx *cli.Context) error {
	return setEnabled(ctx, c.Condition, false)
}

func setEnabled(ctx *cli.Context, ref string, enabled bool) error {
	cond, err := resolveCondition(ctx, ref)
	if err != nil {
		return err
	}
	now, err := ctx.Now()
	if err != nil {
		return err
	}
	cond.Enabled = enabled
	cond.UpdatedAt = now
	if err := ctx.Store.SaveCondition(ctx.Context(), cond); err != nil {
		return fmt.Errorf("failed to update condition: %w", err)
	}
	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	ctx.Printf("Condition %s is now %s\n", cond.Label(), state)
	return nil
}

type ConditionDeleteCmd struct {
	Condition string `arg:"" help:"Condition ID or name to delete."`
	Yes       bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *ConditionDeleteCmd) Run(ctx *cli.Context) error {
	cond, err := resolveCondition(ctx, c.Condition)
	if err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete condition %s and its %d checks?", cond.Label(), len(cond.Checks))).
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			ctx.Println("Cancelled")
			return nil
		}
	}

	if err := ctx.Store.DeleteCondition(ctx.Context(), cond.ID); err != nil {
		return fmt.Errorf("failed to delete condition: %w", err)
	}
	ctx.Printf("Deleted condition: %s (ID: %s)\n", cond.Label(), cond.ID)
	return nil
}
