package visibility

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/engine"
	"github.com/julianstephens/routinely/internal/utils"
)

type ShowCmd struct {
	Routine string `arg:"" help:"Routine ID or name."`
	At      string `help:"Evaluate at this instant (YYYY-MM-DD HH:MM or RFC3339) instead of now."`
	JSON    bool   `help:"Print the result as JSON." name:"json"`
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	routine, err := ctx.ResolveRoutine(c.Routine)
	if err != nil {
		return err
	}
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	at, err := parseAt(ctx, c.At)
	if err != nil {
		return err
	}

	res, err := eng.EvaluateRoutineVisibility(ctx.Context(), routine.ID, at)
	if err != nil {
		return fmt.Errorf("failed to evaluate %s: %w", routine.Name, err)
	}

	if c.JSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		ctx.Println(string(data))
		return nil
	}
	RenderTrace(ctx.Stdout(), routine.Name, res)
	return nil
}

// parseAt returns nil for an empty --at so the engine uses its clock.
func parseAt(ctx *cli.Context, at string) (*time.Time, error) {
	if at == "" {
		return nil, nil
	}
	cfg, err := ctx.Config()
	if err != nil {
		return nil, err
	}
	t, err := utils.ParseInstant(at, cfg.Location)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type ListCmd struct {
	At      string `help:"Evaluate at this instant (YYYY-MM-DD HH:MM or RFC3339) instead of now."`
	Visible bool   `help:"Only list visible routines."`
	JSON    bool   `help:"Print the results as JSON." name:"json"`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	routines, err := ctx.Store.ListRoutines(ctx.Context(), false)
	if err != nil {
		return fmt.Errorf("failed to get routines: %w", err)
	}
	if len(routines) == 0 {
		ctx.Println("No routines found")
		return nil
	}
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	at, err := parseAt(ctx, c.At)
	if err != nil {
		return err
	}

	ids := make([]string, len(routines))
	for i, r := range routines {
		ids[i] = r.ID
	}
	var results []engine.VisibilityResult
	if at == nil {
		results, err = eng.Resolver().EvaluateMany(ctx.Context(), ids)
	} else {
		results, err = eng.Resolver().EvaluateManyAt(ctx.Context(), ids, *at)
	}
	if err != nil {
		return fmt.Errorf("failed to evaluate routines: %w", err)
	}

	if c.JSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		ctx.Println(string(data))
		return nil
	}

	for i, res := range results {
		if c.Visible && !res.Visible {
			continue
		}
		ctx.Println(OneLine(routines[i].Name, res))
	}
	return nil
}

type OverrideCreateCmd struct {
	Routine string `arg:"" help:"Routine ID or name."`
	Minutes int    `help:"How long to force the routine visible." default:"30" short:"m"`
}

func (c *OverrideCreateCmd) Run(ctx *cli.Context) error {
	routine, err := ctx.ResolveRoutine(c.Routine)
	if err != nil {
		return err
	}
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	expires, err := eng.CreateOverride(ctx.Context(), routine.ID, c.Minutes)
	if err != nil {
		return err
	}
	ctx.Printf("%s is visible until %s (%d minutes)\n",
		routine.Name, expires.In(eng.Now().Location()).Format(constants.TimeFormat), c.Minutes)
	return nil
}

type OverrideCancelCmd struct {
	Routine string `arg:"" help:"Routine ID or name."`
}

func (c *OverrideCancelCmd) Run(ctx *cli.Context) error {
	routine, err := ctx.ResolveRoutine(c.Routine)
	if err != nil {
		return err
	}
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	cancelled, err := eng.CancelOverride(ctx.Context(), routine.ID)
	if err != nil {
		return err
	}
	if !cancelled {
		ctx.Printf("%s has no override\n", routine.Name)
		return nil
	}
	ctx.Printf("Cancelled override for %s\n", routine.Name)
	return nil
}

type OverrideStatusCmd struct {
	Routine string `arg:"" help:"Routine ID or name."`
}

func (c *OverrideStatusCmd) Run(ctx *cli.Context) error {
	routine, err := ctx.ResolveRoutine(c.Routine)
	if err != nil {
		return err
	}
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	active, expires, err := eng.OverrideStatus(ctx.Context(), routine.ID)
	if err != nil {
		return err
	}
	if !active || expires == nil {
		ctx.Printf("%s has no active override\n", routine.Name)
		return nil
	}
	ctx.Printf("%s is visible for %d more minutes\n", routine.Name, RemainingMinutes(eng.Now(), *expires))
	return nil
}

// RemainingMinutes rounds the time left up to whole minutes.
func RemainingMinutes(now, expires time.Time) int {
	d := expires.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
