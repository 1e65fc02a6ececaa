package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/engine"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
	"github.com/julianstephens/routinely/internal/utils"
	"github.com/julianstephens/routinely/internal/validation"
)

// Context is handed to every command's Run method.
type Context struct {
	Store storage.Provider
	// Clock overrides the settings-derived system clock. Tests set it.
	Clock clock.Clock
	// Out receives command output; nil means stdout.
	Out io.Writer
	// Ctx is cancelled on interrupt; nil means context.Background().
	Ctx context.Context

	engine *engine.Engine
}

func (c *Context) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Stdout(), format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Stdout(), args...)
}

// Config loads settings and turns them into an engine configuration.
func (c *Context) Config() (engine.Config, error) {
	settings, err := c.Store.GetSettings(c.Context())
	if apperrors.IsNotFound(err) {
		settings = models.DefaultSettings()
	} else if err != nil {
		return engine.Config{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return engine.ConfigFromSettings(settings)
}

// Now returns the current instant in the configured timezone.
func (c *Context) Now() (time.Time, error) {
	cfg, err := c.Config()
	if err != nil {
		return time.Time{}, err
	}
	if c.Clock != nil {
		return c.Clock.Now().In(cfg.Location), nil
	}
	return clock.System{Location: cfg.Location}.Now(), nil
}

// Engine builds the visibility engine on first use.
func (c *Context) Engine() (*engine.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	clk := c.Clock
	if clk == nil {
		clk = clock.System{Location: cfg.Location}
	}
	c.Store.SetClock(clk)
	c.engine = engine.New(c.Store, clk, cfg)
	return c.engine, nil
}

// Period returns now and the start of the current reset period, the bounds
// the state facts are read between.
func (c *Context) Period() (time.Time, time.Time, error) {
	eng, err := c.Engine()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	cfg, err := c.Config()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	now := eng.Now()
	return now, utils.PeriodStart(now, cfg.ResetPeriod, cfg.WeekStart), nil
}

// NewID returns a fresh identifier for stored rows.
func NewID() string {
	return uuid.New().String()
}

var ErrAmbiguous = errors.New("ambiguous reference")

// ResolveRoutine finds a live routine by id or, failing that, by name.
func (c *Context) ResolveRoutine(ref string) (models.Routine, error) {
	ctx := c.Context()
	r, err := c.Store.GetRoutine(ctx, ref)
	if err == nil {
		return r, nil
	}
	if !apperrors.IsNotFound(err) {
		return models.Routine{}, err
	}
	r, err = c.Store.GetRoutineByName(ctx, ref)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return models.Routine{}, fmt.Errorf("routine %q: %w", ref, apperrors.ErrNotFound)
		}
		return models.Routine{}, err
	}
	return r, nil
}

// ResolveTask finds a live task by id, or by name within routineID (all
// routines when routineID is empty).
func (c *Context) ResolveTask(ref, routineID string) (models.Task, error) {
	ctx := c.Context()
	t, err := c.Store.GetTask(ctx, ref)
	if err == nil {
		return t, nil
	}
	if !apperrors.IsNotFound(err) {
		return models.Task{}, err
	}
	tasks, err := c.Store.ListTasks(ctx, routineID)
	if err != nil {
		return models.Task{}, err
	}
	var matches []models.Task
	for _, t := range tasks {
		if strings.EqualFold(t.Name, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return models.Task{}, fmt.Errorf("task %q: %w", ref, apperrors.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return models.Task{}, fmt.Errorf("task %q matches %d tasks, use an id: %w", ref, len(matches), ErrAmbiguous)
}

// ResolveGoal finds a live goal by id or name.
func (c *Context) ResolveGoal(ref string) (models.Goal, error) {
	ctx := c.Context()
	g, err := c.Store.GetGoal(ctx, ref)
	if err == nil {
		return g, nil
	}
	if !apperrors.IsNotFound(err) {
		return models.Goal{}, err
	}
	goals, err := c.Store.ListGoals(ctx)
	if err != nil {
		return models.Goal{}, err
	}
	var matches []models.Goal
	for _, g := range goals {
		if strings.EqualFold(g.Name, ref) {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		return models.Goal{}, fmt.Errorf("goal %q: %w", ref, apperrors.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return models.Goal{}, fmt.Errorf("goal %q matches %d goals, use an id: %w", ref, len(matches), ErrAmbiguous)
}

// RoutineNames maps routine ids to names for display.
func (c *Context) RoutineNames() (map[string]string, error) {
	routines, err := c.Store.ListRoutines(c.Context(), true)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(routines))
	for _, r := range routines {
		names[r.ID] = r.Name
	}
	return names, nil
}

// Refs loads the live tasks, routines and goals conditions may point at.
func (c *Context) Refs() (*validation.Refs, error) {
	ctx := c.Context()
	tasks, err := c.Store.ListTasks(ctx, "")
	if err != nil {
		return nil, err
	}
	routines, err := c.Store.ListRoutines(ctx, false)
	if err != nil {
		return nil, err
	}
	goals, err := c.Store.ListGoals(ctx)
	if err != nil {
		return nil, err
	}
	return validation.NewRefs(tasks, routines, goals), nil
}
