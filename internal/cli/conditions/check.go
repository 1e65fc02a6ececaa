package conditions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

// CheckFlags describes one check on the command line. Every clause is
// optional; the ones given are ANDed when the check is evaluated.
type CheckFlags struct {
	Operator string `help:"State operator, e.g. TASK_COMPLETED or GOAL_PROGRESS_GT." name:"op"`
	Target   string `help:"Task, routine or goal the operator applies to (ID or name)."`
	Value    string `help:"Threshold for _GT/_LT operators."`
	Before   string `help:"Only before this time of day (HH:MM)." xor:"time"`
	After    string `help:"Only after this time of day (HH:MM)." xor:"time"`
	Between  string `help:"Only inside this window (HH:MM-HH:MM, may wrap midnight)." xor:"time"`
	Days     string `help:"Only on these weekdays (e.g. mon,wed,fri or weekdays)."`
	Negate   bool   `help:"Invert the check."`
}

// Empty reports whether no clause was given.
func (f CheckFlags) Empty() bool {
	return f.Operator == "" && f.Target == "" && f.Before == "" && f.After == "" && f.Between == "" && f.Days == ""
}

// Build turns the flags into a check, resolving the target reference by the
// operator's target kind.
func (f CheckFlags) Build(ctx *cli.Context) (models.ConditionCheck, error) {
	ch := models.ConditionCheck{ID: cli.NewID(), Negate: f.Negate}

	if f.Operator != "" || f.Target != "" {
		op := models.Operator(strings.ToUpper(f.Operator))
		kind, ok := op.TargetKind()
		if !ok {
			return ch, fmt.Errorf("unknown operator %q (known: %s)", f.Operator, operatorList())
		}
		if f.Target == "" {
			return ch, fmt.Errorf("operator %s needs --target", op)
		}
		ch.Operator = op

		switch kind {
		case models.TargetTask:
			t, err := ctx.ResolveTask(f.Target, "")
			if err != nil {
				return ch, err
			}
			ch.TargetTaskID = t.ID
		case models.TargetRoutine:
			r, err := ctx.ResolveRoutine(f.Target)
			if err != nil {
				return ch, err
			}
			ch.TargetRoutineID = r.ID
		case models.TargetGoal:
			g, err := ctx.ResolveGoal(f.Target)
			if err != nil {
				return ch, err
			}
			ch.TargetGoalID = g.ID
		}

		if op.IsComparison() {
			if _, err := strconv.ParseFloat(f.Value, 64); err != nil {
				return ch, fmt.Errorf("operator %s needs a numeric --value", op)
			}
			ch.Value = f.Value
		}
	}

	switch {
	case f.Before != "":
		ch.TimeOperator, ch.TimeValue = models.TimeBefore, f.Before
	case f.After != "":
		ch.TimeOperator, ch.TimeValue = models.TimeAfter, f.After
	case f.Between != "":
		start, end, ok := strings.Cut(f.Between, "-")
		if !ok {
			return ch, fmt.Errorf("--between must be HH:MM-HH:MM")
		}
		ch.TimeOperator = models.TimeBetween
		ch.TimeValue, ch.Value2 = strings.TrimSpace(start), strings.TrimSpace(end)
	}
	if ch.TimeOperator != "" {
		for _, v := range []string{ch.TimeValue, ch.Value2} {
			if v != "" && !utils.ValidateTimeFormat(v) {
				return ch, fmt.Errorf("invalid time %q, expected HH:MM", v)
			}
		}
	}

	if f.Days != "" {
		days, err := utils.ParseWeekdays(f.Days)
		if err != nil {
			return ch, err
		}
		ch.DayOfWeek = days
	}
	return ch, nil
}

func operatorList() string {
	ops := models.Operators()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return strings.Join(names, ", ")
}

type CheckAddCmd struct {
	Condition string     `arg:"" help:"Condition ID or name."`
	Check     CheckFlags `embed:""`
}

func (c *CheckAddCmd) Run(ctx *cli.Context) error {
	if c.Check.Empty() {
		return fmt.Errorf("a check needs at least one of --op, --before, --after, --between or --days")
	}
	cond, err := resolveCondition(ctx, c.Condition)
	if err != nil {
		return err
	}
	ch, err := c.Check.Build(ctx)
	if err != nil {
		return err
	}
	cond.Checks = append(cond.Checks, ch)

	if err := save(ctx, cond); err != nil {
		return err
	}
	ctx.Printf("Added check to %s: %s (ID: %s)\n", cond.Label(), ch.Describe(), ch.ID)
	return nil
}

type CheckRemoveCmd struct {
	Condition string `arg:"" help:"Condition ID or name."`
	Check     string `arg:"" help:"Check ID, or its 1-based position as shown by condition list."`
}

func (c *CheckRemoveCmd) Run(ctx *cli.Context) error {
	cond, err := resolveCondition(ctx, c.Condition)
	if err != nil {
		return err
	}

	idx := -1
	for i, ch := range cond.Checks {
		if ch.ID == c.Check {
			idx = i
			break
		}
	}
	if idx < 0 {
		if n, err := strconv.Atoi(strings.TrimPrefix(c.Check, "#")); err == nil && n >= 1 && n <= len(cond.Checks) {
			idx = n - 1
		}
	}
	if idx < 0 {
		return fmt.Errorf("condition %s has no check %q", cond.Label(), c.Check)
	}

	removed := cond.Checks[idx]
	cond.Checks = append(cond.Checks[:idx], cond.Checks[idx+1:]...)
	if err := save(ctx, cond); err != nil {
		return err
	}
	ctx.Printf("Removed check from %s: %s\n", cond.Label(), removed.Describe())
	if len(cond.Checks) == 0 {
		ctx.Printf("Note: %s has no checks left\n", cond.Label())
	}
	return nil
}
