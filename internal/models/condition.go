package models

import (
	"fmt"
	"strings"
	"time"
)

// Logic combines the checks of a single condition.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Operator is the state comparison a check applies to its target.
type Operator string

const (
	OpTaskCompleted    Operator = "TASK_COMPLETED"
	OpTaskNotCompleted Operator = "TASK_NOT_COMPLETED"
	OpTaskCountGT      Operator = "TASK_COUNT_GT"
	OpTaskCountLT      Operator = "TASK_COUNT_LT"
	OpTaskStreakGT     Operator = "TASK_STREAK_GT"
	OpTaskStreakLT     Operator = "TASK_STREAK_LT"

	OpRoutineCompleted Operator = "ROUTINE_COMPLETED"
	OpRoutinePercentGT Operator = "ROUTINE_PERCENT_GT"
	OpRoutinePercentLT Operator = "ROUTINE_PERCENT_LT"

	OpGoalAchieved    Operator = "GOAL_ACHIEVED"
	OpGoalNotAchieved Operator = "GOAL_NOT_ACHIEVED"
	OpGoalProgressGT  Operator = "GOAL_PROGRESS_GT"
	OpGoalProgressLT  Operator = "GOAL_PROGRESS_LT"
)

// TargetKind is the kind of entity a check's operator is evaluated against.
type TargetKind string

const (
	TargetNone    TargetKind = ""
	TargetTask    TargetKind = "task"
	TargetRoutine TargetKind = "routine"
	TargetGoal    TargetKind = "goal"
)

var operatorKinds = map[Operator]TargetKind{
	OpTaskCompleted:    TargetTask,
	OpTaskNotCompleted: TargetTask,
	OpTaskCountGT:      TargetTask,
	OpTaskCountLT:      TargetTask,
	OpTaskStreakGT:     TargetTask,
	OpTaskStreakLT:     TargetTask,
	OpRoutineCompleted: TargetRoutine,
	OpRoutinePercentGT: TargetRoutine,
	OpRoutinePercentLT: TargetRoutine,
	OpGoalAchieved:     TargetGoal,
	OpGoalNotAchieved:  TargetGoal,
	OpGoalProgressGT:   TargetGoal,
	OpGoalProgressLT:   TargetGoal,
}

// TargetKind returns the kind of entity the operator applies to and false
// for unknown operators.
func (o Operator) TargetKind() (TargetKind, bool) {
	k, ok := operatorKinds[o]
	return k, ok
}

// IsComparison reports whether the operator needs a numeric value.
func (o Operator) IsComparison() bool {
	return strings.HasSuffix(string(o), "_GT") || strings.HasSuffix(string(o), "_LT")
}

// Operators lists every known operator, grouped by target kind.
func Operators() []Operator {
	return []Operator{
		OpTaskCompleted, OpTaskNotCompleted, OpTaskCountGT, OpTaskCountLT, OpTaskStreakGT, OpTaskStreakLT,
		OpRoutineCompleted, OpRoutinePercentGT, OpRoutinePercentLT,
		OpGoalAchieved, OpGoalNotAchieved, OpGoalProgressGT, OpGoalProgressLT,
	}
}

// TimeOperator constrains a check to a time-of-day window.
type TimeOperator string

const (
	TimeBefore  TimeOperator = "BEFORE"
	TimeAfter   TimeOperator = "AFTER"
	TimeBetween TimeOperator = "BETWEEN"
)

// Condition is a named, enable-able gate made of checks combined by Logic.
// Position is display order only.
type Condition struct {
	ID              string           `json:"id" yaml:"id,omitempty"`
	RoutineID       string           `json:"routine_id" yaml:"routine_id,omitempty" validate:"required"`
	Name            string           `json:"name,omitempty" yaml:"name,omitempty" validate:"max=200"`
	Description     string           `json:"description,omitempty" yaml:"description,omitempty"`
	Logic           Logic            `json:"logic" yaml:"logic" validate:"required,oneof=AND OR"`
	ControlsRoutine bool             `json:"controls_routine" yaml:"controls_routine"`
	Enabled         bool             `json:"enabled" yaml:"enabled"`
	Position        int              `json:"position" yaml:"position,omitempty"`
	Checks          []ConditionCheck `json:"checks" yaml:"checks" validate:"dive"`
	CreatedAt       time.Time        `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time        `json:"updated_at" yaml:"-"`
}

// Label returns the condition name, falling back to its id.
func (c Condition) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// ConditionCheck is one atomic test. Any combination of a target clause,
// a time clause and a day clause may be set; all present clauses must hold.
type ConditionCheck struct {
	ID              string       `json:"id" yaml:"id,omitempty"`
	ConditionID     string       `json:"condition_id" yaml:"-"`
	Negate          bool         `json:"negate" yaml:"negate,omitempty"`
	Operator        Operator     `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value           string       `json:"value,omitempty" yaml:"value,omitempty"`
	Value2          string       `json:"value2,omitempty" yaml:"value2,omitempty"`
	TargetTaskID    string       `json:"target_task_id,omitempty" yaml:"target_task_id,omitempty"`
	TargetRoutineID string       `json:"target_routine_id,omitempty" yaml:"target_routine_id,omitempty"`
	TargetGoalID    string       `json:"target_goal_id,omitempty" yaml:"target_goal_id,omitempty"`
	TimeOperator    TimeOperator `json:"time_operator,omitempty" yaml:"time_operator,omitempty" validate:"omitempty,oneof=BEFORE AFTER BETWEEN"`
	TimeValue       string       `json:"time_value,omitempty" yaml:"time_value,omitempty"`
	DayOfWeek       []int        `json:"day_of_week,omitempty" yaml:"day_of_week,omitempty" validate:"dive,min=0,max=6"`
	Position        int          `json:"position" yaml:"position,omitempty"`
}

// Target returns the kind and id of the single target reference. The count
// is the number of target ids set; anything above one is a malformed check.
func (c ConditionCheck) Target() (TargetKind, string, int) {
	kind, id, n := TargetNone, "", 0
	if c.TargetTaskID != "" {
		kind, id = TargetTask, c.TargetTaskID
		n++
	}
	if c.TargetRoutineID != "" {
		kind, id = TargetRoutine, c.TargetRoutineID
		n++
	}
	if c.TargetGoalID != "" {
		kind, id = TargetGoal, c.TargetGoalID
		n++
	}
	return kind, id, n
}

// HasTargetClause reports whether the check carries an operator or a target.
func (c ConditionCheck) HasTargetClause() bool {
	_, _, n := c.Target()
	return n > 0 || c.Operator != ""
}

// Describe renders the check in a compact human-readable form.
func (c ConditionCheck) Describe() string {
	var parts []string
	if c.HasTargetClause() {
		kind, id, _ := c.Target()
		clause := string(c.Operator)
		if id != "" {
			clause += fmt.Sprintf("(%s %s)", kind, id)
		}
		if c.Operator.IsComparison() {
			clause += " " + c.Value
		}
		parts = append(parts, clause)
	}
	switch c.TimeOperator {
	case TimeBefore:
		parts = append(parts, "before "+c.TimeValue)
	case TimeAfter:
		parts = append(parts, "after "+c.TimeValue)
	case TimeBetween:
		parts = append(parts, fmt.Sprintf("between %s-%s", c.TimeValue, c.Value2))
	}
	if len(c.DayOfWeek) > 0 {
		parts = append(parts, "on "+FormatDays(c.DayOfWeek))
	}
	if len(parts) == 0 {
		parts = append(parts, "always")
	}
	s := strings.Join(parts, " and ")
	if c.Negate {
		s = "NOT " + s
	}
	return s
}

// FormatDays renders a day set as short weekday names ("Mon Wed Fri").
func FormatDays(days []int) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			names = append(names, fmt.Sprintf("?%d", d))
			continue
		}
		names = append(names, time.Weekday(d).String()[:3])
	}
	return strings.Join(names, " ")
}

// VisibilityOverride forces a routine visible until ExpiresAt. Liveness is
// always computed against the clock at read time.
type VisibilityOverride struct {
	RoutineID string    `json:"routine_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ActiveAt reports whether the override still applies at now.
func (o VisibilityOverride) ActiveAt(now time.Time) bool {
	return now.Before(o.ExpiresAt)
}
