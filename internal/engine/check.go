package engine

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

// Evaluator resolves single checks against a StateProvider. It holds no
// mutable state and is safe for concurrent use.
type Evaluator struct {
	state StateProvider
}

func NewEvaluator(state StateProvider) *Evaluator {
	return &Evaluator{state: state}
}

// clause is the outcome of one of a check's three clauses.
type clause struct {
	present bool
	ok      bool
	reason  string
	diag    *Diagnostic
}

func absent() clause { return clause{} }

func pass(ok bool, format string, args ...any) clause {
	return clause{present: true, ok: ok, reason: fmt.Sprintf(format, args...)}
}

// failClosed turns a configuration or reference problem into a false clause.
func failClosed(kind string, err error) clause {
	logger.Warn("condition check failed closed", "kind", kind, "error", err)
	return clause{
		present: true,
		reason:  err.Error(),
		diag:    &Diagnostic{Kind: kind, Message: err.Error()},
	}
}

func configError(check models.ConditionCheck, field, format string, args ...any) clause {
	return failClosed(constants.DiagnosticConfiguration, &apperrors.ConfigurationError{
		Subject: "check " + check.ID,
		Field:   field,
		Reason:  fmt.Sprintf(format, args...),
	})
}

// EvaluateCheck evaluates the target, time and day clauses of check, ANDs
// the ones that are present and applies negation. The only error returned
// is a *errors.StateProviderError; everything else fails closed.
func (e *Evaluator) EvaluateCheck(ctx context.Context, check models.ConditionCheck, ec EvaluationContext) (CheckResult, error) {
	target, err := e.targetClause(ctx, check, ec)
	if err != nil {
		return CheckResult{}, err
	}
	clauses := []clause{target, timeClause(check, ec), dayClause(check, ec)}

	result := CheckResult{CheckID: check.ID, Passed: true, Negated: check.Negate}
	var reasons []string
	for _, c := range clauses {
		if !c.present {
			continue
		}
		result.Passed = result.Passed && c.ok
		reasons = append(reasons, c.reason)
		if c.diag != nil {
			result.Diagnostics = append(result.Diagnostics, *c.diag)
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no clauses set")
	}
	result.Reason = strings.Join(reasons, "; ")

	if check.Negate {
		result.Passed = !result.Passed
		result.Reason = "negated: " + result.Reason
	}
	return result, nil
}

func (e *Evaluator) targetClause(ctx context.Context, check models.ConditionCheck, ec EvaluationContext) (clause, error) {
	kind, id, n := check.Target()
	if n == 0 && check.Operator == "" {
		return absent(), nil
	}
	if n > 1 {
		return configError(check, "target", "%d targets set, at most one allowed", n), nil
	}

	opKind, known := check.Operator.TargetKind()
	switch {
	case check.Operator == "":
		return configError(check, "operator", "%s %s has no operator", kind, id), nil
	case !known:
		return configError(check, "operator", "unknown operator %q", check.Operator), nil
	case n == 0:
		return configError(check, "target", "%s needs a %s target", check.Operator, opKind), nil
	case opKind != kind:
		return configError(check, "target", "%s applies to a %s, got %s %s", check.Operator, opKind, kind, id), nil
	}

	var threshold float64
	if check.Operator.IsComparison() {
		v, err := parseNumber(check.Value)
		if err != nil {
			return configError(check, "value", "%v", err), nil
		}
		threshold = v
	}

	switch kind {
	case models.TargetTask:
		st, err := e.state.GetTaskState(ctx, id, ec.PeriodStart, ec.Now)
		if err != nil {
			return e.lookupFailed(check, kind, id, "GetTaskState", err)
		}
		return taskClause(check.Operator, id, st, threshold), nil
	case models.TargetRoutine:
		pct, err := e.state.GetRoutineCompletionPercent(ctx, id, ec.PeriodStart, ec.Now)
		if err != nil {
			return e.lookupFailed(check, kind, id, "GetRoutineCompletionPercent", err)
		}
		return routineClause(check.Operator, id, pct, threshold), nil
	default:
		g, err := e.state.GetGoalProgress(ctx, id)
		if err != nil {
			return e.lookupFailed(check, kind, id, "GetGoalProgress", err)
		}
		return goalClause(check.Operator, id, g, threshold), nil
	}
}

func (e *Evaluator) lookupFailed(check models.ConditionCheck, kind models.TargetKind, id, op string, err error) (clause, error) {
	if apperrors.IsNotFound(err) {
		return failClosed(constants.DiagnosticDanglingReference, &apperrors.DanglingReferenceError{
			CheckID:    check.ID,
			TargetKind: string(kind),
			TargetID:   id,
		}), nil
	}
	return clause{}, &apperrors.StateProviderError{Op: op, ID: id, Err: err}
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("comparison needs a numeric value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

func compare(op models.Operator, actual, threshold float64) bool {
	if strings.HasSuffix(string(op), "_GT") {
		return actual > threshold
	}
	return actual < threshold
}

func cmpSymbol(op models.Operator, ok bool) string {
	sym := "<"
	if strings.HasSuffix(string(op), "_GT") {
		sym = ">"
	}
	if !ok {
		return "not " + sym
	}
	return sym
}

func taskClause(op models.Operator, id string, st models.TaskState, threshold float64) clause {
	switch op {
	case models.OpTaskCompleted:
		return pass(st.Completed, "task %s completed=%t", id, st.Completed)
	case models.OpTaskNotCompleted:
		return pass(!st.Completed, "task %s completed=%t", id, st.Completed)
	case models.OpTaskCountGT, models.OpTaskCountLT:
		ok := compare(op, float64(st.Count), threshold)
		return pass(ok, "task %s count %d %s %s", id, st.Count, cmpSymbol(op, ok), formatNumber(threshold))
	default:
		ok := compare(op, float64(st.Streak), threshold)
		return pass(ok, "task %s streak %d %s %s", id, st.Streak, cmpSymbol(op, ok), formatNumber(threshold))
	}
}

func routineClause(op models.Operator, id string, pct, threshold float64) clause {
	if op == models.OpRoutineCompleted {
		return pass(pct >= 100, "routine %s %s%% complete", id, formatNumber(pct))
	}
	ok := compare(op, pct, threshold)
	return pass(ok, "routine %s %s%% %s %s%%", id, formatNumber(pct), cmpSymbol(op, ok), formatNumber(threshold))
}

func goalClause(op models.Operator, id string, g models.GoalProgress, threshold float64) clause {
	switch op {
	case models.OpGoalAchieved:
		return pass(g.Achieved, "goal %s achieved=%t", id, g.Achieved)
	case models.OpGoalNotAchieved:
		return pass(!g.Achieved, "goal %s achieved=%t", id, g.Achieved)
	default:
		pct := g.Percent()
		ok := compare(op, pct, threshold)
		return pass(ok, "goal %s progress %s%% %s %s%%", id, formatNumber(pct), cmpSymbol(op, ok), formatNumber(threshold))
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func timeClause(check models.ConditionCheck, ec EvaluationContext) clause {
	if check.TimeOperator == "" {
		return absent()
	}
	start, err := utils.ParseTimeToMinutes(check.TimeValue)
	if err != nil {
		return configError(check, "time_value", "%q is not HH:MM", check.TimeValue)
	}
	now := ec.TimeOfDay

	switch check.TimeOperator {
	case models.TimeBefore:
		ok := now < start
		return pass(ok, "time %s %s %s", ec.Clock(), ternary(ok, "before", "not before"), check.TimeValue)
	case models.TimeAfter:
		ok := now > start
		return pass(ok, "time %s %s %s", ec.Clock(), ternary(ok, "after", "not after"), check.TimeValue)
	case models.TimeBetween:
		end, err := utils.ParseTimeToMinutes(check.Value2)
		if err != nil {
			return configError(check, "value2", "BETWEEN end %q is not HH:MM", check.Value2)
		}
		ok := InWindow(now, start, end)
		return pass(ok, "time %s %s %s-%s", ec.Clock(), ternary(ok, "within", "outside"), check.TimeValue, check.Value2)
	default:
		return configError(check, "time_operator", "unknown time operator %q", check.TimeOperator)
	}
}

// InWindow reports whether minute-of-day now lies in the inclusive window
// [start, end]. A window whose start is after its end wraps past midnight.
func InWindow(now, start, end int) bool {
	if start <= end {
		return start <= now && now <= end
	}
	return now >= start || now <= end
}

func dayClause(check models.ConditionCheck, ec EvaluationContext) clause {
	if len(check.DayOfWeek) == 0 {
		return absent()
	}
	var valid []int
	var bad []int
	for _, d := range check.DayOfWeek {
		if d < 0 || d > 6 {
			bad = append(bad, d)
			continue
		}
		valid = append(valid, d)
	}

	day := ec.Weekday().String()[:3]
	ok := slices.Contains(valid, ec.DayOfWeek)
	c := pass(ok, "day %s %s [%s]", day, ternary(ok, "in", "not in"), models.FormatDays(valid))
	if len(bad) > 0 {
		bc := configError(check, "day_of_week", "values %v outside 0..6 ignored", bad)
		c.diag = bc.diag
	}
	return c
}

func ternary(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
