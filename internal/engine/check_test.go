package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

func checkFixture() *memStore {
	s := newMemStore()
	s.tasks["t-done"] = models.TaskState{Completed: true, Count: 3, Streak: 5}
	s.tasks["t-open"] = models.TaskState{Completed: false, Count: 0, Streak: 0}
	s.routines["r-full"] = 100
	s.routines["r-part"] = 62.5
	s.goals["g-half"] = models.GoalProgress{Current: 5, Target: 10}
	s.goals["g-done"] = models.GoalProgress{Current: 10, Target: 10, Achieved: true}
	return s
}

func TestEvaluateCheckTargetOperators(t *testing.T) {
	ev := NewEvaluator(checkFixture())
	ec := NewEvaluationContext(at(2, 9, 0), utcConfig())

	tests := []struct {
		name  string
		check models.ConditionCheck
		want  bool
	}{
		{"task completed", models.ConditionCheck{Operator: models.OpTaskCompleted, TargetTaskID: "t-done"}, true},
		{"task completed on open task", models.ConditionCheck{Operator: models.OpTaskCompleted, TargetTaskID: "t-open"}, false},
		{"task not completed", models.ConditionCheck{Operator: models.OpTaskNotCompleted, TargetTaskID: "t-open"}, true},
		{"count above", models.ConditionCheck{Operator: models.OpTaskCountGT, Value: "2", TargetTaskID: "t-done"}, true},
		{"count not above equal", models.ConditionCheck{Operator: models.OpTaskCountGT, Value: "3", TargetTaskID: "t-done"}, false},
		{"count below", models.ConditionCheck{Operator: models.OpTaskCountLT, Value: "1", TargetTaskID: "t-open"}, true},
		{"streak above", models.ConditionCheck{Operator: models.OpTaskStreakGT, Value: "4", TargetTaskID: "t-done"}, true},
		{"streak below", models.ConditionCheck{Operator: models.OpTaskStreakLT, Value: "5", TargetTaskID: "t-done"}, false},
		{"routine completed", models.ConditionCheck{Operator: models.OpRoutineCompleted, TargetRoutineID: "r-full"}, true},
		{"routine partially completed", models.ConditionCheck{Operator: models.OpRoutineCompleted, TargetRoutineID: "r-part"}, false},
		{"routine percent above", models.ConditionCheck{Operator: models.OpRoutinePercentGT, Value: "50", TargetRoutineID: "r-part"}, true},
		{"routine percent below fraction", models.ConditionCheck{Operator: models.OpRoutinePercentLT, Value: "62.4", TargetRoutineID: "r-part"}, false},
		{"goal achieved", models.ConditionCheck{Operator: models.OpGoalAchieved, TargetGoalID: "g-done"}, true},
		{"goal not achieved", models.ConditionCheck{Operator: models.OpGoalNotAchieved, TargetGoalID: "g-half"}, true},
		{"goal progress above", models.ConditionCheck{Operator: models.OpGoalProgressGT, Value: "40", TargetGoalID: "g-half"}, true},
		{"goal progress below", models.ConditionCheck{Operator: models.OpGoalProgressLT, Value: "50", TargetGoalID: "g-half"}, false},
		{"value with spaces", models.ConditionCheck{Operator: models.OpTaskCountGT, Value: " 2 ", TargetTaskID: "t-done"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check.ID = "c1"
			res, err := ev.EvaluateCheck(context.Background(), tt.check, ec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Passed, res.Reason)
			assert.Empty(t, res.Diagnostics)
			assert.NotEmpty(t, res.Reason)
		})
	}
}

func TestEvaluateCheckNegation(t *testing.T) {
	ev := NewEvaluator(checkFixture())
	ec := NewEvaluationContext(at(3, 23, 0), utcConfig())

	checks := []models.ConditionCheck{
		{Operator: models.OpTaskCompleted, TargetTaskID: "t-done"},
		{Operator: models.OpGoalProgressGT, Value: "80", TargetGoalID: "g-half"},
		{TimeOperator: models.TimeBetween, TimeValue: "22:00", Value2: "06:00"},
		{DayOfWeek: []int{1, 3, 5}},
		{Operator: models.OpTaskCompleted, TargetTaskID: "t-done", DayOfWeek: []int{2}},
		{Operator: models.OpTaskCountGT, Value: "many", TargetTaskID: "t-done"},
		{Operator: models.OpTaskCompleted, TargetTaskID: "t-missing"},
		{},
	}

	for _, check := range checks {
		t.Run(check.Describe(), func(t *testing.T) {
			plain, err := ev.EvaluateCheck(context.Background(), check, ec)
			require.NoError(t, err)

			check.Negate = true
			negated, err := ev.EvaluateCheck(context.Background(), check, ec)
			require.NoError(t, err)

			assert.Equal(t, !plain.Passed, negated.Passed)
			assert.True(t, negated.Negated)
			assert.Contains(t, negated.Reason, "negated")
		})
	}
}

func TestEvaluateCheckTimeClause(t *testing.T) {
	ev := NewEvaluator(newMemStore())

	between := models.ConditionCheck{TimeOperator: models.TimeBetween, TimeValue: "22:00", Value2: "06:00"}
	daytime := models.ConditionCheck{TimeOperator: models.TimeBetween, TimeValue: "09:00", Value2: "17:00"}
	before := models.ConditionCheck{TimeOperator: models.TimeBefore, TimeValue: "09:00"}
	after := models.ConditionCheck{TimeOperator: models.TimeAfter, TimeValue: "09:00"}

	tests := []struct {
		name   string
		check  models.ConditionCheck
		hh, mm int
		want   bool
	}{
		{"overnight window late evening", between, 23, 0, true},
		{"overnight window early morning", between, 3, 0, true},
		{"overnight window midday", between, 12, 0, false},
		{"overnight window start inclusive", between, 22, 0, true},
		{"overnight window end inclusive", between, 6, 0, true},
		{"overnight window just after end", between, 6, 1, false},
		{"day window inside", daytime, 12, 30, true},
		{"day window end inclusive", daytime, 17, 0, true},
		{"day window outside", daytime, 17, 1, false},
		{"before", before, 8, 59, true},
		{"before is strict", before, 9, 0, false},
		{"after", after, 9, 1, true},
		{"after is strict", after, 9, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := NewEvaluationContext(at(2, tt.hh, tt.mm), utcConfig())
			res, err := ev.EvaluateCheck(context.Background(), tt.check, ec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Passed, res.Reason)
		})
	}
}

func TestInWindow(t *testing.T) {
	assert.True(t, InWindow(0, 0, 0))
	assert.False(t, InWindow(1, 0, 0))
	assert.True(t, InWindow(1439, 1380, 60))
	assert.True(t, InWindow(0, 1380, 60))
	assert.False(t, InWindow(720, 1380, 60))
}

func TestEvaluateCheckDayClause(t *testing.T) {
	ev := NewEvaluator(newMemStore())
	mwf := models.ConditionCheck{DayOfWeek: []int{1, 3, 5}}

	mon, err := ev.EvaluateCheck(context.Background(), mwf, NewEvaluationContext(at(2, 9, 0), utcConfig()))
	require.NoError(t, err)
	assert.True(t, mon.Passed)

	tue, err := ev.EvaluateCheck(context.Background(), mwf, NewEvaluationContext(at(3, 9, 0), utcConfig()))
	require.NoError(t, err)
	assert.False(t, tue.Passed)
	assert.Contains(t, tue.Reason, "Tue not in [Mon Wed Fri]")

	t.Run("out of range days never match", func(t *testing.T) {
		check := models.ConditionCheck{ID: "bad-day", DayOfWeek: []int{7, 2}}
		res, err := ev.EvaluateCheck(context.Background(), check, NewEvaluationContext(at(3, 9, 0), utcConfig()))
		require.NoError(t, err)
		assert.True(t, res.Passed, "Tuesday is still listed")
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, constants.DiagnosticConfiguration, res.Diagnostics[0].Kind)

		check.DayOfWeek = []int{7, 9}
		res, err = ev.EvaluateCheck(context.Background(), check, NewEvaluationContext(at(3, 9, 0), utcConfig()))
		require.NoError(t, err)
		assert.False(t, res.Passed)
	})
}

func TestEvaluateCheckClausesAreConjunctive(t *testing.T) {
	ev := NewEvaluator(checkFixture())
	check := models.ConditionCheck{
		Operator:     models.OpTaskCompleted,
		TargetTaskID: "t-done",
		TimeOperator: models.TimeBefore,
		TimeValue:    "10:00",
		DayOfWeek:    []int{1},
	}

	res, err := ev.EvaluateCheck(context.Background(), check, NewEvaluationContext(at(2, 9, 0), utcConfig()))
	require.NoError(t, err)
	assert.True(t, res.Passed)

	res, err = ev.EvaluateCheck(context.Background(), check, NewEvaluationContext(at(2, 11, 0), utcConfig()))
	require.NoError(t, err)
	assert.False(t, res.Passed, "time clause fails")

	res, err = ev.EvaluateCheck(context.Background(), check, NewEvaluationContext(at(3, 9, 0), utcConfig()))
	require.NoError(t, err)
	assert.False(t, res.Passed, "day clause fails")

	res, err = ev.EvaluateCheck(context.Background(), models.ConditionCheck{}, NewEvaluationContext(at(3, 9, 0), utcConfig()))
	require.NoError(t, err)
	assert.True(t, res.Passed, "a check with no clauses does not constrain")
}

func TestEvaluateCheckFailsClosed(t *testing.T) {
	ev := NewEvaluator(checkFixture())
	ec := NewEvaluationContext(at(2, 9, 0), utcConfig())

	tests := []struct {
		name  string
		check models.ConditionCheck
		kind  string
	}{
		{"non numeric value", models.ConditionCheck{Operator: models.OpTaskCountGT, Value: "lots", TargetTaskID: "t-done"}, constants.DiagnosticConfiguration},
		{"missing value", models.ConditionCheck{Operator: models.OpRoutinePercentGT, TargetRoutineID: "r-full"}, constants.DiagnosticConfiguration},
		{"NaN value", models.ConditionCheck{Operator: models.OpGoalProgressLT, Value: "NaN", TargetGoalID: "g-half"}, constants.DiagnosticConfiguration},
		{"unknown operator", models.ConditionCheck{Operator: "TASK_EXPLODED", TargetTaskID: "t-done"}, constants.DiagnosticConfiguration},
		{"operator target mismatch", models.ConditionCheck{Operator: models.OpGoalAchieved, TargetTaskID: "t-done"}, constants.DiagnosticConfiguration},
		{"operator without target", models.ConditionCheck{Operator: models.OpTaskCompleted}, constants.DiagnosticConfiguration},
		{"target without operator", models.ConditionCheck{TargetTaskID: "t-done"}, constants.DiagnosticConfiguration},
		{"two targets", models.ConditionCheck{Operator: models.OpTaskCompleted, TargetTaskID: "t-done", TargetGoalID: "g-done"}, constants.DiagnosticConfiguration},
		{"bad time value", models.ConditionCheck{TimeOperator: models.TimeBefore, TimeValue: "25:00"}, constants.DiagnosticConfiguration},
		{"between without end", models.ConditionCheck{TimeOperator: models.TimeBetween, TimeValue: "08:00"}, constants.DiagnosticConfiguration},
		{"unknown time operator", models.ConditionCheck{TimeOperator: "AROUND", TimeValue: "08:00"}, constants.DiagnosticConfiguration},
		{"deleted task", models.ConditionCheck{Operator: models.OpTaskNotCompleted, TargetTaskID: "t-9"}, constants.DiagnosticDanglingReference},
		{"deleted routine", models.ConditionCheck{Operator: models.OpRoutineCompleted, TargetRoutineID: "r-9"}, constants.DiagnosticDanglingReference},
		{"deleted goal", models.ConditionCheck{Operator: models.OpGoalNotAchieved, TargetGoalID: "g-9"}, constants.DiagnosticDanglingReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check.ID = "chk"
			res, err := ev.EvaluateCheck(context.Background(), tt.check, ec)
			require.NoError(t, err)
			assert.False(t, res.Passed)
			require.NotEmpty(t, res.Diagnostics)
			assert.Equal(t, tt.kind, res.Diagnostics[0].Kind)
			assert.Contains(t, res.Diagnostics[0].Message, "check chk")
		})
	}
}

func TestEvaluateCheckDanglingMessage(t *testing.T) {
	ev := NewEvaluator(newMemStore())
	check := models.ConditionCheck{ID: "X", Operator: models.OpTaskCompleted, TargetTaskID: "t-9"}

	res, err := ev.EvaluateCheck(context.Background(), check, NewEvaluationContext(at(2, 9, 0), utcConfig()))
	require.NoError(t, err)
	assert.Equal(t, "check X: task t-9 no longer exists", res.Reason)
}

func TestEvaluateCheckProviderError(t *testing.T) {
	store := checkFixture()
	boom := errors.New("connection reset")
	store.stateErr = boom
	ev := NewEvaluator(store)

	_, err := ev.EvaluateCheck(context.Background(),
		models.ConditionCheck{Operator: models.OpGoalAchieved, TargetGoalID: "g-done"},
		NewEvaluationContext(at(2, 9, 0), utcConfig()))
	require.Error(t, err)

	var spe *apperrors.StateProviderError
	require.ErrorAs(t, err, &spe)
	assert.Equal(t, "GetGoalProgress", spe.Op)
	assert.Equal(t, "g-done", spe.ID)
	assert.ErrorIs(t, err, boom)
}

func TestEvaluateCheckConfigErrorSkipsProvider(t *testing.T) {
	store := checkFixture()
	ev := NewEvaluator(store)

	_, err := ev.EvaluateCheck(context.Background(),
		models.ConditionCheck{Operator: models.OpTaskCountGT, Value: "x", TargetTaskID: "t-done"},
		NewEvaluationContext(at(2, 9, 0), utcConfig()))
	require.NoError(t, err)
	assert.Zero(t, store.stateCalls)
}

func TestEvaluateCheckUsesPeriodBounds(t *testing.T) {
	store := checkFixture()
	ev := NewEvaluator(store)
	cfg := utcConfig()
	cfg.ResetPeriod = models.ResetWeekly

	// Thursday; weeks start Monday.
	_, err := ev.EvaluateCheck(context.Background(),
		models.ConditionCheck{Operator: models.OpTaskCompleted, TargetTaskID: "t-done"},
		NewEvaluationContext(at(5, 18, 0), cfg))
	require.NoError(t, err)
	require.Len(t, store.periods, 1)
	assert.Equal(t, at(2, 0, 0), store.periods[0])
	assert.Equal(t, at(5, 18, 0), store.asOfs[0])
}
