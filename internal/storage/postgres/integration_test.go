package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/engine"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

// TestStore_Integration tests PostgreSQL store with a real database
// Set POSTGRES_TEST_URL environment variable to run this test
// Example: POSTGRES_TEST_URL="postgres://routinely_user@localhost:5432/routinely_test?sslmode=disable"
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // Monday
	clk := clock.NewFixed(now)

	store := New(connStr)
	store.SetClock(clk)
	require.NoError(t, store.Init())
	defer store.Close()

	ctx := context.Background()
	// Unique ids keep reruns against the same database independent.
	suffix := uuid.NewString()[:8]
	routineID := "r-" + suffix
	taskID := "t-" + suffix
	goalID := "g-" + suffix
	condID := "c-" + suffix

	t.Run("Settings", func(t *testing.T) {
		settings, err := store.GetSettings(ctx)
		require.NoError(t, err)

		settings.MaxOverrideMinutes = 90
		require.NoError(t, store.SaveSettings(ctx, settings))

		updated, err := store.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 90, updated.MaxOverrideMinutes)
	})

	t.Run("RoutinesAndTasks", func(t *testing.T) {
		require.NoError(t, store.AddRoutine(ctx, models.Routine{ID: routineID, Name: "Morning " + suffix, CreatedAt: now}))
		require.NoError(t, store.AddTask(ctx, models.Task{ID: taskID, RoutineID: routineID, Name: "stretch", Active: true, CreatedAt: now}))

		r, err := store.GetRoutineByName(ctx, "morning "+suffix)
		require.NoError(t, err)
		assert.Equal(t, routineID, r.ID)
		assert.True(t, r.CreatedAt.Equal(now))

		require.NoError(t, store.AddCompletion(ctx, models.TaskCompletion{
			ID: uuid.NewString(), TaskID: taskID, Day: now.Format(constants.DateFormat),
		}))

		st, err := store.GetTaskState(ctx, taskID, now.Truncate(24*time.Hour), now)
		require.NoError(t, err)
		assert.Equal(t, models.TaskState{Completed: true, Count: 1, Streak: 1}, st)

		pct, err := store.GetRoutineCompletionPercent(ctx, routineID, now.Truncate(24*time.Hour), now)
		require.NoError(t, err)
		assert.InDelta(t, 100, pct, 0.001)
	})

	t.Run("Goals", func(t *testing.T) {
		require.NoError(t, store.AddGoal(ctx, models.Goal{ID: goalID, Name: "pages", Current: 5, Target: 20, CreatedAt: now}))

		p, err := store.GetGoalProgress(ctx, goalID)
		require.NoError(t, err)
		assert.InDelta(t, 25, p.Percent(), 0.001)
		assert.False(t, p.Achieved)
	})

	t.Run("Conditions", func(t *testing.T) {
		c := models.Condition{
			ID: condID, RoutineID: routineID, Name: "weekdays", Logic: models.LogicAnd,
			ControlsRoutine: true, Enabled: true,
			Checks: []models.ConditionCheck{
				{ID: "k1-" + suffix, DayOfWeek: []int{1, 2, 3, 4, 5}},
				{ID: "k2-" + suffix, Operator: models.OpGoalProgressGT, TargetGoalID: goalID, Value: "10"},
			},
		}
		require.NoError(t, store.SaveCondition(ctx, c))

		conds, err := store.ListConditions(ctx, routineID)
		require.NoError(t, err)
		require.Len(t, conds, 1)
		require.Len(t, conds[0].Checks, 2)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, conds[0].Checks[0].DayOfWeek)
	})

	t.Run("EngineOverStore", func(t *testing.T) {
		eng := engine.New(store, clk, engine.Config{Location: time.UTC, ResetPeriod: models.ResetDaily, WeekStart: 1, MaxOverrideMinutes: 60})

		res, err := eng.EvaluateRoutineVisibility(ctx, routineID, nil)
		require.NoError(t, err)
		assert.True(t, res.Visible)

		clk.Set(now.AddDate(0, 0, 5)) // Saturday
		res, err = eng.EvaluateRoutineVisibility(ctx, routineID, nil)
		require.NoError(t, err)
		assert.False(t, res.Visible)

		_, err = eng.CreateOverride(ctx, routineID, 15)
		require.NoError(t, err)
		res, err = eng.EvaluateRoutineVisibility(ctx, routineID, nil)
		require.NoError(t, err)
		assert.True(t, res.Visible)
		assert.True(t, res.OverrideActive)

		cancelled, err := eng.CancelOverride(ctx, routineID)
		require.NoError(t, err)
		assert.True(t, cancelled)
		clk.Set(now)
	})

	t.Run("Cleanup", func(t *testing.T) {
		require.NoError(t, store.DeleteCondition(ctx, condID))
		require.NoError(t, store.DeleteGoal(ctx, goalID))
		require.NoError(t, store.DeleteRoutine(ctx, routineID))

		_, err := store.GetTask(ctx, taskID)
		assert.True(t, apperrors.IsNotFound(err))
	})
}
