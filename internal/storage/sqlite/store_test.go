package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/engine"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

// Wednesday.
var testNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) (*Store, *clock.Fixed) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "routinely.db"))
	clk := clock.NewFixed(testNow)
	store.SetClock(clk)
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return store, clk
}

// setupMinimalTestStore opens the database without running migrations.
func setupMinimalTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	db, err := sql.Open("sqlite", store.path)
	require.NoError(t, err)
	store.db = db
	t.Cleanup(func() { store.Close() })
	return store
}

func seedRoutine(t *testing.T, s *Store, id string, tasks ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.AddRoutine(ctx, models.Routine{ID: id, Name: id, CreatedAt: testNow}))
	for _, tid := range tasks {
		require.NoError(t, s.AddTask(ctx, models.Task{ID: tid, RoutineID: id, Name: tid, Active: true, CreatedAt: testNow}))
	}
}

func complete(t *testing.T, s *Store, taskID string, day time.Time) {
	t.Helper()
	require.NoError(t, s.AddCompletion(context.Background(), models.TaskCompletion{
		ID:     taskID + "-" + day.Format(constants.DateFormat),
		TaskID: taskID,
		Day:    day.Format(constants.DateFormat),
	}))
}

func TestTableExists(t *testing.T) {
	t.Run("table exists", func(t *testing.T) {
		store := setupMinimalTestStore(t)
		_, err := store.db.Exec("CREATE TABLE test_table (id INTEGER PRIMARY KEY, name TEXT)")
		require.NoError(t, err)

		exists, err := store.tableExists("test_table")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("table does not exist", func(t *testing.T) {
		store := setupMinimalTestStore(t)
		exists, err := store.tableExists("nonexistent_table")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("case insensitive", func(t *testing.T) {
		store := setupMinimalTestStore(t)
		_, err := store.db.Exec("CREATE TABLE MixedCase (id INTEGER)")
		require.NoError(t, err)

		exists, err := store.tableExists("mixedcase")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestMissingTables(t *testing.T) {
	t.Run("fresh database", func(t *testing.T) {
		store := setupMinimalTestStore(t)
		missing, err := store.MissingTables()
		require.NoError(t, err)
		assert.Equal(t, Tables, missing)
	})

	t.Run("after init", func(t *testing.T) {
		store, _ := setupTestStore(t)
		missing, err := store.MissingTables()
		require.NoError(t, err)
		assert.Empty(t, missing)
	})
}

func TestInitSeedsDefaultSettings(t *testing.T) {
	store, _ := setupTestStore(t)

	settings, err := store.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings(), settings)
}

func TestInitKeepsExistingSettings(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	settings := models.DefaultSettings()
	settings.Timezone = "Asia/Tokyo"
	settings.MaxOverrideMinutes = 45
	require.NoError(t, store.SaveSettings(ctx, settings))

	require.NoError(t, store.Init())

	got, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", got.Timezone)
	assert.Equal(t, 45, got.MaxOverrideMinutes)
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routinely init")
}

func TestLoadAfterInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routinely.db")
	first := NewStore(path)
	require.NoError(t, first.Init())
	require.NoError(t, first.Close())

	second := NewStore(path)
	require.NoError(t, second.Load())
	defer second.Close()
	require.NoError(t, second.Ping(context.Background()))
}

func TestRoutineLifecycle(t *testing.T) {
	store, clk := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1", "t2")

	r, err := store.GetRoutineByName(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "r1", r.ID)

	clk.Advance(time.Hour)
	require.NoError(t, store.UpsertOverride(ctx, models.VisibilityOverride{
		RoutineID: "r1", ExpiresAt: testNow.Add(2 * time.Hour), CreatedAt: testNow,
	}))
	require.NoError(t, store.DeleteRoutine(ctx, "r1"))

	_, err = store.GetRoutine(ctx, "r1")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.GetTask(ctx, "t1")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.GetOverride(ctx, "r1")
	assert.True(t, apperrors.IsNotFound(err))

	live, err := store.ListRoutines(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, live)

	all, err := store.ListRoutines(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].DeletedAt)
	assert.True(t, all[0].DeletedAt.Equal(testNow.Add(time.Hour)))

	assert.True(t, apperrors.IsNotFound(store.DeleteRoutine(ctx, "r1")))
}

func TestTasks(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1", "t2")
	seedRoutine(t, store, "r2", "t3")

	tasks, err := store.ListTasks(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = store.ListTasks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	require.NoError(t, store.SetTaskActive(ctx, "t2", false))
	task, err := store.GetTask(ctx, "t2")
	require.NoError(t, err)
	assert.False(t, task.Active)

	require.NoError(t, store.DeleteTask(ctx, "t3"))
	assert.True(t, apperrors.IsNotFound(store.DeleteTask(ctx, "t3")))
	assert.True(t, apperrors.IsNotFound(store.SetTaskActive(ctx, "t3", true)))
}

func TestCompletions(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1")

	complete(t, store, "t1", testNow)
	require.NoError(t, store.AddCompletion(ctx, models.TaskCompletion{ID: "extra", TaskID: "t1", Day: "2026-03-04"}))
	complete(t, store, "t1", testNow.AddDate(0, 0, -1))

	days, err := store.ListCompletionDays(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-03", "2026-03-04", "2026-03-04"}, days)

	removed, err := store.RemoveCompletion(ctx, "t1", "2026-03-04")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.RemoveCompletion(ctx, "t1", "2026-01-01")
	require.NoError(t, err)
	assert.False(t, removed)

	days, err = store.ListCompletionDays(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, days, 2)
}

func TestGoals(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddGoal(ctx, models.Goal{ID: "g1", Name: "read", Current: 3, Target: 10, CreatedAt: testNow}))

	g, err := store.GetGoal(ctx, "g1")
	require.NoError(t, err)
	g.Current = 10
	achieved := testNow
	g.AchievedAt = &achieved
	require.NoError(t, store.UpdateGoal(ctx, g))

	progress, err := store.GetGoalProgress(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, models.GoalProgress{Current: 10, Target: 10, Achieved: true}, progress)

	goals, err := store.ListGoals(ctx)
	require.NoError(t, err)
	assert.Len(t, goals, 1)

	require.NoError(t, store.DeleteGoal(ctx, "g1"))
	_, err = store.GetGoalProgress(ctx, "g1")
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(store.UpdateGoal(ctx, g)))
}

func TestGetTaskState(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1")

	// Streak of three ending today; the oldest is before the period start.
	complete(t, store, "t1", testNow.AddDate(0, 0, -2))
	complete(t, store, "t1", testNow.AddDate(0, 0, -1))
	complete(t, store, "t1", testNow)

	periodStart := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	st, err := store.GetTaskState(ctx, "t1", periodStart, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.TaskState{Completed: true, Count: 2, Streak: 3}, st)

	_, err = store.GetTaskState(ctx, "missing", periodStart, testNow)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetRoutineCompletionPercent(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1", "t2", "t3", "t4")
	seedRoutine(t, store, "empty")

	periodStart := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	complete(t, store, "t1", testNow)
	complete(t, store, "t2", testNow.AddDate(0, 0, -1))
	complete(t, store, "t3", testNow)
	require.NoError(t, store.SetTaskActive(ctx, "t3", false))

	pct, err := store.GetRoutineCompletionPercent(ctx, "r1", periodStart, testNow)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3.0, pct, 0.001)

	pct, err = store.GetRoutineCompletionPercent(ctx, "empty", periodStart, testNow)
	require.NoError(t, err)
	assert.Zero(t, pct)

	_, err = store.GetRoutineCompletionPercent(ctx, "nope", periodStart, testNow)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStateFactsAsOfEarlierInstant(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1")
	complete(t, store, "t1", testNow)

	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mondayStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	weekStart := mondayStart

	tests := []struct {
		name        string
		periodStart time.Time
		asOf        time.Time
		wantState   models.TaskState
		wantPercent float64
	}{
		{"daily period at the completion day", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), testNow,
			models.TaskState{Completed: true, Count: 1, Streak: 1}, 100},
		{"daily period two days earlier", mondayStart, monday, models.TaskState{}, 0},
		{"weekly period before the completion", weekStart, monday, models.TaskState{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := store.GetTaskState(ctx, "t1", tt.periodStart, tt.asOf)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, st)

			pct, err := store.GetRoutineCompletionPercent(ctx, "r1", tt.periodStart, tt.asOf)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantPercent, pct, 0.001)
		})
	}
}

func sampleCondition() models.Condition {
	return models.Condition{
		ID:              "c1",
		RoutineID:       "r1",
		Name:            "weekday mornings",
		Logic:           models.LogicAnd,
		ControlsRoutine: true,
		Enabled:         true,
		Checks: []models.ConditionCheck{
			{ID: "k1", TimeOperator: models.TimeBefore, TimeValue: "12:00"},
			{ID: "k2", DayOfWeek: []int{1, 2, 3, 4, 5}},
			{ID: "k3", Operator: models.OpTaskCompleted, TargetTaskID: "t1", Negate: true},
		},
	}
}

func TestSaveAndGetCondition(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1")

	require.NoError(t, store.SaveCondition(ctx, sampleCondition()))

	got, err := store.GetCondition(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "weekday mornings", got.Name)
	assert.True(t, got.CreatedAt.Equal(testNow))
	require.Len(t, got.Checks, 3)
	assert.Equal(t, "k1", got.Checks[0].ID)
	assert.Equal(t, "c1", got.Checks[0].ConditionID)
	assert.Nil(t, got.Checks[0].DayOfWeek)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got.Checks[1].DayOfWeek)
	assert.True(t, got.Checks[2].Negate)
	assert.Equal(t, 2, got.Checks[2].Position)

	_, err = store.GetCondition(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSaveConditionReplacesChecks(t *testing.T) {
	store, clk := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1")

	c := sampleCondition()
	require.NoError(t, store.SaveCondition(ctx, c))

	saved, err := store.GetCondition(ctx, "c1")
	require.NoError(t, err)

	clk.Advance(time.Minute)
	saved.Enabled = false
	saved.UpdatedAt = time.Time{}
	saved.Checks = saved.Checks[:1]
	require.NoError(t, store.SaveCondition(ctx, saved))

	got, err := store.GetCondition(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Len(t, got.Checks, 1)
	assert.True(t, got.CreatedAt.Equal(testNow))
	assert.True(t, got.UpdatedAt.Equal(testNow.Add(time.Minute)))
}

func TestListConditionsOrder(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1")
	seedRoutine(t, store, "r2")

	for i, id := range []string{"c-b", "c-a", "c-c"} {
		require.NoError(t, store.SaveCondition(ctx, models.Condition{
			ID: id, RoutineID: "r1", Logic: models.LogicOr, Enabled: true, Position: 2 - i,
		}))
	}
	require.NoError(t, store.SaveCondition(ctx, models.Condition{ID: "other", RoutineID: "r2", Logic: models.LogicAnd}))

	conds, err := store.ListConditions(ctx, "r1")
	require.NoError(t, err)
	var ids []string
	for _, c := range conds {
		ids = append(ids, c.ID)
		assert.NotNil(t, c.Checks)
	}
	assert.Equal(t, []string{"c-c", "c-a", "c-b"}, ids)

	all, err := store.ListAllConditions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCorruptDayOfWeekFailsClosed(t *testing.T) {
	store, clk := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1")
	require.NoError(t, store.SaveCondition(ctx, sampleCondition()))
	_, err := store.db.Exec("UPDATE condition_checks SET day_of_week = '{not json' WHERE id = 'k2'")
	require.NoError(t, err)

	conds, err := store.ListConditions(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, conds, 1)
	assert.Equal(t, []int{storage.UnreadableDay}, conds[0].Checks[1].DayOfWeek)

	eng := engine.New(store, clk, engine.Config{Location: time.UTC, ResetPeriod: models.ResetDaily})
	res, err := eng.EvaluateRoutineVisibility(ctx, "r1", nil)
	require.NoError(t, err)
	assert.False(t, res.Visible)
	require.Len(t, res.ConditionResults, 1)
	day := res.ConditionResults[0].CheckResults[1]
	assert.False(t, day.Passed)
	require.NotEmpty(t, day.Diagnostics)
	assert.Equal(t, constants.DiagnosticConfiguration, day.Diagnostics[0].Kind)
}

func TestDeleteCondition(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1")
	require.NoError(t, store.SaveCondition(ctx, sampleCondition()))

	require.NoError(t, store.DeleteCondition(ctx, "c1"))
	assert.True(t, apperrors.IsNotFound(store.DeleteCondition(ctx, "c1")))

	var n int
	require.NoError(t, store.db.QueryRow("SELECT count(*) FROM condition_checks").Scan(&n))
	assert.Zero(t, n)
}

func TestConditionSurvivesTargetDeletion(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1", "t1")
	require.NoError(t, store.SaveCondition(ctx, sampleCondition()))

	require.NoError(t, store.DeleteTask(ctx, "t1"))

	c, err := store.GetCondition(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "t1", c.Checks[2].TargetTaskID)

	_, err = store.GetTaskState(ctx, "t1", testNow, testNow)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestOverrides(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1")

	_, err := store.GetOverride(ctx, "r1")
	assert.True(t, apperrors.IsNotFound(err))

	first := models.VisibilityOverride{RoutineID: "r1", ExpiresAt: testNow.Add(30 * time.Minute), CreatedAt: testNow}
	require.NoError(t, store.UpsertOverride(ctx, first))

	second := models.VisibilityOverride{RoutineID: "r1", ExpiresAt: testNow.Add(5 * time.Minute), CreatedAt: testNow.Add(time.Minute)}
	require.NoError(t, store.UpsertOverride(ctx, second))

	got, err := store.GetOverride(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(second.ExpiresAt))
	assert.True(t, got.CreatedAt.Equal(second.CreatedAt))

	deleted, err := store.DeleteOverride(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteOverride(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestConcurrentOverrideUpserts(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seedRoutine(t, store, "r1")

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(minutes int) {
			defer wg.Done()
			o := models.VisibilityOverride{
				RoutineID: "r1",
				ExpiresAt: testNow.Add(time.Duration(minutes) * time.Minute),
				CreatedAt: testNow,
			}
			assert.NoError(t, store.UpsertOverride(ctx, o))
		}(i)
	}
	wg.Wait()

	var n int
	require.NoError(t, store.db.QueryRow("SELECT count(*) FROM visibility_overrides WHERE routine_id = 'r1'").Scan(&n))
	assert.Equal(t, 1, n)
}
