package engine

import (
	"context"
	"time"

	"github.com/julianstephens/routinely/internal/models"
)

// ConditionStore supplies the conditions attached to a routine, checks nested.
type ConditionStore interface {
	ListConditions(ctx context.Context, routineID string) ([]models.Condition, error)
}

// StateProvider supplies already-computed facts about targets as of the
// evaluation instant: completions after asOf's day are not counted. Missing
// targets must be reported with an error wrapping errors.ErrNotFound.
type StateProvider interface {
	GetTaskState(ctx context.Context, taskID string, periodStart, asOf time.Time) (models.TaskState, error)
	GetRoutineCompletionPercent(ctx context.Context, routineID string, periodStart, asOf time.Time) (float64, error)
	GetGoalProgress(ctx context.Context, goalID string) (models.GoalProgress, error)
}

// OverrideStore keeps at most one override per routine. UpsertOverride must
// be atomic so concurrent creates for one routine resolve last-write-wins.
type OverrideStore interface {
	GetOverride(ctx context.Context, routineID string) (models.VisibilityOverride, error)
	UpsertOverride(ctx context.Context, o models.VisibilityOverride) error
	DeleteOverride(ctx context.Context, routineID string) (bool, error)
}
