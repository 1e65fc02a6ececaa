package postgres

import (
	"context"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

func (s *Store) GetTaskState(ctx context.Context, taskID string, periodStart, asOf time.Time) (models.TaskState, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return models.TaskState{}, err
	}
	days, err := s.ListCompletionDays(ctx, taskID)
	if err != nil {
		return models.TaskState{}, err
	}
	return storage.TaskStateFromDays(days, periodStart, asOf.In(periodStart.Location())), nil
}

func (s *Store) GetRoutineCompletionPercent(ctx context.Context, routineID string, periodStart, asOf time.Time) (float64, error) {
	if _, err := s.GetRoutine(ctx, routineID); err != nil {
		return 0, err
	}

	var active, completed int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE EXISTS (
				SELECT 1 FROM task_completions c
				WHERE c.task_id = t.id AND c.day >= $1 AND c.day <= $2
			))
		FROM tasks t
		WHERE t.routine_id = $3 AND t.active AND t.deleted_at IS NULL`,
		periodStart.Format(constants.DateFormat),
		asOf.In(periodStart.Location()).Format(constants.DateFormat),
		routineID,
	).Scan(&active, &completed)
	if err != nil {
		return 0, err
	}
	return storage.RoutinePercent(active, completed), nil
}

func (s *Store) GetGoalProgress(ctx context.Context, goalID string) (models.GoalProgress, error) {
	g, err := s.GetGoal(ctx, goalID)
	if err != nil {
		return models.GoalProgress{}, err
	}
	return storage.GoalProgressFrom(g), nil
}
