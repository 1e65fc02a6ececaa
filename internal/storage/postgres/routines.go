package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/julianstephens/routinely/internal/models"
)

func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

const routineColumns = "id, name, created_at, deleted_at"

func scanRoutine(row interface{ Scan(...any) error }) (models.Routine, error) {
	var r models.Routine
	var deletedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.Name, &r.CreatedAt, &deletedAt); err != nil {
		return models.Routine{}, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.DeletedAt = timePtr(deletedAt)
	return r, nil
}

func (s *Store) AddRoutine(ctx context.Context, r models.Routine) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO routines ("+routineColumns+") VALUES ($1, $2, $3, $4)",
		r.ID, r.Name, utc(r.CreatedAt), nullTime(r.DeletedAt))
	return err
}

func (s *Store) GetRoutine(ctx context.Context, id string) (models.Routine, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+routineColumns+" FROM routines WHERE id = $1 AND deleted_at IS NULL", id)
	r, err := scanRoutine(row)
	if err != nil {
		return models.Routine{}, notFound(err, "routine", id)
	}
	return r, nil
}

func (s *Store) GetRoutineByName(ctx context.Context, name string) (models.Routine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+routineColumns+` FROM routines
		WHERE lower(name) = lower($1) AND deleted_at IS NULL
		ORDER BY created_at LIMIT 1`, name)
	r, err := scanRoutine(row)
	if err != nil {
		return models.Routine{}, notFound(err, "routine", name)
	}
	return r, nil
}

func (s *Store) ListRoutines(ctx context.Context, includeDeleted bool) ([]models.Routine, error) {
	query := "SELECT " + routineColumns + " FROM routines"
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routines []models.Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		routines = append(routines, r)
	}
	return routines, rows.Err()
}

// DeleteRoutine soft-deletes a routine and its tasks and drops its override.
func (s *Store) DeleteRoutine(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := utc(s.clock.Now())
	res, err := tx.ExecContext(ctx, "UPDATE routines SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL", now, id)
	if err != nil {
		return err
	}
	if err := affected(res, "routine", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE tasks SET deleted_at = $1 WHERE routine_id = $2 AND deleted_at IS NULL", now, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM visibility_overrides WHERE routine_id = $1", id); err != nil {
		return err
	}
	return tx.Commit()
}

const taskColumns = "id, routine_id, name, active, created_at, deleted_at"

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	var deletedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.RoutineID, &t.Name, &t.Active, &t.CreatedAt, &deletedAt); err != nil {
		return models.Task{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.DeletedAt = timePtr(deletedAt)
	return t, nil
}

func (s *Store) AddTask(ctx context.Context, t models.Task) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		t.ID, t.RoutineID, t.Name, t.Active, utc(t.CreatedAt), nullTime(t.DeletedAt))
	return err
}

func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1 AND deleted_at IS NULL", id)
	t, err := scanTask(row)
	if err != nil {
		return models.Task{}, notFound(err, "task", id)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, routineID string) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE deleted_at IS NULL"
	var args []any
	if routineID != "" {
		query += " AND routine_id = $1"
		args = append(args, routineID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) SetTaskActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET active = $1 WHERE id = $2 AND deleted_at IS NULL", active, id)
	if err != nil {
		return err
	}
	return affected(res, "task", id)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		utc(s.clock.Now()), id)
	if err != nil {
		return err
	}
	return affected(res, "task", id)
}

func (s *Store) AddCompletion(ctx context.Context, c models.TaskCompletion) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.clock.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO task_completions (id, task_id, day, created_at) VALUES ($1, $2, $3, $4)",
		c.ID, c.TaskID, c.Day, utc(c.CreatedAt))
	return err
}

func (s *Store) RemoveCompletion(ctx context.Context, taskID, day string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM task_completions WHERE id = (
			SELECT id FROM task_completions
			WHERE task_id = $1 AND day = $2
			ORDER BY created_at DESC LIMIT 1
		)`, taskID, day)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListCompletionDays(ctx context.Context, taskID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT day FROM task_completions WHERE task_id = $1 ORDER BY day", taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
