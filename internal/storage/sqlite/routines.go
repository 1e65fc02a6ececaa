package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

func (s *Store) AddRoutine(ctx context.Context, r models.Routine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO routines (id, name, created_at, deleted_at)
		VALUES (?, ?, ?, ?)`,
		r.ID, r.Name, formatTime(r.CreatedAt), nullTime(r.DeletedAt))
	return err
}

func scanRoutine(row interface{ Scan(...any) error }) (models.Routine, error) {
	var r models.Routine
	var createdAt string
	var deletedAt sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &createdAt, &deletedAt); err != nil {
		return models.Routine{}, err
	}
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Routine{}, fmt.Errorf("failed to parse created_at for routine %s: %w", r.ID, err)
	}
	if r.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return models.Routine{}, fmt.Errorf("failed to parse deleted_at for routine %s: %w", r.ID, err)
	}
	return r, nil
}

func (s *Store) GetRoutine(ctx context.Context, id string) (models.Routine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, deleted_at
		FROM routines WHERE id = ? AND deleted_at IS NULL`, id)
	r, err := scanRoutine(row)
	if err != nil {
		return models.Routine{}, notFound(err, "routine", id)
	}
	return r, nil
}

func (s *Store) GetRoutineByName(ctx context.Context, name string) (models.Routine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, deleted_at
		FROM routines WHERE name = ? COLLATE NOCASE AND deleted_at IS NULL
		ORDER BY created_at LIMIT 1`, name)
	r, err := scanRoutine(row)
	if err != nil {
		return models.Routine{}, notFound(err, "routine", name)
	}
	return r, nil
}

func (s *Store) ListRoutines(ctx context.Context, includeDeleted bool) ([]models.Routine, error) {
	query := "SELECT id, name, created_at, deleted_at FROM routines"
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

// DeleteRoutine soft-deletes a routine and its tasks. Conditions that point
// at them stay in place and fail closed as dangling references.
func (s *Store) DeleteRoutine(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := formatTime(s.clock.Now())
	res, err := tx.ExecContext(ctx, "UPDATE routines SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("routine %s: %w", id, apperrors.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE tasks SET deleted_at = ? WHERE routine_id = ? AND deleted_at IS NULL", now, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM visibility_overrides WHERE routine_id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) AddTask(ctx context.Context, t models.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, routine_id, name, active, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.RoutineID, t.Name, t.Active, formatTime(t.CreatedAt), nullTime(t.DeletedAt))
	return err
}

const taskColumns = "id, routine_id, name, active, created_at, deleted_at"

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	var createdAt string
	var deletedAt sql.NullString
	if err := row.Scan(&t.ID, &t.RoutineID, &t.Name, &t.Active, &createdAt, &deletedAt); err != nil {
		return models.Task{}, err
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Task{}, fmt.Errorf("failed to parse created_at for task %s: %w", t.ID, err)
	}
	if t.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return models.Task{}, fmt.Errorf("failed to parse deleted_at for task %s: %w", t.ID, err)
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ? AND deleted_at IS NULL", id)
	t, err := scanTask(row)
	if err != nil {
		return models.Task{}, notFound(err, "task", id)
	}
	return t, nil
}

// ListTasks returns the live tasks of a routine, or of every routine when
// routineID is empty.
func (s *Store) ListTasks(ctx context.Context, routineID string) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE deleted_at IS NULL"
	var args []any
	if routineID != "" {
		query += " AND routine_id = ?"
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
	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET active = ? WHERE id = ? AND deleted_at IS NULL", active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		formatTime(s.clock.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (s *Store) AddCompletion(ctx context.Context, c models.TaskCompletion) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.clock.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_completions (id, task_id, day, created_at)
		VALUES (?, ?, ?, ?)`,
		c.ID, c.TaskID, c.Day, formatTime(c.CreatedAt))
	return err
}

func (s *Store) RemoveCompletion(ctx context.Context, taskID, day string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM task_completions WHERE id = (
			SELECT id FROM task_completions
			WHERE task_id = ? AND day = ?
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
	rows, err := s.db.QueryContext(ctx, "SELECT day FROM task_completions WHERE task_id = ? ORDER BY day", taskID)
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
