package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

const conditionColumns = "id, routine_id, name, description, logic, controls_routine, enabled, position, created_at, updated_at"

const checkColumns = `id, condition_id, negate, operator, value, value2,
	target_task_id, target_routine_id, target_goal_id,
	time_operator, time_value, day_of_week, position`

// SaveCondition upserts the condition row and replaces its checks in one
// transaction.
func (s *Store) SaveCondition(ctx context.Context, c models.Condition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.clock.Now()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conditions (`+conditionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			routine_id = excluded.routine_id,
			name = excluded.name,
			description = excluded.description,
			logic = excluded.logic,
			controls_routine = excluded.controls_routine,
			enabled = excluded.enabled,
			position = excluded.position,
			updated_at = excluded.updated_at`,
		c.ID, c.RoutineID, c.Name, c.Description, string(c.Logic), c.ControlsRoutine, c.Enabled, c.Position,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save condition %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM condition_checks WHERE condition_id = ?", c.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO condition_checks (`+checkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ch := range c.Checks {
		days, err := json.Marshal(orEmpty(ch.DayOfWeek))
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, c.ID, ch.Negate, string(ch.Operator), ch.Value, ch.Value2,
			ch.TargetTaskID, ch.TargetRoutineID, ch.TargetGoalID,
			string(ch.TimeOperator), ch.TimeValue, string(days), i,
		); err != nil {
			return fmt.Errorf("failed to save check %s: %w", ch.ID, err)
		}
	}

	return tx.Commit()
}

func orEmpty(days []int) []int {
	if days == nil {
		return []int{}
	}
	return days
}

func scanCondition(row interface{ Scan(...any) error }) (models.Condition, error) {
	var c models.Condition
	var logic, createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.RoutineID, &c.Name, &c.Description, &logic,
		&c.ControlsRoutine, &c.Enabled, &c.Position, &createdAt, &updatedAt); err != nil {
		return models.Condition{}, err
	}
	c.Logic = models.Logic(logic)
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Condition{}, fmt.Errorf("failed to parse created_at for condition %s: %w", c.ID, err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Condition{}, fmt.Errorf("failed to parse updated_at for condition %s: %w", c.ID, err)
	}
	c.Checks = []models.ConditionCheck{}
	return c, nil
}

func (s *Store) GetCondition(ctx context.Context, id string) (models.Condition, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+conditionColumns+" FROM conditions WHERE id = ?", id)
	c, err := scanCondition(row)
	if err != nil {
		return models.Condition{}, notFound(err, "condition", id)
	}
	conds := []models.Condition{c}
	if err := s.attachChecks(ctx, conds); err != nil {
		return models.Condition{}, err
	}
	return conds[0], nil
}

// ListConditions returns a routine's conditions in display order with their
// checks attached.
func (s *Store) ListConditions(ctx context.Context, routineID string) ([]models.Condition, error) {
	return s.queryConditions(ctx, "WHERE routine_id = ?", routineID)
}

func (s *Store) ListAllConditions(ctx context.Context) ([]models.Condition, error) {
	return s.queryConditions(ctx, "")
}

func (s *Store) queryConditions(ctx context.Context, where string, args ...any) ([]models.Condition, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+conditionColumns+" FROM conditions "+where+" ORDER BY routine_id, position, created_at, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conds []models.Condition
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := s.attachChecks(ctx, conds); err != nil {
		return nil, err
	}
	return conds, nil
}

func (s *Store) attachChecks(ctx context.Context, conds []models.Condition) error {
	for i := range conds {
		rows, err := s.db.QueryContext(ctx,
			"SELECT "+checkColumns+" FROM condition_checks WHERE condition_id = ? ORDER BY position, id", conds[i].ID)
		if err != nil {
			return err
		}
		for rows.Next() {
			ch, err := scanCheck(rows)
			if err != nil {
				rows.Close()
				return err
			}
			conds[i].Checks = append(conds[i].Checks, ch)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func scanCheck(row interface{ Scan(...any) error }) (models.ConditionCheck, error) {
	var ch models.ConditionCheck
	var op, timeOp string
	var days sql.NullString
	if err := row.Scan(&ch.ID, &ch.ConditionID, &ch.Negate, &op, &ch.Value, &ch.Value2,
		&ch.TargetTaskID, &ch.TargetRoutineID, &ch.TargetGoalID,
		&timeOp, &ch.TimeValue, &days, &ch.Position); err != nil {
		return models.ConditionCheck{}, err
	}
	ch.Operator = models.Operator(op)
	ch.TimeOperator = models.TimeOperator(timeOp)
	if days.Valid {
		ch.DayOfWeek = storage.DecodeDayOfWeek(ch.ID, []byte(days.String))
	}
	return ch, nil
}

func (s *Store) DeleteCondition(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM condition_checks WHERE condition_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM conditions WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(sql.ErrNoRows, "condition", id)
	}
	return tx.Commit()
}
