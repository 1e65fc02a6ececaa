package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	pq "github.com/lib/pq"

	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

const conditionColumns = "id, routine_id, name, description, logic, controls_routine, enabled, position, created_at, updated_at"

const checkColumns = `id, condition_id, negate, operator, value, value2,
	target_task_id, target_routine_id, target_goal_id,
	time_operator, time_value, day_of_week, position`

// SaveCondition upserts the condition row and replaces its checks in one
// transaction. Checks cascade with their condition.
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			routine_id = EXCLUDED.routine_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			logic = EXCLUDED.logic,
			controls_routine = EXCLUDED.controls_routine,
			enabled = EXCLUDED.enabled,
			position = EXCLUDED.position,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.RoutineID, c.Name, c.Description, string(c.Logic), c.ControlsRoutine, c.Enabled, c.Position,
		utc(c.CreatedAt), utc(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save condition %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM condition_checks WHERE condition_id = $1", c.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO condition_checks (`+checkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ch := range c.Checks {
		days := ch.DayOfWeek
		if days == nil {
			days = []int{}
		}
		raw, err := json.Marshal(days)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, c.ID, ch.Negate, string(ch.Operator), ch.Value, ch.Value2,
			ch.TargetTaskID, ch.TargetRoutineID, ch.TargetGoalID,
			string(ch.TimeOperator), ch.TimeValue, string(raw), i,
		); err != nil {
			return fmt.Errorf("failed to save check %s: %w", ch.ID, err)
		}
	}

	return tx.Commit()
}

func scanCondition(row interface{ Scan(...any) error }) (models.Condition, error) {
	var c models.Condition
	var logic string
	if err := row.Scan(&c.ID, &c.RoutineID, &c.Name, &c.Description, &logic,
		&c.ControlsRoutine, &c.Enabled, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return models.Condition{}, err
	}
	c.Logic = models.Logic(logic)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.Checks = []models.ConditionCheck{}
	return c, nil
}

func scanCheck(row interface{ Scan(...any) error }) (models.ConditionCheck, error) {
	var ch models.ConditionCheck
	var op, timeOp string
	var days []byte
	if err := row.Scan(&ch.ID, &ch.ConditionID, &ch.Negate, &op, &ch.Value, &ch.Value2,
		&ch.TargetTaskID, &ch.TargetRoutineID, &ch.TargetGoalID,
		&timeOp, &ch.TimeValue, &days, &ch.Position); err != nil {
		return models.ConditionCheck{}, err
	}
	ch.Operator = models.Operator(op)
	ch.TimeOperator = models.TimeOperator(timeOp)
	ch.DayOfWeek = storage.DecodeDayOfWeek(ch.ID, days)
	return ch, nil
}

func (s *Store) GetCondition(ctx context.Context, id string) (models.Condition, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+conditionColumns+" FROM conditions WHERE id = $1", id)
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

func (s *Store) ListConditions(ctx context.Context, routineID string) ([]models.Condition, error) {
	return s.queryConditions(ctx, "WHERE routine_id = $1", routineID)
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

// attachChecks loads the checks of every condition in one round trip.
func (s *Store) attachChecks(ctx context.Context, conds []models.Condition) error {
	if len(conds) == 0 {
		return nil
	}
	ids := make([]string, len(conds))
	index := make(map[string]int, len(conds))
	for i, c := range conds {
		ids[i] = c.ID
		index[c.ID] = i
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+checkColumns+" FROM condition_checks WHERE condition_id = ANY($1) ORDER BY condition_id, position, id",
		pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		ch, err := scanCheck(rows)
		if err != nil {
			return err
		}
		i := index[ch.ConditionID]
		conds[i].Checks = append(conds[i].Checks, ch)
	}
	return rows.Err()
}

func (s *Store) DeleteCondition(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conditions WHERE id = $1", id)
	if err != nil {
		return err
	}
	return affected(res, "condition", id)
}
