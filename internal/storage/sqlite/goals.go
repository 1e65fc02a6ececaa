package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

const goalColumns = "id, name, current, target, achieved_at, created_at, deleted_at"

func scanGoal(row interface{ Scan(...any) error }) (models.Goal, error) {
	var g models.Goal
	var createdAt string
	var achievedAt, deletedAt sql.NullString
	if err := row.Scan(&g.ID, &g.Name, &g.Current, &g.Target, &achievedAt, &createdAt, &deletedAt); err != nil {
		return models.Goal{}, err
	}
	var err error
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Goal{}, fmt.Errorf("failed to parse created_at for goal %s: %w", g.ID, err)
	}
	if g.AchievedAt, err = parseNullTime(achievedAt); err != nil {
		return models.Goal{}, fmt.Errorf("failed to parse achieved_at for goal %s: %w", g.ID, err)
	}
	if g.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return models.Goal{}, fmt.Errorf("failed to parse deleted_at for goal %s: %w", g.ID, err)
	}
	return g, nil
}

func (s *Store) AddGoal(ctx context.Context, g models.Goal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Current, g.Target, nullTime(g.AchievedAt), formatTime(g.CreatedAt), nullTime(g.DeletedAt))
	return err
}

func (s *Store) GetGoal(ctx context.Context, id string) (models.Goal, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = ? AND deleted_at IS NULL", id)
	g, err := scanGoal(row)
	if err != nil {
		return models.Goal{}, notFound(err, "goal", id)
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context) ([]models.Goal, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE deleted_at IS NULL ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *Store) UpdateGoal(ctx context.Context, g models.Goal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE goals SET name = ?, current = ?, target = ?, achieved_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		g.Name, g.Current, g.Target, nullTime(g.AchievedAt), g.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("goal %s: %w", g.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE goals SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		formatTime(s.clock.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("goal %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
