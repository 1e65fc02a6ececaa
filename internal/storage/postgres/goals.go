package postgres

import (
	"context"
	"database/sql"

	"github.com/julianstephens/routinely/internal/models"
)

const goalColumns = "id, name, current, target, achieved_at, created_at, deleted_at"

func scanGoal(row interface{ Scan(...any) error }) (models.Goal, error) {
	var g models.Goal
	var achievedAt, deletedAt sql.NullTime
	if err := row.Scan(&g.ID, &g.Name, &g.Current, &g.Target, &achievedAt, &g.CreatedAt, &deletedAt); err != nil {
		return models.Goal{}, err
	}
	g.CreatedAt = g.CreatedAt.UTC()
	g.AchievedAt = timePtr(achievedAt)
	g.DeletedAt = timePtr(deletedAt)
	return g, nil
}

func (s *Store) AddGoal(ctx context.Context, g models.Goal) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO goals ("+goalColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		g.ID, g.Name, g.Current, g.Target, nullTime(g.AchievedAt), utc(g.CreatedAt), nullTime(g.DeletedAt))
	return err
}

func (s *Store) GetGoal(ctx context.Context, id string) (models.Goal, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = $1 AND deleted_at IS NULL", id)
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
		UPDATE goals SET name = $1, current = $2, target = $3, achieved_at = $4
		WHERE id = $5 AND deleted_at IS NULL`,
		g.Name, g.Current, g.Target, nullTime(g.AchievedAt), g.ID)
	if err != nil {
		return err
	}
	return affected(res, "goal", g.ID)
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE goals SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		utc(s.clock.Now()), id)
	if err != nil {
		return err
	}
	return affected(res, "goal", id)
}
