package postgres

import (
	"context"

	"github.com/julianstephens/routinely/internal/models"
)

func (s *Store) GetOverride(ctx context.Context, routineID string) (models.VisibilityOverride, error) {
	var o models.VisibilityOverride
	err := s.db.QueryRowContext(ctx,
		"SELECT routine_id, expires_at, created_at FROM visibility_overrides WHERE routine_id = $1", routineID,
	).Scan(&o.RoutineID, &o.ExpiresAt, &o.CreatedAt)
	if err != nil {
		return models.VisibilityOverride{}, notFound(err, "override", routineID)
	}
	o.ExpiresAt = o.ExpiresAt.UTC()
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

func (s *Store) UpsertOverride(ctx context.Context, o models.VisibilityOverride) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visibility_overrides (routine_id, expires_at, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (routine_id) DO UPDATE SET
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at`,
		o.RoutineID, utc(o.ExpiresAt), utc(o.CreatedAt))
	return err
}

func (s *Store) DeleteOverride(ctx context.Context, routineID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM visibility_overrides WHERE routine_id = $1", routineID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
