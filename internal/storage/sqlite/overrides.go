package sqlite

import (
	"context"
	"fmt"

	"github.com/julianstephens/routinely/internal/models"
)

func (s *Store) GetOverride(ctx context.Context, routineID string) (models.VisibilityOverride, error) {
	var o models.VisibilityOverride
	var expiresAt, createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT routine_id, expires_at, created_at FROM visibility_overrides WHERE routine_id = ?", routineID,
	).Scan(&o.RoutineID, &expiresAt, &createdAt)
	if err != nil {
		return models.VisibilityOverride{}, notFound(err, "override", routineID)
	}
	if o.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return models.VisibilityOverride{}, fmt.Errorf("failed to parse expires_at for override %s: %w", routineID, err)
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.VisibilityOverride{}, fmt.Errorf("failed to parse created_at for override %s: %w", routineID, err)
	}
	return o, nil
}

// UpsertOverride replaces any existing override for the routine in a single
// statement.
func (s *Store) UpsertOverride(ctx context.Context, o models.VisibilityOverride) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visibility_overrides (routine_id, expires_at, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (routine_id) DO UPDATE SET
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		o.RoutineID, formatTime(o.ExpiresAt), formatTime(o.CreatedAt))
	return err
}

func (s *Store) DeleteOverride(ctx context.Context, routineID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM visibility_overrides WHERE routine_id = ?", routineID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
