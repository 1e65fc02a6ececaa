package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
)

// OverrideResolver answers whether a routine is forced visible. It caches
// nothing; every call reads the store and compares against the given time.
type OverrideResolver struct {
	store      OverrideStore
	maxMinutes int
}

// NewOverrideResolver caps overrides at maxMinutes. A non-positive maximum
// means the default, and no maximum may exceed one week.
func NewOverrideResolver(store OverrideStore, maxMinutes int) *OverrideResolver {
	switch {
	case maxMinutes <= 0:
		maxMinutes = constants.DefaultMaxOverrideMins
	case maxMinutes > constants.OverrideCeilingMins:
		maxMinutes = constants.OverrideCeilingMins
	}
	return &OverrideResolver{store: store, maxMinutes: maxMinutes}
}

// MaxMinutes is the longest override Create accepts.
func (r *OverrideResolver) MaxMinutes() int {
	return r.maxMinutes
}

// IsActive reports whether routineID has a live override at now. The expiry
// is returned only when the override is live.
func (r *OverrideResolver) IsActive(ctx context.Context, routineID string, now time.Time) (bool, *time.Time, error) {
	o, err := r.store.GetOverride(ctx, routineID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("failed to read override for routine %s: %w", routineID, err)
	}
	if !o.ActiveAt(now) {
		return false, nil, nil
	}
	expires := o.ExpiresAt
	return true, &expires, nil
}

// ValidateMinutes checks an override duration against the configured bounds.
func (r *OverrideResolver) ValidateMinutes(minutes int) error {
	if minutes < 1 {
		return &apperrors.ValidationError{Field: "minutes", Reason: "must be positive"}
	}
	if minutes > r.maxMinutes {
		return &apperrors.ValidationError{
			Field:  "minutes",
			Reason: fmt.Sprintf("must be at most %d", r.maxMinutes),
		}
	}
	return nil
}

// Create replaces any override for routineID with one expiring minutes
// after now.
func (r *OverrideResolver) Create(ctx context.Context, routineID string, minutes int, now time.Time) (models.VisibilityOverride, error) {
	if err := r.ValidateMinutes(minutes); err != nil {
		return models.VisibilityOverride{}, err
	}
	if routineID == "" {
		return models.VisibilityOverride{}, &apperrors.ValidationError{Field: "routine", Reason: "id is required"}
	}

	o := models.VisibilityOverride{
		RoutineID: routineID,
		ExpiresAt: now.Add(time.Duration(minutes) * time.Minute),
		CreatedAt: now,
	}
	if err := r.store.UpsertOverride(ctx, o); err != nil {
		return models.VisibilityOverride{}, fmt.Errorf("failed to save override for routine %s: %w", routineID, err)
	}
	logger.With("routine", routineID).Info("Visibility override created", "minutes", minutes, "expires_at", o.ExpiresAt)
	return o, nil
}

// Cancel deletes the override for routineID. Cancelling a routine without an
// override is not an error and reports false.
func (r *OverrideResolver) Cancel(ctx context.Context, routineID string) (bool, error) {
	deleted, err := r.store.DeleteOverride(ctx, routineID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to cancel override for routine %s: %w", routineID, err)
	}
	if deleted {
		logger.With("routine", routineID).Info("Visibility override cancelled")
	}
	return deleted, nil
}
