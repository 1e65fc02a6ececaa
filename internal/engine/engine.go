package engine

import (
	"context"
	"time"

	"github.com/julianstephens/routinely/internal/clock"
)

// Store is everything the engine reads and writes, as one backend.
type Store interface {
	ConditionStore
	StateProvider
	OverrideStore
}

// Engine is the entry point used by the CLI and dashboard.
type Engine struct {
	resolver *Resolver
	clock    clock.Clock
}

// New builds an Engine over a single backend.
func New(store Store, clk clock.Clock, cfg Config) *Engine {
	if clk == nil {
		clk = clock.System{Location: cfg.Location}
	}
	return &Engine{
		resolver: NewResolver(store, store, store, clk, cfg),
		clock:    clk,
	}
}

// Resolver exposes the underlying resolver for batch evaluation.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// EvaluateRoutineVisibility decides routineID's visibility at now, or at the
// engine clock's current time when now is nil.
func (e *Engine) EvaluateRoutineVisibility(ctx context.Context, routineID string, now *time.Time) (VisibilityResult, error) {
	if now == nil {
		return e.resolver.Evaluate(ctx, routineID)
	}
	return e.resolver.EvaluateAt(ctx, routineID, *now)
}

// CreateOverride forces routineID visible for minutes and returns the expiry.
func (e *Engine) CreateOverride(ctx context.Context, routineID string, minutes int) (time.Time, error) {
	o, err := e.resolver.Overrides().Create(ctx, routineID, minutes, e.clock.Now())
	if err != nil {
		return time.Time{}, err
	}
	return o.ExpiresAt, nil
}

// CancelOverride removes routineID's override. It reports whether one existed.
func (e *Engine) CancelOverride(ctx context.Context, routineID string) (bool, error) {
	return e.resolver.Overrides().Cancel(ctx, routineID)
}

// OverrideStatus reports whether routineID currently has a live override.
func (e *Engine) OverrideStatus(ctx context.Context, routineID string) (bool, *time.Time, error) {
	return e.resolver.Overrides().IsActive(ctx, routineID, e.clock.Now())
}

// Now is the engine clock's current instant in the configured location.
func (e *Engine) Now() time.Time {
	return e.resolver.Now()
}
