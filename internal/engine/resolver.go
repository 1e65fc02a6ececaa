package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
)

// DefaultConcurrency bounds EvaluateMany when no limit is configured.
const DefaultConcurrency = 8

// Resolver composes the condition tree with the override to decide a
// routine's visibility. Evaluation never writes and is safe to run
// concurrently.
type Resolver struct {
	conditions  ConditionStore
	evaluator   *Evaluator
	overrides   *OverrideResolver
	clock       clock.Clock
	cfg         Config
	concurrency int
}

func NewResolver(conditions ConditionStore, state StateProvider, overrides OverrideStore, clk clock.Clock, cfg Config) *Resolver {
	if clk == nil {
		clk = clock.System{Location: cfg.Location}
	}
	return &Resolver{
		conditions:  conditions,
		evaluator:   NewEvaluator(state),
		overrides:   NewOverrideResolver(overrides, cfg.MaxOverrideMinutes),
		clock:       clk,
		cfg:         cfg,
		concurrency: DefaultConcurrency,
	}
}

// SetConcurrency changes how many routines EvaluateMany evaluates at once.
func (r *Resolver) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	r.concurrency = n
}

// Overrides returns the resolver's override component.
func (r *Resolver) Overrides() *OverrideResolver {
	return r.overrides
}

// Now returns the current time from the resolver's clock, in the
// configured location.
func (r *Resolver) Now() time.Time {
	now := r.clock.Now()
	if r.cfg.Location != nil {
		now = now.In(r.cfg.Location)
	}
	return now
}

// Evaluate decides routineID's visibility at the clock's current time.
func (r *Resolver) Evaluate(ctx context.Context, routineID string) (VisibilityResult, error) {
	return r.EvaluateAt(ctx, routineID, r.clock.Now())
}

// EvaluateAt decides routineID's visibility at now.
func (r *Resolver) EvaluateAt(ctx context.Context, routineID string, now time.Time) (VisibilityResult, error) {
	ec := NewEvaluationContext(now, r.cfg)

	conditions, err := r.conditions.ListConditions(ctx, routineID)
	if err != nil {
		return VisibilityResult{}, fmt.Errorf("failed to load conditions for routine %s: %w", routineID, err)
	}

	root, skipped := BuildTree(conditions)
	ruleVisible, evaluated, err := r.evaluator.EvaluateTree(ctx, root, ec)
	if err != nil {
		return VisibilityResult{}, err
	}

	active, expires, err := r.overrides.IsActive(ctx, routineID, ec.Now)
	if err != nil {
		return VisibilityResult{}, err
	}

	result := VisibilityResult{
		RoutineID:         routineID,
		EvaluatedAt:       ec.Now,
		Visible:           ruleVisible || active,
		RuleVisible:       ruleVisible,
		OverrideActive:    active,
		OverrideExpiresAt: expires,
		ConditionResults:  orderResults(conditions, evaluated, skipped),
	}

	logger.With("routine", routineID).Debug("Evaluated routine visibility",
		"visible", result.Visible,
		"rule_visible", ruleVisible,
		"override", active,
		"conditions", len(conditions),
	)
	return result, nil
}

// orderResults merges evaluated and skipped trace entries back into the
// order the store returned the conditions in.
func orderResults(conditions []models.Condition, evaluated, skipped []ConditionResult) []ConditionResult {
	byID := make(map[string]ConditionResult, len(evaluated)+len(skipped))
	for _, c := range evaluated {
		byID[c.ConditionID] = c
	}
	for _, c := range skipped {
		byID[c.ConditionID] = c
	}

	out := make([]ConditionResult, 0, len(conditions))
	for _, c := range conditions {
		if res, ok := byID[c.ID]; ok {
			out = append(out, res)
			delete(byID, c.ID)
		}
	}
	return out
}

// EvaluateMany evaluates routineIDs concurrently against a single instant
// and returns results in input order. The first error cancels the rest.
func (r *Resolver) EvaluateMany(ctx context.Context, routineIDs []string) ([]VisibilityResult, error) {
	return r.EvaluateManyAt(ctx, routineIDs, r.clock.Now())
}

// EvaluateManyAt is EvaluateMany at an explicit instant.
func (r *Resolver) EvaluateManyAt(ctx context.Context, routineIDs []string, now time.Time) ([]VisibilityResult, error) {
	results := make([]VisibilityResult, len(routineIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range routineIDs {
		g.Go(func() error {
			res, err := r.EvaluateAt(gctx, id, now)
			if err != nil {
				return fmt.Errorf("routine %s: %w", id, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
