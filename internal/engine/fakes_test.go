package engine

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu         sync.Mutex
	conditions map[string][]models.Condition
	tasks      map[string]models.TaskState
	routines   map[string]float64
	goals      map[string]models.GoalProgress
	overrides  map[string]models.VisibilityOverride

	stateErr   error
	stateCalls int
	periods    []time.Time
	asOfs      []time.Time
}

func newMemStore() *memStore {
	return &memStore{
		conditions: map[string][]models.Condition{},
		tasks:      map[string]models.TaskState{},
		routines:   map[string]float64{},
		goals:      map[string]models.GoalProgress{},
		overrides:  map[string]models.VisibilityOverride{},
	}
}

func (m *memStore) ListConditions(_ context.Context, routineID string) ([]models.Condition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Condition(nil), m.conditions[routineID]...), nil
}

func (m *memStore) GetTaskState(_ context.Context, taskID string, periodStart, asOf time.Time) (models.TaskState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateCalls++
	m.periods = append(m.periods, periodStart)
	m.asOfs = append(m.asOfs, asOf)
	if m.stateErr != nil {
		return models.TaskState{}, m.stateErr
	}
	st, ok := m.tasks[taskID]
	if !ok {
		return models.TaskState{}, apperrors.ErrNotFound
	}
	return st, nil
}

func (m *memStore) GetRoutineCompletionPercent(_ context.Context, routineID string, periodStart, asOf time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateCalls++
	m.periods = append(m.periods, periodStart)
	m.asOfs = append(m.asOfs, asOf)
	if m.stateErr != nil {
		return 0, m.stateErr
	}
	pct, ok := m.routines[routineID]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	return pct, nil
}

func (m *memStore) GetGoalProgress(_ context.Context, goalID string) (models.GoalProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateCalls++
	if m.stateErr != nil {
		return models.GoalProgress{}, m.stateErr
	}
	g, ok := m.goals[goalID]
	if !ok {
		return models.GoalProgress{}, apperrors.ErrNotFound
	}
	return g, nil
}

func (m *memStore) GetOverride(_ context.Context, routineID string) (models.VisibilityOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.overrides[routineID]
	if !ok {
		return models.VisibilityOverride{}, apperrors.ErrNotFound
	}
	return o, nil
}

func (m *memStore) UpsertOverride(_ context.Context, o models.VisibilityOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[o.RoutineID] = o
	return nil
}

func (m *memStore) DeleteOverride(_ context.Context, routineID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.overrides[routineID]
	delete(m.overrides, routineID)
	return ok, nil
}

// at returns 2026-03-<day> hh:mm UTC. March 2 2026 is a Monday.
func at(day, hh, mm int) time.Time {
	return time.Date(2026, 3, day, hh, mm, 0, 0, time.UTC)
}

func utcConfig() Config {
	return Config{Location: time.UTC, ResetPeriod: models.ResetDaily, WeekStart: 1, MaxOverrideMinutes: 1440}
}
