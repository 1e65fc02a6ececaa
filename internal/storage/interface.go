package storage

import (
	"context"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/engine"
	"github.com/julianstephens/routinely/internal/models"
)

// Provider is a storage backend. Lookups of missing or soft-deleted rows
// return an error wrapping errors.ErrNotFound.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// SetClock sets the clock used for "today" when deriving streaks.
	SetClock(clock.Clock)

	// Settings
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error

	// Routines
	AddRoutine(ctx context.Context, r models.Routine) error
	GetRoutine(ctx context.Context, id string) (models.Routine, error)
	GetRoutineByName(ctx context.Context, name string) (models.Routine, error)
	ListRoutines(ctx context.Context, includeDeleted bool) ([]models.Routine, error)
	DeleteRoutine(ctx context.Context, id string) error

	// Tasks
	AddTask(ctx context.Context, t models.Task) error
	GetTask(ctx context.Context, id string) (models.Task, error)
	ListTasks(ctx context.Context, routineID string) ([]models.Task, error)
	SetTaskActive(ctx context.Context, id string, active bool) error
	DeleteTask(ctx context.Context, id string) error

	// Completions
	AddCompletion(ctx context.Context, c models.TaskCompletion) error
	// RemoveCompletion deletes the most recent completion of taskID on day.
	RemoveCompletion(ctx context.Context, taskID, day string) (bool, error)
	ListCompletionDays(ctx context.Context, taskID string) ([]string, error)

	// Goals
	AddGoal(ctx context.Context, g models.Goal) error
	GetGoal(ctx context.Context, id string) (models.Goal, error)
	ListGoals(ctx context.Context) ([]models.Goal, error)
	UpdateGoal(ctx context.Context, g models.Goal) error
	DeleteGoal(ctx context.Context, id string) error

	// Conditions. SaveCondition inserts or replaces a condition together
	// with its full list of checks.
	SaveCondition(ctx context.Context, c models.Condition) error
	GetCondition(ctx context.Context, id string) (models.Condition, error)
	ListAllConditions(ctx context.Context) ([]models.Condition, error)
	DeleteCondition(ctx context.Context, id string) error

	// Engine ports: ListConditions, facts and overrides.
	engine.Store

	// Utils
	GetConfigPath() string
	Ping(ctx context.Context) error
}
