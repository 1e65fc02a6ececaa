package models

import "time"

// ResetPeriod is the cycle after which counts, streak windows and
// completion percentages start over.
type ResetPeriod string

const (
	ResetDaily   ResetPeriod = "daily"
	ResetWeekly  ResetPeriod = "weekly"
	ResetMonthly ResetPeriod = "monthly"
)

// Valid reports whether p is one of the known reset periods.
func (p ResetPeriod) Valid() bool {
	switch p {
	case ResetDaily, ResetWeekly, ResetMonthly:
		return true
	}
	return false
}

type Routine struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type Task struct {
	ID        string     `json:"id"`
	RoutineID string     `json:"routine_id"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TaskCompletion records one completion of a task on a day.
type TaskCompletion struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Day       string    `json:"day"` // YYYY-MM-DD format
	CreatedAt time.Time `json:"created_at"`
}

type Goal struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Current    float64    `json:"current"`
	Target     float64    `json:"target"`
	AchievedAt *time.Time `json:"achieved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// TaskState is the set of facts about a task relative to a period boundary.
type TaskState struct {
	Completed bool `json:"completed"`
	Count     int  `json:"count"`
	Streak    int  `json:"streak"`
}

// GoalProgress is the set of facts about a goal.
type GoalProgress struct {
	Current  float64
	Target   float64
	Achieved bool
}

// Percent returns progress toward the target as a percentage.
// A goal without a positive target is either 0% or, once achieved, 100%.
func (g GoalProgress) Percent() float64 {
	if g.Target <= 0 {
		if g.Achieved {
			return 100
		}
		return 0
	}
	p := g.Current / g.Target * 100
	if p < 0 {
		return 0
	}
	return p
}
