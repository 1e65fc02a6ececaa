package storage

import (
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

// TaskStateFromDays derives a task's facts as of asOf from its completion
// days (YYYY-MM-DD, any order, repeats allowed). Days after asOf's day are
// ignored. Count and Completed cover days from periodStart through asOf.
// Streak counts consecutive days ending on asOf's day, or the day before when
// that day has no completion yet.
func TaskStateFromDays(days []string, periodStart, asOf time.Time) models.TaskState {
	start := periodStart.Format(constants.DateFormat)
	ago := make(map[int]bool, len(days))

	var st models.TaskState
	for _, d := range days {
		day, err := time.ParseInLocation(constants.DateFormat, d, asOf.Location())
		if err != nil {
			continue
		}
		n := utils.DaysBetween(day, asOf)
		if n < 0 {
			continue
		}
		ago[n] = true
		if d >= start {
			st.Count++
		}
	}
	st.Completed = st.Count > 0

	n := 0
	if !ago[0] {
		n = 1
	}
	for ago[n] {
		st.Streak++
		n++
	}
	return st
}

// RoutinePercent is the share of active tasks completed in the period.
// A routine without active tasks is at 0%.
func RoutinePercent(active, completed int) float64 {
	if active <= 0 {
		return 0
	}
	return float64(completed) / float64(active) * 100
}

// GoalProgressFrom reduces a stored goal to the facts the engine consumes.
// A goal is achieved once marked so or once current reaches a positive target.
func GoalProgressFrom(g models.Goal) models.GoalProgress {
	return models.GoalProgress{
		Current:  g.Current,
		Target:   g.Target,
		Achieved: g.AchievedAt != nil || (g.Target > 0 && g.Current >= g.Target),
	}
}
