package utils

import (
	"time"

	"github.com/julianstephens/routinely/internal/models"
)

// StartOfDay truncates t to midnight in its own location. time.Truncate
// works in UTC and would be wrong for any other zone.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// PeriodStart returns the start of the reset cycle containing now. Weekly
// periods begin on weekStart (0=Sunday); unknown periods fall back to daily.
func PeriodStart(now time.Time, period models.ResetPeriod, weekStart int) time.Time {
	day := StartOfDay(now)
	switch period {
	case models.ResetWeekly:
		if weekStart < 0 || weekStart > 6 {
			weekStart = 0
		}
		back := (int(day.Weekday()) - weekStart + 7) % 7
		return day.AddDate(0, 0, -back)
	case models.ResetMonthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

// DaysBetween counts calendar days from a to b, ignoring DST shifts.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
