package engine

import (
	"time"

	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

// Config carries the settings that shape an evaluation.
type Config struct {
	Location           *time.Location
	ResetPeriod        models.ResetPeriod
	WeekStart          int
	MaxOverrideMinutes int
}

// ConfigFromSettings builds a Config from stored settings.
func ConfigFromSettings(s models.Settings) (Config, error) {
	models.ApplyDefaultSettings(&s)
	loc, err := utils.LoadLocation(s.Timezone)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Location:           loc,
		ResetPeriod:        s.ResetPeriod,
		WeekStart:          s.WeekStart,
		MaxOverrideMinutes: s.MaxOverrideMinutes,
	}, nil
}

// EvaluationContext is derived once per evaluation call so every check in
// the call sees the same instant.
type EvaluationContext struct {
	Now         time.Time
	DayOfWeek   int // 0=Sunday
	TimeOfDay   int // minutes since midnight
	PeriodStart time.Time
}

// NewEvaluationContext derives the local day, time of day and period start
// for now.
func NewEvaluationContext(now time.Time, cfg Config) EvaluationContext {
	if cfg.Location != nil {
		now = now.In(cfg.Location)
	}
	return EvaluationContext{
		Now:         now,
		DayOfWeek:   int(now.Weekday()),
		TimeOfDay:   utils.MinutesOfDay(now),
		PeriodStart: utils.PeriodStart(now, cfg.ResetPeriod, cfg.WeekStart),
	}
}

// Clock returns the time of day as HH:MM.
func (ec EvaluationContext) Clock() string {
	return utils.FormatMinutes(ec.TimeOfDay)
}

// Weekday returns the day of week as a time.Weekday.
func (ec EvaluationContext) Weekday() time.Weekday {
	return time.Weekday(ec.DayOfWeek)
}
