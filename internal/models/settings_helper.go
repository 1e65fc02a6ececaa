package models

import (
	"fmt"
	"strconv"

	"github.com/julianstephens/routinely/internal/constants"
)

// MapToSettings converts a map of key-value pairs to a Settings struct.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := Settings{}

	for key, value := range data {
		switch key {
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingResetPeriod:
			settings.ResetPeriod = ResetPeriod(value)
		case constants.SettingWeekStart:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing week_start: %w", err)
			}
			settings.WeekStart = n
		case constants.SettingMaxOverrideMinutes:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing max_override_minutes: %w", err)
			}
			settings.MaxOverrideMinutes = n
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) map[string]string {
	return map[string]string{
		constants.SettingTimezone:           settings.Timezone,
		constants.SettingResetPeriod:        string(settings.ResetPeriod),
		constants.SettingWeekStart:          strconv.Itoa(settings.WeekStart),
		constants.SettingMaxOverrideMinutes: strconv.Itoa(settings.MaxOverrideMinutes),
	}
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *Settings) {
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
	if settings.ResetPeriod == "" {
		settings.ResetPeriod = ResetPeriod(constants.DefaultResetPeriod)
	}
	if settings.WeekStart < 0 || settings.WeekStart > 6 {
		settings.WeekStart = constants.DefaultWeekStart
	}
	if settings.MaxOverrideMinutes <= 0 {
		settings.MaxOverrideMinutes = constants.DefaultMaxOverrideMins
	}
}

// DefaultSettings returns a fully populated Settings value.
func DefaultSettings() Settings {
	s := Settings{WeekStart: constants.DefaultWeekStart}
	ApplyDefaultSettings(&s)
	return s
}
