package constants

const (
	SettingTimezone           = "timezone"
	SettingResetPeriod        = "reset_period"
	SettingWeekStart          = "week_start"
	SettingMaxOverrideMinutes = "max_override_minutes"

	// Default Settings Values
	DefaultTimezone    = "Local" // Use system local timezone by default
	DefaultResetPeriod = "daily"
	DefaultWeekStart   = 1 // Monday
)
