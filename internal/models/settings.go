package models

// Settings represents application-wide settings
type Settings struct {
	Timezone           string      `json:"timezone"`             // IANA timezone name (e.g. "America/New_York", or "Local" for system timezone)
	ResetPeriod        ResetPeriod `json:"reset_period"`         // default reset cycle for counts, streaks and percentages
	WeekStart          int         `json:"week_start"`           // first day of a weekly period, 0=Sunday
	MaxOverrideMinutes int         `json:"max_override_minutes"` // ceiling for a single visibility override
}
