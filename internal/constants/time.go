package constants

const (
	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// InstantFormat is accepted by --at flags (YYYY-MM-DD HH:MM)
	InstantFormat = "2006-01-02 15:04"

	MinutesPerDay = 24 * 60
)
