package constants

import "time"

const (
	AppName            = "routinely"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/routinely/routinely.db"
	Version            = "v0.1.0"

	// ConnectionEnvVar supplies a PostgreSQL connection string without touching the keyring.
	ConnectionEnvVar = "ROUTINELY_DB_CONNECTION"
	// LogLevelEnvVar sets the file log level when --debug is not given.
	LogLevelEnvVar = "ROUTINELY_LOG_LEVEL"

	// Override limits
	MinOverrideMinutes     = 1
	DefaultMaxOverrideMins = 24 * 60
	// OverrideCeilingMins bounds the configurable maximum to one week.
	OverrideCeilingMins = 7 * 24 * 60

	// WatchRefreshInterval is how often the dashboard re-evaluates every routine.
	WatchRefreshInterval = 30 * time.Second

	// Diagnostic kinds attached to check results
	DiagnosticConfiguration     = "configuration"
	DiagnosticDanglingReference = "dangling_reference"
)
