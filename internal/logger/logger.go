package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/routinely/internal/constants"
)

var (
	// Logger is the global logger instance
	Logger *log.Logger
)

// Config holds logger configuration
type Config struct {
	Debug     bool
	ConfigDir string
	// Level is debug, info, warn or error. Empty falls back to
	// ROUTINELY_LOG_LEVEL, then info. Debug wins over both.
	Level string
}

// Path is the rotating log file Init writes under configDir.
func Path(configDir string) string {
	return filepath.Join(configDir, "logs", constants.AppName+".log")
}

// ResolveLevel picks the level for cfg. An unparseable name yields info and
// the parse error so the caller can report it.
func ResolveLevel(cfg Config) (log.Level, error) {
	if cfg.Debug {
		return log.DebugLevel, nil
	}
	name := strings.TrimSpace(cfg.Level)
	if name == "" {
		name = strings.TrimSpace(os.Getenv(constants.LogLevelEnvVar))
	}
	if name == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(name))
	if err != nil {
		return log.InfoLevel, err
	}
	return level, nil
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	path := Path(cfg.ConfigDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level, levelErr := ResolveLevel(cfg)

	// Silent on stderr unless debugging
	var writer io.Writer = fileWriter
	if cfg.Debug {
		writer = io.MultiWriter(os.Stderr, fileWriter)
	}

	Logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
	})

	if levelErr != nil {
		Logger.Warn("Unknown log level, using info", "level", cfg.Level, "error", levelErr)
	}
	return nil
}

// UseWriter points the global logger at w. Tests use it to capture output.
func UseWriter(w io.Writer, level log.Level) {
	Logger = log.NewWithOptions(w, log.Options{
		Level:  level,
		Prefix: constants.AppName,
	})
}

// Entry logs with a fixed set of fields, typically the routine being
// evaluated. The zero Entry discards everything.
type Entry struct {
	l *log.Logger
}

// With returns an Entry carrying keyvals on every line.
func With(keyvals ...interface{}) Entry {
	if Logger == nil {
		return Entry{}
	}
	return Entry{l: Logger.With(keyvals...)}
}

func (e Entry) Debug(msg string, keyvals ...interface{}) {
	if e.l != nil {
		e.l.Debug(msg, keyvals...)
	}
}

func (e Entry) Info(msg string, keyvals ...interface{}) {
	if e.l != nil {
		e.l.Info(msg, keyvals...)
	}
}

func (e Entry) Warn(msg string, keyvals ...interface{}) {
	if e.l != nil {
		e.l.Warn(msg, keyvals...)
	}
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
