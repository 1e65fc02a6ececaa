package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/routinely/internal/logger"
)

// ErrNotFound is returned by stores when the requested row does not exist.
// The engine treats it as a dangling reference rather than an I/O failure.
var ErrNotFound = errors.New("not found")

// ConfigurationError reports a malformed condition check: a non-numeric
// comparison value, an unknown operator, a bad HH:MM string and so on.
type ConfigurationError struct {
	Subject string // "check <id>" or "condition <id>"
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Subject, e.Field, e.Reason)
}

// DanglingReferenceError reports a check whose target task, routine or goal
// no longer exists.
type DanglingReferenceError struct {
	CheckID    string
	TargetKind string
	TargetID   string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("check %s: %s %s no longer exists", e.CheckID, e.TargetKind, e.TargetID)
}

// StateProviderError wraps an I/O failure while fetching facts for a check.
type StateProviderError struct {
	Op  string
	ID  string
	Err error
}

func (e *StateProviderError) Error() string {
	return fmt.Sprintf("state provider %s(%s): %v", e.Op, e.ID, e.Err)
}

func (e *StateProviderError) Unwrap() error {
	return e.Err
}

// ValidationError is a caller input error, rejected before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
