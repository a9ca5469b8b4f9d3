package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitlink/internal/logger"
)

var (
	// ErrAccessDenied is returned when the reminders source refuses access
	// (permission never granted or revoked).
	ErrAccessDenied = stderrors.New("reminders access denied")
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = stderrors.New("not found")
	// ErrRunInProgress is returned when a reconciliation run is already active
	ErrRunInProgress = stderrors.New("reconciliation run already in progress")
	// ErrStampCommit is returned when writing a stamp token back to the reminders source fails
	ErrStampCommit = stderrors.New("failed to commit stamp to reminders source")
	// ErrUnresolvable is returned when a reminder has no usable identity
	ErrUnresolvable = stderrors.New("reminder has no resolvable identity")
	// ErrInvalidSummary is returned when a completion record violates completed <= total
	ErrInvalidSummary = stderrors.New("completed count exceeds required count")
)

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
