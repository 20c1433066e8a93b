package svcheck

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by svcheck operations
var (
	// ErrNotPrivileged indicates the process lacks the privileges needed
	// to manage system units
	ErrNotPrivileged = errors.New("svcheck: insufficient privileges")

	// ErrNoMainPID indicates a unit has no resolvable main process
	ErrNoMainPID = errors.New("svcheck: unit has no main PID")

	// ErrUntrackedCompletion indicates a completion signal that matches no
	// tracked restart job
	ErrUntrackedCompletion = errors.New("svcheck: completion for untracked job")

	// ErrNoWatchDirs indicates none of the configured unit directories
	// could be watched
	ErrNoWatchDirs = errors.New("svcheck: no watchable unit directories")
)

// OpError represents an error from a single svcheck operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Unit is the unit name involved in the operation, if any
	Unit string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("svcheck %s: %v", e.Op.String(), e.Err)
	}
	return fmt.Sprintf("svcheck %s %q: %v", e.Op.String(), e.Unit, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// ProgressError is the orchestrator's fatal loop-abort condition: a
// completion signal arrived that cannot be attributed to any tracked job.
// It carries the full diagnostic state at the time of the failure.
type ProgressError struct {
	// Tracked lists the jobs still tracked when the failure occurred
	Tracked []string
	// Observed lists the job IDs observed in the completion batch
	Observed []int
}

// Error returns the diagnostic message with tracked and observed state
func (e *ProgressError) Error() string {
	obs := make([]string, len(e.Observed))
	for i, id := range e.Observed {
		obs[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("svcheck: completion did not match any tracked job (tracked: [%s], observed ids: [%s])",
		strings.Join(e.Tracked, ", "), strings.Join(obs, ", "))
}

// Unwrap returns ErrUntrackedCompletion so callers can test with errors.Is
func (e *ProgressError) Unwrap() error {
	return ErrUntrackedCompletion
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
