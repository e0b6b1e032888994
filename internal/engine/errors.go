package engine

import (
	"errors"
	"fmt"
)

// ErrNotManualTime is returned by Settle when the engine runs on real time.
var ErrNotManualTime = errors.New("settle requires a ManualTime source")

// RuntimeError represents an error detected during loop execution.
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNotSettled indicates Settle ran out of rounds.
	ErrCodeNotSettled RuntimeErrorCode = "NOT_SETTLED"

	// ErrCodeStopped indicates work was submitted after Stop.
	ErrCodeStopped RuntimeErrorCode = "STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotSettledError returns true if the error is a settle exhaustion error.
// Uses errors.As to handle wrapped errors.
func IsNotSettledError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeNotSettled
	}
	return false
}

// NewNotSettledError creates a RuntimeError for Settle exhaustion.
func NewNotSettledError(rounds, timers, queued int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNotSettled,
		Message: fmt.Sprintf("system did not settle after %d rounds", rounds),
		Details: map[string]string{
			"rounds": fmt.Sprintf("%d", rounds),
			"timers": fmt.Sprintf("%d", timers),
			"queued": fmt.Sprintf("%d", queued),
		},
	}
}

// NewStoppedError creates a RuntimeError for work submitted after Stop.
func NewStoppedError(task string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStopped,
		Message: fmt.Sprintf("engine stopped, task %q dropped", task),
	}
}

func asRuntimeError(err error, target **RuntimeError) bool {
	return errors.As(err, target)
}
