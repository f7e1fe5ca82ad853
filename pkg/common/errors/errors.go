package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the goloop library

var (
	// ErrCancelled indicates that a task observed a cancellation request
	ErrCancelled = errors.New("task cancelled")

	// ErrDeadlineExceeded indicates that a timeout fired before the wrapped
	// computation settled
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrNotOwner indicates a lock operation by a task that does not hold the lock
	ErrNotOwner = errors.New("lock not held by caller")

	// ErrAlreadyOwner indicates a reentrant acquire, which would deadlock the task
	ErrAlreadyOwner = errors.New("lock already held by caller")

	// ErrQueueClosed indicates an operation on a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrStalled indicates that the scheduler ran out of runnable tasks and
	// pending timers while the root task was still suspended
	ErrStalled = errors.New("scheduler stalled: tasks suspended with no pending work")

	// ErrShutdown indicates that an operation was attempted on a shut down pool
	ErrShutdown = errors.New("pool has been shut down")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// IsCancelled returns true if the error marks a cancelled task
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsDeadlineExceeded returns true if the error was produced by a timeout firing
func IsDeadlineExceeded(err error) bool {
	return errors.Is(err, ErrDeadlineExceeded)
}

// ValidationError describes a rejected configuration parameter.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError for the given module and field.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint to the error.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap lets errors.Is match a ValidationError against ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// ConsistencyFault reports a violation of a scheduler internal invariant,
// such as resuming a task that is already running or a second terminal
// transition on the same task. It indicates a bug in the runtime or in code
// driving a task from the wrong goroutine, and is raised as a panic so the
// run aborts instead of continuing with corrupt state.
type ConsistencyFault struct {
	Op     string
	Detail string
}

// Error implements the error interface.
func (f ConsistencyFault) Error() string {
	return fmt.Sprintf("consistency fault in %s: %s", f.Op, f.Detail)
}

// Faultf panics with a ConsistencyFault for the given operation.
func Faultf(op, format string, args ...interface{}) {
	panic(ConsistencyFault{Op: op, Detail: fmt.Sprintf(format, args...)})
}
