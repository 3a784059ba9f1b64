// Package retry defines the error types surfaced by the retry template
package retry

import (
	"errors"
	"fmt"
	"time"
)

// ExhaustedError is returned by Execute when the retry policy or the backoff
// refuses further attempts. Cause is the failure of the initial attempt;
// Suppressed holds the failure of every subsequent attempt, in order. No
// failure is ever discarded: together Cause and Suppressed form the complete
// forensic trail of the call.
type ExhaustedError struct {
	// Operation is the diagnostic name of the operation
	Operation string

	// Cause is the initial failure
	Cause error

	// Suppressed contains every failure observed after the first, in order
	Suppressed []error
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry policy for operation %q exhausted after %d attempts: %v",
		e.Operation, e.Attempts(), e.Cause)
}

// Unwrap returns the initial failure
func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}

// Attempts returns the total number of attempts that were made
func (e *ExhaustedError) Attempts() int {
	return len(e.Suppressed) + 1
}

// AbortedError is returned when the wait between attempts is cancelled. It is
// distinct from ExhaustedError: the retry loop stops immediately, no further
// attempts are made and no suppressed failures are accumulated. Unwrap
// returns the context error, so errors.Is(err, context.Canceled) and
// errors.Is(err, context.DeadlineExceeded) keep working for callers.
type AbortedError struct {
	// Operation is the diagnostic name of the operation
	Operation string

	// Cause is the cancellation cause, typically ctx.Err()
	Cause error
}

// Error implements the error interface
func (e *AbortedError) Error() string {
	return fmt.Sprintf("unable to back off for operation %q: %v", e.Operation, e.Cause)
}

// Unwrap returns the cancellation cause
func (e *AbortedError) Unwrap() error {
	return e.Cause
}

// IsExhausted checks if an error is an ExhaustedError
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// IsAborted checks if an error is an AbortedError
func IsAborted(err error) bool {
	var aborted *AbortedError
	return errors.As(err, &aborted)
}

// RetryableError marks an error with an explicit retryable flag
type RetryableError struct {
	// Err is the underlying error
	Err error

	// Retryable indicates whether the error is retryable
	Retryable bool

	// RetryAfter is the suggested retry delay
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error is marked retryable
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	return false
}

// RetryDelay returns the suggested retry delay of a marked error
func RetryDelay(err error) time.Duration {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.RetryAfter
	}
	return 0
}
