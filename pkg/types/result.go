package types

import "time"

// Result carries the outcome of an asynchronous execution
type Result[T any] struct {
	// Value is the result value, valid only when Error is nil
	Value T

	// Error is the execution error, if any
	Error error

	// Duration is the total wall time of the execution
	Duration time.Duration
}
