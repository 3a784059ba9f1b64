// Package retry provides retry policy implementations
package retry

import (
	"context"
	"errors"
)

// DefaultMaxAttempts is the default total number of attempts: one initial
// attempt plus two retries
const DefaultMaxAttempts = 3

// RetryPolicy is an immutable factory for RetryExecution instances. Start is
// called once per Execute call, so concurrent calls to the same template
// never share retry state.
type RetryPolicy interface {
	// Start begins a fresh retry execution
	Start() RetryExecution
}

// RetryExecution is the mutable per-call retry state. It lives for exactly
// one Execute call and is discarded when the call returns.
type RetryExecution interface {
	// ShouldRetry reports whether another attempt should be made given the
	// most recent failure. Once it has returned false it returns false
	// forever for this execution.
	ShouldRetry(err error) bool

	// RetryCount returns the number of retries approved so far
	RetryCount() int
}

// RetryCondition determines whether a failure is worth retrying
type RetryCondition func(error) bool

// DefaultRetryCondition retries any failure except context cancellation and
// deadline expiry
func DefaultRetryCondition(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// RetryableOnly retries only failures explicitly marked with RetryableError
func RetryableOnly(err error) bool {
	return IsRetryable(err)
}

// MaxAttemptsPolicy limits the total number of attempts, counting the
// initial attempt. An optional RetryCondition can additionally refuse
// non-transient failures regardless of count.
type MaxAttemptsPolicy struct {
	maxAttempts int
	condition   RetryCondition
}

// NewMaxAttemptsPolicy creates a count-based retry policy
func NewMaxAttemptsPolicy(maxAttempts int, opts ...PolicyOption) *MaxAttemptsPolicy {
	policy := &MaxAttemptsPolicy{
		maxAttempts: maxAttempts,
	}

	for _, opt := range opts {
		opt(policy)
	}

	return policy
}

// MaxAttempts returns the configured maximum total attempts
func (p *MaxAttemptsPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// Start begins a fresh retry execution
func (p *MaxAttemptsPolicy) Start() RetryExecution {
	return &maxAttemptsExecution{policy: p}
}

type maxAttemptsExecution struct {
	policy  *MaxAttemptsPolicy
	retries int
	stopped bool
}

// ShouldRetry answers true while the total attempt count stays below the
// configured maximum and the condition, if any, accepts the failure. The
// answer is monotonic: once false, always false.
func (e *maxAttemptsExecution) ShouldRetry(err error) bool {
	if e.stopped {
		return false
	}

	if 1+e.retries >= e.policy.maxAttempts {
		e.stopped = true
		return false
	}

	if e.policy.condition != nil && !e.policy.condition(err) {
		e.stopped = true
		return false
	}

	e.retries++
	return true
}

// RetryCount returns the number of retries approved so far
func (e *maxAttemptsExecution) RetryCount() int {
	return e.retries
}

// PolicyOption is a configuration option for retry policies
type PolicyOption func(*MaxAttemptsPolicy)

// WithRetryCondition sets the retry condition
func WithRetryCondition(condition RetryCondition) PolicyOption {
	return func(p *MaxAttemptsPolicy) {
		p.condition = condition
	}
}
