// Package retry provides the retry template implementation
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jzx17/goretry/pkg/types"
)

// Template invokes and potentially retries an operation according to a
// configured RetryPolicy and BackOff policy.
//
// By default an operation is invoked at most 3 times in total with a fixed
// backoff of one second between attempts.
//
// A Template is immutable after construction and safe for concurrent use:
// every Execute call starts its own RetryExecution and BackOffExecution, so
// two concurrent calls never share retry state. Attempts within one call are
// strictly sequential; the only suspension point is the wait between
// attempts.
type Template struct {
	policy   RetryPolicy
	backoff  BackOff
	listener Listener
	logger   Logger
	clock    types.Clock
}

// Operation is the fallible unit of work to execute under retry. It is
// invoked once per attempt, never stored beyond the call.
type Operation[T any] func(ctx context.Context) (T, error)

// NewTemplate creates a retry template. Without options it allows at most
// 3 total attempts with a fixed 1-second backoff and a no-op listener.
func NewTemplate(opts ...Option) *Template {
	t := &Template{
		policy:   NewMaxAttemptsPolicy(DefaultMaxAttempts),
		backoff:  NewFixedBackOff(DefaultBackOffInterval),
		listener: NopListener{},
		clock:    types.NewRealClock(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Execute runs fn under the template's retry and backoff policies, using
// "operation" as the diagnostic name
func Execute[T any](t *Template, ctx context.Context, fn Operation[T]) (T, error) {
	return ExecuteWithName(t, ctx, "operation", fn)
}

// ExecuteWithName runs fn under the template's retry and backoff policies.
// The name appears in log lines and error messages only.
//
// Exactly one of three outcomes is produced: the value of the first
// successful attempt, an *ExhaustedError chaining every attempt's failure,
// or an *AbortedError if ctx is cancelled during the wait between attempts.
func ExecuteWithName[T any](t *Template, ctx context.Context, name string, fn Operation[T]) (T, error) {
	var zero T

	// Initial attempt. On success no retry or backoff state is created.
	t.debugf("preparing to execute operation %q", name)
	result, initialErr := fn(ctx)
	if initialErr == nil {
		t.debugf("operation %q completed successfully", name)
		return result, nil
	}
	t.debugf("execution of operation %q failed (%v); initiating the retry process", name, initialErr)

	retryExecution := t.policy.Start()
	backOffExecution := t.backoff.Start()
	var suppressed []error

	retryErr := initialErr
	for retryExecution.ShouldRetry(retryErr) {
		t.debugf("preparing to retry operation %q", name)
		t.listener.BeforeRetry(ctx, retryExecution)

		result, err := fn(ctx)
		if err == nil {
			t.listener.OnRetrySuccess(ctx, retryExecution, result)
			t.debugf("operation %q completed successfully after retry", name)
			return result, nil
		}
		t.listener.OnRetryFailure(ctx, retryExecution, err)

		interval := backOffExecution.NextBackOff()
		if interval == Stop {
			// Backoff exhaustion terminates the loop even when the retry
			// policy would allow more attempts.
			t.debugf("backoff for operation %q exhausted; no further attempts", name)
			suppressed = append(suppressed, err)
			retryErr = err
			break
		}

		t.debugf("retry of operation %q failed (%v); backing off for %s", name, err, interval)
		if waitErr := t.wait(ctx, interval); waitErr != nil {
			// A cancelled wait aborts the whole retry loop. The failure that
			// triggered the wait is not chained into an aggregate.
			return zero, &AbortedError{Operation: name, Cause: waitErr}
		}

		suppressed = append(suppressed, err)
		retryErr = err
	}

	exhausted := &ExhaustedError{
		Operation:  name,
		Cause:      initialErr,
		Suppressed: suppressed,
	}
	t.listener.OnRetryPolicyExhaustion(ctx, retryExecution, exhausted)
	t.debugf("retry policy for operation %q exhausted after %d attempts", name, exhausted.Attempts())
	return zero, exhausted
}

// ExecuteAsync runs fn under the template's policies on a new goroutine and
// delivers the outcome on the returned channel
func ExecuteAsync[T any](t *Template, ctx context.Context, fn Operation[T]) <-chan types.Result[T] {
	return ExecuteAsyncWithName(t, ctx, "operation", fn)
}

// ExecuteAsyncWithName runs fn asynchronously with a diagnostic name
func ExecuteAsyncWithName[T any](t *Template, ctx context.Context, name string, fn Operation[T]) <-chan types.Result[T] {
	resultChan := make(chan types.Result[T], 1)

	go func() {
		defer close(resultChan)

		start := t.clock.Now()
		value, err := ExecuteWithName(t, ctx, name, fn)

		resultChan <- types.Result[T]{
			Value:    value,
			Error:    err,
			Duration: t.clock.Since(start),
		}
	}()

	return resultChan
}

// wait blocks for the given duration or until ctx is cancelled. A zero or
// negative duration returns immediately; retries may legitimately ask for an
// immediate next attempt.
func (t *Template) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := t.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// debugf emits a diagnostic line if a logger is configured. Diagnostics
// never affect control flow.
func (t *Template) debugf(format string, args ...interface{}) {
	if t.logger != nil {
		t.logger.Debugf(format, args...)
	}
}

// Option is a configuration option for the retry template
type Option func(*Template)

// WithPolicy sets the retry policy
func WithPolicy(policy RetryPolicy) Option {
	return func(t *Template) {
		t.policy = policy
	}
}

// WithBackOff sets the backoff policy
func WithBackOff(backoff BackOff) Option {
	return func(t *Template) {
		t.backoff = backoff
	}
}

// WithListener sets the retry listener. Use NewCompositeListener when
// multiple listeners are needed.
func WithListener(listener Listener) Option {
	return func(t *Template) {
		t.listener = listener
	}
}

// WithLogger sets the logger for debug diagnostics
func WithLogger(logger Logger) Option {
	return func(t *Template) {
		t.logger = logger
	}
}

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) Option {
	return func(t *Template) {
		t.clock = clock
	}
}

// Logger interface for logging
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NewSlogLogger adapts a *slog.Logger to the Logger interface
func NewSlogLogger(logger *slog.Logger) Logger {
	return &slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *slogLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}
