package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/goretry/internal/testutils"
	"github.com/jzx17/goretry/pkg/types"
)

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	policy := &countingPolicy{inner: NewMaxAttemptsPolicy(3)}
	listener := &recordingListener{}
	template := NewTemplate(WithPolicy(policy), WithListener(listener))

	invocations := 0
	result, err := Execute(template, context.Background(), func(ctx context.Context) (string, error) {
		invocations++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, invocations)

	// the success path allocates no retry or backoff state and emits no events
	assert.Equal(t, 0, policy.starts)
	assert.Empty(t, listener.events)
}

func TestExecute_SucceedsAfterRetries(t *testing.T) {
	listener := &recordingListener{}
	template := NewTemplate(
		WithPolicy(NewMaxAttemptsPolicy(5)),
		WithBackOff(NewFixedBackOff(0)),
		WithListener(listener),
	)

	invocations := 0
	result, err := Execute(template, context.Background(), func(ctx context.Context) (int, error) {
		invocations++
		if invocations < 3 {
			return 0, fmt.Errorf("boom %d", invocations)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, invocations)
	assert.Equal(t, []string{"before", "failure", "before", "success"}, listener.events)
}

func TestExecute_PolicyExhaustion(t *testing.T) {
	listener := &recordingListener{}
	template := NewTemplate(
		WithPolicy(NewMaxAttemptsPolicy(3)),
		WithBackOff(NewFixedBackOff(0)),
		WithListener(listener),
	)

	var failures []error
	invocations := 0
	result, err := ExecuteWithName(template, context.Background(), "always-failing", func(ctx context.Context) (string, error) {
		invocations++
		failure := fmt.Errorf("boom %d", invocations)
		failures = append(failures, failure)
		return "", failure
	})

	require.Error(t, err)
	assert.Equal(t, "", result)
	assert.Equal(t, 3, invocations)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "always-failing", exhausted.Operation)
	assert.Equal(t, 3, exhausted.Attempts())

	// the primary cause is the first failure, every later failure is
	// suppressed in original order
	assert.Same(t, failures[0], exhausted.Cause)
	require.Len(t, exhausted.Suppressed, 2)
	assert.Same(t, failures[1], exhausted.Suppressed[0])
	assert.Same(t, failures[2], exhausted.Suppressed[1])

	assert.True(t, errors.Is(err, failures[0]))
	assert.Contains(t, err.Error(), "always-failing")
	assert.Equal(t, []string{"before", "failure", "before", "failure", "exhaustion"}, listener.events)
}

func TestExecute_BackOffStopTerminatesLoop(t *testing.T) {
	// the retry policy would allow 10 attempts, but the backoff refuses the
	// first wait
	listener := &recordingListener{}
	template := NewTemplate(
		WithPolicy(NewMaxAttemptsPolicy(10)),
		WithBackOff(stopBackOff{}),
		WithListener(listener),
	)

	invocations := 0
	_, err := Execute(template, context.Background(), func(ctx context.Context) (string, error) {
		invocations++
		return "", fmt.Errorf("boom %d", invocations)
	})

	require.Error(t, err)
	assert.Equal(t, 2, invocations)
	assert.True(t, IsExhausted(err))

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Suppressed, 1)
	assert.Equal(t, []string{"before", "failure", "exhaustion"}, listener.events)
}

func TestExecute_AbortDuringBackOff(t *testing.T) {
	listener := &recordingListener{}
	template := NewTemplate(
		WithPolicy(NewMaxAttemptsPolicy(10)),
		WithBackOff(NewFixedBackOff(time.Hour)),
		WithListener(listener),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// cancel while the template waits out the first backoff
	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()

	invocations := 0
	result, err := ExecuteWithName(template, ctx, "cancelled", func(ctx context.Context) (string, error) {
		invocations++
		return "", errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, "", result)
	assert.Equal(t, 2, invocations)

	assert.True(t, IsAborted(err))
	assert.False(t, IsExhausted(err))

	var aborted *AbortedError
	require.ErrorAs(t, err, &aborted)
	assert.Equal(t, "cancelled", aborted.Operation)

	// the cancellation signal stays observable on the error and the context
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, context.Canceled, ctx.Err())

	// the loop stopped hard: no exhaustion event was ever emitted
	assert.Equal(t, []string{"before", "failure"}, listener.events)
}

func TestExecute_BackOffDurationsRequested(t *testing.T) {
	clock := &fakeClock{}
	template := NewTemplate(
		WithPolicy(NewMaxAttemptsPolicy(4)),
		WithBackOff(NewFixedBackOff(50*time.Millisecond)),
		WithClock(clock),
	)

	invocations := 0
	_, err := Execute(template, context.Background(), func(ctx context.Context) (string, error) {
		invocations++
		return "", errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 4, invocations)
	assert.Equal(t, []time.Duration{
		50 * time.Millisecond,
		50 * time.Millisecond,
		50 * time.Millisecond,
	}, clock.waits)
}

func TestExecute_ZeroIntervalSkipsTimer(t *testing.T) {
	clock := &fakeClock{}
	template := NewTemplate(
		WithPolicy(NewMaxAttemptsPolicy(3)),
		WithBackOff(NewFixedBackOff(0)),
		WithClock(clock),
	)

	_, err := Execute(template, context.Background(), func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})

	require.Error(t, err)
	assert.Empty(t, clock.waits)
}

func TestExecute_Defaults(t *testing.T) {
	clock := &fakeClock{}
	template := NewTemplate(WithClock(clock))

	invocations := 0
	_, err := Execute(template, context.Background(), func(ctx context.Context) (string, error) {
		invocations++
		return "", errors.New("boom")
	})

	// 3 total attempts with a fixed 1-second backoff
	require.Error(t, err)
	assert.Equal(t, 3, invocations)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.waits)
	assert.True(t, IsExhausted(err))
}

func TestExecute_CompositeListenerOrder(t *testing.T) {
	first := &recordingListener{}
	second := &recordingListener{}
	composite := NewCompositeListener(first)
	composite.Add(second)

	template := NewTemplate(
		WithPolicy(NewMaxAttemptsPolicy(2)),
		WithBackOff(NewFixedBackOff(0)),
		WithListener(composite),
	)

	_, err := Execute(template, context.Background(), func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, []string{"before", "failure", "exhaustion"}, first.events)
	assert.Equal(t, first.events, second.events)
}

func TestExecute_DebugLogging(t *testing.T) {
	logger := &recordingLogger{}
	template := NewTemplate(
		WithPolicy(NewMaxAttemptsPolicy(2)),
		WithBackOff(NewFixedBackOff(0)),
		WithLogger(logger),
	)

	_, err := ExecuteWithName(template, context.Background(), "noisy", func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})

	require.Error(t, err)
	require.NotEmpty(t, logger.lines)
	assert.Contains(t, logger.lines[0], "noisy")
}

func TestExecuteAsync(t *testing.T) {
	template := NewTemplate(
		WithPolicy(NewMaxAttemptsPolicy(3)),
		WithBackOff(NewFixedBackOff(0)),
	)

	invocations := 0
	resultChan := ExecuteAsync(template, context.Background(), func(ctx context.Context) (string, error) {
		invocations++
		if invocations < 2 {
			return "", errors.New("boom")
		}
		return "async ok", nil
	})

	select {
	case result := <-resultChan:
		require.NoError(t, result.Error)
		assert.Equal(t, "async ok", result.Value)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async result")
	}

	assert.Equal(t, 2, invocations)
}

func TestNewSlogLogger(t *testing.T) {
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	// emission only, never control flow
	logger.Debugf("debug %d", 1)
	logger.Infof("info %d", 2)
	logger.Warnf("warn %d", 3)
	logger.Errorf("error %d", 4)
}

// Test helper types

type recordingListener struct {
	events []string
}

func (l *recordingListener) BeforeRetry(ctx context.Context, exec RetryExecution) {
	l.events = append(l.events, "before")
}

func (l *recordingListener) OnRetrySuccess(ctx context.Context, exec RetryExecution, result interface{}) {
	l.events = append(l.events, "success")
}

func (l *recordingListener) OnRetryFailure(ctx context.Context, exec RetryExecution, err error) {
	l.events = append(l.events, "failure")
}

func (l *recordingListener) OnRetryPolicyExhaustion(ctx context.Context, exec RetryExecution, err error) {
	l.events = append(l.events, "exhaustion")
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Debugf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Infof(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

// countingPolicy counts how many executions were started
type countingPolicy struct {
	inner  RetryPolicy
	starts int
}

func (p *countingPolicy) Start() RetryExecution {
	p.starts++
	return p.inner.Start()
}

// stopBackOff refuses every wait
type stopBackOff struct{}

func (stopBackOff) Start() BackOffExecution {
	return stopBackOffExecution{}
}

type stopBackOffExecution struct{}

func (stopBackOffExecution) NextBackOff() time.Duration {
	return Stop
}

// fakeClock records requested waits and fires timers immediately
type fakeClock struct {
	waits []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return time.Time{}
}

func (c *fakeClock) Since(time.Time) time.Duration {
	return 0
}

func (c *fakeClock) NewTimer(d time.Duration) types.Timer {
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return &firedTimer{ch: ch}
}

type firedTimer struct {
	ch chan time.Time
}

func (t *firedTimer) C() <-chan time.Time {
	return t.ch
}

func (t *firedTimer) Stop() bool {
	return false
}

func TestExecute_WaitsOnClock(t *testing.T) {
	mock := testutils.NewMockClock(t)
	template := NewTemplate(
		WithPolicy(NewMaxAttemptsPolicy(2)),
		WithBackOff(NewFixedBackOff(5*time.Second)),
		WithClock(testutils.NewClockWrapper(mock)),
	)

	done := make(chan error, 1)
	go func() {
		_, err := Execute(template, context.Background(), func(ctx context.Context) (string, error) {
			return "", errors.New("boom")
		})
		done <- err
	}()

	// wait until the retry loop has scheduled the backoff timer
	for {
		if d, ok := mock.Peek(); ok {
			assert.Equal(t, 5*time.Second, d)
			break
		}
		time.Sleep(time.Millisecond)
	}

	mock.Advance(5 * time.Second).MustWait(context.Background())

	select {
	case err := <-done:
		assert.True(t, IsExhausted(err))
	case <-time.After(time.Second):
		t.Fatal("execution did not finish after the clock advanced")
	}
}
