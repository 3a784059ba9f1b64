// Package retry provides retry lifecycle listeners
package retry

import (
	"context"
)

// Listener observes the lifecycle of retry attempts. Listeners are passive:
// they never influence control decisions. Implementations should be total
// and non-throwing; a panicking listener is a defect of the listener, not of
// the template.
//
// The template invokes listener callbacks for a given Execute call strictly
// sequentially and in temporal order of the attempt sequence.
type Listener interface {
	// BeforeRetry is called before every retry attempt
	BeforeRetry(ctx context.Context, exec RetryExecution)

	// OnRetrySuccess is called when a retry attempt succeeds
	OnRetrySuccess(ctx context.Context, exec RetryExecution, result interface{})

	// OnRetryFailure is called when a retry attempt fails
	OnRetryFailure(ctx context.Context, exec RetryExecution, err error)

	// OnRetryPolicyExhaustion is called once when no further attempts are
	// warranted, with the final ExhaustedError
	OnRetryPolicyExhaustion(ctx context.Context, exec RetryExecution, err error)
}

// NopListener is the default Listener; it ignores every event
type NopListener struct{}

func (NopListener) BeforeRetry(ctx context.Context, exec RetryExecution) {}

func (NopListener) OnRetrySuccess(ctx context.Context, exec RetryExecution, result interface{}) {}

func (NopListener) OnRetryFailure(ctx context.Context, exec RetryExecution, err error) {}

func (NopListener) OnRetryPolicyExhaustion(ctx context.Context, exec RetryExecution, err error) {}

// CompositeListener fans out every event to an ordered list of listeners, in
// registration order
type CompositeListener struct {
	listeners []Listener
}

// NewCompositeListener creates a composite over the given listeners
func NewCompositeListener(listeners ...Listener) *CompositeListener {
	return &CompositeListener{listeners: listeners}
}

// Add appends a listener to the end of the invocation order
func (c *CompositeListener) Add(listener Listener) {
	c.listeners = append(c.listeners, listener)
}

func (c *CompositeListener) BeforeRetry(ctx context.Context, exec RetryExecution) {
	for _, l := range c.listeners {
		l.BeforeRetry(ctx, exec)
	}
}

func (c *CompositeListener) OnRetrySuccess(ctx context.Context, exec RetryExecution, result interface{}) {
	for _, l := range c.listeners {
		l.OnRetrySuccess(ctx, exec, result)
	}
}

func (c *CompositeListener) OnRetryFailure(ctx context.Context, exec RetryExecution, err error) {
	for _, l := range c.listeners {
		l.OnRetryFailure(ctx, exec, err)
	}
}

func (c *CompositeListener) OnRetryPolicyExhaustion(ctx context.Context, exec RetryExecution, err error) {
	for _, l := range c.listeners {
		l.OnRetryPolicyExhaustion(ctx, exec, err)
	}
}

// LoggingListener emits a log line for each retry event
type LoggingListener struct {
	logger Logger
}

// NewLoggingListener creates a listener that logs every retry event
func NewLoggingListener(logger Logger) *LoggingListener {
	return &LoggingListener{logger: logger}
}

func (h *LoggingListener) BeforeRetry(ctx context.Context, exec RetryExecution) {
	if h.logger != nil {
		h.logger.Debugf("retry %d starting", exec.RetryCount())
	}
}

func (h *LoggingListener) OnRetrySuccess(ctx context.Context, exec RetryExecution, result interface{}) {
	if h.logger != nil {
		h.logger.Infof("retry %d succeeded", exec.RetryCount())
	}
}

func (h *LoggingListener) OnRetryFailure(ctx context.Context, exec RetryExecution, err error) {
	if h.logger != nil {
		h.logger.Warnf("retry %d failed: %v", exec.RetryCount(), err)
	}
}

func (h *LoggingListener) OnRetryPolicyExhaustion(ctx context.Context, exec RetryExecution, err error) {
	if h.logger != nil {
		h.logger.Errorf("retry policy exhausted: %v", err)
	}
}
