// Package retry provides backoff policy implementations
package retry

import (
	"math/rand"
	"time"
)

// Stop is the sentinel returned by a BackOffExecution when no further waits
// are allowed. A zero duration is a valid "retry immediately" signal and is
// distinct from Stop.
const Stop time.Duration = -1

// DefaultBackOffInterval is the interval of the default fixed backoff
const DefaultBackOffInterval = 1000 * time.Millisecond

// BackOff is an immutable factory for BackOffExecution instances. Start is
// called once per Execute call, so concurrent calls to the same template
// never share backoff state.
type BackOff interface {
	// Start begins a fresh backoff execution
	Start() BackOffExecution
}

// BackOffExecution is the mutable per-call backoff state
type BackOffExecution interface {
	// NextBackOff returns the duration to wait before the next attempt, or
	// Stop when no further waits are allowed
	NextBackOff() time.Duration
}

// FixedBackOff waits a constant interval between attempts, up to an optional
// maximum number of waits and an optional maximum total elapsed time
type FixedBackOff struct {
	interval   time.Duration
	maxWaits   int
	maxElapsed time.Duration
	jitter     JitterFunc
}

// NewFixedBackOff creates a fixed backoff policy. Without options the policy
// never stops on its own.
func NewFixedBackOff(interval time.Duration, opts ...BackOffOption) *FixedBackOff {
	b := &FixedBackOff{
		interval: interval,
	}

	for _, opt := range opts {
		opt.applyToFixed(b)
	}

	return b
}

// Start begins a fresh backoff execution
func (b *FixedBackOff) Start() BackOffExecution {
	return &fixedBackOffExecution{policy: b}
}

type fixedBackOffExecution struct {
	policy  *FixedBackOff
	waits   int
	elapsed time.Duration
	stopped bool
}

// NextBackOff returns the next wait duration, or Stop once a configured
// limit has been reached. Once stopped, it stays stopped.
func (e *fixedBackOffExecution) NextBackOff() time.Duration {
	if e.stopped {
		return Stop
	}

	if e.policy.maxWaits > 0 && e.waits >= e.policy.maxWaits {
		e.stopped = true
		return Stop
	}

	delay := e.policy.interval
	if e.policy.jitter != nil {
		delay = e.policy.jitter(delay)
	}

	if e.policy.maxElapsed > 0 && e.elapsed+delay > e.policy.maxElapsed {
		e.stopped = true
		return Stop
	}

	e.waits++
	e.elapsed += delay
	return delay
}

// ExponentialBackOff grows the wait interval by a multiplier on every wait,
// capped at a maximum interval, up to an optional maximum total elapsed time
type ExponentialBackOff struct {
	initialInterval time.Duration
	multiplier      float64
	maxInterval     time.Duration
	maxElapsed      time.Duration
	jitter          JitterFunc
}

// NewExponentialBackOff creates an exponential backoff policy with a default
// multiplier of 2.0 and a default maximum interval of 30 seconds
func NewExponentialBackOff(initialInterval time.Duration, opts ...BackOffOption) *ExponentialBackOff {
	b := &ExponentialBackOff{
		initialInterval: initialInterval,
		multiplier:      2.0,
		maxInterval:     30 * time.Second,
	}

	for _, opt := range opts {
		opt.applyToExponential(b)
	}

	return b
}

// Start begins a fresh backoff execution
func (b *ExponentialBackOff) Start() BackOffExecution {
	return &exponentialBackOffExecution{
		policy: b,
		next:   b.initialInterval,
	}
}

type exponentialBackOffExecution struct {
	policy  *ExponentialBackOff
	next    time.Duration
	elapsed time.Duration
	stopped bool
}

// NextBackOff returns the next wait duration, or Stop once the maximum total
// elapsed time would be exceeded
func (e *exponentialBackOffExecution) NextBackOff() time.Duration {
	if e.stopped {
		return Stop
	}

	delay := e.next
	if delay > e.policy.maxInterval {
		delay = e.policy.maxInterval
	}

	// advance the cursor before jitter so the progression stays geometric
	e.next = time.Duration(float64(e.next) * e.policy.multiplier)

	if e.policy.jitter != nil {
		delay = e.policy.jitter(delay)
	}

	if e.policy.maxElapsed > 0 && e.elapsed+delay > e.policy.maxElapsed {
		e.stopped = true
		return Stop
	}

	e.elapsed += delay
	return delay
}

// JitterFunc transforms a computed wait duration to spread out retries
type JitterFunc func(time.Duration) time.Duration

// FullJitter picks a random duration within [0, delay]
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)))
}

// EqualJitter picks delay/2 + random(0, delay/2)
func EqualJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half)))
}

// BackOffOption is a configuration option for backoff policies
type BackOffOption interface {
	applyToFixed(*FixedBackOff)
	applyToExponential(*ExponentialBackOff)
}

type backOffOption struct {
	maxWaits    *int
	maxElapsed  *time.Duration
	maxInterval *time.Duration
	multiplier  *float64
	jitter      JitterFunc
}

func (o *backOffOption) applyToFixed(b *FixedBackOff) {
	if o.maxWaits != nil {
		b.maxWaits = *o.maxWaits
	}
	if o.maxElapsed != nil {
		b.maxElapsed = *o.maxElapsed
	}
	if o.jitter != nil {
		b.jitter = o.jitter
	}
}

func (o *backOffOption) applyToExponential(b *ExponentialBackOff) {
	if o.maxElapsed != nil {
		b.maxElapsed = *o.maxElapsed
	}
	if o.maxInterval != nil {
		b.maxInterval = *o.maxInterval
	}
	if o.multiplier != nil {
		b.multiplier = *o.multiplier
	}
	if o.jitter != nil {
		b.jitter = o.jitter
	}
}

// WithMaxWaits limits the number of waits a fixed backoff issues before Stop
func WithMaxWaits(n int) BackOffOption {
	return &backOffOption{maxWaits: &n}
}

// WithMaxElapsed limits the total time spent waiting before Stop
func WithMaxElapsed(maxElapsed time.Duration) BackOffOption {
	return &backOffOption{maxElapsed: &maxElapsed}
}

// WithMaxInterval caps a single wait of an exponential backoff
func WithMaxInterval(maxInterval time.Duration) BackOffOption {
	return &backOffOption{maxInterval: &maxInterval}
}

// WithMultiplier sets the growth factor of an exponential backoff
func WithMultiplier(multiplier float64) BackOffOption {
	return &backOffOption{multiplier: &multiplier}
}

// WithJitter sets the jitter function applied to every wait
func WithJitter(jitter JitterFunc) BackOffOption {
	return &backOffOption{jitter: jitter}
}
