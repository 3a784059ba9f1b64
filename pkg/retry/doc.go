// Package retry provides a generic retry execution engine built around a retry template with pluggable retry and backoff policies.
//
// Key Features:
//
// 1. Retry template:
//   - Single synchronous retry loop per Execute call
//   - Zero policy allocation on the first-attempt success path
//   - Complete failure trail: the initial failure plus every later failure
//     is preserved on the final error
//   - Cancellable waits between attempts via context
//
// 2. Retry policies:
//   - MaxAttemptsPolicy: count-based, optional retry condition
//   - RetryCondition: pluggable transience classification
//
// 3. Backoff policies:
//   - FixedBackOff: constant interval, optional wait-count and elapsed limits
//   - ExponentialBackOff: multiplicative growth with interval cap
//   - FullJitter / EqualJitter: jitter functions
//
// 4. Listeners:
//   - Listener interface with four lifecycle events
//   - NopListener default, CompositeListener ordered fan-out
//   - LoggingListener for log-based diagnostics
//
// Basic usage example:
//
//	template := retry.NewTemplate(
//		retry.WithPolicy(retry.NewMaxAttemptsPolicy(5)),
//		retry.WithBackOff(retry.NewExponentialBackOff(100*time.Millisecond)),
//	)
//
//	result, err := retry.Execute(template, ctx, func(ctx context.Context) (string, error) {
//		return doSomething(ctx)
//	})
//
// Error handling:
//
//	var exhausted *retry.ExhaustedError
//	if errors.As(err, &exhausted) {
//		// exhausted.Cause is the initial failure,
//		// exhausted.Suppressed every later one in order
//	}
//	var aborted *retry.AbortedError
//	if errors.As(err, &aborted) {
//		// the wait between attempts was cancelled
//	}
//
// Listeners:
//
//	listener := retry.NewCompositeListener(metricsListener, auditListener)
//	template := retry.NewTemplate(retry.WithListener(listener))
//
// Thread safety:
//
// Templates and policies are immutable after construction and safe for use
// by any number of concurrent Execute calls. Per-call state lives in
// RetryExecution and BackOffExecution instances started fresh inside each
// call.
package retry
