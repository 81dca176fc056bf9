// Package retry provides backoff retry logic for transient failures.
//
// # Overview
//
// Do runs a function until it succeeds, the attempt budget is spent, the
// context is cancelled, or the function returns an error wrapped with
// NonRetryable or classified fatal by the errors package. Delays grow by Multiplier up to MaxDelay, with optional
// jitter.
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay
//   - Forever(d): fixed delay d, unlimited attempts (source reconnects)
//   - Exponential(initial, max): doubling jittered delay, unlimited attempts
//     (initial NATS connect)
//
// # Usage Examples
//
// Reconnect a telemetry source until shutdown:
//
//	cfg := retry.Forever(time.Second)
//	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
//	    logger.Warn("Connect failed", "attempt", attempt, "error", err)
//	}
//	err := retry.Do(ctx, cfg, func() error {
//	    return session.Connect(ctx)
//	})
//
// Bring up the NATS mirror without hammering an absent server:
//
//	err := retry.Do(ctx, retry.Exponential(time.Second, time.Minute), func() error {
//	    return client.Connect(ctx)
//	})
//
// # Context Cancellation
//
// Cancellation is checked after every failed attempt and during every
// backoff sleep. The returned error wraps ctx.Err().
package retry
