// Package retry provides backoff retry logic for transient failures
package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/c360/sensorstreams/errors"
)

// Unlimited as MaxAttempts retries until fn succeeds or the context ends.
const Unlimited = -1

// Fallbacks for zero-valued Config fields.
const (
	defaultInitialDelay = 100 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	defaultMultiplier   = 2.0
	maxMultiplier       = 1000
)

// NonRetryableError marks an error that ends the retry loop at once.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps err so that Do returns it without retrying.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err was wrapped with NonRetryable.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return stderrors.As(err, &nre)
}

// Config controls attempts and delays.
type Config struct {
	MaxAttempts  int           // 0 runs once, Unlimited never gives up
	InitialDelay time.Duration // delay after the first failure
	MaxDelay     time.Duration // cap for grown delays
	Multiplier   float64       // growth per attempt, 1.0 keeps the delay fixed
	AddJitter    bool          // add up to 25% to each delay

	// OnRetry is called after a failed attempt, before sleeping.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig makes three attempts 100ms apart, doubling up to 5s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
		AddJitter:    true,
	}
}

// Forever waits a fixed delay between attempts and never gives up.
// Only context cancellation, a NonRetryable error or a fatal error ends
// the loop.
func Forever(delay time.Duration) Config {
	return Config{
		MaxAttempts:  Unlimited,
		InitialDelay: delay,
		MaxDelay:     delay,
		Multiplier:   1.0,
	}
}

// Exponential doubles a jittered delay from initial up to maxDelay and never
// gives up.
func Exponential(initial, maxDelay time.Duration) Config {
	return Config{
		MaxAttempts:  Unlimited,
		InitialDelay: initial,
		MaxDelay:     maxDelay,
		Multiplier:   defaultMultiplier,
		AddJitter:    true,
	}
}

func (c Config) normalize() (Config, error) {
	switch {
	case c.InitialDelay < 0:
		return c, stderrors.New("retry: InitialDelay cannot be negative")
	case c.MaxDelay < 0:
		return c, stderrors.New("retry: MaxDelay cannot be negative")
	case c.Multiplier < 0:
		return c, stderrors.New("retry: Multiplier cannot be negative")
	}

	if c.MaxAttempts == 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Multiplier == 0 {
		c.Multiplier = defaultMultiplier
	}
	c.Multiplier = min(c.Multiplier, maxMultiplier)

	if c.MaxDelay < c.InitialDelay {
		return c, stderrors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return c, nil
}

func (c Config) grow(delay time.Duration) time.Duration {
	next := float64(delay) * c.Multiplier
	if next >= float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(next)
}

func (c Config) jitter(delay time.Duration) time.Duration {
	if !c.AddJitter || delay < 4 {
		return delay
	}
	return delay + rand.N(delay/4)
}

// stops reports whether err must end the loop regardless of the budget.
func stops(err error) bool {
	return IsNonRetryable(err) || errors.IsFatal(err)
}

// Do runs fn until it succeeds, the attempt budget is spent, ctx ends, or
// fn returns a NonRetryable or fatal error.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg, err := cfg.normalize()
	if err != nil {
		return err
	}
	unlimited := cfg.MaxAttempts < 0

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; unlimited || attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if stops(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt, ctx.Err())
		}
		if !unlimited && attempt == cfg.MaxAttempts {
			break
		}

		sleep := cfg.jitter(delay)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, sleep)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}

		delay = cfg.grow(delay)
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
