package llm

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

// Default retry constants for provider rate limiting and flaky responses.
const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultJitterFraction    = 0.2
)

// RetryPolicy defines retry behavior for provider calls. Sleep is pluggable
// so tests can drive the policy with a fake clock.
type RetryPolicy struct {
	// MaxRetries is the number of retry attempts after the first call.
	MaxRetries int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to the backoff on each retry.
	BackoffMultiplier float64

	// JitterFraction adds up to this fraction of the backoff as random
	// jitter so concurrent callers do not retry in lockstep.
	JitterFraction float64

	// Sleep waits for the duration or until the context is cancelled.
	// Nil means real time.
	Sleep func(ctx context.Context, d time.Duration) error

	// Retryable classifies errors worth retrying. Nil means
	// IsRetryableError.
	Retryable func(error) bool
}

// NewDefaultRetryPolicy returns a RetryPolicy with sensible defaults for
// provider rate limits.
func NewDefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
		JitterFraction:    DefaultJitterFraction,
	}
}

// Backoff computes the wait before retry number attempt (0-based), without
// jitter. Exported for tests that assert the schedule.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	backoff := float64(p.InitialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= p.BackoffMultiplier
	}
	if capped := float64(p.MaxBackoff); backoff > capped {
		backoff = capped
	}
	return time.Duration(backoff)
}

// Do runs fn, retrying retryable failures up to MaxRetries times with
// exponential backoff and jitter. Non-retryable errors return immediately.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryableError
	}

	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == p.MaxRetries {
			return lastErr
		}

		wait := p.Backoff(attempt)
		if p.JitterFraction > 0 {
			wait += time.Duration(rand.Float64() * p.JitterFraction * float64(wait))
		}

		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}

	return lastErr
}

func (p *RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// IsRateLimitError checks if an error is a provider rate limit error.
// Matches 429 status codes and quota-exhaustion responses.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "overloaded")
}

// IsTimeoutError checks if an error is a per-call deadline failure.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "timeout")
}

// IsRetryableError reports whether a call is worth retrying: rate limits
// and timeouts are; cancellation and malformed requests are not.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return IsRateLimitError(err) || IsTimeoutError(err)
}
