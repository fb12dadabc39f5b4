package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock records sleeps instead of waiting.
type fakeClock struct {
	sleeps []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	return nil
}

func newTestPolicy(clock *fakeClock) *RetryPolicy {
	p := NewDefaultRetryPolicy()
	p.JitterFraction = 0 // deterministic schedule for assertions
	p.Sleep = clock.Sleep
	return p
}

func TestRetryPolicy_Do(t *testing.T) {
	rateErr := errors.New("429 Too Many Requests")

	t.Run("Success on first attempt", func(t *testing.T) {
		clock := &fakeClock{}
		p := newTestPolicy(clock)

		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("Do failed: %v", err)
		}
		if calls != 1 || len(clock.sleeps) != 0 {
			t.Errorf("Expected 1 call and no sleeps, got %d calls %d sleeps", calls, len(clock.sleeps))
		}
	})

	t.Run("Retries until success", func(t *testing.T) {
		clock := &fakeClock{}
		p := newTestPolicy(clock)

		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return rateErr
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Do failed: %v", err)
		}
		if calls != 3 {
			t.Errorf("Expected 3 calls, got %d", calls)
		}

		want := []time.Duration{1 * time.Second, 2 * time.Second}
		if len(clock.sleeps) != len(want) {
			t.Fatalf("Expected %d sleeps, got %d", len(want), len(clock.sleeps))
		}
		for i, d := range want {
			if clock.sleeps[i] != d {
				t.Errorf("Sleep %d: expected %v, got %v", i, d, clock.sleeps[i])
			}
		}
	})

	t.Run("Exhausts retries", func(t *testing.T) {
		clock := &fakeClock{}
		p := newTestPolicy(clock)

		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return rateErr
		})
		if !errors.Is(err, rateErr) {
			t.Fatalf("Expected final error, got %v", err)
		}
		if calls != p.MaxRetries+1 {
			t.Errorf("Expected %d calls, got %d", p.MaxRetries+1, calls)
		}
	})

	t.Run("Non-retryable error returns immediately", func(t *testing.T) {
		clock := &fakeClock{}
		p := newTestPolicy(clock)

		calls := 0
		parseErr := errors.New("unexpected end of JSON input")
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return parseErr
		})
		if !errors.Is(err, parseErr) {
			t.Fatalf("Expected parse error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("Expected 1 call, got %d", calls)
		}
	})

	t.Run("Custom classifier widens retries", func(t *testing.T) {
		clock := &fakeClock{}
		p := newTestPolicy(clock)
		marker := errors.New("bad payload")
		p.Retryable = func(err error) bool { return errors.Is(err, marker) }

		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return marker
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Do failed: %v", err)
		}
		if calls != 2 {
			t.Errorf("Expected 2 calls, got %d", calls)
		}
	})

	t.Run("Cancelled context stops retrying", func(t *testing.T) {
		p := NewDefaultRetryPolicy()
		p.JitterFraction = 0
		p.Sleep = func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		}

		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errors.New("rate limit exceeded")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("Expected 1 call, got %d", calls)
		}
	})
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := NewDefaultRetryPolicy()

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{10, 30 * time.Second}, // capped
	}
	for _, tc := range cases {
		if got := p.Backoff(tc.attempt); got != tc.want {
			t.Errorf("Backoff(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		rateLimit bool
		timeout   bool
		retryable bool
	}{
		{"429 status", errors.New("API error: 429 Too Many Requests"), true, false, true},
		{"Quota exhausted", errors.New("RESOURCE_EXHAUSTED: quota exceeded"), true, false, true},
		{"Overloaded", errors.New("overloaded_error"), true, false, true},
		{"Deadline", context.DeadlineExceeded, false, true, true},
		{"Timeout string", errors.New("request timeout"), false, true, true},
		{"Cancelled", context.Canceled, false, false, false},
		{"Parse failure", errors.New("invalid character '<'"), false, false, false},
		{"Nil", nil, false, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRateLimitError(tc.err); got != tc.rateLimit {
				t.Errorf("IsRateLimitError = %v, want %v", got, tc.rateLimit)
			}
			if got := IsTimeoutError(tc.err); got != tc.timeout {
				t.Errorf("IsTimeoutError = %v, want %v", got, tc.timeout)
			}
			if got := IsRetryableError(tc.err); got != tc.retryable {
				t.Errorf("IsRetryableError = %v, want %v", got, tc.retryable)
			}
		})
	}
}
