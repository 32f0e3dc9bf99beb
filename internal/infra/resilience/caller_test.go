package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"careerpilot/internal/domain"
)

func testCaller() *Caller {
	log := zerolog.Nop()
	return NewCaller(Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		CallTimeout: time.Second,
	}, &log)
}

func TestCallRetriesTransientThenSucceeds(t *testing.T) {
	c := testCaller()
	calls := 0
	out, err := Call(context.Background(), c, "embed", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("429 resource exhausted")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("out = %q", out)
	}
	if calls != 3 {
		t.Fatalf("underlying function invoked %d times, want 3", calls)
	}
}

func TestCallDoesNotRetryPermanent(t *testing.T) {
	c := testCaller()
	calls := 0
	_, err := Call(context.Background(), c, "generate", func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("400 invalid request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("underlying function invoked %d times, want 1", calls)
	}
}

func TestCallExhaustsRetryBudget(t *testing.T) {
	c := testCaller()
	calls := 0
	_, err := Call(context.Background(), c, "generate", func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("service unavailable")
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if calls != 3 {
		t.Fatalf("underlying function invoked %d times, want 3", calls)
	}
}

func TestCallStopsOnContextCancel(t *testing.T) {
	log := zerolog.Nop()
	c := NewCaller(Config{
		MaxAttempts: 3,
		BaseDelay:   time.Hour, // force the sleep path to block
		CallTimeout: time.Second,
	}, &log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Call(ctx, c, "generate", func(ctx context.Context) (string, error) {
			return "", errors.New("timeout talking to upstream")
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not return after cancellation")
	}
}

func TestTransientClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("429 too many requests"), true},
		{errors.New("rate limit exceeded"), true},
		{errors.New("deadline timeout"), true},
		{errors.New("upstream unavailable"), true},
		{errors.New("HTTP 503"), true},
		{context.DeadlineExceeded, true},
		{errors.New("401 unauthorized"), false},
		{domain.ErrSafetyBlocked, false},
		{context.Canceled, false},
	}
	for _, tc := range cases {
		if got := Transient(tc.err); got != tc.want {
			t.Errorf("Transient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestBackoffGrowsAndStaysBounded(t *testing.T) {
	log := zerolog.Nop()
	c := NewCaller(Config{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}, &log)

	for attempt := 1; attempt <= 5; attempt++ {
		base := 100 * time.Millisecond << (attempt - 1)
		if base > time.Second {
			base = time.Second
		}
		for i := 0; i < 50; i++ {
			d := c.backoff(attempt)
			if d < base {
				t.Fatalf("attempt %d: backoff %v below base %v", attempt, d, base)
			}
			if d > time.Second {
				t.Fatalf("attempt %d: backoff %v above cap", attempt, d)
			}
		}
	}
}
