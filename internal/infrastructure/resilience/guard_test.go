package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func fastRetry(attempts int) Policy {
	return Policy{
		Retry: RetryPolicy{
			MaxAttempts:    attempts,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
			Multiplier:     2,
		},
	}
}

func TestDoRetriesRetryableFailure(t *testing.T) {
	guard := NewGuard(fastRetry(3), nil)

	attempts := 0
	errFlaky := errors.New("flaky")
	err := guard.Do(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errFlaky
		}
		return nil
	}, func(err error) Outcome {
		return Outcome{Retry: errors.Is(err, errFlaky), CountFailure: true}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoDoesNotRetryPermanentFailure(t *testing.T) {
	guard := NewGuard(fastRetry(3), nil)

	attempts := 0
	errPermanent := errors.New("permanent")
	err := guard.Do(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) Outcome { return Outcome{} })
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestSingleAttemptNeverRetries(t *testing.T) {
	guard := NewGuard(SingleAttempt(BreakerPolicy{}), nil)

	attempts := 0
	err := guard.Do(context.Background(), "generate", func(context.Context) error {
		attempts++
		return errors.New("boom")
	}, func(error) Outcome { return Outcome{Retry: true, CountFailure: true} })
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt, got %d", attempts)
	}
}

func TestDoOpensCircuitAfterConsecutiveFailures(t *testing.T) {
	guard := NewGuard(SingleAttempt(BreakerPolicy{
		Enabled:             true,
		ConsecutiveFailures: 2,
		MinRequests:         100,
		OpenTimeout:         50 * time.Millisecond,
		HalfOpenMaxCalls:    1,
	}), nil)

	errDown := errors.New("down")
	for i := 0; i < 2; i++ {
		err := guard.Do(context.Background(), "op", func(context.Context) error { return errDown }, nil)
		if !errors.Is(err, errDown) {
			t.Fatalf("iteration %d: expected down error, got %v", i, err)
		}
	}
	if guard.State("op") != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", guard.State("op"))
	}

	err := guard.Do(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, nil)
	if !IsOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestDoIgnoresUncountedFailuresForBreaker(t *testing.T) {
	guard := NewGuard(SingleAttempt(BreakerPolicy{
		Enabled:             true,
		ConsecutiveFailures: 1,
		OpenTimeout:         time.Second,
	}), nil)

	for i := 0; i < 3; i++ {
		_ = guard.Do(context.Background(), "op", func(context.Context) error {
			return context.Canceled
		}, func(error) Outcome { return Outcome{} })
	}
	if guard.State("op") != gobreaker.StateClosed {
		t.Fatalf("expected closed breaker, got %s", guard.State("op"))
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	guard := NewGuard(fastRetry(3), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := guard.Do(ctx, "op", func(context.Context) error {
		called = true
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancellation before call, got err=%v called=%v", err, called)
	}
}
