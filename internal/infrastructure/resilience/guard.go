package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Outcome tells the guard what to do with a failed call.
type Outcome struct {
	Retry        bool
	CountFailure bool
}

type Classifier func(err error) Outcome

// Guard runs outbound calls behind a per-operation circuit breaker with
// bounded retries.
type Guard struct {
	policy Policy
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewGuard(policy Policy, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		policy:   policy.normalize(),
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (g *Guard) Do(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classify == nil {
		classify = countEverything
	}

	if !g.policy.Breaker.Enabled {
		return g.attempt(ctx, op, fn, classify)
	}
	_, err := g.breaker(op, classify).Execute(func() (struct{}, error) {
		return struct{}{}, g.attempt(ctx, op, fn, classify)
	})
	return err
}

// State reports the breaker state for operation; closed when unknown.
func (g *Guard) State(operation string) gobreaker.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.breakers[operation]; ok {
		return b.State()
	}
	return gobreaker.StateClosed
}

func (g *Guard) attempt(ctx context.Context, op string, fn func(context.Context) error, classify Classifier) error {
	retry := g.policy.Retry
	backoff := retry.InitialBackoff

	var err error
	for n := 1; n <= retry.MaxAttempts; n++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if !classify(err).Retry || n == retry.MaxAttempts {
			return err
		}

		wait := min(backoff, retry.MaxBackoff)
		g.logger.Warn("retry_attempt",
			"operation", op,
			"attempt", n,
			"max_attempts", retry.MaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", err,
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		backoff = min(time.Duration(float64(backoff)*retry.Multiplier), retry.MaxBackoff)
	}
	return err
}

func (g *Guard) breaker(op string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if b, ok := g.breakers[op]; ok {
		return b
	}
	policy := g.policy.Breaker
	b := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        op,
		MaxRequests: policy.HalfOpenMaxCalls,
		Timeout:     policy.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if policy.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= policy.ConsecutiveFailures {
				return true
			}
			if counts.Requests < policy.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= policy.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).CountFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	g.breakers[op] = b
	return b
}

func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func countEverything(error) Outcome {
	return Outcome{CountFailure: true}
}
