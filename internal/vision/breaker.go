package vision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// Breaker stops calling the model after repeated failures and fails fast with
// ErrUnavailable until the cool-down passes.
type Breaker struct {
	next Analyzer
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next. A single model failure still surfaces as an error
// (a 500 at the HTTP layer); only after breakerFailures consecutive failures
// does the breaker open and answer ErrUnavailable (a 503) for breakerTimeout
// without calling the model. Pass the bare analyzer instead to get plain
// failures with no short-circuit.
func NewBreaker(next Analyzer, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        "vision",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Analyze(ctx context.Context, req Request) (Analysis, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Analyze(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Analysis{}, ErrUnavailable
	}
	if err != nil {
		return Analysis{}, err
	}
	return out.(Analysis), nil
}

// State reports the breaker state, mostly for health output and tests.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
