package scoring

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker wraps a Scorer in a circuit breaker so a flapping scoring
// service degrades to "no hint available" instantly instead of adding
// a timeout to every task.
type Breaker struct {
	inner Scorer
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps the given scorer.
func NewBreaker(inner Scorer) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scoring",
		MaxRequests: 1, // one probe in half-open state
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Caller cancellation is not a service failure.
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
	return &Breaker{inner: inner, cb: cb}
}

// Score delegates to the wrapped scorer through the breaker. When the
// circuit is open the error returns immediately.
func (b *Breaker) Score(ctx context.Context, description string) (float64, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Score(ctx, description)
	})
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}
