package scheduler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds transient-failure retries with a fixed delay.
// The scheduler deliberately avoids exponential growth here: store
// calls either recover within a couple of attempts or the task is
// marked errored and the run moves on.
type RetryPolicy struct {
	MaxRetries uint64        // retries after the first attempt
	Delay      time.Duration // fixed delay between attempts
}

// DefaultRetryPolicy matches the store-call budget: two retries, three
// seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Delay: 3 * time.Second}
}

// Do runs op, retrying per the policy. Context cancellation stops
// retrying immediately.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), p.MaxRetries)

	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return op()
	}, backoff.WithContext(policy, ctx))
}
