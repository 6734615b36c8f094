package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how a single object write is retried. Delays grow
// geometrically from BaseDelay and are not jittered, so the schedule is
// exact: with defaults, attempts run after 0ms, 100ms and 200ms waits.
type RetryPolicy struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
	Multiplier  float64

	// Timer overrides backoff's wall-clock timer; tests inject a fake.
	Timer backoff.Timer
}

// DefaultRetryPolicy is the upload schedule: 3 attempts, 100ms base,
// doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, Multiplier: 2}
}

// Run invokes op until it succeeds or the attempt budget is exhausted,
// returning the final error.
func (p RetryPolicy) Run(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	wrapped := backoff.WithContext(backoff.WithMaxRetries(bo, p.MaxAttempts-1), ctx)
	return backoff.RetryNotifyWithTimer(op, wrapped, nil, p.Timer)
}
