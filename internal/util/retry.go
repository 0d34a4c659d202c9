package util

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy describes a fixed-interval retry loop.
type RetryPolicy struct {
	// Interval is the pause between attempts.
	Interval time.Duration
	// MaxAttempts bounds the number of calls to fn. Zero means unbounded.
	MaxAttempts int
	// Retryable decides whether an error is worth another attempt. A nil
	// Retryable retries every error.
	Retryable func(error) bool
	// Notify, when set, is called before each pause.
	Notify func(err error, wait time.Duration)
}

// Retry calls fn until it succeeds, returns an error the policy does not
// retry, the attempt budget runs out, or ctx is cancelled. It returns nil on
// success and the last error otherwise.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	var b backoff.BackOff = backoff.NewConstantBackOff(p.Interval)
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := fn()
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if p.Notify != nil {
		notify = p.Notify
	}
	return backoff.RetryNotify(op, b, notify)
}
