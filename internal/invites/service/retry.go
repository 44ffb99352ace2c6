package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aussiebroadwan/propinvite/internal/invites/store"
)

// RetryPolicy bounds every store call with a timeout and retries transient
// failures with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Timeout     time.Duration // per attempt
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Initial:     50 * time.Millisecond,
		Max:         500 * time.Millisecond,
		Timeout:     2 * time.Second,
	}
}

// Do runs fn until it succeeds, fails permanently or attempts run out. Only
// store.ErrUnavailable and per-attempt deadlines are retried. An exhausted
// retry surfaces as ErrUnavailable, never as the last underlying error kind.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p = DefaultRetryPolicy()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Initial
	eb.MaxInterval = p.Max
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)

	var transient error
	err := backoff.Retry(func() error {
		attemptCtx, cancel := p.attemptContext(ctx)
		defer cancel()

		err := fn(attemptCtx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, store.ErrUnavailable),
			errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			transient = err
			return err
		default:
			return backoff.Permanent(err)
		}
	}, b)

	if err == nil {
		return nil
	}
	if transient != nil && (errors.Is(err, transient) || ctx.Err() != nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (p RetryPolicy) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.Timeout)
}
