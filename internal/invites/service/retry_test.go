package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/propinvite/internal/invites/store"
)

func TestRetryPolicy_Do(t *testing.T) {
	ctx := context.Background()
	policy := RetryPolicy{MaxAttempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond, Timeout: time.Second}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := policy.Do(ctx, func(context.Context) error {
			calls++
			if calls < 3 {
				return store.ErrUnavailable
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("exhausted transient failures surface as unavailable", func(t *testing.T) {
		calls := 0
		err := policy.Do(ctx, func(context.Context) error {
			calls++
			return store.ErrUnavailable
		})
		require.ErrorIs(t, err, ErrUnavailable)
		require.Equal(t, 3, calls)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		calls := 0
		err := policy.Do(ctx, func(context.Context) error {
			calls++
			return store.ErrConflict
		})
		require.ErrorIs(t, err, store.ErrConflict)
		require.NotErrorIs(t, err, ErrUnavailable)
		require.Equal(t, 1, calls)
	})

	t.Run("per-attempt timeout is transient", func(t *testing.T) {
		short := policy
		short.Timeout = 5 * time.Millisecond
		calls := 0
		err := short.Do(ctx, func(ctx context.Context) error {
			calls++
			<-ctx.Done()
			return ctx.Err()
		})
		require.ErrorIs(t, err, ErrUnavailable)
		require.Equal(t, 3, calls)
	})

	t.Run("caller cancellation stops retrying", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		err := policy.Do(cctx, func(context.Context) error {
			calls++
			cancel()
			return errors.New("boom")
		})
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})
}
