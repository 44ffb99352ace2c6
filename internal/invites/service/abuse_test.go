package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAbuseGuard_BlocksOverLimit(t *testing.T) {
	clock := newFakeClock(testStart)
	g := NewAbuseGuard(AbusePolicy{Limit: 3, Window: time.Minute, BackoffBase: 30 * time.Second, BackoffCeiling: 15 * time.Minute}, clock.Now)

	for range 3 {
		require.NoError(t, g.CheckAndRecord(ActionValidate, "ip:1.2.3.4"))
	}

	err := g.CheckAndRecord(ActionValidate, "ip:1.2.3.4")
	require.ErrorIs(t, err, ErrRateLimited)
	require.Equal(t, time.Minute, RetryAfter(err), "block lasts until the oldest attempt leaves the window")

	// other keys and actions are independent
	require.NoError(t, g.CheckAndRecord(ActionValidate, "ip:5.6.7.8"))
	require.NoError(t, g.CheckAndRecord(ActionAccept, "ip:1.2.3.4"))
}

func TestAbuseGuard_Recovery(t *testing.T) {
	clock := newFakeClock(testStart)
	g := NewAbuseGuard(AbusePolicy{Limit: 3, Window: time.Minute, BackoffBase: 30 * time.Second, BackoffCeiling: 15 * time.Minute}, clock.Now)

	for range 3 {
		require.NoError(t, g.CheckAndRecord(ActionValidate, "k"))
	}
	err := g.CheckAndRecord(ActionValidate, "k")
	retryAfter := RetryAfter(err)
	require.Positive(t, retryAfter)

	// Retrying before T is still limited, with the remaining wait.
	clock.Advance(retryAfter - time.Second)
	err = g.CheckAndRecord(ActionValidate, "k")
	require.ErrorIs(t, err, ErrRateLimited)
	require.Equal(t, time.Second, RetryAfter(err), "attempts while blocked must not extend the block")

	// At T the request is evaluated normally.
	clock.Advance(time.Second)
	require.NoError(t, g.CheckAndRecord(ActionValidate, "k"))
}

func TestAbuseGuard_ExponentialBackoff(t *testing.T) {
	clock := newFakeClock(testStart)
	g := NewAbuseGuard(AbusePolicy{Limit: 1, Window: 10 * time.Second, BackoffBase: 30 * time.Second, BackoffCeiling: 100 * time.Second}, clock.Now)

	want := []time.Duration{30 * time.Second, 60 * time.Second, 100 * time.Second, 100 * time.Second}
	for i, w := range want {
		require.NoError(t, g.CheckAndRecord(ActionAccept, "k"), "round %d", i)
		err := g.CheckAndRecord(ActionAccept, "k")
		require.Equal(t, w, RetryAfter(err), "round %d", i)
		clock.Advance(w)
	}
}

func TestAbuseGuard_ViolationsDecay(t *testing.T) {
	clock := newFakeClock(testStart)
	g := NewAbuseGuard(AbusePolicy{Limit: 1, Window: 10 * time.Second, BackoffBase: 30 * time.Second, BackoffCeiling: 2 * time.Minute}, clock.Now)

	require.NoError(t, g.CheckAndRecord(ActionAccept, "k"))
	require.Equal(t, 30*time.Second, RetryAfter(g.CheckAndRecord(ActionAccept, "k")))

	// unblocked for a full ceiling period: back to the base backoff
	clock.Advance(30*time.Second + 2*time.Minute)
	require.NoError(t, g.CheckAndRecord(ActionAccept, "k"))
	require.Equal(t, 30*time.Second, RetryAfter(g.CheckAndRecord(ActionAccept, "k")))
}

func TestAbuseGuard_CheckUsesAddressAndAccount(t *testing.T) {
	clock := newFakeClock(testStart)
	g := NewAbuseGuard(AbusePolicy{Limit: 2, Window: time.Minute}, clock.Now)

	alice := tenant("alice")
	require.NoError(t, g.Check(alice, ActionValidate))
	require.NoError(t, g.Check(alice, ActionValidate))

	// same account from a new address is still limited
	moved := alice
	moved.RemoteIP = "192.0.2.44"
	require.ErrorIs(t, g.Check(moved, ActionValidate), ErrRateLimited)

	// a different account behind the exhausted address is limited too
	bob := tenant("bob")
	require.ErrorIs(t, g.Check(bob, ActionValidate), ErrRateLimited)

	// unrelated anonymous caller elsewhere is fine
	require.NoError(t, g.Check(anonymous(), ActionValidate))
}

func TestAbuseGuard_ConcurrentIncrements(t *testing.T) {
	clock := newFakeClock(testStart)
	g := NewAbuseGuard(AbusePolicy{Limit: 50, Window: time.Minute}, clock.Now)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.CheckAndRecord(ActionValidate, "shared") == nil {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 50, allowed.Load())
}

func TestAbuseGuard_Sweep(t *testing.T) {
	clock := newFakeClock(testStart)
	g := NewAbuseGuard(AbusePolicy{Limit: 1, Window: time.Minute, BackoffBase: time.Minute, BackoffCeiling: 5 * time.Minute}, clock.Now)

	require.NoError(t, g.CheckAndRecord(ActionValidate, "idle"))
	require.NoError(t, g.CheckAndRecord(ActionValidate, "noisy"))
	require.ErrorIs(t, g.CheckAndRecord(ActionValidate, "noisy"), ErrRateLimited)
	require.Equal(t, 2, g.Len())

	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, g.Sweep(), "noisy keeps its violation history")
	require.Equal(t, 1, g.Len())

	clock.Advance(5 * time.Minute)
	require.Equal(t, 1, g.Sweep())
	require.Zero(t, g.Len())
}
