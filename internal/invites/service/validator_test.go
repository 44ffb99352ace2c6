package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
)

func TestValidate_ReturnsPreview(t *testing.T) {
	env := newTestEnv(t)
	issued := env.issue(t, 1, 7*24*time.Hour, "")

	preview, err := env.validator.Validate(context.Background(), issued.RawToken, anonymous())
	require.NoError(t, err)
	require.Equal(t, domain.PropertyPreview{
		PropertyID:     env.property.ID,
		Name:           "Unit 4, The Terraces",
		AddressSummary: "Fitzroy, VIC",
		IssuerName:     "Morgan Lee",
	}, preview)

	require.Equal(t, []domain.EventName{domain.EventInviteView, domain.EventInviteValidateSuccess}, env.events.names())
	last := env.events.last()
	require.NotContains(t, last.TokenPreview, issued.RawToken[3:len(issued.RawToken)-2])
	require.NotEmpty(t, last.CorrelationID)
	require.NotEmpty(t, last.ID)
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()

	t.Run("expired one second ago", func(t *testing.T) {
		env := newTestEnv(t)
		issued := env.issue(t, 1, time.Hour, "")
		env.clock.Advance(time.Hour + time.Second)

		for range 5 {
			_, err := env.validator.Validate(ctx, issued.RawToken, anonymous())
			require.ErrorIs(t, err, ErrInviteExpired)
		}
	})

	t.Run("expires in one second", func(t *testing.T) {
		env := newTestEnv(t)
		issued := env.issue(t, 1, time.Second, "")

		for range 5 {
			_, err := env.validator.Validate(ctx, issued.RawToken, anonymous())
			require.NoError(t, err)
		}
	})

	t.Run("exact expiry instant is expired", func(t *testing.T) {
		env := newTestEnv(t)
		issued := env.issue(t, 1, time.Hour, "")
		env.clock.Advance(time.Hour)

		for range 5 {
			_, err := env.validator.Validate(ctx, issued.RawToken, anonymous())
			require.ErrorIs(t, err, ErrInviteExpired)
		}
	})
}

func TestValidate_TerminalStates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	revoked := env.issue(t, 1, time.Hour, "")
	require.NoError(t, env.issuer.Revoke(ctx, revoked.Invite.ID, env.owner.ID))
	_, err := env.validator.Validate(ctx, revoked.RawToken, anonymous())
	require.ErrorIs(t, err, ErrInviteRevoked)

	full := env.issue(t, 1, time.Hour, "")
	_, err = env.acceptor.Accept(ctx, full.RawToken, tenant("first"))
	require.NoError(t, err)
	_, err = env.validator.Validate(ctx, full.RawToken, anonymous())
	require.ErrorIs(t, err, ErrCapacityReached)

	// expiry outranks revocation
	env.clock.Advance(2 * time.Hour)
	_, err = env.validator.Validate(ctx, revoked.RawToken, anonymous())
	require.ErrorIs(t, err, ErrInviteExpired)
}

func TestValidate_UnknownAndMalformed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for _, raw := range []string{"", "short", "ABCDEFGHJKLMNPQR", "0000000000000000", "\x00\x01"} {
		_, err := env.validator.Validate(ctx, raw, anonymous())
		require.ErrorIs(t, err, ErrInviteInvalid, "%q", raw)
	}
	require.Equal(t, domain.KindInvalid, env.events.last().ErrorKind)
}

func TestValidate_IntendedRecipient(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	issued := env.issue(t, 1, time.Hour, "  Tenant@Example.com ")
	require.Equal(t, "tenant@example.com", issued.Invite.IntendedEmail)

	t.Run("matching verified account", func(t *testing.T) {
		caller := tenant("t1")
		caller.Email = "TENANT@example.com"
		_, err := env.validator.Validate(ctx, issued.RawToken, caller)
		require.NoError(t, err)
	})

	t.Run("unverified email does not match", func(t *testing.T) {
		caller := tenant("t1")
		caller.Email = "tenant@example.com"
		caller.EmailVerified = false
		_, err := env.validator.Validate(ctx, issued.RawToken, caller)
		require.ErrorIs(t, err, ErrWrongAccount)
	})

	t.Run("other authenticated account sees wrong account", func(t *testing.T) {
		_, err := env.validator.Validate(ctx, issued.RawToken, tenant("someone-else"))
		require.ErrorIs(t, err, ErrWrongAccount)
	})

	t.Run("anonymous caller cannot tell it from an invalid token", func(t *testing.T) {
		_, err := env.validator.Validate(ctx, issued.RawToken, anonymous())
		require.ErrorIs(t, err, ErrInviteInvalid)
		require.NotErrorIs(t, err, ErrWrongAccount)
		require.Equal(t, domain.KindInvalid, env.events.last().ErrorKind)
	})
}

func TestValidate_RateLimitedShortCircuits(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.validator.Guard = NewAbuseGuard(AbusePolicy{Limit: 2, Window: time.Minute}, env.clock.Now)

	issued := env.issue(t, 1, time.Hour, "")

	_, err := env.validator.Validate(ctx, "ABCDEFGHJKLMNPQR", anonymous())
	require.ErrorIs(t, err, ErrInviteInvalid)
	_, err = env.validator.Validate(ctx, "ABCDEFGHJKLMNPQS", anonymous())
	require.ErrorIs(t, err, ErrInviteInvalid)

	// even a valid token is refused once the budget is spent
	_, err = env.validator.Validate(ctx, issued.RawToken, anonymous())
	require.ErrorIs(t, err, ErrRateLimited)
	require.Positive(t, RetryAfter(err))
	require.Equal(t, domain.KindRateLimited, env.events.last().ErrorKind)

	// a refused attempt is not a view
	require.Equal(t, []domain.EventName{
		domain.EventInviteView, domain.EventInviteValidateFail,
		domain.EventInviteView, domain.EventInviteValidateFail,
		domain.EventInviteValidateFail,
	}, env.events.names())
}

func TestValidate_AbuseFloodDoesNotTriggerRollback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	policy := DefaultRolloutPolicy()
	policy.MinSamples = 20
	monitor := NewRolloutMonitor(policy, env.clock.Now)
	env.validator.Events = MultiSink{env.events, monitor}
	env.acceptor.Events = MultiSink{env.events, monitor}

	for i := range 20 {
		issued := env.issue(t, 1, time.Hour, "")
		caller := tenant(fmt.Sprintf("tenant-%d", i))
		_, err := env.validator.Validate(ctx, issued.RawToken, caller)
		require.NoError(t, err)
		_, err = env.acceptor.Accept(ctx, issued.RawToken, caller)
		require.NoError(t, err)
	}

	stageSince := env.clock.Now().Add(-time.Hour)
	healthy := monitor.Evaluate(10, stageSince)
	require.Equal(t, DecisionAdvance, healthy.Action, healthy.Reason)

	// one address hammering validate with guesses
	env.validator.Guard = NewAbuseGuard(AbusePolicy{Limit: 2, Window: time.Minute}, env.clock.Now)
	limited := 0
	for i := range 40 {
		_, err := env.validator.Validate(ctx, fmt.Sprintf("ABCDEFGHJKLMN%03d", i), anonymous())
		if errors.Is(err, ErrRateLimited) {
			limited++
		}
	}
	require.Equal(t, 38, limited)

	d := monitor.Evaluate(10, stageSince)
	require.Equal(t, 22, d.Metrics.Views)
	require.NotEqual(t, DecisionRollback, d.Action, d.Reason)
	require.Equal(t, DecisionAdvance, d.Action, d.Reason)
}

func TestValidate_DoesNotMutate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	issued := env.issue(t, 2, time.Hour, "")

	for range 3 {
		_, err := env.validator.Validate(ctx, issued.RawToken, tenant("viewer"))
		require.NoError(t, err)
	}

	inv, err := env.store.Invites().GetInviteByID(ctx, issued.Invite.ID)
	require.NoError(t, err)
	require.Zero(t, inv.UseCount)
	require.Equal(t, domain.InviteActive, inv.Status)
}
