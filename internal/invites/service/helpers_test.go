package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/internal/invites/store/drivers/sqlite"
	"github.com/aussiebroadwan/propinvite/pkg/cryptox"
	"github.com/aussiebroadwan/propinvite/pkg/idx"
)

var testStart = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Record(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) names() []domain.EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventName, len(r.events))
	for i, e := range r.events {
		out[i] = e.Name
	}
	return out
}

func (r *eventRecorder) last() domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type testEnv struct {
	store     *sqlite.Store
	codec     *cryptox.TokenCodec
	clock     *fakeClock
	guard     *AbuseGuard
	events    *eventRecorder
	issuer    *InviteIssuer
	validator *InviteValidator
	acceptor  *InviteAcceptor
	property  domain.Property
	owner     domain.Profile
}

func testRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Initial: time.Millisecond, Max: 5 * time.Millisecond, Timeout: 10 * time.Second}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "invites.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	codec, err := cryptox.NewTokenCodec(cryptox.DefaultTokenAlphabet, cryptox.DefaultTokenLength, []byte("service-test-pepper"))
	require.NoError(t, err)

	owner := domain.Profile{ID: "owner-" + idx.New().String(), DisplayName: "Morgan Lee"}
	require.NoError(t, s.Properties().UpsertProfile(ctx, owner))

	prop := domain.Property{
		ID:          idx.New().String(),
		OwnerID:     owner.ID,
		Name:        "Unit 4, The Terraces",
		AddressLine: "12 Example St",
		Suburb:      "Fitzroy",
		Region:      "VIC",
	}
	require.NoError(t, s.Properties().UpsertProperty(ctx, prop))

	clock := newFakeClock(testStart)
	guard := NewAbuseGuard(AbusePolicy{Limit: 1000, Window: time.Minute}, clock.Now)
	events := &eventRecorder{}

	validator := NewInviteValidator(s, codec, guard, testRetry(), events)
	validator.Now = clock.Now

	return &testEnv{
		store:  s,
		codec:  codec,
		clock:  clock,
		guard:  guard,
		events: events,
		issuer: &InviteIssuer{
			Store:  s,
			Codec:  codec,
			Policy: DefaultIssuePolicy(),
			Retry:  testRetry(),
			Now:    clock.Now,
		},
		validator: validator,
		acceptor: &InviteAcceptor{
			Store:     s,
			Validator: validator,
			Guard:     guard,
			Retry:     testRetry(),
			Events:    events,
			Now:       clock.Now,
		},
		property: prop,
		owner:    owner,
	}
}

// issue creates an invite on the env's property and returns the raw token.
func (e *testEnv) issue(t *testing.T, maxUses int, ttl time.Duration, email string) IssuedInvite {
	t.Helper()
	out, err := e.issuer.Issue(context.Background(), IssueRequest{
		PropertyID:    e.property.ID,
		IssuerID:      e.owner.ID,
		TTL:           ttl,
		MaxUses:       maxUses,
		IntendedEmail: email,
	})
	require.NoError(t, err)
	return out
}

func tenant(id string) domain.Caller {
	return domain.Caller{
		ID:            id,
		Email:         id + "@example.com",
		EmailVerified: true,
		Authenticated: true,
		RemoteIP:      "198.51.100.7",
	}
}

func anonymous() domain.Caller {
	return domain.Anonymous("203.0.113.9", "")
}
