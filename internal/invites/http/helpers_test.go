package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/internal/invites/metrics"
	"github.com/aussiebroadwan/propinvite/internal/invites/service"
	"github.com/aussiebroadwan/propinvite/internal/invites/store/drivers/sqlite"
	"github.com/aussiebroadwan/propinvite/pkg/cryptox"
	"github.com/aussiebroadwan/propinvite/pkg/jwtx"
	"github.com/aussiebroadwan/propinvite/pkg/slogx"
)

const (
	testFeature  = "property_invites_v2"
	testIssuer   = "https://auth.test.local"
	testProperty = "prop-fitzroy"
	testOwner    = "owner-morgan"
)

var testSecret = []byte("http-test-signing-secret")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

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

// stubFlags serves a fixed percent for every feature.
type stubFlags struct{ percent int }

func (s stubFlags) Percent(context.Context, string) (int, error) { return s.percent, nil }

type testServer struct {
	router *Router
	store  *sqlite.Store
	clock  *fakeClock
	guard  *service.AbuseGuard
	signer *jwtx.HS256Signer
}

type serverOption func(*testServer)

func withAbusePolicy(p service.AbusePolicy) serverOption {
	return func(s *testServer) {
		s.guard = service.NewAbuseGuard(p, s.clock.Now)
		s.router.Validator.Guard = s.guard
		s.router.Acceptor.Guard = s.guard
	}
}

func withGate(percent int, legacy http.Handler) serverOption {
	return func(s *testServer) {
		s.router.Gate = &service.RolloutGate{Flags: stubFlags{percent: percent}}
		s.router.Legacy = legacy
	}
}

func withFailureFloor(d time.Duration) serverOption {
	return func(s *testServer) { s.router.FailureFloor = d }
}

func withMetrics(m *metrics.Metrics) serverOption {
	return func(s *testServer) { s.router.Metrics = m }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "invites.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	require.NoError(t, st.Properties().UpsertProfile(ctx, domain.Profile{ID: testOwner, DisplayName: "Morgan Lee"}))
	require.NoError(t, st.Properties().UpsertProperty(ctx, domain.Property{
		ID:          testProperty,
		OwnerID:     testOwner,
		Name:        "Unit 4, The Terraces",
		AddressLine: "12 Example St",
		Suburb:      "Fitzroy",
		Region:      "VIC",
	}))

	codec, err := cryptox.NewTokenCodec(cryptox.DefaultTokenAlphabet, cryptox.DefaultTokenLength, []byte("http-test-pepper"))
	require.NoError(t, err)

	verifier, err := jwtx.NewHS256Verifier(testSecret, testIssuer)
	require.NoError(t, err)
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)

	clock := &fakeClock{t: time.Now().UTC().Truncate(time.Second)}
	guard := service.NewAbuseGuard(service.AbusePolicy{Limit: 1000, Window: time.Minute}, clock.Now)
	retry := service.RetryPolicy{MaxAttempts: 3, Initial: time.Millisecond, Max: 5 * time.Millisecond, Timeout: 10 * time.Second}

	monitor := service.NewRolloutMonitor(service.DefaultRolloutPolicy(), clock.Now)
	flags := service.NewFlagCache(st, time.Minute, service.DefaultRetryPolicy(), slogx.Discard())
	flags.Now = clock.Now

	validator := service.NewInviteValidator(st, codec, guard, retry, monitor)
	validator.Now = clock.Now

	r := NewRouter(verifier, "test", st, slogx.Discard(), false)
	r.Validator = validator
	r.Issuer = &service.InviteIssuer{
		Store:  st,
		Codec:  codec,
		Policy: service.DefaultIssuePolicy(),
		Retry:  retry,
		Now:    clock.Now,
	}
	r.Acceptor = &service.InviteAcceptor{
		Store:     st,
		Validator: validator,
		Guard:     guard,
		Retry:     retry,
		Events:    monitor,
		Now:       clock.Now,
	}
	r.Controller = &service.RolloutController{
		Store:    st,
		Monitor:  monitor,
		Flags:    flags,
		Feature:  testFeature,
		Mode:     service.RolloutAdvisory,
		Schedule: "@every 1m",
		Logger:   slogx.Discard(),
		Now:      clock.Now,
	}
	r.Feature = testFeature

	s := &testServer{router: r, store: st, clock: clock, guard: guard, signer: signer}
	for _, opt := range opts {
		opt(s)
	}
	r.ApplyRoutes()
	return s
}

// bearer mints an access token for subject with a verified email.
func (s *testServer) bearer(t *testing.T, subject string, scopes ...string) string {
	t.Helper()
	return s.bearerEmail(t, subject, subject+"@example.com", true, scopes...)
}

func (s *testServer) bearerEmail(t *testing.T, subject, email string, verified bool, scopes ...string) string {
	t.Helper()
	tok, err := s.signer.Sign(jwtx.NewClaims(subject, testIssuer, email, verified, scopes, time.Hour, time.Now()))
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// issue creates an invite as the property owner and returns the raw token.
func (s *testServer) issue(t *testing.T, maxUses int, ttl time.Duration, email string) service.IssuedInvite {
	t.Helper()
	out, err := s.router.Issuer.Issue(context.Background(), service.IssueRequest{
		PropertyID:    testProperty,
		IssuerID:      testOwner,
		TTL:           ttl,
		MaxUses:       maxUses,
		IntendedEmail: email,
	})
	require.NoError(t, err)
	return out
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
