package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
)

// feed records views followed by accept outcomes: accepted successes and
// failed failures of kind.
func feed(m *RolloutMonitor, at time.Time, views, accepted, failed int, kind domain.ErrorKind) {
	for range views {
		m.Record(domain.Event{Name: domain.EventInviteView, At: at})
	}
	for range accepted {
		m.Record(domain.Event{Name: domain.EventInviteAcceptSuccess, At: at, Latency: 20 * time.Millisecond})
	}
	for range failed {
		m.Record(domain.Event{Name: domain.EventInviteAcceptFail, ErrorKind: kind, At: at, Latency: 80 * time.Millisecond})
	}
}

func newMonitor(t *testing.T) (*RolloutMonitor, *fakeClock) {
	t.Helper()
	clock := newFakeClock(testStart)
	return NewRolloutMonitor(DefaultRolloutPolicy(), clock.Now), clock
}

func TestRolloutMonitor_Snapshot(t *testing.T) {
	m, clock := newMonitor(t)
	now := clock.Now()

	feed(m, now, 10, 6, 2, domain.KindExpired)
	m.Record(domain.Event{Name: domain.EventInviteValidateSuccess, At: now, Latency: 10 * time.Millisecond})
	m.Record(domain.Event{Name: domain.EventInviteValidateFail, ErrorKind: domain.KindRateLimited, At: now, Latency: time.Millisecond})

	fm := m.Snapshot()
	require.Equal(t, 10, fm.Views)
	require.Equal(t, 6, fm.AcceptSuccess)
	require.Equal(t, 2, fm.AcceptFail)
	require.Equal(t, 10, fm.AttemptCount)
	require.InDelta(t, 0.6, fm.Conversion, 1e-9)
	require.InDelta(t, 0.2, fm.ErrorRate, 1e-9, "rate limited failures are excluded by default")
	require.InDelta(t, 0.2, fm.KindRates[domain.KindExpired], 1e-9)
	require.InDelta(t, 0.1, fm.KindRates[domain.KindRateLimited], 1e-9)
	require.Equal(t, 20*time.Millisecond, fm.LatencyP50)
	require.Equal(t, 80*time.Millisecond, fm.LatencyP95)
	require.Equal(t, 80*time.Millisecond, fm.LatencyP99)
}

func TestRolloutMonitor_RepeatAcceptsAreNotConversions(t *testing.T) {
	m, clock := newMonitor(t)
	now := clock.Now()

	feed(m, now, 4, 2, 0, domain.KindNone)
	m.Record(domain.Event{Name: domain.EventInviteValidateSuccess, At: now})
	m.Record(domain.Event{Name: domain.EventInviteValidateSuccess, At: now})
	for range 6 {
		m.Record(domain.Event{Name: domain.EventInviteAcceptSuccess, AlreadyLinked: true, At: now})
	}

	fm := m.Snapshot()
	require.Equal(t, 2, fm.AcceptSuccess)
	require.Equal(t, 6, fm.AcceptRepeat)
	require.InDelta(t, 0.5, fm.Conversion, 1e-9)
	require.InDelta(t, 1.0, fm.ValidateToAccept, 1e-9)
	require.LessOrEqual(t, fm.Conversion, 1.0)
}

func TestRolloutMonitor_CountRateLimited(t *testing.T) {
	policy := DefaultRolloutPolicy()
	policy.CountRateLimited = true
	clock := newFakeClock(testStart)
	m := NewRolloutMonitor(policy, clock.Now)

	feed(m, clock.Now(), 4, 2, 2, domain.KindRateLimited)
	require.InDelta(t, 0.5, m.Snapshot().ErrorRate, 1e-9)
}

func TestRolloutMonitor_WindowPrunes(t *testing.T) {
	m, clock := newMonitor(t)
	feed(m, clock.Now(), 5, 5, 0, domain.KindNone)
	clock.Advance(30 * time.Minute)
	feed(m, clock.Now(), 3, 0, 0, domain.KindNone)

	clock.Advance(30 * time.Minute)
	require.Equal(t, 3, m.Snapshot().Views)

	require.Equal(t, 0, m.Prune())
	clock.Advance(30 * time.Minute)
	require.Equal(t, 3, m.Prune())
}

func TestRolloutMonitor_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		percent  int
		held     time.Duration
		views    int
		accepted int
		failed   int
		kind     domain.ErrorKind
		want     DecisionAction
		wantTo   int
	}{
		{"too few samples", 10, time.Hour, 49, 49, 0, domain.KindNone, DecisionHold, 10},
		{"healthy stage advances", 10, time.Hour, 100, 80, 5, domain.KindExpired, DecisionAdvance, 25},
		{"dwell time not met", 10, 10 * time.Minute, 100, 80, 5, domain.KindExpired, DecisionHold, 10},
		{"below advance bar holds", 25, time.Hour, 100, 60, 5, domain.KindExpired, DecisionHold, 25},
		{"low conversion rolls back", 50, time.Hour, 100, 40, 0, domain.KindNone, DecisionRollback, 0},
		{"high error rate rolls back", 25, time.Hour, 100, 70, 30, domain.KindUnavailable, DecisionRollback, 0},
		{"rollback ignores dwell time", 25, time.Minute, 100, 40, 0, domain.KindNone, DecisionRollback, 0},
		{"rate limiting alone does not roll back", 25, time.Hour, 100, 70, 60, domain.KindRateLimited, DecisionAdvance, 50},
		{"zero never advances", 0, time.Hour, 100, 90, 0, domain.KindNone, DecisionHold, 0},
		{"zero never rolls back", 0, time.Hour, 100, 10, 0, domain.KindNone, DecisionHold, 0},
		{"full rollout holds", 100, time.Hour, 100, 90, 0, domain.KindNone, DecisionHold, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock := newMonitor(t)
			feed(m, clock.Now(), tt.views, tt.accepted, tt.failed, tt.kind)

			d := m.Evaluate(tt.percent, clock.Now().Add(-tt.held))
			require.Equal(t, tt.want, d.Action, d.Reason)
			require.Equal(t, tt.percent, d.FromPercent)
			require.Equal(t, tt.wantTo, d.ToPercent)
			require.NotEmpty(t, d.Reason)
		})
	}
}

func TestRolloutMonitor_Reset(t *testing.T) {
	m, clock := newMonitor(t)
	feed(m, clock.Now(), 100, 10, 0, domain.KindNone)
	m.Reset()
	require.Zero(t, m.Snapshot().Views)
	require.Equal(t, DecisionHold, m.Evaluate(50, testStart.Add(-time.Hour)).Action)
}

func TestLoadRolloutPolicy(t *testing.T) {
	dir := t.TempDir()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
stages:
  - percent: 5
    advance_min_conversion: 0.7
    advance_max_error_rate: 0.05
  - percent: 100
min_samples: 200
window: 2h
count_rate_limited: true
`), 0o600))

		p, err := LoadRolloutPolicy(path)
		require.NoError(t, err)
		require.Len(t, p.Stages, 2)
		require.Equal(t, 5, p.Stages[0].Percent)
		require.Equal(t, 200, p.MinSamples)
		require.Equal(t, 2*time.Hour, p.Window)
		require.True(t, p.CountRateLimited)
		require.InDelta(t, 0.5, p.RollbackBelowConversion, 1e-9)
		require.Equal(t, 30*time.Minute, p.MinStageDuration)
	})

	t.Run("descending stages rejected", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("stages:\n  - percent: 50\n  - percent: 10\n"), 0o600))
		_, err := LoadRolloutPolicy(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRolloutPolicy(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
	})

	require.NoError(t, DefaultRolloutPolicy().Validate())
}
