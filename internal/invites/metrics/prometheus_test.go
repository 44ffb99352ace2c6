package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
)

func TestRecord(t *testing.T) {
	m := New()

	m.Record(domain.Event{Name: domain.EventInviteView})
	m.Record(domain.Event{Name: domain.EventInviteAcceptSuccess, Latency: 30 * time.Millisecond})
	m.Record(domain.Event{Name: domain.EventInviteAcceptFail, ErrorKind: domain.KindExpired, Latency: 5 * time.Millisecond})
	m.Record(domain.Event{Name: domain.EventInviteAcceptFail, ErrorKind: domain.KindExpired, Latency: 5 * time.Millisecond})

	require.InDelta(t, 1, testutil.ToFloat64(m.EventsTotal.WithLabelValues("invite_view", "none")), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.EventsTotal.WithLabelValues("invite_accept_fail", "expired")), 0)
	require.Equal(t, 2, testutil.CollectAndCount(m.EventDuration))
}

func TestObserveRolloutChange(t *testing.T) {
	m := New()

	m.ObserveRolloutChange(domain.RolloutChange{FeatureName: "f", FromPercent: 10, ToPercent: 25, Automatic: true})
	m.ObserveRolloutChange(domain.RolloutChange{FeatureName: "f", FromPercent: 25, ToPercent: 0, Automatic: true})

	require.InDelta(t, 0, testutil.ToFloat64(m.RolloutPercent.WithLabelValues("f")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.RolloutChanges.WithLabelValues("f", "down", "true")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.RolloutChanges.WithLabelValues("f", "up", "true")), 0)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveGate("f", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `invites_gate_decisions_total{feature="f",path="new"} 1`), body)
	require.Contains(t, body, "go_goroutines")
}

func TestInstrument(t *testing.T) {
	m := New()
	h := m.Instrument("POST /v1/invites/accept", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/invites/accept", nil))
	}

	require.InDelta(t, 3, testutil.ToFloat64(m.ResponsesTotal.WithLabelValues("POST /v1/invites/accept", "410")), 0)
}
