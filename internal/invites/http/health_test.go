package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/propinvite/internal/invites/metrics"
	"github.com/aussiebroadwan/propinvite/pkg/invitesdk"
)

func TestLivez(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/livez", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[invitesdk.HealthResponse](t, rec)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "test", res.Version)
	assert.NotEmpty(t, res.Uptime)
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[invitesdk.HealthResponse](t, rec)
	assert.Equal(t, "ok", res.Checks["database"])

	require.NoError(t, s.store.Close())

	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	res = decode[invitesdk.HealthResponse](t, rec)
	assert.Equal(t, "degraded", res.Status)
	assert.True(t, strings.HasPrefix(res.Checks["database"], "error"))
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	s := newTestServer(t, withMetrics(m))

	rec := s.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `invites_http_responses_total{code="200",route="GET /livez"} 1`)
}

func TestMetricsEndpoint_AbsentWithoutMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
