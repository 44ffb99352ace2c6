package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
)

// Metrics holds the invite service's Prometheus collectors. It is also an
// analytics event sink, so the funnel counters see exactly what the rollout
// monitor sees.
type Metrics struct {
	registry *prometheus.Registry

	// Funnel
	EventsTotal   *prometheus.CounterVec
	EventDuration *prometheus.HistogramVec

	// HTTP
	ResponsesTotal *prometheus.CounterVec

	// Rollout
	RolloutPercent *prometheus.GaugeVec
	RolloutChanges *prometheus.CounterVec
	GateDecisions  *prometheus.CounterVec

	// Abuse guard
	AbuseKeys prometheus.Gauge
}

// New creates and registers metrics on a private registry together with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		EventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invites_events_total",
				Help: "Invite funnel events by name and error kind",
			},
			[]string{"event", "error_kind"},
		),

		EventDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invites_operation_duration_seconds",
				Help:    "Latency of validate and accept operations",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"event"},
		),

		ResponsesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invites_http_responses_total",
				Help: "HTTP responses by route and status code",
			},
			[]string{"route", "code"},
		),

		RolloutPercent: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "invites_rollout_percent",
				Help: "Current rollout percent per feature",
			},
			[]string{"feature"},
		),

		RolloutChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invites_rollout_changes_total",
				Help: "Rollout percent changes by direction",
			},
			[]string{"feature", "direction", "automatic"},
		),

		GateDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invites_gate_decisions_total",
				Help: "Requests routed by the rollout gate",
			},
			[]string{"feature", "path"},
		),

		AbuseKeys: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "invites_abuse_tracked_keys",
				Help: "Sources currently tracked by the abuse guard",
			},
		),
	}
}

// Record counts an analytics event. View events carry no latency.
func (m *Metrics) Record(e domain.Event) {
	kind := string(e.ErrorKind)
	if kind == "" {
		kind = "none"
	}
	m.EventsTotal.WithLabelValues(string(e.Name), kind).Inc()
	if e.Name != domain.EventInviteView {
		m.EventDuration.WithLabelValues(string(e.Name)).Observe(e.Latency.Seconds())
	}
}

// ObserveRolloutChange updates the percent gauge and change counter.
func (m *Metrics) ObserveRolloutChange(c domain.RolloutChange) {
	direction := "up"
	if c.ToPercent < c.FromPercent {
		direction = "down"
	}
	automatic := "false"
	if c.Automatic {
		automatic = "true"
	}
	m.RolloutChanges.WithLabelValues(c.FeatureName, direction, automatic).Inc()
	m.RolloutPercent.WithLabelValues(c.FeatureName).Set(float64(c.ToPercent))
}

// ObserveGate counts one routing decision.
func (m *Metrics) ObserveGate(feature string, newPath bool) {
	path := "legacy"
	if newPath {
		path = "new"
	}
	m.GateDecisions.WithLabelValues(feature, path).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument counts responses served by h under route.
func (m *Metrics) Instrument(route string, h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(
		m.ResponsesTotal.MustCurryWith(prometheus.Labels{"route": route}), h,
	)
}
