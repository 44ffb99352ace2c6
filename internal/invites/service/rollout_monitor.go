package service

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
)

type DecisionAction string

const (
	DecisionHold     DecisionAction = "hold"
	DecisionAdvance  DecisionAction = "advance"
	DecisionRollback DecisionAction = "rollback"
)

// FunnelMetrics summarises the trailing window.
type FunnelMetrics struct {
	Views           int `json:"views"`
	ValidateSuccess int `json:"validate_success"`
	ValidateFail    int `json:"validate_fail"`
	AcceptSuccess   int `json:"accept_success"`
	AcceptFail      int `json:"accept_fail"`
	// AcceptRepeat counts accepts by callers already linked. They are
	// successes for the caller but not conversions.
	AcceptRepeat int `json:"accept_repeat"`
	ErrorCount      int `json:"error_count"`
	AttemptCount    int `json:"attempt_count"`

	ViewToValidate   float64 `json:"view_to_validate"`
	ValidateToAccept float64 `json:"validate_to_accept"`
	Conversion       float64 `json:"conversion"`
	ErrorRate        float64 `json:"error_rate"`

	// KindRates is failures of each kind over attempts.
	KindRates map[domain.ErrorKind]float64 `json:"kind_rates"`

	LatencyP50 time.Duration `json:"latency_p50"`
	LatencyP95 time.Duration `json:"latency_p95"`
	LatencyP99 time.Duration `json:"latency_p99"`
}

type Decision struct {
	Action      DecisionAction `json:"action"`
	FromPercent int            `json:"from_percent"`
	ToPercent   int            `json:"to_percent"`
	Reason      string         `json:"reason"`
	Metrics     FunnelMetrics  `json:"metrics"`
}

// RolloutMonitor aggregates analytics events over a trailing window and
// turns them into hold/advance/rollback decisions. It is an EventSink.
type RolloutMonitor struct {
	policy RolloutPolicy
	now    func() time.Time

	mu     sync.Mutex
	events []domain.Event // ascending by At
}

func NewRolloutMonitor(policy RolloutPolicy, now func() time.Time) *RolloutMonitor {
	if now == nil {
		now = time.Now
	}
	return &RolloutMonitor{policy: policy, now: now}
}

func (m *RolloutMonitor) Policy() RolloutPolicy { return m.policy }

func (m *RolloutMonitor) Record(e domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Keep the slice ordered; events arrive nearly in order.
	i := len(m.events)
	for i > 0 && m.events[i-1].At.After(e.At) {
		i--
	}
	m.events = slices.Insert(m.events, i, e)
}

// Prune drops events older than the window. Returns how many were dropped.
func (m *RolloutMonitor) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked(m.now())
}

func (m *RolloutMonitor) pruneLocked(now time.Time) int {
	cutoff := now.Add(-m.policy.Window)
	i := 0
	for i < len(m.events) && !m.events[i].At.After(cutoff) {
		i++
	}
	m.events = slices.Delete(m.events, 0, i)
	return i
}

// Reset discards the window, used after the percent changes so the next
// decision only sees traffic from the new stage.
func (m *RolloutMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// Snapshot computes funnel metrics over the current window.
func (m *RolloutMonitor) Snapshot() FunnelMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked(m.now())

	fm := FunnelMetrics{KindRates: make(map[domain.ErrorKind]float64)}
	kinds := make(map[domain.ErrorKind]int)
	var latencies []time.Duration

	for _, e := range m.events {
		switch e.Name {
		case domain.EventInviteView:
			fm.Views++
			continue
		case domain.EventInviteValidateSuccess:
			fm.ValidateSuccess++
		case domain.EventInviteValidateFail:
			fm.ValidateFail++
		case domain.EventInviteAcceptSuccess:
			if e.AlreadyLinked {
				fm.AcceptRepeat++
			} else {
				fm.AcceptSuccess++
			}
		case domain.EventInviteAcceptFail:
			fm.AcceptFail++
		}
		latencies = append(latencies, e.Latency)
		if e.ErrorKind != domain.KindNone {
			kinds[e.ErrorKind]++
			if e.ErrorKind != domain.KindRateLimited || m.policy.CountRateLimited {
				fm.ErrorCount++
			}
		}
	}

	fm.AttemptCount = fm.ValidateSuccess + fm.ValidateFail + fm.AcceptSuccess + fm.AcceptRepeat + fm.AcceptFail
	fm.ViewToValidate = rate(fm.ValidateSuccess, fm.Views)
	fm.ValidateToAccept = rate(fm.AcceptSuccess, fm.ValidateSuccess)
	fm.Conversion = rate(fm.AcceptSuccess, fm.Views)
	fm.ErrorRate = rate(fm.ErrorCount, fm.AttemptCount)
	for k, n := range kinds {
		fm.KindRates[k] = rate(n, fm.AttemptCount)
	}

	slices.Sort(latencies)
	fm.LatencyP50 = percentile(latencies, 50)
	fm.LatencyP95 = percentile(latencies, 95)
	fm.LatencyP99 = percentile(latencies, 99)
	return fm
}

// Evaluate decides what to do with a flag currently at percent, held there
// since stageSince. Rollback takes precedence over advancing, and nothing
// advances automatically from zero.
func (m *RolloutMonitor) Evaluate(percent int, stageSince time.Time) Decision {
	fm := m.Snapshot()
	p := m.policy
	d := Decision{Action: DecisionHold, FromPercent: percent, ToPercent: percent, Metrics: fm}

	if fm.Views < p.MinSamples {
		d.Reason = fmt.Sprintf("insufficient samples: %d of %d views", fm.Views, p.MinSamples)
		return d
	}

	if percent > p.RollbackTo {
		switch {
		case fm.Conversion < p.RollbackBelowConversion:
			d.Action, d.ToPercent = DecisionRollback, p.RollbackTo
			d.Reason = fmt.Sprintf("conversion %.3f below %.3f", fm.Conversion, p.RollbackBelowConversion)
			return d
		case fm.ErrorRate > p.RollbackAboveErrorRate:
			d.Action, d.ToPercent = DecisionRollback, p.RollbackTo
			d.Reason = fmt.Sprintf("error rate %.3f above %.3f", fm.ErrorRate, p.RollbackAboveErrorRate)
			return d
		}
	}

	if percent <= 0 {
		d.Reason = "rollout not started; the first stage is set manually"
		return d
	}

	next, ok := p.nextStage(percent)
	if !ok {
		d.Reason = "fully rolled out"
		return d
	}

	if held := m.now().Sub(stageSince); held < p.MinStageDuration {
		d.Reason = fmt.Sprintf("stage held %s of %s", held.Round(time.Second), p.MinStageDuration)
		return d
	}

	stage := p.stageFor(percent)
	if fm.Conversion >= stage.AdvanceMinConversion && fm.ErrorRate < stage.AdvanceMaxErrorRate {
		d.Action, d.ToPercent = DecisionAdvance, next.Percent
		d.Reason = fmt.Sprintf("conversion %.3f and error rate %.3f clear stage %d", fm.Conversion, fm.ErrorRate, stage.Percent)
		return d
	}

	d.Reason = fmt.Sprintf("conversion %.3f / error rate %.3f do not clear stage %d", fm.Conversion, fm.ErrorRate, stage.Percent)
	return d
}

func rate(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// percentile uses nearest rank on sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	return sorted[max(rank-1, 0)]
}
