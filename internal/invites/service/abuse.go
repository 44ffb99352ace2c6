package service

import (
	"sync"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
)

type AbuseAction string

const (
	ActionValidate AbuseAction = "validate"
	ActionAccept   AbuseAction = "accept"
)

// AbusePolicy caps attempts per key within a sliding window. Each violation
// blocks the key for BackoffBase doubled per consecutive violation, up to
// BackoffCeiling.
type AbusePolicy struct {
	Limit          int
	Window         time.Duration
	BackoffBase    time.Duration
	BackoffCeiling time.Duration
}

func DefaultAbusePolicy() AbusePolicy {
	return AbusePolicy{
		Limit:          10,
		Window:         time.Minute,
		BackoffBase:    30 * time.Second,
		BackoffCeiling: 15 * time.Minute,
	}
}

type abuseWindow struct {
	hits         []time.Time // ascending
	violations   int
	blockedUntil time.Time
}

// AbuseGuard is an in-process sliding-window limiter keyed by source and
// action. It never touches the store, so a rejection reveals nothing about
// any token.
type AbuseGuard struct {
	policy AbusePolicy
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*abuseWindow
}

// NewAbuseGuard returns a guard. now may be nil for the wall clock.
func NewAbuseGuard(policy AbusePolicy, now func() time.Time) *AbuseGuard {
	def := DefaultAbusePolicy()
	if policy.Limit <= 0 {
		policy.Limit = def.Limit
	}
	if policy.Window <= 0 {
		policy.Window = def.Window
	}
	if policy.BackoffBase <= 0 {
		policy.BackoffBase = def.BackoffBase
	}
	if policy.BackoffCeiling < policy.BackoffBase {
		policy.BackoffCeiling = max(def.BackoffCeiling, policy.BackoffBase)
	}
	if now == nil {
		now = time.Now
	}
	return &AbuseGuard{
		policy:  policy,
		now:     now,
		windows: make(map[string]*abuseWindow),
	}
}

// Check consults the guard for every source the caller is known by: its
// address and, when authenticated, its account.
func (g *AbuseGuard) Check(caller domain.Caller, action AbuseAction) error {
	keys := make([]string, 0, 2)
	if caller.RemoteIP != "" {
		keys = append(keys, "ip:"+caller.RemoteIP)
	}
	if caller.Authenticated && caller.ID != "" {
		keys = append(keys, "user:"+caller.ID)
	}
	if len(keys) == 0 {
		keys = append(keys, "anonymous")
	}
	return g.CheckAndRecord(action, keys...)
}

// CheckAndRecord records one attempt against every key, or returns a
// *RateLimitedError without recording anything when any key is over budget
// or still blocked. Attempts made while blocked do not extend the block.
func (g *AbuseGuard) CheckAndRecord(action AbuseAction, keys ...string) error {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	windows := make([]*abuseWindow, len(keys))
	for i, k := range keys {
		windows[i] = g.window(string(action) + "|" + k)
		g.prune(windows[i], now)
	}

	var wait time.Duration
	for _, w := range windows {
		if now.Before(w.blockedUntil) {
			wait = max(wait, w.blockedUntil.Sub(now))
		}
	}
	if wait > 0 {
		return &RateLimitedError{RetryAfter: wait}
	}

	for _, w := range windows {
		if len(w.hits) >= g.policy.Limit {
			wait = max(wait, g.violate(w, now))
		}
	}
	if wait > 0 {
		return &RateLimitedError{RetryAfter: wait}
	}

	for _, w := range windows {
		w.hits = append(w.hits, now)
	}
	return nil
}

func (g *AbuseGuard) window(key string) *abuseWindow {
	w, ok := g.windows[key]
	if !ok {
		w = &abuseWindow{}
		g.windows[key] = w
	}
	return w
}

// prune drops hits outside the window and forgets old violations once the
// key has been unblocked for a full ceiling period.
func (g *AbuseGuard) prune(w *abuseWindow, now time.Time) {
	cutoff := now.Add(-g.policy.Window)
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	w.hits = w.hits[i:]

	if w.violations > 0 && now.Sub(w.blockedUntil) >= g.policy.BackoffCeiling {
		w.violations = 0
	}
}

// violate blocks the key until both the backoff has passed and the oldest
// hit has left the window, so the first attempt after the block is allowed.
func (g *AbuseGuard) violate(w *abuseWindow, now time.Time) time.Duration {
	w.violations++

	backoff := g.policy.BackoffBase
	for i := 1; i < w.violations && backoff < g.policy.BackoffCeiling; i++ {
		backoff *= 2
	}
	backoff = min(backoff, g.policy.BackoffCeiling)

	until := now.Add(backoff)
	if len(w.hits) > 0 {
		if free := w.hits[0].Add(g.policy.Window); free.After(until) {
			until = free
		}
	}
	w.blockedUntil = until
	return until.Sub(now)
}

// Sweep drops keys with no recent activity. Returns the number removed.
func (g *AbuseGuard) Sweep() int {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for k, w := range g.windows {
		g.prune(w, now)
		if len(w.hits) == 0 && w.violations == 0 && !now.Before(w.blockedUntil) {
			delete(g.windows, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (g *AbuseGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.windows)
}
