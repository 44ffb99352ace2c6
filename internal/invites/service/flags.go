package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/internal/invites/store"
)

// FlagAccessor supplies the current rollout percent for a feature.
type FlagAccessor interface {
	Percent(ctx context.Context, feature string) (int, error)
}

type cachedFlag struct {
	flag      domain.RolloutFlag
	fetchedAt time.Time
	known     bool
	gen       uint64
}

// FlagCache reads rollout flags from the store at most once per TTL per
// feature. When a refresh fails the last known value is served; a feature
// never seen resolves to 0 so failures fail closed to the legacy path.
//
// Refreshes run outside the cache lock, one per feature at a time, and are
// bounded by Retry. Readers waiting on a refresh give up with their own
// context and fall back to the last known value.
type FlagCache struct {
	Store  store.Store
	TTL    time.Duration
	Retry  RetryPolicy
	Logger *slog.Logger
	Now    func() time.Time

	mu      sync.Mutex
	entries map[string]*cachedFlag
	group   singleflight.Group
}

func NewFlagCache(s store.Store, ttl time.Duration, retry RetryPolicy, logger *slog.Logger) *FlagCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if retry.MaxAttempts <= 0 || retry.Timeout <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &FlagCache{
		Store:   s,
		TTL:     ttl,
		Retry:   retry,
		Logger:  logger,
		Now:     time.Now,
		entries: make(map[string]*cachedFlag),
	}
}

func (c *FlagCache) Percent(ctx context.Context, feature string) (int, error) {
	f, err := c.Flag(ctx, feature)
	return f.Percent, err
}

// Flag returns the cached flag, refreshing it when stale.
func (c *FlagCache) Flag(ctx context.Context, feature string) (domain.RolloutFlag, error) {
	c.mu.Lock()
	if e, ok := c.entries[feature]; ok && c.Now().Sub(e.fetchedAt) < c.TTL {
		flag := e.flag
		c.mu.Unlock()
		return flag, nil
	}
	c.mu.Unlock()

	// The shared refresh outlives any single caller; Retry bounds it.
	refreshCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(feature, func() (any, error) {
		return c.refresh(refreshCtx, feature)
	})

	select {
	case res := <-ch:
		flag, _ := res.Val.(domain.RolloutFlag)
		return flag, res.Err
	case <-ctx.Done():
		return c.lastKnown(feature, ctx.Err())
	}
}

func (c *FlagCache) refresh(ctx context.Context, feature string) (domain.RolloutFlag, error) {
	c.mu.Lock()
	gen := c.entry(feature).gen
	c.mu.Unlock()

	var flag domain.RolloutFlag
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		flag, err = c.Store.RolloutFlags().GetFlag(ctx, feature)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		flag, err = domain.RolloutFlag{FeatureName: feature}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(feature)
	if err == nil {
		e.flag, e.known = flag, true
		// An Invalidate during the read leaves the entry stale.
		if e.gen == gen {
			e.fetchedAt = c.Now()
		}
		return flag, nil
	}

	if c.Logger != nil {
		c.Logger.Warn("rollout flag refresh failed, serving last known value",
			slog.String("feature", feature),
			slog.Int("percent", e.flag.Percent),
			slog.Bool("known", e.known),
			slog.Any("error", err),
		)
	}
	// Back off until the next TTL rather than hammering a sick store.
	e.fetchedAt = c.Now()
	if !e.known {
		return e.flag, err
	}
	return e.flag, nil
}

func (c *FlagCache) lastKnown(feature string, err error) (domain.RolloutFlag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(feature)
	if !e.known {
		return e.flag, err
	}
	return e.flag, nil
}

// entry must be called with mu held.
func (c *FlagCache) entry(feature string) *cachedFlag {
	e, ok := c.entries[feature]
	if !ok {
		e = &cachedFlag{flag: domain.RolloutFlag{FeatureName: feature}}
		c.entries[feature] = e
	}
	return e
}

// Invalidate forces the next read of feature to hit the store.
func (c *FlagCache) Invalidate(feature string) {
	c.mu.Lock()
	if e, ok := c.entries[feature]; ok {
		e.fetchedAt = time.Time{}
		e.gen++
	}
	c.mu.Unlock()
	c.group.Forget(feature)
}
