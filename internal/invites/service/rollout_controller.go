package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/internal/invites/store"
	"github.com/aussiebroadwan/propinvite/pkg/idx"
)

type RolloutMode string

const (
	// RolloutAdvisory logs decisions for an operator to act on.
	RolloutAdvisory RolloutMode = "advisory"
	// RolloutAuto applies decisions to the flag.
	RolloutAuto RolloutMode = "auto"
)

const monitorActor = "rollout-monitor"

// RolloutController owns every write to a rollout flag: scheduled
// evaluations from the monitor and manual overrides.
type RolloutController struct {
	Store    store.Store
	Monitor  *RolloutMonitor
	Flags    *FlagCache
	Feature  string
	Mode     RolloutMode
	Schedule string
	Retry    RetryPolicy
	Logger   *slog.Logger
	Now      func() time.Time

	// OnChange, when set, observes every committed change.
	OnChange func(domain.RolloutChange)

	cron *cron.Cron

	mu   sync.Mutex
	last *Decision
}

// Start schedules evaluations on the cron spec in Schedule
// (e.g. "@every 1m").
func (c *RolloutController) Start() error {
	c.cron = cron.New()
	if _, err := c.cron.AddFunc(c.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := c.Tick(ctx); err != nil {
			c.Logger.Error("rollout evaluation failed", slog.String("feature", c.Feature), slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("rollout schedule %q: %w", c.Schedule, err)
	}
	c.cron.Start()
	c.Logger.Info("rollout controller started",
		slog.String("feature", c.Feature),
		slog.String("mode", string(c.Mode)),
		slog.String("schedule", c.Schedule),
	)
	return nil
}

// Stop waits for a running evaluation to finish.
func (c *RolloutController) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	c.Logger.Info("rollout controller stopped")
}

// Evaluate computes the current decision without applying it.
func (c *RolloutController) Evaluate(ctx context.Context) (Decision, error) {
	flag, err := c.currentFlag(ctx)
	if err != nil {
		return Decision{}, err
	}
	d := c.Monitor.Evaluate(flag.Percent, flag.UpdatedAt)

	c.mu.Lock()
	c.last = &d
	c.mu.Unlock()
	return d, nil
}

// LastDecision returns the most recent evaluation, if any.
func (c *RolloutController) LastDecision() (Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Decision{}, false
	}
	return *c.last, true
}

// Tick evaluates and, in auto mode, applies the decision.
func (c *RolloutController) Tick(ctx context.Context) (Decision, error) {
	d, err := c.Evaluate(ctx)
	if err != nil {
		return Decision{}, err
	}

	if d.Action == DecisionHold {
		c.Logger.Debug("rollout hold", slog.String("feature", c.Feature), slog.String("reason", d.Reason))
		return d, nil
	}

	if c.Mode != RolloutAuto {
		c.Logger.Warn("rollout recommendation",
			slog.String("event", "rollout_recommendation"),
			slog.String("feature", c.Feature),
			slog.String("action", string(d.Action)),
			slog.Int("from", d.FromPercent),
			slog.Int("to", d.ToPercent),
			slog.String("reason", d.Reason),
		)
		return d, nil
	}

	if _, err := c.Apply(ctx, d); err != nil {
		return d, err
	}
	return d, nil
}

// Apply moves the flag from d.FromPercent to d.ToPercent if it still holds
// FromPercent. A flag that already moved is left alone, so repeated
// triggers of the same rollback change nothing. Reports whether it wrote.
func (c *RolloutController) Apply(ctx context.Context, d Decision) (bool, error) {
	if d.Action == DecisionHold || d.FromPercent == d.ToPercent {
		return false, nil
	}
	now := c.now()

	change := domain.RolloutChange{
		ID:          idx.NewAt(now).String(),
		FeatureName: c.Feature,
		FromPercent: d.FromPercent,
		ToPercent:   d.ToPercent,
		Reason:      string(d.Action) + ": " + d.Reason,
		Actor:       monitorActor,
		Automatic:   true,
		CreatedAt:   now,
	}

	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		return c.Store.WithTx(ctx, func(tx store.Tx) error {
			err := tx.RolloutFlags().CompareAndSetPercent(ctx, c.Feature, d.FromPercent, d.ToPercent, monitorActor, now)
			if err != nil {
				return err
			}
			return tx.RolloutAudit().RecordChange(ctx, change)
		})
	})
	if errors.Is(err, store.ErrConflict) {
		c.Logger.Info("rollout change skipped, flag already moved",
			slog.String("feature", c.Feature),
			slog.Int("expected", d.FromPercent),
		)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	c.changed(change)
	return true, nil
}

// SetManual overrides the flag. Manual changes may move in either direction.
func (c *RolloutController) SetManual(ctx context.Context, feature string, percent int, actor, reason string) (domain.RolloutChange, error) {
	if feature == "" || percent < 0 || percent > 100 || actor == "" {
		return domain.RolloutChange{}, ErrInvalidRolloutChange
	}
	now := c.now()

	var change domain.RolloutChange
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		return c.setManual(ctx, feature, percent, actor, reason, now, &change)
	})
	if err != nil {
		return domain.RolloutChange{}, err
	}

	c.changed(change)
	return change, nil
}

func (c *RolloutController) setManual(ctx context.Context, feature string, percent int, actor, reason string, now time.Time, out *domain.RolloutChange) error {
	return c.Store.WithTx(ctx, func(tx store.Tx) error {
		from := 0
		cur, err := tx.RolloutFlags().GetFlag(ctx, feature)
		switch {
		case err == nil:
			from = cur.Percent
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		if err := tx.RolloutFlags().SetFlag(ctx, domain.RolloutFlag{
			FeatureName: feature,
			Percent:     percent,
			UpdatedAt:   now,
			UpdatedBy:   actor,
		}); err != nil {
			return err
		}

		change := domain.RolloutChange{
			ID:          idx.NewAt(now).String(),
			FeatureName: feature,
			FromPercent: from,
			ToPercent:   percent,
			Reason:      "manual: " + reason,
			Actor:       actor,
			CreatedAt:   now,
		}
		if err := tx.RolloutAudit().RecordChange(ctx, change); err != nil {
			return err
		}
		*out = change
		return nil
	})
}

// Flag returns the stored flag (0 when never set).
func (c *RolloutController) Flag(ctx context.Context, feature string) (domain.RolloutFlag, error) {
	var flag domain.RolloutFlag
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		flag, err = c.Store.RolloutFlags().GetFlag(ctx, feature)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.RolloutFlag{FeatureName: feature}, nil
	}
	return flag, err
}

// History returns recent changes for feature, newest first.
func (c *RolloutController) History(ctx context.Context, feature string, limit int) ([]domain.RolloutChange, error) {
	var changes []domain.RolloutChange
	err := c.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		changes, err = c.Store.RolloutAudit().ListChanges(ctx, feature, limit)
		return err
	})
	return changes, err
}

func (c *RolloutController) currentFlag(ctx context.Context) (domain.RolloutFlag, error) {
	return c.Flag(ctx, c.Feature)
}

// changed logs the operational event and starts a fresh window.
func (c *RolloutController) changed(change domain.RolloutChange) {
	level := slog.LevelInfo
	if change.ToPercent < change.FromPercent {
		level = slog.LevelWarn
	}
	c.Logger.Log(context.Background(), level, "rollout changed",
		slog.String("event", "rollout_change"),
		slog.String("feature", change.FeatureName),
		slog.Int("from", change.FromPercent),
		slog.Int("to", change.ToPercent),
		slog.Bool("automatic", change.Automatic),
		slog.String("actor", change.Actor),
		slog.String("reason", change.Reason),
	)

	if change.FeatureName == c.Feature && c.Monitor != nil {
		c.Monitor.Reset()
	}
	if c.Flags != nil {
		c.Flags.Invalidate(change.FeatureName)
	}
	if c.OnChange != nil {
		c.OnChange(change)
	}
}

func (c *RolloutController) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
