package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/store"
)

// HousekeepingService periodically marks lapsed invites expired and trims
// in-memory state: idle abuse windows and monitor events past the window.
type HousekeepingService struct {
	Store    store.Store
	Guard    *AbuseGuard
	Monitor  *RolloutMonitor
	Logger   *slog.Logger
	Interval time.Duration
	Retry    RetryPolicy
	Now      func() time.Time

	// AfterSweep, when set, receives the number of keys the guard still
	// tracks once a pass completes.
	AfterSweep func(trackedKeys int)

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 5 minutes.
func NewHousekeepingService(s store.Store, guard *AbuseGuard, monitor *RolloutMonitor, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &HousekeepingService{
		Store:    s,
		Guard:    guard,
		Monitor:  monitor,
		Logger:   logger,
		Interval: interval,
		Retry:    DefaultRetryPolicy(),
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	// Stop also abandons a sweep stuck on the store.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one pass. Each step is independent; a failure in one does not
// stop the others.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var expired int64
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		expired, err = s.Store.Invites().ExpireInvites(ctx, s.Now())
		return err
	})
	if err != nil {
		s.Logger.Error("failed to expire invites", "error", err)
	}

	var guardKeys, events, tracked int
	if s.Guard != nil {
		guardKeys = s.Guard.Sweep()
		tracked = s.Guard.Len()
	}
	if s.Monitor != nil {
		events = s.Monitor.Prune()
	}

	s.Logger.Debug("housekeeping sweep completed",
		"invites_expired", expired,
		"abuse_keys_dropped", guardKeys,
		"monitor_events_dropped", events,
	)
	if s.AfterSweep != nil {
		s.AfterSweep(tracked)
	}
}
