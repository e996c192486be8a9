package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/campusguessr/scoreserver/internal/config"
	"github.com/campusguessr/scoreserver/internal/domain"
	"github.com/campusguessr/scoreserver/internal/registry"
	"github.com/campusguessr/scoreserver/internal/window"
)

// Store is the data access the refresher needs
type Store interface {
	ListActiveInstances(ctx context.Context) ([]domain.GameInstance, error)
	TopScores(ctx context.Context, instanceID int64, since *time.Time, limit int) ([]domain.LeaderboardEntry, error)
	ScoreCount(ctx context.Context, instanceID int64) (int64, error)
}

// SnapshotCache stores computed leaderboards
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, instance string, tf domain.Timeframe, entries []domain.LeaderboardEntry) error
}

// Broadcaster pushes leaderboard updates to live clients
type Broadcaster interface {
	BroadcastLeaderboard(instance string, tf domain.Timeframe, entries []domain.LeaderboardEntry, totalScores int64)
}

// Refresher periodically re-warms the instance registry cache and pushes
// fresh daily leaderboards for every active instance, so subscribed
// clients see window rollovers without anyone submitting a score.
type Refresher struct {
	store    Store
	cache    SnapshotCache
	registry *registry.Registry
	hub      Broadcaster
	policy   window.Policy
	config   *config.RefreshConfig
	limit    int
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewRefresher creates a new refresher
func NewRefresher(
	store Store,
	cache SnapshotCache,
	reg *registry.Registry,
	hub Broadcaster,
	policy window.Policy,
	cfg *config.RefreshConfig,
	limit int,
	logger *slog.Logger,
) *Refresher {
	return &Refresher{
		store:    store,
		cache:    cache,
		registry: reg,
		hub:      hub,
		policy:   policy,
		config:   cfg,
		limit:    limit,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background refresh process
func (w *Refresher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("refresher started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh process
func (w *Refresher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("refresher stopped")
	return nil
}

// run is the main worker loop
func (w *Refresher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refreshAll(ctx)
		}
	}
}

// refreshAll refreshes caches and broadcasts for every active instance
func (w *Refresher) refreshAll(ctx context.Context) {
	startTime := time.Now()

	instances, err := w.store.ListActiveInstances(ctx)
	if err != nil {
		w.logger.Error("failed to list instances for refresh", "error", err)
		return
	}

	w.registry.Warm(ctx, instances)

	refreshed := 0
	errorCount := 0
	for _, inst := range instances {
		if err := w.refreshInstance(ctx, inst); err != nil {
			w.logger.Error("failed to refresh instance",
				"instance", inst.Name,
				"error", err,
			)
			errorCount++
		} else {
			refreshed++
		}
	}

	w.logger.Info("refresh cycle completed",
		"duration", time.Since(startTime),
		"refreshed", refreshed,
		"errors", errorCount,
	)
}

// refreshInstance recomputes the daily leaderboard for one instance,
// snapshots it, and pushes it to subscribers
func (w *Refresher) refreshInstance(ctx context.Context, inst domain.GameInstance) error {
	since := w.policy.DailyStart(time.Now())
	entries, err := w.store.TopScores(ctx, inst.ID, &since, w.limit)
	if err != nil {
		return err
	}

	if w.cache != nil {
		if err := w.cache.SetSnapshot(ctx, inst.Name, domain.TimeframeDaily, entries); err != nil {
			w.logger.Warn("failed to store snapshot", "instance", inst.Name, "error", err)
		}
	}

	if w.hub != nil {
		total, err := w.store.ScoreCount(ctx, inst.ID)
		if err != nil {
			w.logger.Warn("failed to count scores", "instance", inst.Name, "error", err)
			total = 0
		}
		w.hub.BroadcastLeaderboard(inst.Name, domain.TimeframeDaily, entries, total)
	}
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *Refresher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single refresh cycle (useful at startup)
func (w *Refresher) RunOnce(ctx context.Context) {
	w.refreshAll(ctx)
}
