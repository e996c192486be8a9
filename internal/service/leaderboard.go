package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/campusguessr/scoreserver/internal/config"
	"github.com/campusguessr/scoreserver/internal/domain"
	"github.com/campusguessr/scoreserver/internal/websocket"
	"github.com/campusguessr/scoreserver/internal/window"
)

// Repository is the score store used by the service
type Repository interface {
	InsertScore(ctx context.Context, instanceID int64, playerName string, totalScore int, rounds []domain.RoundResult) (time.Time, error)
	TopScores(ctx context.Context, instanceID int64, since *time.Time, limit int) ([]domain.LeaderboardEntry, error)
	ScoreCount(ctx context.Context, instanceID int64) (int64, error)
}

// Resolver maps game-instance names to ids
type Resolver interface {
	Resolve(ctx context.Context, name string) (int64, error)
}

// Snapshots serves precomputed leaderboards kept warm by the refresher
type Snapshots interface {
	GetSnapshot(ctx context.Context, instance string, tf domain.Timeframe) ([]domain.LeaderboardEntry, bool, error)
}

// LeaderboardService provides score ingestion and leaderboard queries
type LeaderboardService struct {
	repo      Repository
	registry  Resolver
	policy    window.Policy
	config    *config.LeaderboardConfig
	logger    *slog.Logger
	hub       *websocket.Hub
	snapshots Snapshots
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(
	repo Repository,
	registry Resolver,
	policy window.Policy,
	cfg *config.LeaderboardConfig,
	logger *slog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		repo:     repo,
		registry: registry,
		policy:   policy,
		config:   cfg,
		logger:   logger,
	}
}

// SetHub attaches a WebSocket hub for broadcasting leaderboard updates
// after accepted submissions
func (s *LeaderboardService) SetHub(hub *websocket.Hub) {
	s.hub = hub
}

// SetSnapshots attaches a snapshot cache used as a fast read path for
// daily leaderboard queries
func (s *LeaderboardService) SetSnapshots(snapshots Snapshots) {
	s.snapshots = snapshots
}

// SubmitScore validates and persists one game-session result. Each
// rejectable condition is checked in order and reported distinctly; a
// passing submission produces exactly one immutable record.
func (s *LeaderboardService) SubmitScore(ctx context.Context, sub domain.ScoreSubmission) error {
	if sub.Name == "" || sub.Score == nil {
		return domain.ErrMissingFields
	}

	score := *sub.Score
	if math.IsNaN(score) || math.IsInf(score, 0) || score != math.Trunc(score) {
		return domain.ErrInvalidScore
	}

	// Hard anti-cheat cap, reject rather than clamp
	if score < 0 || score > domain.MaxTotalScore {
		return domain.ErrScoreOutOfRange
	}

	// Keep links and contact info off the public board
	if strings.Contains(sub.Name, "http") || strings.Contains(sub.Name, "@") {
		return domain.ErrInvalidName
	}

	instance := sub.GameInstance
	if instance == "" {
		instance = domain.DefaultInstance
	}

	instanceID, err := s.registry.Resolve(ctx, instance)
	if err != nil {
		return err
	}

	submittedAt, err := s.repo.InsertScore(ctx, instanceID, sub.Name, int(score), sub.RoundsData)
	if err != nil {
		return fmt.Errorf("inserting score: %w", err)
	}

	s.logger.Info("score submitted",
		"instance", instance,
		"player", sub.Name,
		"score", int(score),
		"submitted_at", submittedAt,
	)

	s.broadcastUpdate(ctx, instance, instanceID)
	return nil
}

// broadcastUpdate pushes the fresh daily leaderboard to WebSocket
// subscribers. Failures are logged, never surfaced to the submitter.
func (s *LeaderboardService) broadcastUpdate(ctx context.Context, instance string, instanceID int64) {
	if s.hub == nil {
		return
	}

	since := s.policy.DailyStart(time.Now())
	entries, err := s.repo.TopScores(ctx, instanceID, &since, s.config.DefaultLimit)
	if err != nil {
		s.logger.Warn("failed to load leaderboard for broadcast", "instance", instance, "error", err)
		return
	}
	total, err := s.repo.ScoreCount(ctx, instanceID)
	if err != nil {
		s.logger.Warn("failed to count scores for broadcast", "instance", instance, "error", err)
		total = 0
	}
	s.hub.BroadcastLeaderboard(instance, domain.TimeframeDaily, entries, total)
}

// GetLeaderboard returns the top entries for an instance within the
// currently active window for the timeframe, ranked by score descending
// with earlier submissions winning ties.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, instance string, tf domain.Timeframe, limit int) ([]domain.LeaderboardEntry, error) {
	if instance == "" {
		instance = domain.DefaultInstance
	}
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}

	instanceID, err := s.registry.Resolve(ctx, instance)
	if err != nil {
		return nil, err
	}

	// The refresher snapshots the daily board at DefaultLimit entries, so
	// any request it can satisfy skips the database
	if tf == domain.TimeframeDaily && s.snapshots != nil && limit <= s.config.DefaultLimit {
		entries, ok, err := s.snapshots.GetSnapshot(ctx, instance, tf)
		if err != nil {
			s.logger.Warn("snapshot read failed", "instance", instance, "error", err)
		} else if ok {
			if entries == nil {
				entries = []domain.LeaderboardEntry{}
			}
			if len(entries) > limit {
				entries = entries[:limit]
			}
			return entries, nil
		}
	}

	var since *time.Time
	if start, ok := s.policy.Start(tf, time.Now()); ok {
		since = &start
	}

	entries, err := s.repo.TopScores(ctx, instanceID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return entries, nil
}
