package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusguessr/scoreserver/internal/config"
	"github.com/campusguessr/scoreserver/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS game_instances (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(64) UNIQUE NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id BIGSERIAL PRIMARY KEY,
			game_instance_id BIGINT NOT NULL REFERENCES game_instances(id),
			player_name VARCHAR(255) NOT NULL,
			total_score INT NOT NULL,
			rounds_data JSONB,
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_instance_submitted ON scores(game_instance_id, submitted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_instance_score ON scores(game_instance_id, total_score DESC, submitted_at ASC)`,
		`INSERT INTO game_instances (name) VALUES ('public') ON CONFLICT (name) DO NOTHING`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// ResolveInstance returns the id of an active game instance by name.
// Unknown or inactive names yield domain.ErrInstanceNotFound.
func (r *Repository) ResolveInstance(ctx context.Context, name string) (int64, error) {
	query := `SELECT id FROM game_instances WHERE name = $1 AND is_active`
	var id int64
	err := r.pool.QueryRow(ctx, query, name).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrInstanceNotFound
		}
		return 0, fmt.Errorf("resolving game instance: %w", err)
	}
	return id, nil
}

// ListActiveInstances returns every active game instance
func (r *Repository) ListActiveInstances(ctx context.Context) ([]domain.GameInstance, error) {
	query := `SELECT id, name, is_active FROM game_instances WHERE is_active ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing game instances: %w", err)
	}
	defer rows.Close()

	var instances []domain.GameInstance
	for rows.Next() {
		var inst domain.GameInstance
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.IsActive); err != nil {
			return nil, fmt.Errorf("scanning game instance: %w", err)
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// InsertScore appends a single immutable score record. The submission
// timestamp is assigned by the database and returned to the caller.
func (r *Repository) InsertScore(ctx context.Context, instanceID int64, playerName string, totalScore int, rounds []domain.RoundResult) (time.Time, error) {
	var roundsJSON []byte
	var err error
	if rounds != nil {
		roundsJSON, err = json.Marshal(rounds)
		if err != nil {
			return time.Time{}, fmt.Errorf("marshaling rounds data: %w", err)
		}
	}

	query := `
		INSERT INTO scores (game_instance_id, player_name, total_score, rounds_data)
		VALUES ($1, $2, $3, $4)
		RETURNING submitted_at
	`
	var submittedAt time.Time
	err = r.pool.QueryRow(ctx, query, instanceID, playerName, totalScore, roundsJSON).Scan(&submittedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("inserting score: %w", err)
	}
	return submittedAt, nil
}

// TopScores returns up to limit entries for an instance, ranked by score
// descending with earlier submissions winning ties. A non-nil since
// restricts results to submitted_at >= since (inclusive).
func (r *Repository) TopScores(ctx context.Context, instanceID int64, since *time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	var rows pgx.Rows
	var err error
	if since != nil {
		query := `
			SELECT player_name, total_score, submitted_at
			FROM scores
			WHERE game_instance_id = $1 AND submitted_at >= $2
			ORDER BY total_score DESC, submitted_at ASC
			LIMIT $3
		`
		rows, err = r.pool.Query(ctx, query, instanceID, *since, limit)
	} else {
		query := `
			SELECT player_name, total_score, submitted_at
			FROM scores
			WHERE game_instance_id = $1
			ORDER BY total_score DESC, submitted_at ASC
			LIMIT $2
		`
		rows, err = r.pool.Query(ctx, query, instanceID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying top scores: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.Name, &entry.Score, &entry.Date); err != nil {
			return nil, fmt.Errorf("scanning leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ScoreCount returns the number of score records for an instance
func (r *Repository) ScoreCount(ctx context.Context, instanceID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM scores WHERE game_instance_id = $1`
	var count int64
	err := r.pool.QueryRow(ctx, query, instanceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting scores: %w", err)
	}
	return count, nil
}
