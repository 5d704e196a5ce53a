// Package jobstore persists PipelineRun bookkeeping rows to Postgres
// (SPEC_FULL §C.1): a run id, timestamps, per-stage counts, and a
// terminal status. Entirely optional — the pipeline always logs run
// progress via slog regardless of whether a Store is configured; this
// package is pure observability, not a query API, so it does not
// conflict with spec.md's "no online query API" Non-goal.
//
// Grounded on the teacher's (mumuon-tile-service) database.go: the same
// sql.Open("postgres", dsn)/PingContext/connection-pool setup and
// UpdateJobStatus/CompleteJob shape, repurposed from TileJob rows to
// PipelineRun rows.
package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/google/uuid"
)

// Status is a PipelineRun's terminal or in-flight state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Stats holds the per-stage counts tracked across one pipeline run
// (SPEC_FULL §C.1, generalizing generator/regions.cpp's
// TreeSize/MaxDepth/PrintTree debug helpers into persisted counters).
type Stats struct {
	RegionsCollected int
	CountriesBuilt   int
	TreesMerged      int
	RegionsEmitted   int
}

// Run is one pipeline invocation's bookkeeping record.
type Run struct {
	ID          string
	Status      Status
	Stats       Stats
	StartedAt   time.Time
	CompletedAt *time.Time
	ErrorMsg    string
}

// NewRun allocates a fresh Run id and marks it running.
func NewRun() *Run {
	return &Run{ID: uuid.NewString(), Status: StatusRunning, StartedAt: time.Now()}
}

// DSN is the connection string shape the teacher's config.go builds
// (host/port/user/password/dbname/sslmode), kept identical here.
type DSN struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Store wraps the Postgres connection used to persist PipelineRun rows.
type Store struct {
	conn *sql.DB
}

// Open connects to Postgres and verifies connectivity with a short
// timeout, matching NewDatabase's PingContext check.
func Open(ctx context.Context, dsn DSN) (*Store, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dsn.Host, dsn.Port, dsn.User, dsn.Password, dsn.DBName, dsn.SSLMode,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("jobstore: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobstore: ping: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("jobstore connected")
	return &Store{conn: conn}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.conn.Close() }

// EnsureSchema creates the pipeline_run table if it does not already
// exist, so a fresh Postgres instance can be pointed at without a
// separate migration step.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS pipeline_run (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			regions_collected INTEGER NOT NULL DEFAULT 0,
			countries_built INTEGER NOT NULL DEFAULT 0,
			trees_merged INTEGER NOT NULL DEFAULT 0,
			regions_emitted INTEGER NOT NULL DEFAULT 0,
			error_message TEXT,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		)`
	if _, err := s.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("jobstore: ensure schema: %w", err)
	}
	return nil
}

// InsertRun records a new running PipelineRun row.
func (s *Store) InsertRun(ctx context.Context, run *Run) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO pipeline_run (id, status, started_at) VALUES ($1, $2, $3)`,
		run.ID, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("jobstore: insert run: %w", err)
	}
	return nil
}

// UpdateStats overwrites a run's stage counters.
func (s *Store) UpdateStats(ctx context.Context, runID string, stats Stats) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE pipeline_run SET regions_collected = $1, countries_built = $2, trees_merged = $3, regions_emitted = $4 WHERE id = $5`,
		stats.RegionsCollected, stats.CountriesBuilt, stats.TreesMerged, stats.RegionsEmitted, runID,
	)
	if err != nil {
		return fmt.Errorf("jobstore: update stats: %w", err)
	}
	return nil
}

// CompleteRun marks a run completed with its final stats.
func (s *Store) CompleteRun(ctx context.Context, runID string, stats Stats) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE pipeline_run SET status = $1, regions_collected = $2, countries_built = $3, trees_merged = $4, regions_emitted = $5, completed_at = NOW() WHERE id = $6`,
		string(StatusCompleted), stats.RegionsCollected, stats.CountriesBuilt, stats.TreesMerged, stats.RegionsEmitted, runID,
	)
	if err != nil {
		return fmt.Errorf("jobstore: complete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("jobstore: run not found: %s", runID)
	}
	return nil
}

// FailRun marks a run failed with the given error message.
func (s *Store) FailRun(ctx context.Context, runID, errMsg string) error {
	_, err := s.conn.ExecContext(ctx,
		`UPDATE pipeline_run SET status = $1, error_message = $2, completed_at = NOW() WHERE id = $3`,
		string(StatusFailed), errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("jobstore: fail run: %w", err)
	}
	return nil
}

// GetRun fetches a run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	run := &Run{ID: runID}
	var status string
	var errMsg sql.NullString
	var completedAt sql.NullTime
	err := s.conn.QueryRowContext(ctx,
		`SELECT status, regions_collected, countries_built, trees_merged, regions_emitted, error_message, started_at, completed_at FROM pipeline_run WHERE id = $1`,
		runID,
	).Scan(&status, &run.Stats.RegionsCollected, &run.Stats.CountriesBuilt, &run.Stats.TreesMerged, &run.Stats.RegionsEmitted, &errMsg, &run.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("jobstore: run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: get run: %w", err)
	}
	run.Status = Status(status)
	run.ErrorMsg = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}
