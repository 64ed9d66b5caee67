package repository

import (
	"context"
	"database/sql"
	"fmt"

	"converge/internal/model"
)

// SnapshotRepository keeps the single latest timer snapshot row.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Sync implements timer.SyncSink by overwriting the stored snapshot.
func (r *SnapshotRepository) Sync(ctx context.Context, snapshot model.Snapshot) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO timer_snapshots (
			id, phase, remaining_seconds, is_running, completed_pomodoros, last_updated
		) VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			remaining_seconds = excluded.remaining_seconds,
			is_running = excluded.is_running,
			completed_pomodoros = excluded.completed_pomodoros,
			last_updated = excluded.last_updated`,
		snapshot.Phase,
		snapshot.RemainingSeconds,
		snapshot.IsRunning,
		snapshot.CompletedPomodoros,
		formatTime(snapshot.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Get returns ErrNotFound until the first Sync.
func (r *SnapshotRepository) Get(ctx context.Context) (*model.Snapshot, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT phase, remaining_seconds, is_running, completed_pomodoros, last_updated
		 FROM timer_snapshots WHERE id = 1`,
	)

	snapshot := model.Snapshot{}
	var lastUpdated string
	err := row.Scan(
		&snapshot.Phase,
		&snapshot.RemainingSeconds,
		&snapshot.IsRunning,
		&snapshot.CompletedPomodoros,
		&lastUpdated,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	parsedLastUpdated, err := parseTime(lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot last_updated: %w", err)
	}
	snapshot.LastUpdated = parsedLastUpdated
	return &snapshot, nil
}
