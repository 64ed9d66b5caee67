package repository

import (
	"context"
	"database/sql"
	"fmt"

	"converge/internal/model"
)

// SessionRepository persists the completed-session log.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// LoadSessions returns every stored session in completion order.
func (r *SessionRepository) LoadSessions(ctx context.Context) ([]model.PomodoroSession, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, completed_at, duration_seconds
		 FROM pomodoro_sessions
		 ORDER BY completed_at ASC, rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.PomodoroSession, 0)
	for rows.Next() {
		session, scanErr := scanPomodoroSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepository) AppendSession(ctx context.Context, session model.PomodoroSession) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO pomodoro_sessions (id, completed_at, duration_seconds)
		 VALUES (?, ?, ?)`,
		session.ID,
		formatTime(session.CompletedAt),
		session.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) ClearSessions(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pomodoro_sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, id string) (*model.PomodoroSession, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, completed_at, duration_seconds
		 FROM pomodoro_sessions
		 WHERE id = ?`,
		id,
	)
	return scanPomodoroSession(row)
}

func scanPomodoroSession(s scanner) (*model.PomodoroSession, error) {
	session := model.PomodoroSession{}
	var completedAt string
	err := s.Scan(&session.ID, &completedAt, &session.DurationSeconds)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	parsedCompletedAt, err := parseTime(completedAt)
	if err != nil {
		return nil, fmt.Errorf("parse session completed_at: %w", err)
	}
	session.CompletedAt = parsedCompletedAt
	return &session, nil
}
