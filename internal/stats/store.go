package stats

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"converge/internal/model"
)

// Persister is the durable copy of the session log.
type Persister interface {
	LoadSessions(ctx context.Context) ([]model.PomodoroSession, error)
	AppendSession(ctx context.Context, session model.PomodoroSession) error
	ClearSessions(ctx context.Context) error
}

type Options struct {
	Calendar       Calendar
	Now            func() time.Time
	NewID          func() string
	PersistTimeout time.Duration
	Logger         *slog.Logger
}

// DayCount is one bucket of a chart series.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// Summary holds the counts for the day, week and month of a date.
type Summary struct {
	Today     int `json:"today"`
	ThisWeek  int `json:"thisWeek"`
	ThisMonth int `json:"thisMonth"`
}

// Store is an append-only log of completed work sessions. The in-memory log
// is authoritative; persistence failures are logged and never surfaced.
//
// writeMu serializes each mutation together with its persistence call so the
// durable copy sees appends and clears in the same order as memory. mu guards
// the log for readers.
type Store struct {
	writeMu   sync.Mutex
	mu        sync.RWMutex
	sessions  []model.PomodoroSession
	persister Persister
	options   Options
}

// New loads the persisted log. A load failure starts an empty log.
func New(ctx context.Context, persister Persister, options Options) *Store {
	if options.Calendar.Location == nil {
		options.Calendar.Location = time.Local
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.NewID == nil {
		options.NewID = uuid.NewString
	}
	if options.PersistTimeout <= 0 {
		options.PersistTimeout = 5 * time.Second
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	store := &Store{
		persister: persister,
		options:   options,
	}
	if persister == nil {
		return store
	}

	loadCtx, cancel := context.WithTimeout(ctx, options.PersistTimeout)
	defer cancel()
	sessions, err := persister.LoadSessions(loadCtx)
	if err != nil {
		options.Logger.Warn("load session log; starting empty", "error", err)
		return store
	}
	store.sessions = sessions
	options.Logger.Debug("session log loaded", "sessions", len(sessions))
	return store
}

// RecordCompletedPomodoro appends a session completed now.
func (s *Store) RecordCompletedPomodoro(durationSeconds int) model.PomodoroSession {
	session := model.PomodoroSession{
		ID:              s.options.NewID(),
		CompletedAt:     s.options.Now(),
		DurationSeconds: durationSeconds,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.sessions = append(s.sessions, session)
	s.mu.Unlock()

	if s.persister != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.options.PersistTimeout)
		defer cancel()
		if err := s.persister.AppendSession(ctx, session); err != nil {
			s.options.Logger.Warn("persist session", "error", err, "session_id", session.ID)
		}
	}
	return session
}

// ClearAll empties the log and its persisted copy.
func (s *Store) ClearAll() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.sessions = nil
	s.mu.Unlock()

	if s.persister != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.options.PersistTimeout)
		defer cancel()
		if err := s.persister.ClearSessions(ctx); err != nil {
			s.options.Logger.Warn("clear persisted sessions", "error", err)
		}
	}
}

func (s *Store) Calendar() Calendar {
	return s.options.Calendar
}

// Sessions returns the log in append order.
func (s *Store) Sessions() []model.PomodoroSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.PomodoroSession(nil), s.sessions...)
}

func (s *Store) CountOnDay(date time.Time) int {
	return s.count(func(completedAt time.Time) bool {
		return s.options.Calendar.SameDay(completedAt, date)
	})
}

// CountInWeekOf counts sessions in [start of week, start of week + 7 days).
func (s *Store) CountInWeekOf(date time.Time) int {
	start := s.options.Calendar.StartOfWeek(date)
	end := start.AddDate(0, 0, 7)
	return s.count(func(completedAt time.Time) bool {
		return !completedAt.Before(start) && completedAt.Before(end)
	})
}

func (s *Store) CountInMonthOf(date time.Time) int {
	return s.count(func(completedAt time.Time) bool {
		return s.options.Calendar.SameMonth(completedAt, date)
	})
}

func (s *Store) Summary(date time.Time) Summary {
	return Summary{
		Today:     s.CountOnDay(date),
		ThisWeek:  s.CountInWeekOf(date),
		ThisMonth: s.CountInMonthOf(date),
	}
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(limit int) []model.PomodoroSession {
	if limit <= 0 {
		return []model.PomodoroSession{}
	}
	sessions := s.Sessions()
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CompletedAt.After(sessions[j].CompletedAt)
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions
}

// ChartSeries returns one bucket per calendar day for the last days days,
// ending today, oldest first.
func (s *Store) ChartSeries(days int) []DayCount {
	if days <= 0 {
		return []DayCount{}
	}

	today := s.options.Calendar.StartOfDay(s.options.Now())
	first := today.AddDate(0, 0, -(days - 1))
	series := make([]DayCount, days)
	for i := range series {
		series[i].Day = first.AddDate(0, 0, i)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		day := s.options.Calendar.StartOfDay(session.CompletedAt)
		if day.Before(first) || day.After(today) {
			continue
		}
		for i := range series {
			if series[i].Day.Equal(day) {
				series[i].Count++
				break
			}
		}
	}
	return series
}

func (s *Store) count(match func(completedAt time.Time) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, session := range s.sessions {
		if match(session.CompletedAt) {
			total++
		}
	}
	return total
}
