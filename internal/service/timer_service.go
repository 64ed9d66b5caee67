package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "converge/internal/errors"
	"converge/internal/model"
	"converge/internal/repository"
	"converge/internal/settings"
	"converge/internal/stats"
	"converge/internal/timer"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
	DefaultChartDays    = 7
	MaxChartDays        = 366

	dayLayout = "2006-01-02"
)

// SnapshotReader returns the last synced snapshot.
type SnapshotReader interface {
	Get(ctx context.Context) (*model.Snapshot, error)
}

// TimerService composes the engine, the session log and the settings store
// into the views served over HTTP.
type TimerService struct {
	engine    *timer.Engine
	stats     *stats.Store
	settings  *settings.Store
	snapshots SnapshotReader
	now       func() time.Time
	logger    *slog.Logger
}

type StateView struct {
	Phase                    model.Phase     `json:"phase"`
	RunState                 model.RunState  `json:"runState"`
	IsRunning                bool            `json:"isRunning"`
	AwaitingManualStart      bool            `json:"awaitingManualStart"`
	RemainingSeconds         int             `json:"remainingSeconds"`
	CurrentPhaseTotalSeconds int             `json:"currentPhaseTotalSeconds"`
	CompletedPomodoros       int             `json:"completedPomodoros"`
	FormattedTime            string          `json:"formattedTime"`
	Progress                 float64         `json:"progress"`
	NextBreakType            model.BreakType `json:"nextBreakType"`
	NextBreakLabel           string          `json:"nextBreakLabel"`
	NextBreakDurationSeconds int             `json:"nextBreakDurationSeconds"`
	NextBreakFormattedTime   string          `json:"nextBreakFormattedTime"`
	Settings                 model.Settings  `json:"settings"`
	ServerTime               time.Time       `json:"serverTime"`
}

// SnapshotView is the stored snapshot plus its extrapolated remaining time.
type SnapshotView struct {
	model.Snapshot
	RemainingNow int `json:"remainingNow"`
}

// NewTimerService wires settings changes into the engine.
func NewTimerService(
	engine *timer.Engine,
	statsStore *stats.Store,
	settingsStore *settings.Store,
	snapshots SnapshotReader,
	now func() time.Time,
	logger *slog.Logger,
) *TimerService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	settingsStore.OnChange(func(model.Settings) {
		engine.SettingsChanged()
	})
	return &TimerService{
		engine:    engine,
		stats:     statsStore,
		settings:  settingsStore,
		snapshots: snapshots,
		now:       now,
		logger:    logger,
	}
}

func (s *TimerService) State() StateView {
	state := s.engine.State()
	breakType := s.engine.NextBreakType()
	return StateView{
		Phase:                    state.Phase,
		RunState:                 state.RunState,
		IsRunning:                state.IsRunning(),
		AwaitingManualStart:      state.AwaitingManualAdvance(),
		RemainingSeconds:         state.RemainingSeconds,
		CurrentPhaseTotalSeconds: state.CurrentPhaseTotalSeconds,
		CompletedPomodoros:       state.CompletedPomodoros,
		FormattedTime:            state.FormattedTime(),
		Progress:                 state.Progress(),
		NextBreakType:            breakType,
		NextBreakLabel:           breakType.Label(),
		NextBreakDurationSeconds: s.engine.NextBreakDurationSeconds(),
		NextBreakFormattedTime:   s.engine.NextBreakFormattedTime(),
		Settings:                 s.settings.Current(),
		ServerTime:               s.now().UTC(),
	}
}

func (s *TimerService) Start() StateView {
	s.engine.Start()
	return s.State()
}

func (s *TimerService) Pause() StateView {
	s.engine.Pause()
	return s.State()
}

func (s *TimerService) Reset() StateView {
	s.engine.Reset()
	return s.State()
}

func (s *TimerService) StartNextPhase() StateView {
	s.engine.StartNextPhase()
	return s.State()
}

func (s *TimerService) Subscribe(buffer int) (<-chan timer.Event, func()) {
	return s.engine.Subscribe(buffer)
}

func (s *TimerService) Snapshot(ctx context.Context) (*SnapshotView, *apperrors.APIError) {
	snapshot, err := s.snapshots.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("snapshot_not_found", "no snapshot has been synced yet")
	}
	if err != nil {
		s.logger.Error("read snapshot", "error", err)
		return nil, apperrors.Internal("failed to read snapshot")
	}
	return &SnapshotView{
		Snapshot:     *snapshot,
		RemainingNow: snapshot.RemainingAt(s.now()),
	}, nil
}

func (s *TimerService) Settings() model.Settings {
	return s.settings.Current()
}

// UpdateSettings applies next. A failed file write keeps the new settings in
// memory and is only logged.
func (s *TimerService) UpdateSettings(next model.Settings) (model.Settings, *apperrors.APIError) {
	err := s.settings.Update(next)
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		return model.Settings{}, apperrors.InvalidSettings(validationErr.Fields)
	}
	if err != nil {
		s.logger.Warn("settings kept in memory only", "error", err)
	}
	return s.settings.Current(), nil
}

func (s *TimerService) ResetSettings() model.Settings {
	if err := s.settings.ResetToDefaults(); err != nil {
		s.logger.Warn("settings kept in memory only", "error", err)
	}
	return s.settings.Current()
}

// Summary counts sessions around date, or around now for the zero time.
func (s *TimerService) Summary(date time.Time) stats.Summary {
	if date.IsZero() {
		date = s.now()
	}
	return s.stats.Summary(date)
}

// ParseDay reads a YYYY-MM-DD date in the statistics calendar's location.
func (s *TimerService) ParseDay(raw string) (time.Time, *apperrors.APIError) {
	day, err := time.ParseInLocation(dayLayout, raw, s.stats.Calendar().Location)
	if err != nil {
		return time.Time{}, apperrors.BadRequest("invalid_date", "date must be formatted as YYYY-MM-DD")
	}
	return day, nil
}

func (s *TimerService) History(limit int) []model.PomodoroSession {
	return s.stats.RecentSessions(clamp(limit, DefaultHistoryLimit, MaxHistoryLimit))
}

func (s *TimerService) Chart(days int) []stats.DayCount {
	return s.stats.ChartSeries(clamp(days, DefaultChartDays, MaxChartDays))
}

func (s *TimerService) ClearSessions() {
	s.stats.ClearAll()
}

func clamp(value, fallback, max int) int {
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}
