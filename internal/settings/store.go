package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"converge/internal/model"
)

type yamlSettings struct {
	WorkDurationMinutes       int   `yaml:"work_duration_minutes"`
	ShortBreakDurationMinutes int   `yaml:"short_break_duration_minutes"`
	LongBreakDurationMinutes  int   `yaml:"long_break_duration_minutes"`
	PomodorosUntilLongBreak   int   `yaml:"pomodoros_until_long_break"`
	AutoContinue              *bool `yaml:"auto_continue"`
}

// Store holds the validated settings and their YAML file.
type Store struct {
	mu        sync.RWMutex
	path      string
	current   model.Settings
	listeners []func(model.Settings)
	logger    *slog.Logger
}

// Load reads settings from path. A missing file yields defaults. A malformed
// file also yields defaults, and the decode error is returned alongside a
// usable store.
func Load(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store := &Store{
		path:    path,
		current: model.DefaultSettings(),
		logger:  logger,
	}

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		logger.Warn("read settings; using defaults", "path", path, "error", err)
		return store, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		logger.Warn("parse settings; using defaults", "path", path, "error", err)
		return store, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&store.current, fileData)
	return store, nil
}

// Current implements timer.SettingsSource.
func (s *Store) Current() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OnChange registers fn to run after every successful update.
func (s *Store) OnChange(fn func(model.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update validates and persists next. Invalid settings are rejected with a
// *model.ValidationError and leave the current value untouched. A write
// failure keeps next in memory and is returned.
func (s *Store) Update(next model.Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	saveErr := s.save(next)
	if saveErr != nil {
		s.logger.Warn("save settings", "path", s.path, "error", saveErr)
	}
	for _, fn := range listeners {
		fn(next)
	}
	return saveErr
}

func (s *Store) ResetToDefaults() error {
	return s.Update(model.DefaultSettings())
}

func (s *Store) save(settings model.Settings) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	autoContinue := settings.AutoContinue
	fileData := yamlSettings{
		WorkDurationMinutes:       settings.WorkDurationMinutes,
		ShortBreakDurationMinutes: settings.ShortBreakDurationMinutes,
		LongBreakDurationMinutes:  settings.LongBreakDurationMinutes,
		PomodorosUntilLongBreak:   settings.PomodorosUntilLongBreak,
		AutoContinue:              &autoContinue,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}
	if err := os.WriteFile(s.path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

func applyYamlSettings(settings *model.Settings, fileData yamlSettings) {
	if model.InDurationRange(fileData.WorkDurationMinutes) {
		settings.WorkDurationMinutes = fileData.WorkDurationMinutes
	}
	if model.InDurationRange(fileData.ShortBreakDurationMinutes) {
		settings.ShortBreakDurationMinutes = fileData.ShortBreakDurationMinutes
	}
	if model.InDurationRange(fileData.LongBreakDurationMinutes) {
		settings.LongBreakDurationMinutes = fileData.LongBreakDurationMinutes
	}
	if model.InCadenceRange(fileData.PomodorosUntilLongBreak) {
		settings.PomodorosUntilLongBreak = fileData.PomodorosUntilLongBreak
	}
	if fileData.AutoContinue != nil {
		settings.AutoContinue = *fileData.AutoContinue
	}
}
