package model

import (
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultWorkDurationMinutes       = 25
	DefaultShortBreakDurationMinutes = 5
	DefaultLongBreakDurationMinutes  = 15
	DefaultPomodorosUntilLongBreak   = 4
	DefaultAutoContinue              = true

	MinDurationMinutes = 1
	MaxDurationMinutes = 120
	MinCadence         = 1
	MaxCadence         = 20
)

// Settings are the user facing timer preferences.
type Settings struct {
	WorkDurationMinutes       int  `json:"workDurationMinutes"`
	ShortBreakDurationMinutes int  `json:"shortBreakDurationMinutes"`
	LongBreakDurationMinutes  int  `json:"longBreakDurationMinutes"`
	PomodorosUntilLongBreak   int  `json:"pomodorosUntilLongBreak"`
	AutoContinue              bool `json:"autoContinue"`
}

func DefaultSettings() Settings {
	return Settings{
		WorkDurationMinutes:       DefaultWorkDurationMinutes,
		ShortBreakDurationMinutes: DefaultShortBreakDurationMinutes,
		LongBreakDurationMinutes:  DefaultLongBreakDurationMinutes,
		PomodorosUntilLongBreak:   DefaultPomodorosUntilLongBreak,
		AutoContinue:              DefaultAutoContinue,
	}
}

func (s Settings) WorkDurationSeconds() int {
	return s.WorkDurationMinutes * 60
}

func (s Settings) ShortBreakDurationSeconds() int {
	return s.ShortBreakDurationMinutes * 60
}

func (s Settings) LongBreakDurationSeconds() int {
	return s.LongBreakDurationMinutes * 60
}

// IsLongBreakAfter reports whether the break following the completed-th
// pomodoro is a long one.
func (s Settings) IsLongBreakAfter(completed int) bool {
	return completed%s.PomodorosUntilLongBreak == 0
}

// BreakAfter returns the break type and length that follows the
// completed-th pomodoro.
func (s Settings) BreakAfter(completed int) (BreakType, int) {
	if s.IsLongBreakAfter(completed) {
		return BreakLong, s.LongBreakDurationSeconds()
	}
	return BreakShort, s.ShortBreakDurationSeconds()
}

// ValidationError lists every out-of-range field keyed by its JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

// Validate checks every field against its allowed range.
func (s Settings) Validate() error {
	fields := map[string]string{}
	checkRange(fields, "workDurationMinutes", s.WorkDurationMinutes, MinDurationMinutes, MaxDurationMinutes)
	checkRange(fields, "shortBreakDurationMinutes", s.ShortBreakDurationMinutes, MinDurationMinutes, MaxDurationMinutes)
	checkRange(fields, "longBreakDurationMinutes", s.LongBreakDurationMinutes, MinDurationMinutes, MaxDurationMinutes)
	checkRange(fields, "pomodorosUntilLongBreak", s.PomodorosUntilLongBreak, MinCadence, MaxCadence)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func checkRange(fields map[string]string, name string, value, min, max int) {
	if value < min || value > max {
		fields[name] = fmt.Sprintf("must be between %d and %d", min, max)
	}
}

// InDurationRange reports whether minutes is an acceptable phase length.
func InDurationRange(minutes int) bool {
	return minutes >= MinDurationMinutes && minutes <= MaxDurationMinutes
}

// InCadenceRange reports whether n is an acceptable long break cadence.
func InCadenceRange(n int) bool {
	return n >= MinCadence && n <= MaxCadence
}
