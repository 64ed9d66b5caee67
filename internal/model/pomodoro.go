package model

import (
	"fmt"
	"time"
)

type Phase string

const (
	PhaseIdle  Phase = "idle"
	PhaseWork  Phase = "work"
	PhaseBreak Phase = "break"
)

// RunState is orthogonal to Phase: it says whether the countdown of the
// current phase is ticking, paused, or holding at a phase boundary until
// the caller confirms.
type RunState string

const (
	RunStatePaused                RunState = "paused"
	RunStateRunning               RunState = "running"
	RunStateAwaitingManualAdvance RunState = "awaiting_manual_advance"
)

type BreakType string

const (
	BreakShort BreakType = "short_break"
	BreakLong  BreakType = "long_break"
)

// Label is the human readable break name.
func (b BreakType) Label() string {
	if b == BreakLong {
		return "Long Break"
	}
	return "Short Break"
}

// TimerState is the complete mutable state of a timer engine.
type TimerState struct {
	Phase                    Phase    `json:"phase"`
	RunState                 RunState `json:"runState"`
	RemainingSeconds         int      `json:"remainingSeconds"`
	CurrentPhaseTotalSeconds int      `json:"currentPhaseTotalSeconds"`
	CompletedPomodoros       int      `json:"completedPomodoros"`
}

func (s TimerState) IsRunning() bool {
	return s.RunState == RunStateRunning
}

func (s TimerState) AwaitingManualAdvance() bool {
	return s.RunState == RunStateAwaitingManualAdvance
}

// FormattedTime renders the remaining seconds as MM:SS.
func (s TimerState) FormattedTime() string {
	return FormatSeconds(s.RemainingSeconds)
}

// Progress is the elapsed fraction of the current phase, clamped to [0,1].
func (s TimerState) Progress() float64 {
	if s.CurrentPhaseTotalSeconds <= 0 {
		return 0
	}
	elapsed := s.CurrentPhaseTotalSeconds - s.RemainingSeconds
	progress := float64(elapsed) / float64(s.CurrentPhaseTotalSeconds)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// FormatSeconds renders a second count as zero padded MM:SS. Minutes are not
// wrapped into hours.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// PomodoroSession is one completed work phase. Sessions are never mutated.
type PomodoroSession struct {
	ID              string    `json:"id"`
	CompletedAt     time.Time `json:"completedAt"`
	DurationSeconds int       `json:"durationSeconds"`
}

// Snapshot is the state mirror written for companion displays.
type Snapshot struct {
	Phase              Phase     `json:"phase"`
	RemainingSeconds   int       `json:"remainingSeconds"`
	IsRunning          bool      `json:"isRunning"`
	CompletedPomodoros int       `json:"completedPomodoros"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// NewSnapshot captures state at the given instant.
func NewSnapshot(state TimerState, at time.Time) Snapshot {
	return Snapshot{
		Phase:              state.Phase,
		RemainingSeconds:   state.RemainingSeconds,
		IsRunning:          state.IsRunning(),
		CompletedPomodoros: state.CompletedPomodoros,
		LastUpdated:        at,
	}
}

// RemainingAt extrapolates the remaining seconds at now. A running snapshot
// loses the whole seconds elapsed since LastUpdated, clamped at zero; a
// stopped one reports its stored value.
func (s Snapshot) RemainingAt(now time.Time) int {
	if !s.IsRunning {
		if s.RemainingSeconds < 0 {
			return 0
		}
		return s.RemainingSeconds
	}

	elapsed := int(now.Sub(s.LastUpdated).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := s.RemainingSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
