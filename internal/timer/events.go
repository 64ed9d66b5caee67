package timer

import (
	"time"

	"converge/internal/model"
)

// EventType defines the type of engine event.
type EventType string

const (
	EventStateChange   EventType = "state_change"
	EventTick          EventType = "tick"
	EventWorkComplete  EventType = "work_complete"
	EventBreakComplete EventType = "break_complete"
)

// Event is published to subscribers after every state-affecting operation.
type Event struct {
	Type     EventType        `json:"type"`
	State    model.TimerState `json:"state"`
	Progress float64          `json:"progress"`
	At       time.Time        `json:"at"`
}
