// Package notify delivers phase completion notices.
package notify

import (
	"log/slog"
	"sync/atomic"
)

// LogNotifier implements timer.Notifier by writing a structured log line for
// each completed phase and counting deliveries.
type LogNotifier struct {
	logger *slog.Logger
	work   atomic.Int64
	breaks atomic.Int64
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) NotifyWorkComplete() {
	total := n.work.Add(1)
	n.logger.Info("work session complete", "title", "Pomodoro Complete!", "body", "Time for a break.", "total", total)
}

func (n *LogNotifier) NotifyBreakComplete() {
	total := n.breaks.Add(1)
	n.logger.Info("break complete", "title", "Break Over", "body", "Back to work.", "total", total)
}

// Counts reports how many work and break notices have been delivered.
func (n *LogNotifier) Counts() (work, breaks int64) {
	return n.work.Load(), n.breaks.Load()
}
