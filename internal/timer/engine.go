package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"converge/internal/model"
)

// SettingsSource supplies validated settings. The engine reads it at every
// phase boundary, so changes apply from the next phase on.
type SettingsSource interface {
	Current() model.Settings
}

// Notifier receives phase completions. Calls are fire-and-forget.
type Notifier interface {
	NotifyWorkComplete()
	NotifyBreakComplete()
}

// Recorder stores completed work phases.
type Recorder interface {
	RecordCompletedPomodoro(durationSeconds int) model.PomodoroSession
}

// SyncSink mirrors snapshots to a companion display or store.
type SyncSink interface {
	Sync(ctx context.Context, snapshot model.Snapshot) error
}

// StaticSettings is a SettingsSource that never changes.
type StaticSettings model.Settings

func (s StaticSettings) Current() model.Settings {
	return model.Settings(s)
}

// Options contains collaborators and runtime knobs. Nil collaborators are
// replaced by no-ops.
type Options struct {
	TickInterval time.Duration
	SyncTimeout  time.Duration
	Scheduler    Scheduler
	Notifier     Notifier
	Recorder     Recorder
	Sink         SyncSink
	Now          func() time.Time
	Logger       *slog.Logger
}

// Engine drives one countdown through the idle, work and break phases.
//
// opMu serializes operations together with their side effects so sinks see
// snapshots in order. mu guards state and is never held while a collaborator
// runs, so collaborators may read the engine but must not call its
// mutating methods synchronously.
type Engine struct {
	opMu sync.Mutex
	mu   sync.RWMutex

	settings SettingsSource
	options  Options
	state    model.TimerState
	stopTick func()
	tickGen  uint64
	events   []chan Event
	closed   bool
}

type effects struct {
	workComplete  bool
	breakComplete bool
	record        int
	snapshots     []model.Snapshot
}

// New creates an idle engine loaded with the current work duration and
// performs the initial sync.
func New(settings SettingsSource, options Options) *Engine {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.SyncTimeout <= 0 {
		options.SyncTimeout = 2 * time.Second
	}
	if options.Scheduler == nil {
		options.Scheduler = TickerScheduler{}
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	work := settings.Current().WorkDurationSeconds()
	engine := &Engine{
		settings: settings,
		options:  options,
		state: model.TimerState{
			Phase:                    model.PhaseIdle,
			RunState:                 model.RunStatePaused,
			RemainingSeconds:         work,
			CurrentPhaseTotalSeconds: work,
		},
	}

	engine.opMu.Lock()
	defer engine.opMu.Unlock()
	engine.mu.Lock()
	var fx effects
	engine.publishLocked(&fx, EventStateChange)
	engine.mu.Unlock()
	engine.apply(fx)
	return engine
}

// Start begins or resumes the countdown. Starting from idle loads a work
// phase; starting while awaiting a manual advance behaves as StartNextPhase.
func (e *Engine) Start() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.closed || e.state.RunState == model.RunStateRunning {
		e.mu.Unlock()
		return
	}
	if e.state.Phase == model.PhaseIdle {
		e.loadPhaseLocked(model.PhaseWork, e.settings.Current().WorkDurationSeconds())
	}
	e.state.RunState = model.RunStateRunning
	e.startTickingLocked()

	var fx effects
	e.publishLocked(&fx, EventStateChange)
	e.mu.Unlock()
	e.apply(fx)
}

// Pause stops the countdown and keeps the remaining time.
func (e *Engine) Pause() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.state.RunState != model.RunStateRunning {
		e.mu.Unlock()
		return
	}
	e.stopTickingLocked()
	e.state.RunState = model.RunStatePaused

	var fx effects
	e.publishLocked(&fx, EventStateChange)
	e.mu.Unlock()
	e.apply(fx)
}

// Reset returns to idle and clears the cycle count. Recorded sessions are
// untouched.
func (e *Engine) Reset() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	e.stopTickingLocked()
	e.loadPhaseLocked(model.PhaseIdle, e.settings.Current().WorkDurationSeconds())
	e.state.RunState = model.RunStatePaused
	e.state.CompletedPomodoros = 0

	var fx effects
	e.publishLocked(&fx, EventStateChange)
	e.mu.Unlock()
	e.apply(fx)
}

// StartNextPhase resumes ticking after a phase boundary reached with auto
// continue off. It is a no-op in any other run state.
func (e *Engine) StartNextPhase() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.closed || e.state.RunState != model.RunStateAwaitingManualAdvance {
		e.mu.Unlock()
		return
	}
	e.state.RunState = model.RunStateRunning
	e.startTickingLocked()

	var fx effects
	e.publishLocked(&fx, EventStateChange)
	e.mu.Unlock()
	e.apply(fx)
}

// Tick advances the countdown by one step. The scheduler calls it once per
// interval while running; it does nothing otherwise.
func (e *Engine) Tick() {
	e.tick(0)
}

// AdvanceToNextPhase ends the current phase immediately, with the same
// effects as the phase running out.
func (e *Engine) AdvanceToNextPhase() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	var fx effects
	e.advanceLocked(&fx)
	e.mu.Unlock()
	e.apply(fx)
}

// SettingsChanged reloads the work duration while idle. Any other phase
// keeps its current duration basis.
func (e *Engine) SettingsChanged() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.state.Phase != model.PhaseIdle || e.state.RunState == model.RunStateRunning {
		e.mu.Unlock()
		return
	}
	e.loadPhaseLocked(model.PhaseIdle, e.settings.Current().WorkDurationSeconds())

	var fx effects
	e.publishLocked(&fx, EventStateChange)
	e.mu.Unlock()
	e.apply(fx)
}

// Close stops ticking and closes every subscriber channel. The engine
// ignores Start afterwards.
func (e *Engine) Close() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopTickingLocked()
	var fx effects
	if e.state.RunState == model.RunStateRunning {
		e.state.RunState = model.RunStatePaused
		e.publishLocked(&fx, EventStateChange)
	}
	events := e.events
	e.events = nil
	e.mu.Unlock()
	e.apply(fx)

	for _, ch := range events {
		close(ch)
	}
}

// Subscribe registers an observer channel. Slow observers miss events
// rather than block the engine. The returned func unregisters it.
func (e *Engine) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	e.events = append(e.events, ch)
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, existing := range e.events {
				if existing == ch {
					e.events = append(e.events[:i], e.events[i+1:]...)
					close(ch)
					return
				}
			}
		})
	}
}

// State returns a copy of the current state.
func (e *Engine) State() model.TimerState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Snapshot returns the state mirror as of now.
func (e *Engine) Snapshot() model.Snapshot {
	state := e.State()
	return model.NewSnapshot(state, e.options.Now())
}

func (e *Engine) FormattedTime() string {
	return e.State().FormattedTime()
}

func (e *Engine) Progress() float64 {
	return e.State().Progress()
}

// NextBreakType is the break that would follow the next completed pomodoro.
// It uses the same cadence rule as a real completion, including while a
// break is already underway.
func (e *Engine) NextBreakType() model.BreakType {
	breakType, _ := e.settings.Current().BreakAfter(e.State().CompletedPomodoros + 1)
	return breakType
}

func (e *Engine) NextBreakDurationSeconds() int {
	_, seconds := e.settings.Current().BreakAfter(e.State().CompletedPomodoros + 1)
	return seconds
}

func (e *Engine) NextBreakFormattedTime() string {
	return model.FormatSeconds(e.NextBreakDurationSeconds())
}

func (e *Engine) tick(generation uint64) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.state.RunState != model.RunStateRunning {
		e.mu.Unlock()
		return
	}
	if generation != 0 && generation != e.tickGen {
		e.mu.Unlock()
		return
	}

	var fx effects
	if e.state.RemainingSeconds > 0 {
		e.state.RemainingSeconds--
		e.publishLocked(&fx, EventTick)
	}
	if e.state.RemainingSeconds <= 0 {
		e.state.RemainingSeconds = 0
		e.advanceLocked(&fx)
	}
	e.mu.Unlock()
	e.apply(fx)
}

func (e *Engine) advanceLocked(fx *effects) {
	settings := e.settings.Current()
	eventType := EventStateChange
	from := e.state.Phase

	switch from {
	case model.PhaseWork:
		fx.workComplete = true
		fx.record = e.state.CurrentPhaseTotalSeconds
		e.state.CompletedPomodoros++
		_, seconds := settings.BreakAfter(e.state.CompletedPomodoros)
		e.loadPhaseLocked(model.PhaseBreak, seconds)
		eventType = EventWorkComplete
	case model.PhaseBreak:
		fx.breakComplete = true
		e.loadPhaseLocked(model.PhaseWork, settings.WorkDurationSeconds())
		eventType = EventBreakComplete
	default:
		e.loadPhaseLocked(model.PhaseWork, settings.WorkDurationSeconds())
	}

	if from != model.PhaseIdle && !settings.AutoContinue && e.state.RunState == model.RunStateRunning {
		e.stopTickingLocked()
		e.state.RunState = model.RunStateAwaitingManualAdvance
	}

	e.publishLocked(fx, eventType)
}

func (e *Engine) loadPhaseLocked(phase model.Phase, seconds int) {
	e.state.Phase = phase
	e.state.RemainingSeconds = seconds
	e.state.CurrentPhaseTotalSeconds = seconds
}

func (e *Engine) startTickingLocked() {
	e.stopTickingLocked()
	generation := e.tickGen
	e.stopTick = e.options.Scheduler.Every(e.options.TickInterval, func() {
		e.tick(generation)
	})
}

func (e *Engine) stopTickingLocked() {
	if e.stopTick != nil {
		e.stopTick()
		e.stopTick = nil
	}
	e.tickGen++
}

func (e *Engine) publishLocked(fx *effects, eventType EventType) {
	now := e.options.Now()
	fx.snapshots = append(fx.snapshots, model.NewSnapshot(e.state, now))

	event := Event{
		Type:     eventType,
		State:    e.state,
		Progress: e.state.Progress(),
		At:       now,
	}
	for _, ch := range e.events {
		select {
		case ch <- event:
		default:
		}
	}
}

func (e *Engine) apply(fx effects) {
	if fx.workComplete && e.options.Notifier != nil {
		e.options.Notifier.NotifyWorkComplete()
	}
	if fx.breakComplete && e.options.Notifier != nil {
		e.options.Notifier.NotifyBreakComplete()
	}
	if fx.workComplete && e.options.Recorder != nil {
		e.options.Recorder.RecordCompletedPomodoro(fx.record)
	}
	if e.options.Sink == nil {
		return
	}
	for _, snapshot := range fx.snapshots {
		ctx, cancel := context.WithTimeout(context.Background(), e.options.SyncTimeout)
		if err := e.options.Sink.Sync(ctx, snapshot); err != nil {
			e.options.Logger.Warn("sync timer snapshot", "error", err, "phase", snapshot.Phase)
		}
		cancel()
	}
}
