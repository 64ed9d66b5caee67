package timer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"converge/internal/model"
)

type countingNotifier struct {
	mu     sync.Mutex
	work   int
	breaks int
}

func (n *countingNotifier) NotifyWorkComplete() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.work++
}

func (n *countingNotifier) NotifyBreakComplete() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.breaks++
}

type recordingRecorder struct {
	mu        sync.Mutex
	durations []int
}

func (r *recordingRecorder) RecordCompletedPomodoro(durationSeconds int) model.PomodoroSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, durationSeconds)
	return model.PomodoroSession{DurationSeconds: durationSeconds}
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []model.Snapshot
	err       error
}

func (s *recordingSink) Sync(_ context.Context, snapshot model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func (s *recordingSink) last() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[len(s.snapshots)-1]
}

type mutableSettings struct {
	mu       sync.Mutex
	settings model.Settings
}

func (m *mutableSettings) Current() model.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

func (m *mutableSettings) set(settings model.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
}

type harness struct {
	engine    *Engine
	scheduler *ManualScheduler
	notifier  *countingNotifier
	recorder  *recordingRecorder
	sink      *recordingSink
}

func oneMinuteSettings(cadence int, autoContinue bool) model.Settings {
	return model.Settings{
		WorkDurationMinutes:       1,
		ShortBreakDurationMinutes: 1,
		LongBreakDurationMinutes:  2,
		PomodorosUntilLongBreak:   cadence,
		AutoContinue:              autoContinue,
	}
}

func newHarness(t *testing.T, settings SettingsSource) *harness {
	t.Helper()
	h := &harness{
		scheduler: NewManualScheduler(),
		notifier:  &countingNotifier{},
		recorder:  &recordingRecorder{},
		sink:      &recordingSink{},
	}
	h.engine = New(settings, Options{
		Scheduler: h.scheduler,
		Notifier:  h.notifier,
		Recorder:  h.recorder,
		Sink:      h.sink,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(h.engine.Close)
	return h
}

func TestNewEngineStartsIdle(t *testing.T) {
	h := newHarness(t, StaticSettings(model.DefaultSettings()))

	state := h.engine.State()
	assert.Equal(t, model.PhaseIdle, state.Phase)
	assert.Equal(t, 25*60, state.RemainingSeconds)
	assert.Equal(t, 25*60, state.CurrentPhaseTotalSeconds)
	assert.False(t, state.IsRunning())
	assert.Equal(t, "25:00", h.engine.FormattedTime())
	assert.Equal(t, 1, h.sink.count(), "initial state is synced")
}

func TestStartFromIdle(t *testing.T) {
	h := newHarness(t, StaticSettings(model.DefaultSettings()))

	h.engine.Start()

	state := h.engine.State()
	assert.Equal(t, model.PhaseWork, state.Phase)
	assert.Equal(t, 25*60, state.RemainingSeconds)
	assert.True(t, state.IsRunning())
	assert.True(t, h.scheduler.Active())
	assert.Equal(t, 0.0, h.engine.Progress())
	assert.True(t, h.sink.last().IsRunning)
}

func TestStartAndPauseAreIdempotent(t *testing.T) {
	h := newHarness(t, StaticSettings(model.DefaultSettings()))

	h.engine.Start()
	afterFirst := h.engine.State()
	syncs := h.sink.count()
	h.engine.Start()
	assert.Equal(t, afterFirst, h.engine.State())
	assert.Equal(t, 1, h.scheduler.Starts(), "second start must not create another ticker")
	assert.Equal(t, syncs, h.sink.count())

	h.scheduler.Fire(10)
	h.engine.Pause()
	afterPause := h.engine.State()
	h.engine.Pause()
	assert.Equal(t, afterPause, h.engine.State())
	assert.False(t, afterPause.IsRunning())
	assert.Equal(t, 25*60-10, afterPause.RemainingSeconds)
	assert.False(t, h.scheduler.Active())

	h.engine.Start()
	assert.Equal(t, model.PhaseWork, h.engine.State().Phase)
	assert.Equal(t, 25*60-10, h.engine.State().RemainingSeconds, "resume keeps remaining time")
}

func TestResetFromAnyState(t *testing.T) {
	h := newHarness(t, StaticSettings(oneMinuteSettings(4, true)))

	h.engine.Start()
	h.scheduler.Fire(60 + 15)
	require.Equal(t, model.PhaseBreak, h.engine.State().Phase)
	require.Equal(t, 1, h.engine.State().CompletedPomodoros)

	h.engine.Reset()

	state := h.engine.State()
	assert.Equal(t, model.PhaseIdle, state.Phase)
	assert.Equal(t, 60, state.RemainingSeconds)
	assert.Equal(t, 60, state.CurrentPhaseTotalSeconds)
	assert.Equal(t, 0, state.CompletedPomodoros)
	assert.False(t, state.IsRunning())
	assert.False(t, h.scheduler.Active())
	assert.Len(t, h.recorder.durations, 1, "reset keeps recorded sessions")

	h.engine.Reset()
	assert.Equal(t, state, h.engine.State())
}

func TestTickIgnoredWhilePaused(t *testing.T) {
	h := newHarness(t, StaticSettings(model.DefaultSettings()))

	h.engine.Tick()
	assert.Equal(t, model.PhaseIdle, h.engine.State().Phase)
	assert.Equal(t, 25*60, h.engine.State().RemainingSeconds)

	h.engine.Start()
	h.engine.Pause()
	h.engine.Tick()
	assert.Equal(t, 25*60, h.engine.State().RemainingSeconds)
}

func TestEndToEndShortCycle(t *testing.T) {
	settings := model.Settings{
		WorkDurationMinutes:       1,
		ShortBreakDurationMinutes: 1,
		LongBreakDurationMinutes:  15,
		PomodorosUntilLongBreak:   2,
		AutoContinue:              true,
	}
	h := newHarness(t, StaticSettings(settings))

	h.engine.Start()
	require.Equal(t, 60, h.scheduler.Fire(60))

	state := h.engine.State()
	assert.Equal(t, model.PhaseBreak, state.Phase)
	assert.Equal(t, 60, state.RemainingSeconds)
	assert.Equal(t, 1, state.CompletedPomodoros)
	assert.True(t, state.IsRunning())
	assert.Equal(t, []int{60}, h.recorder.durations)
	assert.Equal(t, 1, h.notifier.work)
	assert.Equal(t, 0, h.notifier.breaks)

	require.Equal(t, 60, h.scheduler.Fire(60))

	state = h.engine.State()
	assert.Equal(t, model.PhaseWork, state.Phase)
	assert.Equal(t, 60, state.RemainingSeconds)
	assert.Equal(t, 1, state.CompletedPomodoros)
	assert.Equal(t, 1, h.notifier.work)
	assert.Equal(t, 1, h.notifier.breaks)
	assert.Len(t, h.recorder.durations, 1, "breaks are not recorded")
}

func TestCadenceLaw(t *testing.T) {
	h := newHarness(t, StaticSettings(oneMinuteSettings(4, true)))
	h.engine.Start()

	for k := 1; k <= 8; k++ {
		require.Equal(t, 60, h.scheduler.Fire(60))
		state := h.engine.State()
		require.Equal(t, model.PhaseBreak, state.Phase)
		require.Equal(t, k, state.CompletedPomodoros)

		if k%4 == 0 {
			assert.Equal(t, 120, state.CurrentPhaseTotalSeconds, "break after pomodoro %d should be long", k)
		} else {
			assert.Equal(t, 60, state.CurrentPhaseTotalSeconds, "break after pomodoro %d should be short", k)
		}

		require.Equal(t, state.CurrentPhaseTotalSeconds, h.scheduler.Fire(state.CurrentPhaseTotalSeconds))
		require.Equal(t, model.PhaseWork, h.engine.State().Phase)
	}
	assert.Len(t, h.recorder.durations, 8)
}

func TestProgressWithinPhase(t *testing.T) {
	h := newHarness(t, StaticSettings(oneMinuteSettings(4, true)))
	events, cancel := h.engine.Subscribe(128)
	defer cancel()

	h.engine.Start()
	assert.Equal(t, 0.0, h.engine.Progress())
	h.scheduler.Fire(60)

	var ticks []Event
	var sawCompletion bool
	for len(events) > 0 {
		event := <-events
		switch event.Type {
		case EventTick:
			if !sawCompletion {
				ticks = append(ticks, event)
			}
		case EventWorkComplete:
			sawCompletion = true
		}
	}

	require.True(t, sawCompletion)
	require.Len(t, ticks, 60)
	previous := 0.0
	for _, event := range ticks {
		assert.GreaterOrEqual(t, event.Progress, previous)
		assert.LessOrEqual(t, event.Progress, 1.0)
		previous = event.Progress
	}
	last := ticks[len(ticks)-1]
	assert.Equal(t, 0, last.State.RemainingSeconds)
	assert.Equal(t, 1.0, last.Progress)
	assert.Equal(t, 0.0, h.engine.Progress(), "the new phase starts at zero")
}

func TestAutoContinueOffAwaitsManualStart(t *testing.T) {
	h := newHarness(t, StaticSettings(oneMinuteSettings(4, false)))

	h.engine.Start()
	require.Equal(t, 60, h.scheduler.Fire(60))

	state := h.engine.State()
	assert.Equal(t, model.PhaseBreak, state.Phase)
	assert.Equal(t, model.RunStateAwaitingManualAdvance, state.RunState)
	assert.False(t, state.IsRunning())
	assert.Equal(t, 60, state.RemainingSeconds)
	assert.False(t, h.scheduler.Active())
	assert.Equal(t, 0, h.scheduler.Fire(5))
	assert.False(t, h.sink.last().IsRunning)

	h.engine.Pause()
	assert.Equal(t, model.RunStateAwaitingManualAdvance, h.engine.State().RunState, "pause is a no-op when not running")

	h.engine.StartNextPhase()
	assert.True(t, h.engine.State().IsRunning())
	assert.True(t, h.scheduler.Active())

	h.engine.StartNextPhase()
	assert.Equal(t, 2, h.scheduler.Starts(), "second manual start is a no-op")

	require.Equal(t, 60, h.scheduler.Fire(60))
	assert.Equal(t, model.PhaseWork, h.engine.State().Phase)
	assert.True(t, h.engine.State().AwaitingManualAdvance())

	h.engine.Start()
	assert.True(t, h.engine.State().IsRunning(), "start also resumes after a boundary")
}

func TestNextBreakMirrorsCompletion(t *testing.T) {
	h := newHarness(t, StaticSettings(oneMinuteSettings(2, true)))
	h.engine.Start()

	predictedType := h.engine.NextBreakType()
	predictedSeconds := h.engine.NextBreakDurationSeconds()
	assert.Equal(t, model.BreakShort, predictedType)
	assert.Equal(t, "01:00", h.engine.NextBreakFormattedTime())

	h.scheduler.Fire(60)
	assert.Equal(t, predictedSeconds, h.engine.State().CurrentPhaseTotalSeconds)

	// Inside a break the prediction describes the break after the next
	// work phase, not the current one.
	assert.Equal(t, model.BreakLong, h.engine.NextBreakType())
	predictedSeconds = h.engine.NextBreakDurationSeconds()
	assert.Equal(t, 120, predictedSeconds)

	h.scheduler.Fire(60)
	require.Equal(t, model.PhaseWork, h.engine.State().Phase)
	assert.Equal(t, model.BreakLong, h.engine.NextBreakType())

	h.scheduler.Fire(60)
	assert.Equal(t, model.PhaseBreak, h.engine.State().Phase)
	assert.Equal(t, predictedSeconds, h.engine.State().CurrentPhaseTotalSeconds)
}

func TestAdvanceToNextPhaseFromIdle(t *testing.T) {
	h := newHarness(t, StaticSettings(oneMinuteSettings(4, true)))

	h.engine.AdvanceToNextPhase()

	state := h.engine.State()
	assert.Equal(t, model.PhaseWork, state.Phase)
	assert.Equal(t, 60, state.RemainingSeconds)
	assert.Equal(t, 0, h.notifier.work)
	assert.Empty(t, h.recorder.durations)
}

func TestSyncAfterEveryOperation(t *testing.T) {
	h := newHarness(t, StaticSettings(oneMinuteSettings(4, true)))
	require.Equal(t, 1, h.sink.count())

	h.engine.Start()
	assert.Equal(t, 2, h.sink.count())

	h.scheduler.Fire(1)
	assert.Equal(t, 3, h.sink.count())
	assert.Equal(t, 59, h.sink.last().RemainingSeconds)

	h.engine.Pause()
	assert.Equal(t, 4, h.sink.count())

	h.engine.Reset()
	assert.Equal(t, 5, h.sink.count())

	h.engine.Start()
	h.scheduler.Fire(60)
	// 60 ticks plus the phase advance on the last one.
	assert.Equal(t, 6+60+1, h.sink.count())
	last := h.sink.last()
	assert.Equal(t, model.PhaseBreak, last.Phase)
	assert.Equal(t, 1, last.CompletedPomodoros)
}

func TestSyncFailureKeepsState(t *testing.T) {
	h := newHarness(t, StaticSettings(oneMinuteSettings(4, true)))
	h.sink.err = errors.New("disk full")

	h.engine.Start()
	h.scheduler.Fire(60)

	state := h.engine.State()
	assert.Equal(t, model.PhaseBreak, state.Phase)
	assert.Equal(t, 1, state.CompletedPomodoros)
	assert.Len(t, h.recorder.durations, 1)
}

func TestSettingsChangedRefreshesIdleOnly(t *testing.T) {
	source := &mutableSettings{settings: model.DefaultSettings()}
	h := newHarness(t, source)

	updated := model.DefaultSettings()
	updated.WorkDurationMinutes = 50
	source.set(updated)
	h.engine.SettingsChanged()
	assert.Equal(t, 50*60, h.engine.State().RemainingSeconds)
	assert.Equal(t, 50*60, h.engine.State().CurrentPhaseTotalSeconds)

	h.engine.Start()
	h.scheduler.Fire(3)
	updated.WorkDurationMinutes = 10
	source.set(updated)
	h.engine.SettingsChanged()
	assert.Equal(t, 50*60-3, h.engine.State().RemainingSeconds)
	assert.Equal(t, 50*60, h.engine.State().CurrentPhaseTotalSeconds)
}

func TestSubscribeAndClose(t *testing.T) {
	h := newHarness(t, StaticSettings(model.DefaultSettings()))
	events, cancel := h.engine.Subscribe(4)
	other, _ := h.engine.Subscribe(4)

	h.engine.Start()
	event := <-events
	assert.Equal(t, EventStateChange, event.Type)
	assert.Equal(t, model.PhaseWork, event.State.Phase)

	cancel()
	_, open := <-events
	assert.False(t, open)

	h.engine.Close()
	assert.Equal(t, EventStateChange, (<-other).Type)
	closing := <-other
	assert.Equal(t, model.RunStatePaused, closing.State.RunState)
	_, open = <-other
	assert.False(t, open)

	h.engine.Start()
	assert.False(t, h.engine.State().IsRunning(), "closed engine ignores start")

	late, _ := h.engine.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
}

func TestCloseSyncsStoppedSnapshot(t *testing.T) {
	h := newHarness(t, StaticSettings(oneMinuteSettings(4, true)))
	h.engine.Start()
	h.scheduler.Fire(10)
	require.True(t, h.sink.last().IsRunning)
	synced := h.sink.count()

	h.engine.Close()
	assert.Equal(t, synced+1, h.sink.count())
	last := h.sink.last()
	assert.False(t, last.IsRunning)
	assert.Equal(t, 50, last.RemainingSeconds)
	assert.False(t, h.scheduler.Active())

	h.engine.Close()
	assert.Equal(t, synced+1, h.sink.count(), "second close is a no-op")
}

func TestCloseWhilePausedDoesNotSync(t *testing.T) {
	h := newHarness(t, StaticSettings(oneMinuteSettings(4, true)))
	synced := h.sink.count()
	h.engine.Close()
	assert.Equal(t, synced, h.sink.count())
}

func TestRecordedDurationIsPhaseBasis(t *testing.T) {
	settings := &mutableSettings{settings: oneMinuteSettings(4, true)}
	h := newHarness(t, settings)
	h.engine.Start()
	h.scheduler.Fire(30)

	changed := oneMinuteSettings(4, true)
	changed.WorkDurationMinutes = 50
	settings.set(changed)
	h.engine.SettingsChanged()
	h.scheduler.Fire(30)

	assert.Equal(t, model.PhaseBreak, h.engine.State().Phase)
	h.recorder.mu.Lock()
	defer h.recorder.mu.Unlock()
	assert.Equal(t, []int{60}, h.recorder.durations)
}

func TestTickerSchedulerDrivesCountdown(t *testing.T) {
	engine := New(StaticSettings(oneMinuteSettings(4, true)), Options{
		TickInterval: 5 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer engine.Close()

	engine.Start()
	require.Eventually(t, func() bool {
		return engine.State().RemainingSeconds <= 57
	}, 2*time.Second, 5*time.Millisecond)

	engine.Pause()
	paused := engine.State().RemainingSeconds
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, paused, engine.State().RemainingSeconds)
}
