package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"daybook/internal/bus"
	"daybook/internal/core/model"
	"daybook/internal/core/session"
	"daybook/internal/core/timer"
	"daybook/internal/logging"
	"daybook/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	mu        sync.Mutex
	saved     []session.Session
	summaries map[string]string
}

func (history *fakeHistory) SaveSession(ctx context.Context, completed session.Session) error {
	history.mu.Lock()
	defer history.mu.Unlock()
	history.saved = append(history.saved, completed)
	return nil
}

func (history *fakeHistory) SetDaySummary(ctx context.Context, id, summary string) error {
	history.mu.Lock()
	defer history.mu.Unlock()
	if history.summaries == nil {
		history.summaries = map[string]string{}
	}
	history.summaries[id] = summary
	return nil
}

func (history *fakeHistory) List(ctx context.Context, limit int) ([]session.Session, error) {
	history.mu.Lock()
	defer history.mu.Unlock()
	return append([]session.Session{}, history.saved...), nil
}

func testSettings() model.Settings {
	settings := model.DefaultSettings()
	settings.Work = 2 * time.Second
	settings.Break = time.Second
	return settings
}

func startTestApp(t *testing.T, options Options) *App {
	t.Helper()
	if options.Settings.Work == 0 {
		options.Settings = testSettings()
	}
	options.Logger = logging.Discard()
	options.Timer = timer.Config{TickInterval: time.Hour}
	application := New(options)
	require.NoError(t, application.Start(context.Background()))
	t.Cleanup(application.Shutdown)
	return application
}

func receive(t *testing.T, sub *bus.Subscription) bus.Message {
	t.Helper()
	select {
	case message := <-sub.C():
		return message
	case <-time.After(2 * time.Second):
		t.Fatalf("nothing received on %s", sub.Topic())
		return bus.Message{}
	}
}

func TestStartPublishesInitialState(t *testing.T) {
	application := startTestApp(t, Options{})

	message, ok := application.Bus.Last(bus.TopicTimerState)
	require.True(t, ok)
	assert.Equal(t, timer.Update{Minutes: 0, Seconds: 2, Phase: timer.PhaseWork}, message.Payload)

	goals, ok := application.Bus.Last(bus.TopicGoalsState)
	require.True(t, ok)
	assert.Nil(t, goals.Payload.(session.Snapshot).Current)

	assert.ErrorIs(t, application.Start(context.Background()), ErrStarted)
}

func TestStartTimerOpensSessionAndShowsGoals(t *testing.T) {
	application := startTestApp(t, Options{})
	shows := application.Bus.Subscribe(bus.TopicShowGoalsWindow, 4)

	application.SetNoteID("  note-1 ")
	require.True(t, application.StartTimer())
	require.False(t, application.StartTimer())

	current, ok := application.Store.Current()
	require.True(t, ok)
	assert.Equal(t, "note-1", current.NoteID)
	receive(t, shows)
}

func TestResetAbandonsSessionAndNextStartOpensNewOne(t *testing.T) {
	application := startTestApp(t, Options{})

	application.SetNoteID("N1")
	require.True(t, application.StartTimer())
	first, _ := application.Store.Current()
	_, ok := application.Store.AddGoal("draft")
	require.True(t, ok)

	application.StopTimer()
	require.True(t, application.StartTimer())
	resumed, _ := application.Store.Current()
	assert.Equal(t, first.ID, resumed.ID, "pausing keeps the session")

	application.ResetTimer()
	_, ok = application.Store.Current()
	assert.False(t, ok)
	assert.Empty(t, application.Store.History())

	application.SetNoteID("N2")
	require.True(t, application.StartTimer())
	next, ok := application.Store.Current()
	require.True(t, ok)
	assert.NotEqual(t, first.ID, next.ID)
	assert.Equal(t, "N2", next.NoteID)
	assert.Empty(t, next.Goals)
}

func TestTicksReachTrayTopics(t *testing.T) {
	application := startTestApp(t, Options{})
	statuses := make(chan TrayStatus, 8)
	application.OnTrayStatus(func(status TrayStatus) { statuses <- status })

	application.StartTimer()
	application.Timer.Tick()

	require.Eventually(t, func() bool {
		return application.Tray().Label() == "Work 00:01"
	}, 2*time.Second, time.Millisecond)

	clock, _ := application.Bus.Last(bus.TopicTrayTimer)
	assert.Equal(t, "00:01", clock.Payload)
	text, _ := application.Bus.Last(bus.TopicTrayText)
	assert.Equal(t, "Work", text.Payload)
	assert.NotEmpty(t, statuses)
}

func TestWorkCompletionEndsSessionAndPromptsSummary(t *testing.T) {
	history := &fakeHistory{}
	application := startTestApp(t, Options{History: history})
	completed := make(chan session.Session, 1)
	application.OnSessionCompleted(func(ended session.Session) { completed <- ended })
	hides := application.Bus.Subscribe(bus.TopicHideGoalsWindow, 4)

	application.StartTimer()
	_, ok := application.Store.AddGoal("write the report")
	require.True(t, ok)
	application.Timer.Tick()
	application.Timer.Tick()

	var ended session.Session
	select {
	case ended = <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("session completion was not signalled")
	}
	assert.True(t, ended.Ended())
	require.Len(t, ended.Goals, 1)
	_, current := application.Store.Current()
	assert.False(t, current)
	receive(t, hides)

	state := application.Timer.State()
	assert.Equal(t, timer.PhaseBreak, state.Phase)
	assert.Equal(t, "Break", state.Phase.Label())
	assert.Equal(t, "00:01", application.Tray().Label(), "stopped clock has no status text")

	require.NoError(t, application.SubmitDaySummary("good focus"))
	assert.Equal(t, "good focus", history.summaries[ended.ID])
	assert.ErrorIs(t, application.SubmitDaySummary("again"), session.ErrSummaryAlreadySet)
}

func TestBreakCompletionDoesNotEndSession(t *testing.T) {
	application := startTestApp(t, Options{})
	var mu sync.Mutex
	calls := 0
	application.OnSessionCompleted(func(session.Session) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	application.StartTimer()
	application.Timer.Tick()
	application.Timer.Tick()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, 2*time.Second, time.Millisecond)

	require.True(t, application.StartTimer())
	_, current := application.Store.Current()
	assert.False(t, current, "break runs without a session")
	application.Timer.Tick()

	require.Eventually(t, func() bool { return application.Timer.State().Phase == timer.PhaseWork }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestRequestTimerStateIsAnswered(t *testing.T) {
	application := startTestApp(t, Options{})
	updates := application.Bus.Subscribe(bus.TopicTimerState, 4)

	application.Bus.Publish(bus.TopicRequestTimerState, nil)

	message := receive(t, updates)
	assert.Equal(t, application.Timer.Update(), message.Payload)
}

func TestApplyAndSaveSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	application := startTestApp(t, Options{SettingsPath: path})

	settings := testSettings()
	settings.Work = 10 * time.Minute
	require.NoError(t, application.SaveSettings(settings))

	assert.Equal(t, 10*time.Minute, application.Timer.State().Remaining)
	assert.Equal(t, settings, application.Settings())
	loaded, err := storage.LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, loaded.Work)
}

func TestRecentSessionsNewestFirst(t *testing.T) {
	application := startTestApp(t, Options{})
	for _, note := range []string{"a", "b", "c"} {
		_, err := application.Store.StartSession(note)
		require.NoError(t, err)
		_, err = application.Store.EndSession()
		require.NoError(t, err)
	}

	recent, err := application.RecentSessions(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].NoteID)
	assert.Equal(t, "b", recent[1].NoteID)
}

func TestShutdownIsIdempotent(t *testing.T) {
	application := New(Options{Settings: testSettings(), Logger: logging.Discard(), Timer: timer.Config{TickInterval: time.Hour}})
	require.NoError(t, application.Start(context.Background()))
	application.Shutdown()
	application.Shutdown()
	application.Bus.Publish(bus.TopicTrayText, "ignored")
}

func TestContextInjection(t *testing.T) {
	application := New(Options{Settings: testSettings(), Logger: logging.Discard()})
	ctx := WithApp(context.Background(), application)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, application, got)
	assert.Same(t, application, MustFromContext(ctx))

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
	assert.Panics(t, func() { MustFromContext(context.Background()) })
}

func TestTrayStatusLabel(t *testing.T) {
	assert.Equal(t, "Work 24:59", TrayStatus{Clock: "24:59", Text: "Work"}.Label())
	assert.Equal(t, "05:00", TrayStatus{Clock: "05:00"}.Label())
}
