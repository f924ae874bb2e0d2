package mainwindow

import (
	"context"
	"testing"
	"time"

	"daybook/internal/app"
	"daybook/internal/bus"
	"daybook/internal/core/model"
	"daybook/internal/core/session"
	"daybook/internal/core/timer"
	"daybook/internal/logging"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWindow(t *testing.T, options Options) (*Window, *app.App) {
	t.Helper()
	application := app.New(app.Options{
		Settings: model.DefaultSettings(),
		Logger:   logging.Discard(),
		Timer:    timer.Config{TickInterval: time.Hour},
	})
	require.NoError(t, application.Start(context.Background()))
	t.Cleanup(application.Shutdown)

	options.Logger = logging.Discard()
	primary := New(app.WithApp(context.Background(), application), test.NewApp(), options)
	return primary, application
}

func TestStartButtonOpensSession(t *testing.T) {
	primary, application := newTestWindow(t, Options{})
	assert.True(t, primary.goalEntry.Disabled(), "no goals before a session")

	primary.noteEntry.SetText("note-7")
	test.Tap(primary.startButton)

	current, ok := application.Store.Current()
	require.True(t, ok)
	assert.Equal(t, "note-7", current.NoteID)

	primary.renderTimer(application.Timer.Update())
	assert.Equal(t, "Stop", primary.startButton.Text)
	assert.Equal(t, "25:00", primary.clock.Text)
	assert.Equal(t, "Work", primary.phase.Text)
}

func TestGoalsRenderFromSnapshot(t *testing.T) {
	primary, application := newTestWindow(t, Options{})
	application.StartTimer()
	primary.renderGoals(application.Store.Snapshot())
	require.False(t, primary.goalEntry.Disabled())

	primary.goalEntry.SetText("write tests")
	primary.submitGoal()
	assert.Empty(t, primary.goalEntry.Text)
	primary.distraction.SetText("email")
	primary.submitDistraction()

	snapshot := application.Store.Snapshot()
	primary.renderGoals(snapshot)
	require.Len(t, primary.goalsBox.Objects, 1)
	check, ok := primary.goalsBox.Objects[0].(*widget.Check)
	require.True(t, ok)
	assert.Equal(t, "write tests", check.Text)
	assert.Equal(t, "Distractions: 1", primary.distractions.Text)

	test.Tap(check)
	current, _ := application.Store.Current()
	assert.True(t, current.Goals[0].Finished)

	stale := snapshot
	stale.Version = 0
	stale.Current = nil
	primary.renderGoals(stale)
	assert.Len(t, primary.goalsBox.Objects, 1, "stale snapshots are dropped")
}

func TestCompletedSessionIsListed(t *testing.T) {
	primary, _ := newTestWindow(t, Options{})
	require.Len(t, primary.completedBox.Objects, 1)

	last := session.Session{
		StartTime:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Goals:      []session.Goal{{Text: "a", Finished: true}, {Text: "b"}},
		DaySummary: "fine",
	}
	primary.renderCompleted(&last)
	assert.Len(t, primary.completedBox.Objects, 4)
}

func TestGoalsToggleUsesBus(t *testing.T) {
	primary, application := newTestWindow(t, Options{})
	shows := application.Bus.Subscribe(bus.TopicShowGoalsWindow, 2)

	primary.toggleGoalsWindow()
	select {
	case <-shows.C():
	case <-time.After(time.Second):
		t.Fatal("show not published")
	}
}

func TestSizeWatcherReportsChanges(t *testing.T) {
	var sizes []fyne.Size
	watcher := &sizeWatcher{onResize: func(size fyne.Size) { sizes = append(sizes, size) }}
	child := widget.NewLabel("x")

	watcher.Layout([]fyne.CanvasObject{child}, fyne.NewSize(200, 100))
	watcher.Layout([]fyne.CanvasObject{child}, fyne.NewSize(200, 100))
	watcher.Layout([]fyne.CanvasObject{child}, fyne.NewSize(300, 100))

	assert.Equal(t, []fyne.Size{fyne.NewSize(200, 100), fyne.NewSize(300, 100)}, sizes)
	assert.Equal(t, fyne.NewSize(300, 100), child.Size())
}
