// Package app owns the process-wide state shared by every surface: the bus,
// the timer engine, the session store and the companion window manager.
// It is created once at start-up, handed to components through a context,
// and torn down on quit.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"daybook/internal/bus"
	"daybook/internal/core/model"
	"daybook/internal/core/session"
	"daybook/internal/core/timer"
	"daybook/internal/storage"
	"daybook/internal/window"

	"github.com/sirupsen/logrus"
)

// Name is the application name used for config paths and the instance lock.
const Name = "Daybook"

// ErrStarted is returned when Start runs twice.
var ErrStarted = errors.New("app already started")

// HistoryStore persists and lists completed sessions.
type HistoryStore interface {
	session.HistoryWriter
	List(ctx context.Context, limit int) ([]session.Session, error)
}

// Options configures an App.
type Options struct {
	Settings model.Settings
	// SettingsPath is where SaveSettings writes. Empty disables saving.
	SettingsPath string
	History      HistoryStore
	Timer        timer.Config
	Logger       *logrus.Entry
}

// TrayStatus is what the tray shows next to the icon.
type TrayStatus struct {
	Clock string
	Text  string
}

// Label renders the status menu item, e.g. "Work 24:59".
func (status TrayStatus) Label() string {
	return strings.TrimSpace(status.Text + " " + status.Clock)
}

// App is the explicit process context.
type App struct {
	Bus     *bus.Bus
	Timer   *timer.Engine
	Store   *session.Store
	History HistoryStore

	logger       *logrus.Entry
	settingsPath string

	mu          sync.Mutex
	settings    model.Settings
	noteID      string
	tray        TrayStatus
	running     bool
	windows     *window.Manager
	onCompleted []func(session.Session)
	onTray      []func(TrayStatus)

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New wires the core services. Nothing runs until Start.
func New(options Options) *App {
	if options.Logger == nil {
		options.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger := options.Logger

	b := bus.New(logger.WithField("component", "bus"))
	engine := timer.New(options.Settings.TimerConfig(), options.Timer)
	var history session.HistoryWriter
	if options.History != nil {
		history = options.History
	}
	store := session.NewStore(session.Options{
		Publisher: b,
		History:   history,
		Logger:    logger.WithField("component", "session"),
	})

	initial := engine.State()
	return &App{
		Bus:          b,
		Timer:        engine,
		Store:        store,
		History:      options.History,
		logger:       logger,
		settingsPath: options.SettingsPath,
		settings:     options.Settings,
		tray:         TrayStatus{Clock: initial.Clock().String(), Text: initial.StatusLabel()},
	}
}

// AttachWindows hands the companion window manager to the app. Call before Start.
func (app *App) AttachWindows(manager *window.Manager) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.windows = manager
}

// Windows returns the attached window manager, or nil.
func (app *App) Windows() *window.Manager {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.windows
}

// OnSessionCompleted registers fn to run after a Work phase ends the session.
func (app *App) OnSessionCompleted(fn func(session.Session)) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.onCompleted = append(app.onCompleted, fn)
}

// OnTrayStatus registers fn to run whenever the tray status changes.
func (app *App) OnTrayStatus(fn func(TrayStatus)) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.onTray = append(app.onTray, fn)
}

// Start launches the background loops. They stop on ctx cancel or Shutdown.
func (app *App) Start(ctx context.Context) error {
	app.mu.Lock()
	if app.cancel != nil {
		app.mu.Unlock()
		return ErrStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	app.cancel = cancel
	windows := app.windows
	app.mu.Unlock()

	events := app.Timer.Subscribe(32)
	requests := app.Bus.Subscribe(bus.TopicRequestTimerState, 8)

	app.goRun(func() { app.Timer.Run(ctx) })
	app.goRun(func() { app.Store.Serve(ctx, app.Bus) })
	app.goRun(func() { app.relayTimer(ctx, events) })
	app.goRun(func() { app.answerTimerRequests(ctx, requests) })
	if windows != nil {
		app.goRun(func() { windows.Serve(ctx, app.Bus) })
	}

	app.publishTimer(app.Timer.Update(), app.Timer.State())
	app.Store.Publish()
	app.logger.Info("app started")
	return nil
}

// Shutdown stops every loop and releases the services. Safe to call more than once.
func (app *App) Shutdown() {
	app.once.Do(func() {
		app.mu.Lock()
		cancel, windows := app.cancel, app.windows
		app.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		app.wg.Wait()
		if windows != nil {
			windows.Shutdown()
		}
		app.Timer.Close()
		app.Bus.Close()
		if closer, ok := app.History.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				app.logger.WithError(err).Warn("close history")
			}
		}
		app.logger.Info("app stopped")
	})
}

// Settings returns the active settings.
func (app *App) Settings() model.Settings {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.settings
}

// ApplySettings makes settings active without writing them.
func (app *App) ApplySettings(settings model.Settings) {
	app.mu.Lock()
	app.settings = settings
	app.mu.Unlock()
	app.Timer.UpdateConfig(settings.TimerConfig())
}

// SaveSettings applies settings and writes them to the settings file.
func (app *App) SaveSettings(settings model.Settings) error {
	app.ApplySettings(settings)
	if app.settingsPath == "" {
		return nil
	}
	if err := storage.SaveSettings(app.settingsPath, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SetNoteID sets the note the next session attaches to.
func (app *App) SetNoteID(noteID string) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.noteID = strings.TrimSpace(noteID)
}

// NoteID returns the note the next session attaches to.
func (app *App) NoteID() string {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.noteID
}

// Tray returns the current tray status.
func (app *App) Tray() TrayStatus {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.tray
}

// StartTimer runs the clock. Starting a Work phase without a current
// session opens one for the current note.
func (app *App) StartTimer() bool {
	state := app.Timer.State()
	if state.Running {
		return false
	}
	if state.Phase == timer.PhaseWork {
		if _, ok := app.Store.Current(); !ok {
			if _, err := app.Store.StartSession(app.NoteID()); err != nil {
				app.logger.WithError(err).Warn("start session")
			}
		}
	}
	return app.Timer.Start()
}

// StopTimer pauses the clock.
func (app *App) StopTimer() {
	app.Timer.Stop()
}

// ToggleTimer starts a stopped clock and stops a running one.
func (app *App) ToggleTimer() {
	if app.Timer.State().Running {
		app.StopTimer()
		return
	}
	app.StartTimer()
}

// ResetTimer returns the clock to a fresh Work phase. An unfinished session
// is abandoned so the next run opens a new one.
func (app *App) ResetTimer() {
	app.Timer.Reset()
	app.Store.Abandon()
}

// SubmitDaySummary attaches text to the session that just ended.
func (app *App) SubmitDaySummary(text string) error {
	return app.Store.SetDaySummary(text)
}

// RecentSessions returns up to limit completed sessions, newest first. It
// reads the history database when there is one.
func (app *App) RecentSessions(ctx context.Context, limit int) ([]session.Session, error) {
	if app.History != nil {
		sessions, err := app.History.List(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("list history: %w", err)
		}
		return sessions, nil
	}
	history := app.Store.History()
	recent := make([]session.Session, 0, len(history))
	for index := len(history) - 1; index >= 0; index-- {
		if limit > 0 && len(recent) == limit {
			break
		}
		recent = append(recent, history[index])
	}
	return recent, nil
}

func (app *App) goRun(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		fn()
	}()
}

func (app *App) relayTimer(ctx context.Context, events <-chan timer.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			app.publishTimer(event.Update(), event.State)
			if event.Type == timer.EventSessionCompleted {
				app.completeSession()
			}
		}
	}
}

func (app *App) answerTimerRequests(ctx context.Context, requests *bus.Subscription) {
	defer requests.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-requests.C():
			if !ok {
				return
			}
			app.Bus.Publish(bus.TopicTimerState, app.Timer.Update())
		}
	}
}

// publishTimer fans a timer change out to the companion and tray topics and
// shows the goals window while a Work phase runs.
func (app *App) publishTimer(update timer.Update, state timer.State) {
	status := TrayStatus{Clock: state.Clock().String(), Text: state.StatusLabel()}

	app.mu.Lock()
	wasRunning := app.running
	app.running = state.Running
	changed := status != app.tray
	app.tray = status
	listeners := append([]func(TrayStatus){}, app.onTray...)
	app.mu.Unlock()

	app.Bus.Publish(bus.TopicTimerState, update)
	app.Bus.Publish(bus.TopicTrayTimer, status.Clock)
	app.Bus.Publish(bus.TopicTrayText, status.Text)

	switch {
	case state.Running && !wasRunning && state.Phase == timer.PhaseWork:
		app.Bus.Publish(bus.TopicShowGoalsWindow, nil)
	case !state.Running && wasRunning:
		app.Bus.Publish(bus.TopicHideGoalsWindow, nil)
	}

	if changed {
		for _, fn := range listeners {
			fn(status)
		}
	}
}

func (app *App) completeSession() {
	ended, err := app.Store.EndSession()
	if err != nil {
		app.logger.WithError(err).Debug("work phase ended without a session")
		return
	}

	app.mu.Lock()
	listeners := append([]func(session.Session){}, app.onCompleted...)
	app.mu.Unlock()
	for _, fn := range listeners {
		fn(ended)
	}
}
