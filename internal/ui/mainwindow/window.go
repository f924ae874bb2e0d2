// Package mainwindow is the primary Daybook window: the clock, the current
// session's goals and distractions, and the last completed session.
package mainwindow

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	"daybook/internal/app"
	"daybook/internal/bus"
	"daybook/internal/core/session"
	"daybook/internal/core/timer"
	"daybook/internal/window"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

// Options wires the window to the companion host.
type Options struct {
	// OnResize runs on the fyne main goroutine whenever the content size changes.
	OnResize func(fyne.Size)
	// OnFullScreen runs after the window enters or leaves full screen.
	OnFullScreen func(bool)
	Logger       *logrus.Entry
}

// Window is the primary surface. Its widgets are only touched on the fyne
// main goroutine.
type Window struct {
	app     *app.App
	window  fyne.Window
	options Options
	logger  *logrus.Entry

	clock        *canvas.Text
	phase        *widget.Label
	startButton  *widget.Button
	goalsButton  *widget.Button
	noteEntry    *widget.Entry
	goalEntry    *widget.Entry
	distraction  *widget.Entry
	goalsBox     *fyne.Container
	distractions *widget.Label
	completedBox *fyne.Container

	version    uint64
	hasVersion bool
	fullScreen bool
}

// New builds the primary window for the app in ctx. It must run on the
// fyne main goroutine.
func New(ctx context.Context, fyneApp fyne.App, options Options) *Window {
	application := app.MustFromContext(ctx)
	if options.Logger == nil {
		options.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	primary := &Window{
		app:     application,
		window:  fyneApp.NewWindow(app.Name),
		options: options,
		logger:  options.Logger,
	}

	primary.clock = canvas.NewText("25:00", theme.Color(theme.ColorNameForeground))
	primary.clock.TextSize = 48
	primary.clock.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	primary.clock.Alignment = fyne.TextAlignCenter
	primary.phase = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Italic: true})

	primary.startButton = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), application.ToggleTimer)
	primary.startButton.Importance = widget.HighImportance
	resetButton := widget.NewButtonWithIcon("Reset", theme.MediaReplayIcon(), application.ResetTimer)
	primary.goalsButton = widget.NewButtonWithIcon("Goals window", theme.ViewRestoreIcon(), primary.toggleGoalsWindow)
	fullScreenButton := widget.NewButtonWithIcon("", theme.ViewFullScreenIcon(), primary.ToggleFullScreen)

	primary.noteEntry = widget.NewEntry()
	primary.noteEntry.SetPlaceHolder("Note id (optional)")
	primary.noteEntry.OnChanged = application.SetNoteID

	primary.goalEntry = widget.NewEntry()
	primary.goalEntry.SetPlaceHolder("Add a goal for this session")
	primary.goalEntry.OnSubmitted = func(string) { primary.submitGoal() }
	addGoal := widget.NewButtonWithIcon("", theme.ContentAddIcon(), primary.submitGoal)

	primary.distraction = widget.NewEntry()
	primary.distraction.SetPlaceHolder("Note a distraction")
	primary.distraction.OnSubmitted = func(string) { primary.submitDistraction() }
	addDistraction := widget.NewButtonWithIcon("", theme.ContentAddIcon(), primary.submitDistraction)

	primary.goalsBox = container.NewVBox()
	primary.distractions = widget.NewLabel("")
	primary.completedBox = container.NewVBox()

	controls := container.NewHBox(layout.NewSpacer(), primary.startButton, resetButton, primary.goalsButton, fullScreenButton, layout.NewSpacer())
	header := container.NewVBox(primary.clock, primary.phase, controls, primary.noteEntry)
	current := container.NewBorder(
		container.NewVBox(
			widget.NewLabelWithStyle("Goals", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			container.NewBorder(nil, nil, nil, addGoal, primary.goalEntry),
		),
		container.NewVBox(
			container.NewBorder(nil, nil, nil, addDistraction, primary.distraction),
			primary.distractions,
		),
		nil, nil,
		container.NewVScroll(primary.goalsBox),
	)
	completed := container.NewBorder(
		widget.NewLabelWithStyle("Last session", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		nil, nil, nil,
		container.NewVScroll(primary.completedBox),
	)
	split := container.NewHSplit(current, completed)
	split.Offset = 0.6

	content := container.NewBorder(header, nil, nil, nil, split)
	primary.window.SetContent(container.New(&sizeWatcher{onResize: primary.resized}, container.NewPadded(content)))
	primary.window.Resize(fyne.NewSize(640, 480))

	primary.renderTimer(application.Timer.Update())
	primary.renderGoals(application.Store.Snapshot())
	primary.renderCompleted(nil)
	return primary
}

// Window exposes the fyne window, e.g. for the tray or dialogs.
func (primary *Window) Window() fyne.Window {
	return primary.window
}

// Show reveals and focuses the window.
func (primary *Window) Show() {
	primary.window.Show()
	primary.window.RequestFocus()
}

// Run keeps the window in sync with the bus until ctx ends.
func (primary *Window) Run(ctx context.Context) {
	goals := primary.app.Bus.Subscribe(bus.TopicGoalsState, 16)
	defer goals.Close()
	timers := primary.app.Bus.Subscribe(bus.TopicTimerState, 16)
	defer timers.Close()

	primary.app.OnSessionCompleted(func(ended session.Session) {
		fyne.Do(func() {
			primary.renderCompleted(&ended)
			primary.promptSummary(ended)
		})
	})
	primary.loadCompleted(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-goals.C():
			if !ok {
				return
			}
			if snapshot, ok := message.Payload.(session.Snapshot); ok {
				fyne.Do(func() { primary.renderGoals(snapshot) })
			}
		case message, ok := <-timers.C():
			if !ok {
				return
			}
			if update, ok := message.Payload.(timer.Update); ok {
				fyne.Do(func() { primary.renderTimer(update) })
			}
		}
	}
}

// ToggleFullScreen flips full screen and re-anchors the companion.
func (primary *Window) ToggleFullScreen() {
	primary.fullScreen = !primary.window.FullScreen()
	primary.window.SetFullScreen(primary.fullScreen)
	if primary.options.OnFullScreen != nil {
		primary.options.OnFullScreen(primary.fullScreen)
	}
}

func (primary *Window) resized(size fyne.Size) {
	if primary.options.OnResize != nil {
		primary.options.OnResize(size)
	}
}

// toggleGoalsWindow goes through the bus; the window manager creates the
// companion with a blocking UI call that cannot run on this goroutine.
func (primary *Window) toggleGoalsWindow() {
	manager := primary.app.Windows()
	if manager != nil && manager.State() == window.StateVisible {
		primary.app.Bus.Publish(bus.TopicHideGoalsWindow, nil)
		return
	}
	primary.app.Bus.Publish(bus.TopicShowGoalsWindow, nil)
}

func (primary *Window) submitGoal() {
	if _, ok := primary.app.Store.AddGoal(primary.goalEntry.Text); ok {
		primary.goalEntry.SetText("")
	}
}

func (primary *Window) submitDistraction() {
	if _, ok := primary.app.Store.AddDistraction(primary.distraction.Text); ok {
		primary.distraction.SetText("")
	}
}

func (primary *Window) renderTimer(update timer.Update) {
	primary.clock.Text = update.Clock().String()
	primary.clock.Refresh()
	primary.phase.SetText(update.Phase.Label())
	if update.Running {
		primary.startButton.SetText("Stop")
		primary.startButton.SetIcon(theme.MediaPauseIcon())
	} else {
		primary.startButton.SetText("Start")
		primary.startButton.SetIcon(theme.MediaPlayIcon())
	}
}

func (primary *Window) renderGoals(snapshot session.Snapshot) {
	if primary.hasVersion && snapshot.Version < primary.version {
		return
	}
	primary.version, primary.hasVersion = snapshot.Version, true

	primary.goalsBox.Objects = nil
	if snapshot.Current == nil {
		primary.goalEntry.Disable()
		primary.distraction.Disable()
		primary.goalsBox.Add(widget.NewLabel("Start the timer to begin a session."))
		primary.distractions.SetText("")
		primary.goalsBox.Refresh()
		return
	}

	primary.goalEntry.Enable()
	primary.distraction.Enable()
	for _, goal := range snapshot.Current.Goals {
		id := goal.ID
		check := widget.NewCheck(goal.Text, nil)
		check.Checked = goal.Finished
		check.OnChanged = func(bool) { primary.app.Store.ToggleGoal(id) }
		primary.goalsBox.Add(check)
	}
	primary.distractions.SetText(fmt.Sprintf("Distractions: %d", len(snapshot.Current.Distractions)))
	primary.goalsBox.Refresh()
}

func (primary *Window) renderCompleted(last *session.Session) {
	primary.completedBox.Objects = nil
	if last == nil {
		primary.completedBox.Add(widget.NewLabel("No completed sessions yet."))
		primary.completedBox.Refresh()
		return
	}
	primary.completedBox.Add(widget.NewLabel(fmt.Sprintf("%s  %d/%d goals",
		last.StartTime.Local().Format("Jan 2 15:04"), last.FinishedGoals(), len(last.Goals))))
	for _, goal := range last.Goals {
		mark := "[ ]"
		if goal.Finished {
			mark = "[x]"
		}
		text := canvas.NewText(mark+" "+goal.Text, theme.Color(theme.ColorNameForeground))
		if !goal.Finished {
			text.Color = color.NRGBA{R: 150, G: 150, B: 150, A: 255}
		}
		primary.completedBox.Add(text)
	}
	if last.DaySummary != "" {
		summary := widget.NewLabel(last.DaySummary)
		summary.Wrapping = fyne.TextWrapWord
		primary.completedBox.Add(summary)
	}
	primary.completedBox.Refresh()
}

func (primary *Window) loadCompleted(ctx context.Context) {
	recent, err := primary.app.RecentSessions(ctx, 1)
	if err != nil {
		primary.logger.WithError(err).Warn("load last session")
		return
	}
	if len(recent) == 0 {
		return
	}
	last := recent[0]
	fyne.Do(func() { primary.renderCompleted(&last) })
}

func (primary *Window) promptSummary(ended session.Session) {
	entry := widget.NewMultiLineEntry()
	entry.SetPlaceHolder("How did the session go?")
	entry.SetMinRowsVisible(4)
	items := []*widget.FormItem{widget.NewFormItem("Summary", entry)}
	dialog.ShowForm("Session complete", "Save", "Skip", items, func(save bool) {
		if !save || strings.TrimSpace(entry.Text) == "" {
			return
		}
		if err := primary.app.SubmitDaySummary(entry.Text); err != nil {
			primary.logger.WithError(err).Warn("save day summary")
			return
		}
		ended.DaySummary = entry.Text
		primary.renderCompleted(&ended)
	}, primary.window)
}
