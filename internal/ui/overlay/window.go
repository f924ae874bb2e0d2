// Package overlay renders the floating goals window on top of a companion
// controller. The window never edits session state itself: every action is
// an intent sent through the controller, and the widgets are rebuilt from
// the next view.
package overlay

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"daybook/internal/companion"
	"daybook/internal/core/session"
	"daybook/internal/window"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

// Config defines companion visuals.
type Config struct {
	Opacity      uint8
	Large        bool
	PollInterval time.Duration
}

// Window is the fyne companion surface.
type Window struct {
	window     fyne.Window
	controller *companion.Controller
	events     window.SurfaceEvents
	logger     *logrus.Entry
	config     Config

	background   *canvas.Rectangle
	clockLabel   *canvas.Text
	summaryLabel *widget.Label
	sizeButton   *widget.Button
	goalsBox     *fyne.Container
	distraction  *widget.Entry
	expanded     *fyne.Container

	loaded   sync.Once
	mu       sync.Mutex
	position window.Point
}

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// New builds the companion window. It must run on the fyne main goroutine.
func New(app fyne.App, b companion.Bus, config Config, events window.SurfaceEvents, logger *logrus.Entry) *Window {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	win := app.NewWindow("Goals")
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Splash window is undecorated (no native frame/buttons).
		win = driver.CreateSplashWindow()
	}
	if app.Icon() != nil {
		win.SetIcon(app.Icon())
	}
	win.SetPadded(false)

	overlay := &Window{
		window: win,
		events: events,
		logger: logger,
		config: config,
	}

	overlay.background = canvas.NewRectangle(color.NRGBA{R: 24, G: 28, B: 33, A: config.Opacity})

	overlay.clockLabel = canvas.NewText("--:--", color.NRGBA{R: 126, G: 224, B: 129, A: 255})
	overlay.clockLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	overlay.clockLabel.TextSize = 20

	overlay.summaryLabel = widget.NewLabel("")
	overlay.summaryLabel.Truncation = fyne.TextTruncateEllipsis

	overlay.sizeButton = widget.NewButtonWithIcon("", theme.MenuExpandIcon(), nil)
	hideButton := widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		if overlay.events.OnCloseRequest != nil {
			overlay.events.OnCloseRequest()
		}
	})
	hideButton.Importance = widget.LowImportance
	overlay.sizeButton.Importance = widget.LowImportance

	overlay.goalsBox = container.NewVBox()
	overlay.distraction = widget.NewEntry()
	overlay.distraction.SetPlaceHolder("Distraction...")
	overlay.distraction.OnSubmitted = func(text string) { overlay.submitDistraction() }
	addDistraction := widget.NewButtonWithIcon("", theme.ContentAddIcon(), overlay.submitDistraction)

	header := container.New(&rowLayout{}, overlay.clockLabel, overlay.summaryLabel, overlay.sizeButton, hideButton)
	overlay.expanded = container.NewBorder(
		nil,
		container.NewBorder(nil, nil, nil, addDistraction, overlay.distraction),
		nil, nil,
		container.NewVScroll(overlay.goalsBox),
	)
	overlay.expanded.Hide()

	content := container.NewBorder(header, nil, nil, nil, overlay.expanded)
	win.SetContent(container.NewStack(overlay.background, container.NewPadded(content)))
	win.SetCloseIntercept(func() {
		if overlay.events.OnCloseRequest != nil {
			overlay.events.OnCloseRequest()
		}
	})

	overlay.controller = companion.New(b, companion.Options{
		PollInterval: config.PollInterval,
		Logger:       logger,
		Large:        config.Large,
		OnChange: func(view companion.View) {
			fyne.Do(func() { overlay.changed(view) })
		},
	})
	overlay.sizeButton.OnTapped = overlay.controller.ToggleLarge
	overlay.applyNativeOpacity(config.Opacity)
	overlay.render(overlay.controller.View())
	return overlay
}

// Mount starts the controller. The surface reports itself loaded once the
// first pushed view arrives.
func (overlay *Window) Mount(ctx context.Context) error {
	return overlay.controller.Mount(ctx)
}

// Controller exposes the replica behind the window.
func (overlay *Window) Controller() *companion.Controller {
	return overlay.controller
}

// Move records the requested position. fyne cannot place top-level
// windows, so the hint is kept for logging and the window manager's
// full-screen case is handled by centring.
func (overlay *Window) Move(point window.Point) {
	overlay.mu.Lock()
	overlay.position = point
	overlay.mu.Unlock()
	overlay.logger.WithFields(logrus.Fields{"x": point.X, "y": point.Y}).Debug("companion position hint")
}

// Center places the window in the middle of the display.
func (overlay *Window) Center() {
	fyne.Do(overlay.window.CenterOnScreen)
}

// Resize sets the frame size.
func (overlay *Window) Resize(size window.Size) {
	fyne.Do(func() {
		overlay.window.Resize(fyne.NewSize(size.Width, size.Height))
	})
}

// Show reveals the window.
func (overlay *Window) Show() {
	fyne.Do(overlay.window.Show)
}

// Hide hides the window without releasing it.
func (overlay *Window) Hide() {
	fyne.Do(overlay.window.Hide)
}

// Destroy unmounts the controller and closes the window.
func (overlay *Window) Destroy() {
	overlay.controller.Unmount()
	fyne.Do(overlay.window.Close)
}

// UpdateConfig applies new visuals.
func (overlay *Window) UpdateConfig(config Config) {
	fyne.Do(func() {
		overlay.config = config
		overlay.background.FillColor = color.NRGBA{R: 24, G: 28, B: 33, A: config.Opacity}
		canvas.Refresh(overlay.background)
		overlay.applyNativeOpacity(config.Opacity)
	})
}

func (overlay *Window) submitDistraction() {
	overlay.controller.AddDistraction(overlay.distraction.Text)
	overlay.distraction.SetText("")
}

func (overlay *Window) render(view companion.View) {
	overlay.clockLabel.Text = view.Clock
	overlay.clockLabel.Refresh()
	overlay.summaryLabel.SetText(summary(view))

	if view.Large {
		overlay.sizeButton.SetIcon(theme.MenuDropUpIcon())
		overlay.expanded.Show()
	} else {
		overlay.sizeButton.SetIcon(theme.MenuExpandIcon())
		overlay.expanded.Hide()
	}

	overlay.goalsBox.Objects = overlay.goalsBox.Objects[:0]
	if !view.HasSession {
		overlay.goalsBox.Add(widget.NewLabel("No session yet. Start the timer to add goals."))
	}
	for _, goal := range view.Goals {
		overlay.goalsBox.Add(overlay.goalButton(goal))
	}
	overlay.goalsBox.Refresh()
}

// changed renders a view pushed by the controller. The first one marks the
// surface loaded.
func (overlay *Window) changed(view companion.View) {
	overlay.render(view)
	overlay.loaded.Do(func() {
		if overlay.events.OnLoaded != nil {
			go overlay.events.OnLoaded()
		}
	})
}

func (overlay *Window) goalButton(goal session.Goal) fyne.CanvasObject {
	icon := theme.CheckButtonIcon()
	if goal.Finished {
		icon = theme.CheckButtonCheckedIcon()
	}
	id := goal.ID
	button := widget.NewButtonWithIcon(goal.Text, icon, func() {
		overlay.controller.ToggleGoal(id)
	})
	button.Alignment = widget.ButtonAlignLeading
	button.Importance = widget.LowImportance
	return button
}

func summary(view companion.View) string {
	line := view.Phase
	if line != "" {
		line += " | "
	}
	line += fmt.Sprintf("distractions: %d", view.DistractionCount)
	if view.HasSession {
		line += fmt.Sprintf(" | goals: %d/%d", finishedGoals(view.Goals), len(view.Goals))
	}
	return line
}

func finishedGoals(goals []session.Goal) int {
	count := 0
	for _, goal := range goals {
		if goal.Finished {
			count++
		}
	}
	return count
}

// rowLayout puts the first object at the leading edge, stretches the second
// and packs the rest at the trailing edge.
type rowLayout struct{}

func (layout *rowLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) < 2 {
		return
	}
	pad := theme.Padding()

	lead := objects[0]
	leadSize := lead.MinSize()
	lead.Move(fyne.NewPos(0, (size.Height-leadSize.Height)/2))
	lead.Resize(leadSize)

	x := size.Width
	for index := len(objects) - 1; index >= 2; index-- {
		object := objects[index]
		objectSize := object.MinSize()
		x -= objectSize.Width
		object.Move(fyne.NewPos(x, (size.Height-objectSize.Height)/2))
		object.Resize(objectSize)
		x -= pad
	}

	middle := objects[1]
	middleX := leadSize.Width + pad
	middleWidth := x - middleX
	if middleWidth < 0 {
		middleWidth = 0
	}
	middleSize := middle.MinSize()
	middle.Move(fyne.NewPos(middleX, (size.Height-middleSize.Height)/2))
	middle.Resize(fyne.NewSize(middleWidth, middleSize.Height))
}

func (layout *rowLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	width, height := float32(0), float32(0)
	for index, object := range objects {
		objectSize := object.MinSize()
		if index == 1 {
			// The middle label truncates, so only its height counts.
			objectSize.Width = 0
		}
		width += objectSize.Width
		if objectSize.Height > height {
			height = objectSize.Height
		}
	}
	if len(objects) > 1 {
		width += theme.Padding() * float32(len(objects)-1)
	}
	return fyne.NewSize(width, height)
}
