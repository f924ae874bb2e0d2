// Package preferences is the settings window.
package preferences

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"daybook/internal/core/model"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Window handles the preferences UI.
type Window struct {
	window        fyne.Window
	settings      model.Settings
	onSave        func(model.Settings)
	workMinutes   *widget.Entry
	breakMinutes  *widget.Entry
	opacity       *widget.Slider
	opacityLabel  *widget.Label
	startLarge    *widget.Check
	launchAtLogin *widget.Check
	bridge        *widget.Check
	logLevel      *widget.Select
}

// New creates a preferences window. onSave receives the edited settings.
func New(app fyne.App, settings model.Settings, onSave func(model.Settings)) *Window {
	window := app.NewWindow("Daybook Settings")

	prefs := &Window{
		window:        window,
		onSave:        onSave,
		workMinutes:   widget.NewEntry(),
		breakMinutes:  widget.NewEntry(),
		opacity:       widget.NewSlider(0.5, 1.0),
		opacityLabel:  widget.NewLabel(""),
		startLarge:    widget.NewCheck("Open goals window expanded", nil),
		launchAtLogin: widget.NewCheck("Launch at login", nil),
		bridge:        widget.NewCheck("Allow companion connections (restart to apply)", nil),
		logLevel:      widget.NewSelect(logLevels, nil),
	}
	prefs.opacity.Step = 0.05
	prefs.opacity.OnChanged = prefs.showOpacity

	form := container.NewVBox(
		widget.NewLabelWithStyle("Timer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Work"), prefs.workMinutes, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Break"), prefs.breakMinutes, widget.NewLabel("min")),
		widget.NewLabelWithStyle("Goals window", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, widget.NewLabel("Opacity"), prefs.opacityLabel, prefs.opacity),
		prefs.startLarge,
		widget.NewLabelWithStyle("System", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.launchAtLogin,
		prefs.bridge,
		container.NewHBox(widget.NewLabel("Log level"), prefs.logLevel),
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	saveButton.Importance = widget.HighImportance
	cancelButton := widget.NewButton("Cancel", window.Hide)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(420, 420))
	window.SetCloseIntercept(window.Hide)

	prefs.UpdateSettings(settings)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings model.Settings) {
	prefs.settings = settings
	prefs.workMinutes.SetText(fmt.Sprintf("%d", int(settings.Work.Minutes())))
	prefs.breakMinutes.SetText(fmt.Sprintf("%d", int(settings.Break.Minutes())))
	prefs.opacity.SetValue(settings.CompanionOpacity)
	prefs.showOpacity(settings.CompanionOpacity)
	prefs.startLarge.SetChecked(settings.StartLarge)
	prefs.launchAtLogin.SetChecked(settings.LaunchAtLogin)
	prefs.bridge.SetChecked(settings.BridgeEnabled)
	prefs.logLevel.SetSelected(strings.ToLower(settings.LogLevel))
}

// Settings returns the settings the form would save.
func (prefs *Window) Settings() model.Settings {
	settings := prefs.settings
	if minutes, ok := parsePositiveInt(prefs.workMinutes.Text); ok {
		settings.Work = time.Duration(minutes) * time.Minute
	}
	if minutes, ok := parsePositiveInt(prefs.breakMinutes.Text); ok {
		settings.Break = time.Duration(minutes) * time.Minute
	}
	settings.CompanionOpacity = math.Round(prefs.opacity.Value*100) / 100
	settings.StartLarge = prefs.startLarge.Checked
	settings.LaunchAtLogin = prefs.launchAtLogin.Checked
	settings.BridgeEnabled = prefs.bridge.Checked
	if prefs.logLevel.Selected != "" {
		settings.LogLevel = prefs.logLevel.Selected
	}
	return settings
}

func (prefs *Window) handleSave() {
	prefs.settings = prefs.Settings()
	if prefs.onSave != nil {
		prefs.onSave(prefs.settings)
	}
	prefs.window.Hide()
}

func (prefs *Window) showOpacity(value float64) {
	prefs.opacityLabel.SetText(fmt.Sprintf("%d%%", int(value*100+0.5)))
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
