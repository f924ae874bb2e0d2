// Package tray drives the system tray menu and its timer readout.
package tray

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnToggleTimer func()
	OnReset       func()
	OnShowMain    func()
	OnShowGoals   func()
	OnPreferences func()
	OnQuit        func()
}

// Title sets the text drawn next to the tray icon. Platforms without tray
// text get a nil setter.
type Title func(string)

// Icons are swapped by running state.
type Icons struct {
	Idle    fyne.Resource
	Running fyne.Resource
}

// Manager handles system tray state. Menu mutation must happen on the fyne
// main goroutine.
type Manager struct {
	app        desktop.App
	title      Title
	icons      Icons
	callbacks  Callbacks
	statusItem *fyne.MenuItem
	toggleItem *fyne.MenuItem
	menu       *fyne.Menu
	running    bool
	status     string
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, name string, icons Icons, title Title, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		title:     title,
		icons:     icons,
		callbacks: callbacks,
	}

	manager.statusItem = fyne.NewMenuItem("Stopped", nil)
	manager.statusItem.Disabled = true
	manager.toggleItem = fyne.NewMenuItem("Start", call(&manager.callbacks.OnToggleTimer))

	manager.menu = fyne.NewMenu(name,
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		manager.toggleItem,
		fyne.NewMenuItem("Reset", call(&manager.callbacks.OnReset)),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Open "+name, call(&manager.callbacks.OnShowMain)),
		fyne.NewMenuItem("Show goals", call(&manager.callbacks.OnShowGoals)),
		fyne.NewMenuItem("Preferences", call(&manager.callbacks.OnPreferences)),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", call(&manager.callbacks.OnQuit)),
	)
	if app != nil {
		app.SetSystemTrayMenu(manager.menu)
		if icons.Idle != nil {
			app.SetSystemTrayIcon(icons.Idle)
		}
	}
	return manager
}

// SetStatus updates the readout. clock goes next to the icon and label is
// the disabled status row, e.g. "Work 24:59".
func (manager *Manager) SetStatus(clock, label string, running bool) {
	if manager.title != nil {
		manager.title(clock)
	}
	manager.status = label
	if label == "" {
		label = "Stopped"
	}
	manager.statusItem.Label = label

	if running != manager.running && manager.app != nil {
		icon := manager.icons.Idle
		if running {
			icon = manager.icons.Running
		}
		if icon != nil {
			manager.app.SetSystemTrayIcon(icon)
		}
	}
	manager.running = running
	if running {
		manager.toggleItem.Label = "Stop"
	} else {
		manager.toggleItem.Label = "Start"
	}
	manager.menu.Refresh()
}

// Status returns the last status label.
func (manager *Manager) Status() string {
	return manager.status
}

// Running reports the last running flag.
func (manager *Manager) Running() bool {
	return manager.running
}

func call(fn *func()) func() {
	return func() {
		if *fn != nil {
			(*fn)()
		}
	}
}
