package main

import (
	"context"
	"errors"
	"time"

	"daybook/internal/app"
	"daybook/internal/bridge"
	"daybook/internal/bus"
	"daybook/internal/core/model"
	"daybook/internal/core/timer"
	"daybook/internal/logging"
	"daybook/internal/platform"
	"daybook/internal/storage"
	"daybook/internal/ui/mainwindow"
	"daybook/internal/ui/overlay"
	"daybook/internal/ui/preferences"
	"daybook/internal/ui/tray"
	"daybook/internal/window"
	"daybook/resources"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/systray"
	"github.com/sirupsen/logrus"
)

const settingsDebounce = 300 * time.Millisecond

func runDesktop(ctx context.Context, options *rootOptions) error {
	settingsPath, settings, err := loadSettings(options)
	if err != nil {
		return err
	}
	defer logging.Close()
	logger := logging.NewLogger("main")

	guard, err := platform.AcquireSingleInstance(app.Name, settings.BridgeAddress)
	if errors.Is(err, platform.ErrAlreadyRunning) {
		logger.WithError(err).Info("another instance is running")
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = guard.Release()
	}()

	application := app.New(app.Options{
		Settings:     settings,
		SettingsPath: settingsPath,
		History:      openHistory(logger),
		Timer:        timer.Config{TickInterval: time.Second},
		Logger:       logging.NewLogger("app"),
	})

	ctx, cancel := context.WithCancel(app.WithApp(ctx, application))
	defer cancel()

	fyneApp := fyneapp.NewWithID("app.daybook")
	fyneApp.SetIcon(resources.MustIcon(resources.IconIdle))

	host := overlay.NewHost(ctx, fyneApp, application.Bus, companionConfig(settings), logging.NewLogger("companion"))
	manager := window.New(host, model.DefaultCompanionConfig(), logging.NewLogger("window"))
	manager.SetLarge(settings.StartLarge)
	application.AttachWindows(manager)

	primary := mainwindow.New(ctx, fyneApp, mainwindow.Options{
		OnResize: func(size fyne.Size) {
			host.TrackPrimary(size)
			manager.PrimaryResized()
		},
		OnFullScreen: func(fullScreen bool) {
			host.SetFullScreen(fullScreen)
			manager.FullScreenChanged()
		},
		Logger: logging.NewLogger("mainwindow"),
	})

	prefs := preferences.New(fyneApp, settings, func(updated model.Settings) {
		previous := application.Settings()
		if err := application.SaveSettings(updated); err != nil {
			logger.WithError(err).Error("save settings")
			dialog.ShowError(err, primary.Window())
		}
		host.UpdateConfig(companionConfig(updated))
		if updated.LaunchAtLogin != previous.LaunchAtLogin {
			setLaunchAtLogin(updated.LaunchAtLogin, logger)
		}
	})

	if desktopApp, ok := fyneApp.(desktop.App); ok {
		trayManager := tray.New(desktopApp, app.Name, tray.Icons{
			Idle:    resources.MustIcon(resources.IconIdle),
			Running: resources.MustIcon(resources.IconRunning),
		}, systray.SetTitle, tray.Callbacks{
			OnToggleTimer: application.ToggleTimer,
			OnReset:       application.ResetTimer,
			OnShowMain:    primary.Show,
			OnShowGoals:   func() { application.Bus.Publish(bus.TopicShowGoalsWindow, nil) },
			OnPreferences: prefs.Show,
			OnQuit:        cancel,
		})
		application.OnTrayStatus(func(status app.TrayStatus) {
			fyne.Do(func() { trayManager.SetStatus(status.Clock, trayLabel(status), status.Text != "") })
		})
		// The tray keeps the process alive; closing the window only hides it.
		primary.Window().SetCloseIntercept(primary.Window().Hide)
	} else {
		logger.Warn("system tray unsupported; closing the main window quits")
		primary.Window().SetMaster()
	}

	if err := application.Start(ctx); err != nil {
		return err
	}
	defer application.Shutdown()

	if settings.BridgeEnabled {
		server := bridge.NewServer(application.Bus, logging.NewLogger("bridge"))
		go func() {
			if err := server.Serve(ctx, guard.Listener()); err != nil {
				logger.WithError(err).Error("bridge stopped")
			}
		}()
		logger.WithField("address", guard.Address()).Info("companion bridge listening")
	}

	watcher, err := storage.NewSettingsWatcher(settingsPath, settingsDebounce, logging.NewLogger("settings"), func(reloaded model.Settings) {
		application.ApplySettings(reloaded)
		host.UpdateConfig(companionConfig(reloaded))
		fyne.Do(func() { prefs.UpdateSettings(reloaded) })
	})
	if err != nil {
		logger.WithError(err).Warn("settings hot reload disabled")
	} else {
		defer func() {
			_ = watcher.Close()
		}()
		go watcher.Start(ctx)
	}

	go primary.Run(ctx)
	go func() {
		// Shut down while the fyne loop still runs so companion teardown can
		// reach the UI goroutine.
		<-ctx.Done()
		application.Shutdown()
		fyne.Do(fyneApp.Quit)
	}()

	primary.Show()
	fyneApp.Run()
	host.Stop()
	cancel()
	return nil
}

// openHistory returns nil when the database cannot be opened; sessions
// then only live in memory.
func openHistory(logger *logrus.Entry) app.HistoryStore {
	path, err := storage.HistoryPath(app.Name)
	if err == nil {
		var history *storage.SQLiteHistory
		if history, err = storage.OpenHistory(path); err == nil {
			return history
		}
	}
	logger.WithError(err).Warn("session history disabled")
	return nil
}

func setLaunchAtLogin(enabled bool, logger *logrus.Entry) {
	item, err := platform.NewLoginItem(app.Name)
	if err == nil {
		err = item.Set(enabled)
	}
	if err != nil {
		logger.WithError(err).WithField("enabled", enabled).Warn("launch at login")
	}
}

func companionConfig(settings model.Settings) overlay.Config {
	return overlay.Config{
		Opacity:      opacityToAlpha(settings.CompanionOpacity),
		Large:        settings.StartLarge,
		PollInterval: time.Second,
	}
}

func trayLabel(status app.TrayStatus) string {
	if status.Text == "" {
		return ""
	}
	return status.Label()
}
