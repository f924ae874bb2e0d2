package main

import (
	"fmt"
	"path/filepath"

	"daybook/internal/app"
	"daybook/internal/core/model"
	"daybook/internal/logging"
	"daybook/internal/storage"
)

// loadSettings resolves the settings path, reads it and configures logging.
func loadSettings(options *rootOptions) (string, model.Settings, error) {
	path := options.configPath
	if path == "" {
		resolved, err := storage.SettingsPath(app.Name)
		if err != nil {
			return "", model.Settings{}, err
		}
		path = resolved
	}

	settings, err := storage.LoadSettings(path)
	if err != nil {
		return "", model.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	level := settings.LogLevel
	if options.logLevel != "" {
		level = options.logLevel
	}
	logging.Configure(logging.Options{Level: level, Dir: filepath.Join(filepath.Dir(path), "logs")})
	return path, settings, nil
}

func opacityToAlpha(opacity float64) uint8 {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return uint8(opacity * 255)
}
