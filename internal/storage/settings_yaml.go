package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"daybook/internal/core/model"

	"gopkg.in/yaml.v3"
)

const settingsFileName = "settings.yaml"

const (
	minOpacity = 0.5
	maxOpacity = 1.0
)

type yamlSettings struct {
	WorkMinutes      int         `yaml:"work_minutes"`
	BreakMinutes     int         `yaml:"break_minutes"`
	CompanionOpacity float64     `yaml:"companion_opacity"`
	StartLarge       bool        `yaml:"start_large"`
	LogLevel         string      `yaml:"log_level,omitempty"`
	LaunchAtLogin    bool        `yaml:"launch_at_login"`
	Bridge           *yamlBridge `yaml:"bridge,omitempty"`
}

type yamlBridge struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address,omitempty"`
}

// SettingsPath returns the default settings file for appName.
func SettingsPath(appName string) (string, error) {
	configDir, err := ConfigDir(appName)
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, settingsFileName), nil
}

// ConfigDir returns the per-user directory holding settings, history and logs.
func ConfigDir(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName), nil
}

// LoadSettings reads user preferences from YAML.
// If the file does not exist, default settings are returned.
func LoadSettings(path string) (model.Settings, error) {
	settings := model.DefaultSettings()

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func SaveSettings(path string, settings model.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		WorkMinutes:      int(settings.Work / time.Minute),
		BreakMinutes:     int(settings.Break / time.Minute),
		CompanionOpacity: settings.CompanionOpacity,
		StartLarge:       settings.StartLarge,
		LogLevel:         settings.LogLevel,
		LaunchAtLogin:    settings.LaunchAtLogin,
		Bridge: &yamlBridge{
			Enabled: settings.BridgeEnabled,
			Address: settings.BridgeAddress,
		},
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

func applyYamlSettings(settings *model.Settings, fileData yamlSettings) {
	if fileData.WorkMinutes > 0 {
		settings.Work = time.Duration(fileData.WorkMinutes) * time.Minute
	}
	if fileData.BreakMinutes > 0 {
		settings.Break = time.Duration(fileData.BreakMinutes) * time.Minute
	}

	if fileData.CompanionOpacity >= minOpacity && fileData.CompanionOpacity <= maxOpacity {
		settings.CompanionOpacity = fileData.CompanionOpacity
	}
	if fileData.LogLevel != "" {
		settings.LogLevel = fileData.LogLevel
	}
	if fileData.Bridge != nil {
		settings.BridgeEnabled = fileData.Bridge.Enabled
		settings.BridgeAddress = fileData.Bridge.Address
	}

	settings.StartLarge = fileData.StartLarge
	settings.LaunchAtLogin = fileData.LaunchAtLogin
}
