package model

import "time"

// Settings defines editable user preferences.
type Settings struct {
	Work  time.Duration
	Break time.Duration

	CompanionOpacity float64
	StartLarge       bool

	LogLevel      string
	LaunchAtLogin bool

	BridgeEnabled bool
	// BridgeAddress overrides the per-user single-instance address when set.
	BridgeAddress string
}

// DefaultSettings returns default settings for Daybook.
func DefaultSettings() Settings {
	timer := DefaultTimerConfig()
	return Settings{
		Work:             timer.Work,
		Break:            timer.Break,
		CompanionOpacity: 0.9,
		StartLarge:       false,
		LogLevel:         "info",
		BridgeEnabled:    true,
	}
}

// TimerConfig converts settings to the timer engine configuration.
func (settings Settings) TimerConfig() TimerConfig {
	return TimerConfig{Work: settings.Work, Break: settings.Break}.Normalized()
}
