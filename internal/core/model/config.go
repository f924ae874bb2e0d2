package model

import "time"

// TimerConfig defines the Pomodoro phase lengths.
type TimerConfig struct {
	Work  time.Duration
	Break time.Duration
}

// DefaultTimerConfig returns the stock 25/5 cycle.
func DefaultTimerConfig() TimerConfig {
	return TimerConfig{
		Work:  25 * time.Minute,
		Break: 5 * time.Minute,
	}
}

// Normalized fills zero or negative durations from the defaults.
func (config TimerConfig) Normalized() TimerConfig {
	defaults := DefaultTimerConfig()
	if config.Work <= 0 {
		config.Work = defaults.Work
	}
	if config.Break <= 0 {
		config.Break = defaults.Break
	}
	return config
}

// CompanionConfig contains companion window geometry.
type CompanionConfig struct {
	CompactWidth  float32
	CompactHeight float32
	LargeWidth    float32
	LargeHeight   float32
	Margin        float32
}

// DefaultCompanionConfig mirrors the floating goals window sizes.
func DefaultCompanionConfig() CompanionConfig {
	return CompanionConfig{
		CompactWidth:  300,
		CompactHeight: 80,
		LargeWidth:    300,
		LargeHeight:   260,
		Margin:        20,
	}
}
