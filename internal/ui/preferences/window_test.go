package preferences

import (
	"testing"
	"time"

	"daybook/internal/core/model"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveReadsForm(t *testing.T) {
	var saved []model.Settings
	prefs := New(test.NewApp(), model.DefaultSettings(), func(settings model.Settings) {
		saved = append(saved, settings)
	})

	prefs.workMinutes.SetText(" 50 ")
	prefs.breakMinutes.SetText("nope")
	prefs.opacity.SetValue(0.6)
	prefs.launchAtLogin.SetChecked(true)
	prefs.logLevel.SetSelected("debug")
	prefs.handleSave()

	require.Len(t, saved, 1)
	assert.Equal(t, 50*time.Minute, saved[0].Work)
	assert.Equal(t, 5*time.Minute, saved[0].Break, "invalid input keeps the old value")
	assert.InDelta(t, 0.6, saved[0].CompanionOpacity, 0.001)
	assert.True(t, saved[0].LaunchAtLogin)
	assert.Equal(t, "debug", saved[0].LogLevel)
}

func TestUpdateSettingsRefillsForm(t *testing.T) {
	prefs := New(test.NewApp(), model.DefaultSettings(), nil)
	settings := model.DefaultSettings()
	settings.Work = 40 * time.Minute
	settings.BridgeEnabled = false

	prefs.UpdateSettings(settings)
	assert.Equal(t, "40", prefs.workMinutes.Text)
	assert.False(t, prefs.bridge.Checked)
	assert.Equal(t, "90%", prefs.opacityLabel.Text)
	assert.Equal(t, settings, prefs.Settings())
}
