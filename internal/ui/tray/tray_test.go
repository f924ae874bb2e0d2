package tray

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func TestSetStatusUpdatesTitleAndToggle(t *testing.T) {
	test.NewApp()
	var titles []string
	manager := New(nil, "Daybook", Icons{}, func(text string) { titles = append(titles, text) }, Callbacks{})

	manager.SetStatus("24:59", "Work 24:59", true)
	assert.Equal(t, "Work 24:59", manager.statusItem.Label)
	assert.Equal(t, "Stop", manager.toggleItem.Label)
	assert.True(t, manager.Running())

	manager.SetStatus("24:59", "", false)
	assert.Equal(t, "Stopped", manager.statusItem.Label)
	assert.Equal(t, "Start", manager.toggleItem.Label)
	assert.Empty(t, manager.Status())
	assert.Equal(t, []string{"24:59", "24:59"}, titles)
}

func TestMenuItemsRunCallbacks(t *testing.T) {
	test.NewApp()
	toggled, quit := 0, 0
	manager := New(nil, "Daybook", Icons{}, nil, Callbacks{
		OnToggleTimer: func() { toggled++ },
		OnQuit:        func() { quit++ },
	})

	manager.toggleItem.Action()
	for _, item := range manager.menu.Items {
		if item.Label == "Quit" {
			item.Action()
		}
		if item.Label == "Reset" {
			item.Action()
		}
	}
	assert.Equal(t, 1, toggled)
	assert.Equal(t, 1, quit)
}
