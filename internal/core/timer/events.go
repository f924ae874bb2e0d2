package timer

import (
	"fmt"
	"time"
)

// Phase is the current half of the work/break cycle.
type Phase string

const (
	PhaseWork  Phase = "work"
	PhaseBreak Phase = "break"
)

// Label returns the human-facing phase name used by the tray.
func (phase Phase) Label() string {
	switch phase {
	case PhaseWork:
		return "Work"
	case PhaseBreak:
		return "Break"
	default:
		return ""
	}
}

// Clock is the minutes/seconds form of the remaining time.
type Clock struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// ClockOf converts a duration to a clock, truncating sub-second parts.
func ClockOf(remaining time.Duration) Clock {
	if remaining < 0 {
		remaining = 0
	}
	total := int(remaining / time.Second)
	return Clock{Minutes: total / 60, Seconds: total % 60}
}

// String formats the clock as MM:SS.
func (clock Clock) String() string {
	return fmt.Sprintf("%02d:%02d", clock.Minutes, clock.Seconds)
}

// State is a copy of the engine's countdown.
type State struct {
	Phase             Phase
	Remaining         time.Duration
	Running           bool
	SessionInProgress bool
}

// Clock returns the remaining time as minutes and seconds.
func (state State) Clock() Clock {
	return ClockOf(state.Remaining)
}

// StatusLabel is "Work" or "Break" while running and empty otherwise.
func (state State) StatusLabel() string {
	if !state.Running {
		return ""
	}
	return state.Phase.Label()
}

// EventType defines the type of engine event.
type EventType string

const (
	EventStateChange      EventType = "state_change"
	EventTick             EventType = "tick"
	EventPhaseCompleted   EventType = "phase_completed"
	EventSessionCompleted EventType = "session_completed"
)

// Update is the timer-state-update payload.
type Update struct {
	// Version increases with every engine mutation.
	Version uint64 `json:"version"`
	Minutes int    `json:"minutes"`
	Seconds int    `json:"seconds"`
	Phase   Phase  `json:"phase"`
	Running bool   `json:"running"`
}

// Clock returns the minutes and seconds of the update.
func (update Update) Clock() Clock {
	return Clock{Minutes: update.Minutes, Seconds: update.Seconds}
}

// Event represents an engine update for observers.
type Event struct {
	Type    EventType
	Version uint64
	State   State
	// Completed is the phase that just ran out. Set on rollover events only.
	Completed Phase
	At        time.Time
}

// Update converts the event to its wire payload.
func (event Event) Update() Update {
	return newUpdate(event.Version, event.State)
}

func newUpdate(version uint64, state State) Update {
	clock := state.Clock()
	return Update{
		Version: version,
		Minutes: clock.Minutes,
		Seconds: clock.Seconds,
		Phase:   state.Phase,
		Running: state.Running,
	}
}
