package timer

import (
	"context"
	"testing"
	"time"

	"daybook/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(work, brk time.Duration) *Engine {
	return New(model.TimerConfig{Work: work, Break: brk}, Config{})
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case event := <-ch:
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestNewStartsInStoppedWorkPhase(t *testing.T) {
	engine := newTestEngine(1500*time.Second, 300*time.Second)

	state := engine.State()
	assert.Equal(t, PhaseWork, state.Phase)
	assert.Equal(t, 1500*time.Second, state.Remaining)
	assert.False(t, state.Running)
	assert.False(t, state.SessionInProgress)
}

func TestStartIsNoopWhenRunning(t *testing.T) {
	engine := newTestEngine(time.Minute, time.Minute)
	events := engine.Subscribe(10)

	require.True(t, engine.Start())
	require.False(t, engine.Start())

	assert.Len(t, drain(events), 1)
	assert.True(t, engine.State().Running)
	assert.True(t, engine.State().SessionInProgress)
}

func TestStopPreservesRemainingAndSession(t *testing.T) {
	engine := newTestEngine(time.Minute, time.Minute)
	engine.Start()
	engine.Tick()
	engine.Tick()
	engine.Stop()

	state := engine.State()
	assert.False(t, state.Running)
	assert.True(t, state.SessionInProgress)
	assert.Equal(t, 58*time.Second, state.Remaining)

	engine.Tick()
	assert.Equal(t, 58*time.Second, engine.State().Remaining, "tick while stopped must not mutate")
}

func TestTickStrictlyDecreasesThenRollsOver(t *testing.T) {
	engine := newTestEngine(5*time.Second, 3*time.Second)
	engine.Start()

	previous := engine.State().Remaining
	for i := 0; i < 4; i++ {
		engine.Tick()
		current := engine.State().Remaining
		require.Less(t, current, previous)
		require.Equal(t, PhaseWork, engine.State().Phase)
		previous = current
	}

	engine.Tick()
	state := engine.State()
	assert.Equal(t, PhaseBreak, state.Phase)
	assert.Equal(t, 3*time.Second, state.Remaining)
	assert.False(t, state.Running)
	assert.True(t, state.SessionInProgress)
}

func TestWorkToBreakScenario(t *testing.T) {
	engine := newTestEngine(1500*time.Second, 300*time.Second)
	engine.Start()
	for i := 0; i < 1500; i++ {
		engine.Tick()
	}

	state := engine.State()
	assert.Equal(t, PhaseBreak, state.Phase)
	assert.Equal(t, Clock{Minutes: 5, Seconds: 0}, state.Clock())
	assert.False(t, state.Running)
}

func TestRolloverEmitsSessionCompletedOnlyAfterWork(t *testing.T) {
	engine := newTestEngine(2*time.Second, 2*time.Second)
	events := engine.Subscribe(20)

	engine.Start()
	engine.Tick()
	engine.Tick()

	workEvents := drain(events)
	types := eventTypes(workEvents)
	assert.Equal(t, []EventType{EventStateChange, EventTick, EventPhaseCompleted, EventSessionCompleted}, types)
	assert.Equal(t, PhaseWork, workEvents[2].Completed)

	engine.Start()
	engine.Tick()
	engine.Tick()

	breakEvents := drain(events)
	assert.Equal(t, []EventType{EventStateChange, EventTick, EventPhaseCompleted}, eventTypes(breakEvents))
	assert.Equal(t, PhaseBreak, breakEvents[2].Completed)
	assert.Equal(t, PhaseWork, engine.State().Phase)
}

func TestResetIsIdempotent(t *testing.T) {
	engine := newTestEngine(3*time.Second, 2*time.Second)
	engine.Start()
	for i := 0; i < 3; i++ {
		engine.Tick()
	}
	require.Equal(t, PhaseBreak, engine.State().Phase)

	engine.Reset()
	once := engine.State()
	engine.Reset()
	twice := engine.State()

	assert.Equal(t, once, twice)
	assert.Equal(t, State{Phase: PhaseWork, Remaining: 3 * time.Second}, once)
}

func TestUpdateConfigWaitsForIdleSession(t *testing.T) {
	engine := newTestEngine(10*time.Second, 5*time.Second)
	engine.UpdateConfig(model.TimerConfig{Work: 20 * time.Second, Break: 5 * time.Second})
	assert.Equal(t, 20*time.Second, engine.State().Remaining)

	engine.Start()
	engine.Tick()
	engine.UpdateConfig(model.TimerConfig{Work: 30 * time.Second, Break: 7 * time.Second})
	assert.Equal(t, 19*time.Second, engine.State().Remaining)

	engine.Reset()
	assert.Equal(t, 30*time.Second, engine.State().Remaining)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	engine := New(model.TimerConfig{Work: time.Minute, Break: time.Minute}, Config{TickInterval: 5 * time.Millisecond})
	events := engine.Subscribe(100)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	engine.Start()
	require.Eventually(t, func() bool {
		return engine.State().Remaining <= 58*time.Second
	}, time.Second, time.Millisecond)

	cancel()
	<-done
	engine.Close()

	_, open := <-drainClosed(events)
	assert.False(t, open)
}

func TestClockString(t *testing.T) {
	assert.Equal(t, "25:00", ClockOf(25*time.Minute).String())
	assert.Equal(t, "04:09", ClockOf(4*time.Minute+9*time.Second+500*time.Millisecond).String())
	assert.Equal(t, "00:00", ClockOf(-time.Second).String())
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "", State{Phase: PhaseWork}.StatusLabel())
	assert.Equal(t, "Work", State{Phase: PhaseWork, Running: true}.StatusLabel())
	assert.Equal(t, "Break", State{Phase: PhaseBreak, Running: true}.StatusLabel())
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	return types
}

// drainClosed empties a closed channel and hands it back for the final receive.
func drainClosed(ch <-chan Event) <-chan Event {
	for range ch {
	}
	return ch
}

func TestUpdateVersionsIncrease(t *testing.T) {
	engine := newTestEngine(3*time.Second, time.Second)
	initial := engine.Update()
	assert.Equal(t, Update{Minutes: 0, Seconds: 3, Phase: PhaseWork}, initial)

	events := engine.Subscribe(10)
	engine.Start()
	engine.Tick()

	got := drain(events)
	require.Len(t, got, 2)
	assert.Less(t, got[0].Version, got[1].Version)
	assert.Equal(t, Update{Version: got[1].Version, Minutes: 0, Seconds: 2, Phase: PhaseWork, Running: true}, got[1].Update())
	assert.Equal(t, got[1].Update(), engine.Update())
}
