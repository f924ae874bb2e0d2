package timer

import (
	"context"
	"sync"
	"time"

	"daybook/internal/core/model"
)

const step = time.Second

// Config contains runtime options for the engine.
type Config struct {
	TickInterval time.Duration
	Now          func() time.Time
}

// Engine is the single owner of the countdown state.
type Engine struct {
	mu      sync.Mutex
	config  model.TimerConfig
	options Config
	state   State
	version uint64
	events  []chan Event
	rearm   chan struct{}
	closed  bool
}

// New creates an engine in the Work phase with a full work interval.
func New(config model.TimerConfig, options Config) *Engine {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	engine := &Engine{
		config:  config.Normalized(),
		options: options,
		rearm:   make(chan struct{}, 1),
	}
	engine.state = State{Phase: PhaseWork, Remaining: engine.config.Work}
	return engine
}

// Subscribe registers a new observer channel.
func (engine *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		close(ch)
		return ch
	}
	engine.events = append(engine.events, ch)
	return ch
}

// State returns a copy of the current countdown.
func (engine *Engine) State() State {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.state
}

// Update returns the current state as a timer-state-update payload.
func (engine *Engine) Update() Update {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return newUpdate(engine.version, engine.state)
}

// Config returns the active phase durations.
func (engine *Engine) Config() model.TimerConfig {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.config
}

// Start begins counting down. It reports false when already running.
func (engine *Engine) Start() bool {
	engine.mu.Lock()
	if engine.state.Running {
		engine.mu.Unlock()
		return false
	}
	engine.state.Running = true
	engine.state.SessionInProgress = true
	engine.emitLocked(EventStateChange, "")
	engine.mu.Unlock()

	select {
	case engine.rearm <- struct{}{}:
	default:
	}
	return true
}

// Stop pauses the countdown, keeping the remaining time.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if !engine.state.Running {
		return
	}
	engine.state.Running = false
	engine.emitLocked(EventStateChange, "")
}

// Reset returns to a stopped Work phase with no session in progress.
func (engine *Engine) Reset() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.state = State{Phase: PhaseWork, Remaining: engine.config.Work}
	engine.emitLocked(EventStateChange, "")
}

// UpdateConfig swaps the phase durations. The countdown is only rewritten
// when no session is in progress; otherwise the change lands at the next
// rollover or reset.
func (engine *Engine) UpdateConfig(config model.TimerConfig) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.config = config.Normalized()
	if engine.state.SessionInProgress {
		return
	}
	engine.state.Remaining = engine.durationLocked(engine.state.Phase)
	engine.emitLocked(EventStateChange, "")
}

// Tick advances the countdown by one second while running.
func (engine *Engine) Tick() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if !engine.state.Running {
		return
	}

	engine.state.Remaining -= step
	if engine.state.Remaining > 0 {
		engine.emitLocked(EventTick, "")
		return
	}

	completed := engine.state.Phase
	next := PhaseBreak
	if completed == PhaseBreak {
		next = PhaseWork
	}
	engine.state.Phase = next
	engine.state.Remaining = engine.durationLocked(next)
	engine.state.Running = false

	engine.emitLocked(EventPhaseCompleted, completed)
	if completed == PhaseWork {
		engine.emitLocked(EventSessionCompleted, completed)
	}
}

// Run drives Tick from a ticker until ctx is done. Start re-arms the
// ticker so the first decrement lands one full interval later.
func (engine *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(engine.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-engine.rearm:
			ticker.Reset(engine.options.TickInterval)
		case <-ticker.C:
			engine.Tick()
		}
	}
}

// Close stops event delivery and closes observer channels.
func (engine *Engine) Close() {
	engine.mu.Lock()
	if engine.closed {
		engine.mu.Unlock()
		return
	}
	engine.closed = true
	events := engine.events
	engine.events = nil
	engine.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

func (engine *Engine) durationLocked(phase Phase) time.Duration {
	if phase == PhaseBreak {
		return engine.config.Break
	}
	return engine.config.Work
}

func (engine *Engine) emitLocked(eventType EventType, completed Phase) {
	engine.version++
	event := Event{
		Type:      eventType,
		Version:   engine.version,
		State:     engine.state,
		Completed: completed,
		At:        engine.options.Now(),
	}
	for _, ch := range engine.events {
		select {
		case ch <- event:
		default:
		}
	}
}
