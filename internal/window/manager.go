// Package window manages the lifecycle of the floating companion surface.
package window

import (
	"context"
	"sync"

	"daybook/internal/bus"
	"daybook/internal/core/model"

	"github.com/sirupsen/logrus"
)

// State is the companion surface lifecycle state.
type State int

const (
	StateAbsent State = iota
	StateCreating
	StateVisible
	StateHidden
	StateDestroyed
)

func (state State) String() string {
	switch state {
	case StateAbsent:
		return "absent"
	case StateCreating:
		return "creating"
	case StateVisible:
		return "visible"
	case StateHidden:
		return "hidden"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Surface is a host window the manager drives.
type Surface interface {
	Move(Point)
	Resize(Size)
	Show()
	Hide()
	Destroy()
}

// SurfaceEvents are callbacks the host fires for a companion surface.
type SurfaceEvents struct {
	OnLoaded       func()
	OnCloseRequest func()
}

// Host is the windowing system boundary.
type Host interface {
	PrimaryBounds() Rect
	PrimaryFullScreen() bool
	DisplayBounds() Rect
	CreateCompanion(size Size, events SurfaceEvents) Surface
}

// Manager owns the companion surface. Close requests hide it; only
// Shutdown destroys it.
type Manager struct {
	mu          sync.Mutex
	host        Host
	config      model.CompanionConfig
	logger      *logrus.Entry
	state       State
	surface     Surface
	large       bool
	hideOnLoad  bool
	loadedEarly bool
	onState     func(State)
}

// New creates a manager with no companion surface.
func New(host Host, config model.CompanionConfig, logger *logrus.Entry) *Manager {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{host: host, config: config, logger: logger}
}

// OnStateChange registers a callback fired after each transition.
func (manager *Manager) OnStateChange(callback func(State)) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.onState = callback
}

// State returns the current lifecycle state.
func (manager *Manager) State() State {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return manager.state
}

// Large reports whether the expanded size is active.
func (manager *Manager) Large() bool {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return manager.large
}

// Show creates the companion on first use and reveals it afterwards.
func (manager *Manager) Show() {
	manager.mu.Lock()
	before := manager.state
	switch manager.state {
	case StateAbsent:
		manager.transitionLocked(StateCreating)
		manager.hideOnLoad = false
		manager.loadedEarly = false
		size := manager.sizeLocked()
		manager.mu.Unlock()

		surface := manager.host.CreateCompanion(size, SurfaceEvents{
			OnLoaded:       manager.Loaded,
			OnCloseRequest: manager.RequestClose,
		})

		manager.mu.Lock()
		if manager.state != StateCreating {
			manager.mu.Unlock()
			surface.Destroy()
			return
		}
		manager.surface = surface
		if manager.loadedEarly {
			manager.finishLoadLocked()
		}
	case StateCreating:
		manager.hideOnLoad = false
	case StateHidden:
		manager.repositionLocked()
		manager.surface.Show()
		manager.transitionLocked(StateVisible)
	case StateVisible, StateDestroyed:
	}
	callback, state := manager.onState, manager.state
	manager.mu.Unlock()
	if state != before {
		notify(callback, state)
	}
}

// Loaded completes creation once the companion content is ready.
func (manager *Manager) Loaded() {
	manager.mu.Lock()
	if manager.state != StateCreating {
		manager.mu.Unlock()
		return
	}
	if manager.surface == nil {
		manager.loadedEarly = true
		manager.mu.Unlock()
		return
	}
	manager.finishLoadLocked()
	callback, state := manager.onState, manager.state
	manager.mu.Unlock()
	notify(callback, state)
}

// Hide hides a visible companion.
func (manager *Manager) Hide() {
	manager.mu.Lock()
	switch manager.state {
	case StateVisible:
		manager.surface.Hide()
		manager.transitionLocked(StateHidden)
		callback := manager.onState
		manager.mu.Unlock()
		notify(callback, StateHidden)
		return
	case StateCreating:
		manager.hideOnLoad = true
	default:
		manager.logger.WithField("state", manager.state).Debug("hide ignored")
	}
	manager.mu.Unlock()
}

// RequestClose handles a user close; the surface is hidden, never destroyed.
func (manager *Manager) RequestClose() {
	manager.Hide()
}

// SetLarge resizes the companion between compact and expanded frames.
func (manager *Manager) SetLarge(large bool) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if manager.large == large {
		return
	}
	manager.large = large
	if manager.surface == nil || manager.state == StateDestroyed {
		return
	}
	manager.surface.Resize(manager.sizeLocked())
	manager.repositionLocked()
}

// PrimaryResized re-anchors the companion after the primary window changes size.
func (manager *Manager) PrimaryResized() {
	manager.Reposition()
}

// FullScreenChanged re-anchors the companion after a full-screen transition.
func (manager *Manager) FullScreenChanged() {
	manager.Reposition()
}

// Reposition recomputes the companion position from the primary bounds.
func (manager *Manager) Reposition() {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if manager.state != StateVisible && manager.state != StateHidden {
		return
	}
	manager.repositionLocked()
}

// Shutdown destroys the companion. Every later call is a no-op.
func (manager *Manager) Shutdown() {
	manager.mu.Lock()
	if manager.state == StateDestroyed {
		manager.mu.Unlock()
		return
	}
	if manager.surface != nil {
		manager.surface.Destroy()
		manager.surface = nil
	}
	manager.transitionLocked(StateDestroyed)
	callback := manager.onState
	manager.mu.Unlock()
	notify(callback, StateDestroyed)
}

// Serve links the show, hide and resize topics to the manager until ctx is done.
func (manager *Manager) Serve(ctx context.Context, subscriber bus.Subscriber) {
	show := subscriber.Subscribe(bus.TopicShowGoalsWindow, 4)
	defer show.Close()
	hide := subscriber.Subscribe(bus.TopicHideGoalsWindow, 4)
	defer hide.Close()
	size := subscriber.Subscribe(bus.TopicGoalsWindowSize, 4)
	defer size.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-show.C():
			if !ok {
				return
			}
			manager.Show()
		case _, ok := <-hide.C():
			if !ok {
				return
			}
			manager.Hide()
		case message, ok := <-size.C():
			if !ok {
				return
			}
			if large, ok := message.Payload.(bool); ok {
				manager.SetLarge(large)
			}
		}
	}
}

func (manager *Manager) finishLoadLocked() {
	manager.surface.Resize(manager.sizeLocked())
	manager.repositionLocked()
	if manager.hideOnLoad {
		manager.transitionLocked(StateHidden)
		return
	}
	manager.surface.Show()
	manager.transitionLocked(StateVisible)
}

func (manager *Manager) repositionLocked() {
	if manager.surface == nil {
		return
	}
	position := Placement(
		manager.host.PrimaryBounds(),
		manager.host.DisplayBounds(),
		manager.host.PrimaryFullScreen(),
		manager.sizeLocked(),
		manager.config.Margin,
	)
	manager.surface.Move(position)
}

func (manager *Manager) sizeLocked() Size {
	if manager.large {
		return Size{Width: manager.config.LargeWidth, Height: manager.config.LargeHeight}
	}
	return Size{Width: manager.config.CompactWidth, Height: manager.config.CompactHeight}
}

func (manager *Manager) transitionLocked(next State) {
	if manager.state == next {
		return
	}
	manager.logger.WithFields(logrus.Fields{
		"from": manager.state,
		"to":   next,
	}).Debug("companion window transition")
	manager.state = next
}

func notify(callback func(State), state State) {
	if callback != nil {
		callback(state)
	}
}
