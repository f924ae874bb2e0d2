// Package companion holds the read replica behind the floating goals window.
//
// The controller never mutates session state. User actions become
// update-goals-state intents and the view only changes when the owner's
// next snapshot arrives. Pushes are reconciled with a one-second pull of
// the timer state so a missed push is repaired on the next poll.
package companion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"daybook/internal/bus"
	"daybook/internal/core/session"
	"daybook/internal/core/timer"

	"github.com/sirupsen/logrus"
)

// ErrMounted is returned when Mount is called twice.
var ErrMounted = errors.New("companion already mounted")

const defaultPollInterval = time.Second

// Bus is what the controller needs from the broadcaster.
type Bus interface {
	bus.Publisher
	bus.Subscriber
}

// View is what a companion surface renders.
type View struct {
	Large            bool
	Clock            string
	Phase            string
	Running          bool
	HasSession       bool
	SessionID        string
	NoteID           string
	Goals            []session.Goal
	DistractionCount int
}

// CompactLine renders the single-row view.
func (view View) CompactLine() string {
	line := view.Clock
	if view.Phase != "" {
		line += " " + view.Phase
	}
	line += fmt.Sprintf(" | distractions: %d", view.DistractionCount)
	if view.HasSession {
		line += fmt.Sprintf(" | goals: %d/%d", finished(view.Goals), len(view.Goals))
	}
	return line
}

// Options configures a Controller.
type Options struct {
	PollInterval time.Duration
	Logger       *logrus.Entry
	// OnChange runs after every applied update, outside the controller lock.
	OnChange func(View)
	// Large is the initial expanded flag.
	Large bool
}

// Controller keeps the companion's replica of session and timer state.
type Controller struct {
	mu       sync.Mutex
	bus      Bus
	options  Options
	snapshot session.Snapshot
	goals    []session.Goal
	timer    timer.Update
	hasTimer bool
	large    bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates an unmounted controller.
func New(b Bus, options Options) *Controller {
	if options.PollInterval <= 0 {
		options.PollInterval = defaultPollInterval
	}
	if options.Logger == nil {
		options.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{
		bus:     b,
		options: options,
		goals:   []session.Goal{},
		large:   options.Large,
	}
}

// Mount subscribes to state pushes, requests the current state and starts
// the timer poll. Everything is torn down when ctx ends or Unmount runs.
func (controller *Controller) Mount(ctx context.Context) error {
	controller.mu.Lock()
	if controller.cancel != nil {
		controller.mu.Unlock()
		return ErrMounted
	}
	ctx, cancel := context.WithCancel(ctx)
	controller.cancel = cancel
	controller.done = make(chan struct{})
	done := controller.done
	controller.mu.Unlock()

	goalsSub := controller.bus.Subscribe(bus.TopicGoalsState, 16)
	timerSub := controller.bus.Subscribe(bus.TopicTimerState, 16)
	sizeSub := controller.bus.Subscribe(bus.TopicGoalsWindowSize, 4)

	controller.bus.Publish(bus.TopicRequestGoalsState, nil)
	controller.bus.Publish(bus.TopicRequestTimerState, nil)

	go controller.loop(ctx, done, goalsSub, timerSub, sizeSub)
	return nil
}

// Unmount stops the poll and closes subscriptions. It waits for the loop
// to exit so no tick reaches a torn-down surface.
func (controller *Controller) Unmount() {
	controller.mu.Lock()
	cancel, done := controller.cancel, controller.done
	controller.cancel = nil
	controller.done = nil
	controller.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// View returns the current render model.
func (controller *Controller) View() View {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.viewLocked()
}

// ToggleGoal asks the owner to flip goal id.
func (controller *Controller) ToggleGoal(id string) {
	controller.bus.Publish(bus.TopicUpdateGoalsState, session.Command{
		Type:   session.CommandChangeGoalStatus,
		GoalID: id,
	})
}

// AddDistraction asks the owner to record a distraction.
func (controller *Controller) AddDistraction(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	controller.bus.Publish(bus.TopicUpdateGoalsState, session.Command{
		Type: session.CommandAddDistraction,
		Text: text,
	})
}

// SetLarge switches between compact and expanded views and asks the host
// to resize the window frame.
func (controller *Controller) SetLarge(large bool) {
	controller.applySize(large)
	controller.bus.Publish(bus.TopicGoalsWindowSize, large)
}

// ToggleLarge flips the expanded flag.
func (controller *Controller) ToggleLarge() {
	controller.SetLarge(!controller.View().Large)
}

func (controller *Controller) loop(ctx context.Context, done chan struct{}, goalsSub, timerSub, sizeSub *bus.Subscription) {
	defer close(done)
	defer goalsSub.Close()
	defer timerSub.Close()
	defer sizeSub.Close()

	poll := time.NewTicker(controller.options.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			controller.bus.Publish(bus.TopicRequestTimerState, nil)
		case message, ok := <-goalsSub.C():
			if !ok {
				return
			}
			controller.handleGoals(message)
		case message, ok := <-timerSub.C():
			if !ok {
				return
			}
			controller.handleTimer(message)
		case message, ok := <-sizeSub.C():
			if !ok {
				return
			}
			if large, ok := message.Payload.(bool); ok {
				controller.applySize(large)
			}
		}
	}
}

func (controller *Controller) handleGoals(message bus.Message) {
	snapshot, ok := message.Payload.(session.Snapshot)
	if !ok {
		controller.options.Logger.Warnf("ignoring goals payload of type %T", message.Payload)
		return
	}

	controller.mu.Lock()
	if snapshot.Version < controller.snapshot.Version {
		controller.mu.Unlock()
		controller.options.Logger.WithFields(logrus.Fields{
			"got":  snapshot.Version,
			"have": controller.snapshot.Version,
		}).Debug("stale goals snapshot dropped")
		return
	}
	controller.snapshot = snapshot
	if snapshot.Current != nil {
		controller.goals = dedupeGoals(snapshot.Current.Goals, controller.options.Logger)
	} else {
		controller.goals = []session.Goal{}
	}
	view := controller.viewLocked()
	controller.mu.Unlock()

	controller.notify(view)
}

func (controller *Controller) handleTimer(message bus.Message) {
	update, ok := message.Payload.(timer.Update)
	if !ok {
		controller.options.Logger.Warnf("ignoring timer payload of type %T", message.Payload)
		return
	}

	controller.mu.Lock()
	if controller.hasTimer && update.Version < controller.timer.Version {
		controller.mu.Unlock()
		return
	}
	if controller.hasTimer && update == controller.timer {
		controller.mu.Unlock()
		return
	}
	controller.timer = update
	controller.hasTimer = true
	view := controller.viewLocked()
	controller.mu.Unlock()

	controller.notify(view)
}

func (controller *Controller) applySize(large bool) {
	controller.mu.Lock()
	if controller.large == large {
		controller.mu.Unlock()
		return
	}
	controller.large = large
	view := controller.viewLocked()
	controller.mu.Unlock()

	controller.notify(view)
}

func (controller *Controller) notify(view View) {
	if controller.options.OnChange != nil {
		controller.options.OnChange(view)
	}
}

func (controller *Controller) viewLocked() View {
	view := View{
		Large: controller.large,
		Clock: "--:--",
		Goals: append([]session.Goal{}, controller.goals...),
	}
	if controller.hasTimer {
		view.Clock = controller.timer.Clock().String()
		view.Running = controller.timer.Running
		if controller.timer.Running {
			view.Phase = controller.timer.Phase.Label()
		}
	}
	if current := controller.snapshot.Current; current != nil {
		view.HasSession = true
		view.SessionID = current.ID
		view.NoteID = current.NoteID
		view.DistractionCount = len(current.Distractions)
	}
	return view
}

func finished(goals []session.Goal) int {
	count := 0
	for _, goal := range goals {
		if goal.Finished {
			count++
		}
	}
	return count
}
