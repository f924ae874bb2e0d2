package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"daybook/internal/bus"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrSessionActive is returned when starting a session while one is current.
	ErrSessionActive = errors.New("session already in progress")
	// ErrNoSession is returned when ending a session that was never started.
	ErrNoSession = errors.New("no current session")
	// ErrNoCompletedSession is returned when there is nothing to summarise.
	ErrNoCompletedSession = errors.New("no completed session")
	// ErrEmptySummary is returned for a summary that is blank after trimming.
	ErrEmptySummary = errors.New("day summary is empty")
	// ErrSummaryAlreadySet is returned when the last session already has a summary.
	ErrSummaryAlreadySet = errors.New("day summary already set")
	// ErrUnknownCommand is returned by Apply for unrecognised intents.
	ErrUnknownCommand = errors.New("unknown goals command")
)

// HistoryWriter persists completed sessions.
type HistoryWriter interface {
	SaveSession(ctx context.Context, session Session) error
	SetDaySummary(ctx context.Context, sessionID, summary string) error
}

// Options configures a Store.
type Options struct {
	Publisher bus.Publisher
	History   HistoryWriter
	Logger    *logrus.Entry
	Now       func() time.Time
	NewID     func() string
}

// Store is the single writer of session, goal and distraction state.
// Every mutation publishes a full snapshot on goals-state-update.
type Store struct {
	mu        sync.Mutex
	current   *Session
	completed []Session
	version   uint64
	options   Options
}

// NewStore creates an empty store.
func NewStore(options Options) *Store {
	if options.Logger == nil {
		options.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.NewID == nil {
		options.NewID = uuid.NewString
	}
	return &Store{options: options}
}

// StartSession opens a new current session attached to noteID.
func (store *Store) StartSession(noteID string) (Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.current != nil {
		return Session{}, fmt.Errorf("start session %q: %w", store.current.ID, ErrSessionActive)
	}
	store.current = &Session{
		ID:           store.options.NewID(),
		NoteID:       noteID,
		StartTime:    store.options.Now(),
		Goals:        []Goal{},
		Distractions: []Distraction{},
	}
	store.options.Logger.WithFields(logrus.Fields{
		"session": store.current.ID,
		"note":    noteID,
	}).Info("session started")

	store.publishLocked()
	return store.current.Clone(), nil
}

// AddGoal appends an unfinished goal. It reports false when ignored.
func (store *Store) AddGoal(text string) (Goal, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()

	text = strings.TrimSpace(text)
	if !store.acceptLocked("add goal", text) {
		return Goal{}, false
	}
	goal := Goal{ID: store.options.NewID(), Text: text}
	store.current.Goals = append(store.current.Goals, goal)
	store.publishLocked()
	return goal, true
}

// ToggleGoal flips the finished flag of goal id. It reports false when no
// current goal matches.
func (store *Store) ToggleGoal(id string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.current == nil {
		store.options.Logger.WithField("goal", id).Warn("toggle goal ignored: no current session")
		return false
	}
	for i := range store.current.Goals {
		if store.current.Goals[i].ID == id {
			store.current.Goals[i].Finished = !store.current.Goals[i].Finished
			store.publishLocked()
			return true
		}
	}
	store.options.Logger.WithField("goal", id).Debug("toggle goal ignored: unknown id")
	return false
}

// AddDistraction appends a distraction note. It reports false when ignored.
func (store *Store) AddDistraction(text string) (Distraction, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()

	text = strings.TrimSpace(text)
	if !store.acceptLocked("add distraction", text) {
		return Distraction{}, false
	}
	distraction := Distraction{ID: store.options.NewID(), Text: text}
	store.current.Distractions = append(store.current.Distractions, distraction)
	store.publishLocked()
	return distraction, true
}

// EndSession stamps the end time and moves the current session to history.
func (store *Store) EndSession() (Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.current == nil {
		return Session{}, ErrNoSession
	}
	ended := store.current.Clone()
	end := store.options.Now()
	if end.Before(ended.StartTime) {
		end = ended.StartTime
	}
	ended.EndTime = &end

	store.completed = append(store.completed, ended)
	store.current = nil
	store.options.Logger.WithFields(logrus.Fields{
		"session":  ended.ID,
		"goals":    len(ended.Goals),
		"finished": ended.FinishedGoals(),
	}).Info("session ended")

	store.persist(func(ctx context.Context, history HistoryWriter) error {
		return history.SaveSession(ctx, ended)
	})
	store.publishLocked()
	return ended.Clone(), nil
}

// Abandon drops the current session without recording it. It reports
// whether there was one.
func (store *Store) Abandon() bool {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.current == nil {
		return false
	}
	store.options.Logger.WithFields(logrus.Fields{
		"session": store.current.ID,
		"goals":   len(store.current.Goals),
	}).Info("session abandoned")
	store.current = nil
	store.publishLocked()
	return true
}

// SetDaySummary attaches text to the most recently completed session. The
// summary can be set once and must not be blank.
func (store *Store) SetDaySummary(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptySummary
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if len(store.completed) == 0 {
		return ErrNoCompletedSession
	}
	last := &store.completed[len(store.completed)-1]
	if last.DaySummary != "" {
		return fmt.Errorf("session %q: %w", last.ID, ErrSummaryAlreadySet)
	}
	last.DaySummary = text
	id, summary := last.ID, last.DaySummary

	store.persist(func(ctx context.Context, history HistoryWriter) error {
		return history.SetDaySummary(ctx, id, summary)
	})
	store.publishLocked()
	return nil
}

// Current returns a copy of the current session.
func (store *Store) Current() (Session, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.current == nil {
		return Session{}, false
	}
	return store.current.Clone(), true
}

// History returns copies of completed sessions, oldest first.
func (store *Store) History() []Session {
	store.mu.Lock()
	defer store.mu.Unlock()
	history := make([]Session, 0, len(store.completed))
	for _, session := range store.completed {
		history = append(history, session.Clone())
	}
	return history
}

// Snapshot returns the current full-value state.
func (store *Store) Snapshot() Snapshot {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.snapshotLocked()
}

// Publish re-broadcasts the current snapshot without bumping the version.
func (store *Store) Publish() {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.options.Publisher != nil {
		store.options.Publisher.Publish(bus.TopicGoalsState, store.snapshotLocked())
	}
}

// Apply executes an update-goals-state intent.
func (store *Store) Apply(command Command) error {
	switch command.Type {
	case CommandInitSession:
		_, err := store.StartSession(command.NoteID)
		return err
	case CommandAddGoal:
		store.AddGoal(command.Text)
	case CommandAddDistraction:
		store.AddDistraction(command.Text)
	case CommandChangeGoalStatus:
		store.ToggleGoal(command.GoalID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command.Type)
	}
	return nil
}

// Serve answers request-goals-state and applies update-goals-state intents
// until ctx is done.
func (store *Store) Serve(ctx context.Context, subscriber bus.Subscriber) {
	requests := subscriber.Subscribe(bus.TopicRequestGoalsState, 8)
	defer requests.Close()
	intents := subscriber.Subscribe(bus.TopicUpdateGoalsState, 32)
	defer intents.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-requests.C():
			if !ok {
				return
			}
			store.Publish()
		case message, ok := <-intents.C():
			if !ok {
				return
			}
			command, ok := message.Payload.(Command)
			if !ok {
				store.options.Logger.WithField("payload", fmt.Sprintf("%T", message.Payload)).Warn("ignoring malformed goals intent")
				continue
			}
			if err := store.Apply(command); err != nil {
				store.options.Logger.WithError(err).WithField("command", command.Type).Warn("goals intent rejected")
			}
		}
	}
}

func (store *Store) acceptLocked(action, text string) bool {
	if store.current == nil {
		store.options.Logger.Warnf("%s ignored: no current session", action)
		return false
	}
	if text == "" {
		store.options.Logger.Warnf("%s ignored: empty text", action)
		return false
	}
	return true
}

func (store *Store) snapshotLocked() Snapshot {
	snapshot := Snapshot{Version: store.version, Completed: len(store.completed)}
	if store.current != nil {
		current := store.current.Clone()
		snapshot.Current = &current
	}
	return snapshot
}

func (store *Store) publishLocked() {
	store.version++
	if store.options.Publisher != nil {
		store.options.Publisher.Publish(bus.TopicGoalsState, store.snapshotLocked())
	}
}

func (store *Store) persist(write func(context.Context, HistoryWriter) error) {
	if store.options.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := write(ctx, store.options.History); err != nil {
		store.options.Logger.WithError(err).Warn("session history write failed")
	}
}
