package session

import "time"

// Goal is a task the user commits to for one session.
type Goal struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Finished bool   `json:"finished"`
}

// Distraction is a note captured while the timer runs.
type Distraction struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Session is one timed work interval with its goals and distractions.
type Session struct {
	ID           string        `json:"id"`
	NoteID       string        `json:"noteId"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      *time.Time    `json:"endTime,omitempty"`
	Goals        []Goal        `json:"goals"`
	Distractions []Distraction `json:"distractions"`
	DaySummary   string        `json:"daySummary,omitempty"`
}

// Ended reports whether the session has an end time.
func (session Session) Ended() bool {
	return session.EndTime != nil
}

// FinishedGoals counts goals marked done.
func (session Session) FinishedGoals() int {
	count := 0
	for _, goal := range session.Goals {
		if goal.Finished {
			count++
		}
	}
	return count
}

// Clone returns a deep copy so callers cannot alias store state.
func (session Session) Clone() Session {
	dup := session
	dup.Goals = append([]Goal{}, session.Goals...)
	dup.Distractions = append([]Distraction{}, session.Distractions...)
	if session.EndTime != nil {
		end := *session.EndTime
		dup.EndTime = &end
	}
	return dup
}

// Snapshot is the full-value payload of goals-state-update.
type Snapshot struct {
	// Version increases on every mutation so replicas can drop stale copies.
	Version   uint64   `json:"version"`
	Current   *Session `json:"current"`
	Completed int      `json:"completed"`
}

// CommandType discriminates update-goals-state intents.
type CommandType string

const (
	CommandInitSession      CommandType = "init-session"
	CommandAddGoal          CommandType = "add-goal"
	CommandAddDistraction   CommandType = "add-distraction"
	CommandChangeGoalStatus CommandType = "change-goal-status"
)

// Command is an intent sent by any surface to the store.
type Command struct {
	Type   CommandType `json:"type"`
	NoteID string      `json:"noteId,omitempty"`
	Text   string      `json:"text,omitempty"`
	GoalID string      `json:"goalId,omitempty"`
}
