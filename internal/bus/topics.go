package bus

// Topic names a one-way message stream between surfaces.
type Topic string

const (
	TopicTrayTimer         Topic = "update-tray-timer"
	TopicTrayText          Topic = "update-tray-text"
	TopicShowGoalsWindow   Topic = "show-goals-window"
	TopicHideGoalsWindow   Topic = "hide-goals-window"
	TopicGoalsWindowSize   Topic = "change-goals-window-size"
	TopicRequestGoalsState Topic = "request-goals-state"
	TopicGoalsState        Topic = "goals-state-update"
	TopicRequestTimerState Topic = "request-timer-state"
	TopicTimerState        Topic = "timer-state-update"
	TopicUpdateGoalsState  Topic = "update-goals-state"
)

// PushTopics are snapshot streams whose last value is meaningful to a
// surface that connects late.
var PushTopics = []Topic{
	TopicGoalsState,
	TopicTimerState,
	TopicGoalsWindowSize,
	TopicTrayTimer,
	TopicTrayText,
}

// Known reports whether topic is part of the protocol.
func Known(topic Topic) bool {
	switch topic {
	case TopicTrayTimer, TopicTrayText, TopicShowGoalsWindow, TopicHideGoalsWindow,
		TopicGoalsWindowSize, TopicRequestGoalsState, TopicGoalsState,
		TopicRequestTimerState, TopicTimerState, TopicUpdateGoalsState:
		return true
	default:
		return false
	}
}
