// Package bridge carries bus topics over a websocket so companion surfaces
// can run outside the owning process.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"daybook/internal/bus"
	"daybook/internal/core/session"
	"daybook/internal/core/timer"
)

// ErrUnknownTopic is returned for frames naming a topic outside the protocol.
var ErrUnknownTopic = errors.New("unknown topic")

// Frame is one websocket message.
type Frame struct {
	Topic   bus.Topic       `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps payload in a frame for topic.
func Encode(topic bus.Topic, payload any) ([]byte, error) {
	frame := Frame{Topic: topic}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", topic, err)
		}
		frame.Payload = raw
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", topic, err)
	}
	return data, nil
}

// Decode parses a frame and returns its payload as the Go type published
// on the local bus for that topic.
func Decode(data []byte) (bus.Topic, any, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", nil, fmt.Errorf("decode frame: %w", err)
	}
	if !bus.Known(frame.Topic) {
		return frame.Topic, nil, fmt.Errorf("decode frame %q: %w", frame.Topic, ErrUnknownTopic)
	}

	switch frame.Topic {
	case bus.TopicGoalsState:
		return decodeAs[session.Snapshot](frame)
	case bus.TopicTimerState:
		return decodeAs[timer.Update](frame)
	case bus.TopicUpdateGoalsState:
		return decodeAs[session.Command](frame)
	case bus.TopicGoalsWindowSize:
		return decodeAs[bool](frame)
	case bus.TopicTrayTimer, bus.TopicTrayText:
		return decodeAs[string](frame)
	default:
		return frame.Topic, nil, nil
	}
}

func decodeAs[T any](frame Frame) (bus.Topic, any, error) {
	var value T
	if len(frame.Payload) == 0 {
		return frame.Topic, nil, fmt.Errorf("decode %s: missing payload", frame.Topic)
	}
	if err := json.Unmarshal(frame.Payload, &value); err != nil {
		return frame.Topic, nil, fmt.Errorf("decode %s payload: %w", frame.Topic, err)
	}
	return frame.Topic, value, nil
}
