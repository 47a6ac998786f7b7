package events

import "time"

// Event is anything that can be put on the bus: chat state transitions
// published by a store and the same events read back from NATS.
type Event interface {
	// EventType is the routing key, e.g. "chat.MESSAGE_APPENDED".
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

// BaseEvent is the wire-level form of an Event once it has left the process.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// UserID returns the payload's user_id, if any.
func (e BaseEvent) UserID() string {
	id, _ := e.Data["user_id"].(string)
	return id
}
