package session

import (
	"time"

	"doqulio-chat/internal/entity"
)

type Kind string

const (
	EventSessionCreated  Kind = "SESSION_CREATED"
	EventSessionDeleted  Kind = "SESSION_DELETED"
	EventSessionSwitched Kind = "SESSION_SWITCHED"
	EventMessageAppended Kind = "MESSAGE_APPENDED"
	EventTitleChanged    Kind = "TITLE_CHANGED"
	EventDraftCleared    Kind = "DRAFT_CLEARED"
	EventBusyChanged     Kind = "BUSY_CHANGED"
	EventErrorChanged    Kind = "ERROR_CHANGED"
	EventLanguageChanged Kind = "LANGUAGE_CHANGED"
)

// Snapshot is a detached copy of a store's state. Holding it never
// gives access to the store's own sessions.
type Snapshot struct {
	UserId          string
	Sessions        []entity.ChatSession
	ActiveSessionId string
	Busy            bool
	LastError       string
	TargetLanguage  string
}

func (s Snapshot) ActiveSession() (entity.ChatSession, bool) {
	for _, sess := range s.Sessions {
		if sess.Id == s.ActiveSessionId {
			return sess, true
		}
	}
	return entity.ChatSession{}, false
}

// Event describes one state transition together with the state right after it.
type Event struct {
	Kind       Kind
	SessionId  string
	Message    *entity.ChatMessage
	OccurredAt time.Time
	State      Snapshot
}

// Observer is invoked synchronously, in transition order, while the store is locked.
// It must not call back into the store.
type Observer func(Event)

// EventType, Payload and Timestamp satisfy events.Event so store events can
// travel over the event bus unchanged.
func (e Event) EventType() string {
	return "chat." + string(e.Kind)
}

func (e Event) Payload() map[string]interface{} {
	data := map[string]interface{}{
		"user_id":           e.State.UserId,
		"session_id":        e.SessionId,
		"active_session_id": e.State.ActiveSessionId,
		"busy":              e.State.Busy,
		"last_error":        e.State.LastError,
		"target_language":   e.State.TargetLanguage,
		"session_count":     len(e.State.Sessions),
	}
	if e.Message != nil {
		data["message_id"] = e.Message.Id
		data["role"] = e.Message.Role
	}
	return data
}

func (e Event) Timestamp() time.Time {
	return e.OccurredAt
}
