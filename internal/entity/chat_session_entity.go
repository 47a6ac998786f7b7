package entity

import (
	"time"
)

type ChatSession struct {
	Id          string
	Title       string
	Messages    []ChatMessage
	CreatedAt   time.Time
	LastUpdated time.Time
}

// Clone returns a copy whose message slice does not alias the original.
func (s *ChatSession) Clone() ChatSession {
	out := *s
	out.Messages = make([]ChatMessage, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}

func (s *ChatSession) LastMessage() *ChatMessage {
	if len(s.Messages) == 0 {
		return nil
	}
	m := s.Messages[len(s.Messages)-1]
	return &m
}
