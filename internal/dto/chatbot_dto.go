package dto

import (
	"time"
)

type CreateSessionResponse struct {
	Id string `json:"id"`
}

type GetAllSessionsResponse struct {
	Id           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
}

type AttachmentDTO struct {
	Name     string `json:"name"`
	MimeType string `json:"type"`
	Size     string `json:"size"`
}

type ChatMessageResponse struct {
	Id          string          `json:"id"`
	Role        string          `json:"role"`
	Content     string          `json:"content"`
	CreatedAt   time.Time       `json:"created_at"`
	Attachments []AttachmentDTO `json:"attachments,omitempty"`
}

type GetChatHistoryResponse struct {
	ChatSessionId string                `json:"chat_session_id"`
	Title         string                `json:"title"`
	Messages      []ChatMessageResponse `json:"messages"`
}

// SendChatRequest is bound from a multipart form; the file part is read separately.
type SendChatRequest struct {
	Prompt string `form:"prompt" validate:"max=8000"`
}

type SendChatResponse struct {
	ChatSessionId string               `json:"chat_session_id"`
	Title         string               `json:"title"`
	Sent          *ChatMessageResponse `json:"sent"`
	Reply         *ChatMessageResponse `json:"reply"`
	Error         string               `json:"error,omitempty"`
}

type SwitchSessionRequest struct {
	ChatSessionId string `json:"chat_session_id" validate:"required"`
}

type SetLanguageRequest struct {
	TargetLanguage string `json:"target_language" validate:"required"`
}

type ChatStateResponse struct {
	ActiveSessionId string   `json:"active_session_id"`
	Busy            bool     `json:"busy"`
	LastError       string   `json:"last_error,omitempty"`
	TargetLanguage  string   `json:"target_language"`
	Languages       []string `json:"languages"`
}

// ChatEventMessage is what the event bus and websocket clients receive.
type ChatEventMessage struct {
	Type            string               `json:"type"`
	UserId          string               `json:"user_id"`
	ChatSessionId   string               `json:"chat_session_id,omitempty"`
	ActiveSessionId string               `json:"active_session_id"`
	Busy            bool                 `json:"busy"`
	LastError       string               `json:"last_error,omitempty"`
	TargetLanguage  string               `json:"target_language"`
	Message         *ChatMessageResponse `json:"message,omitempty"`
	OccurredAt      time.Time            `json:"occurred_at"`
}
