package entity

import (
	"strings"
	"time"
)

type ChatMessage struct {
	Id          string
	Role        string
	Content     string
	CreatedAt   time.Time
	Attachments []Attachment
}

type Attachment struct {
	Name      string
	MimeType  string
	SizeLabel string
}

// Valid reports whether the message carries text or at least one attachment.
func (m ChatMessage) Valid() bool {
	return strings.TrimSpace(m.Content) != "" || len(m.Attachments) > 0
}
