package session

import (
	"fmt"
	"strings"

	"doqulio-chat/internal/constant"
	"doqulio-chat/internal/entity"

	"github.com/gabriel-vasile/mimetype"
)

// FileRef is a file picked by the user and not yet sent.
type FileRef struct {
	Name     string
	MimeType string
	Data     []byte
}

// ContentType returns the declared MIME type, sniffing the bytes when none
// (or only the generic octet-stream) was given.
func (f *FileRef) ContentType() string {
	if f.MimeType != "" && f.MimeType != "application/octet-stream" {
		return f.MimeType
	}
	return mimetype.Detect(f.Data).String()
}

// SizeLabel renders the file size in kilobytes with one decimal, e.g. "12.3 KB".
func (f *FileRef) SizeLabel() string {
	return fmt.Sprintf("%.1f KB", float64(len(f.Data))/1024)
}

// Draft is the user's pending input.
type Draft struct {
	Text string
	File *FileRef
}

func (d Draft) empty() bool {
	return strings.TrimSpace(d.Text) == "" && d.File == nil
}

// prompt is the text sent to the backend and shown as the user message.
func (d Draft) prompt() string {
	if text := strings.TrimSpace(d.Text); text != "" {
		return text
	}
	return fmt.Sprintf(constant.ChatAnalyzeFilePrompt, d.File.Name)
}

func (d Draft) attachments() []entity.Attachment {
	if d.File == nil {
		return nil
	}
	return []entity.Attachment{{
		Name:      d.File.Name,
		MimeType:  d.File.ContentType(),
		SizeLabel: d.File.SizeLabel(),
	}}
}

// sessionTitle derives the title given to a session on its first user message.
func sessionTitle(prompt string, file *FileRef) string {
	if file != nil && file.Name != "" {
		return file.Name
	}
	runes := []rune(prompt)
	if len(runes) <= constant.ChatSessionTitleMaxLen {
		return prompt
	}
	return string(runes[:constant.ChatSessionTitleMaxLen]) + "..."
}
