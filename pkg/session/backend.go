package session

import "context"

// ChatRequest is the transient payload handed to the chat backend for one submit.
type ChatRequest struct {
	UserId         string
	Prompt         string
	TargetLanguage string
	File           *FileRef
}

// Backend produces the assistant reply for a prompt.
// Failures should be reported as *RemoteCallError so the detail reaches the user verbatim.
type Backend interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req ChatRequest) (string, error)

func (f BackendFunc) Chat(ctx context.Context, req ChatRequest) (string, error) {
	return f(ctx, req)
}
