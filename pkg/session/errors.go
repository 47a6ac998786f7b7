package session

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDraft          = errors.New("draft has neither text nor file")
	ErrBusy                = errors.New("a message is already being sent")
	ErrUnknownSession      = errors.New("session not found")
	ErrUnsupportedLanguage = errors.New("unsupported target language")
)

// RemoteCallError is returned when the chat backend could not produce a reply,
// either because the transport failed or because it answered with a non-2xx status.
type RemoteCallError struct {
	StatusCode int // 0 when the request never got a response
	Detail     string
	Err        error
}

func (e *RemoteCallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("chat backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("chat backend unreachable: %s", e.Detail)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// errorDetail extracts the text shown to the user for a failed backend call.
func errorDetail(err error) string {
	var rce *RemoteCallError
	if errors.As(err, &rce) {
		return rce.Detail
	}
	return err.Error()
}
