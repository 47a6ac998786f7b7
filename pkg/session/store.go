package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"doqulio-chat/internal/constant"
	"doqulio-chat/internal/entity"
	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/internal/repository/memory"

	"github.com/google/uuid"
)

const logModule = "SessionStore"

// Option configures a Store.
type Option func(*Store)

func WithLogger(l logger.ILogger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithTargetLanguage sets the initial reply language. Unsupported names are ignored.
func WithTargetLanguage(name string) Option {
	return func(s *Store) {
		if constant.IsSupportedLanguage(name) {
			s.targetLanguage = name
		}
	}
}

// WithObserver registers an observer before the initial session is created.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observers = append(s.observers, &o)
	}
}

// Exchange is the outcome of a settled Submit.
type Exchange struct {
	SessionId string
	Sent      entity.ChatMessage
	// Reply is nil when the originating session was deleted before the backend answered.
	Reply *entity.ChatMessage
}

// Store owns every chat session of one user and mediates all transitions on them.
// All methods are safe for concurrent use. At most one Submit is in flight at a time.
type Store struct {
	mu sync.Mutex

	userId  string
	backend Backend
	repo    *memory.SessionRepository
	logger  logger.ILogger
	now     func() time.Time

	activeId       string
	busy           bool
	lastError      string
	targetLanguage string

	observers []*Observer
}

// NewStore returns a store holding one fresh default session.
func NewStore(userId string, backend Backend, opts ...Option) *Store {
	s := &Store{
		userId:         userId,
		backend:        backend,
		repo:           memory.NewSessionRepository(),
		logger:         logger.NewNopLogger(),
		now:            time.Now,
		targetLanguage: constant.DefaultTargetLanguage,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.createLocked()
	s.emitLocked(EventSessionCreated, id, nil)
	return s
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(o Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &o
	s.observers = append(s.observers, entry)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range s.observers {
			if e == entry {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) UserID() string {
	return s.userId
}

// CreateSession adds a session seeded with the welcome message and makes it active.
func (s *Store) CreateSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.createLocked()
	s.emitLocked(EventSessionCreated, id, nil)
	s.emitLocked(EventSessionSwitched, id, nil)
	return id
}

// DeleteSession removes a session. Deleting the active session activates the first
// remaining one; deleting the last session replaces it with a fresh default session.
// An unknown id returns ErrUnknownSession and leaves the store untouched.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.repo.Delete(id) {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	// Settle the new state before anyone hears about it so no observer sees an empty store.
	var created string
	switched := false
	if s.repo.Count() == 0 {
		created = s.createLocked()
	} else if id == s.activeId {
		first, _ := s.repo.First()
		s.activeId = first.Id
		switched = true
	}

	s.logger.Info(logModule, "Session deleted", map[string]interface{}{
		"user_id":    s.userId,
		"session_id": id,
	})

	s.emitLocked(EventSessionDeleted, id, nil)
	if created != "" {
		s.emitLocked(EventSessionCreated, created, nil)
		s.emitLocked(EventSessionSwitched, created, nil)
	} else if switched {
		s.emitLocked(EventSessionSwitched, s.activeId, nil)
	}
	return nil
}

// SwitchActive makes id the active session. Switching to the already active session is a no-op.
func (s *Store) SwitchActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.repo.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	if id == s.activeId {
		return nil
	}
	s.activeId = id
	s.emitLocked(EventSessionSwitched, id, nil)
	return nil
}

func (s *Store) SetTargetLanguage(name string) error {
	if !constant.IsSupportedLanguage(name) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.targetLanguage == name {
		return nil
	}
	s.targetLanguage = name
	s.emitLocked(EventLanguageChanged, "", nil)
	return nil
}

// DismissError clears the error banner.
func (s *Store) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErrorLocked("")
}

// Submit sends the draft to the backend and records both sides of the exchange.
//
// The user message is appended to the active session before the backend is called.
// The reply goes to that same session even if another session is active by the time
// it arrives. A backend failure is recorded as an assistant message and as LastError,
// and is returned as a *RemoteCallError alongside the exchange. The backend call is
// not cancelled when ctx is.
func (s *Store) Submit(ctx context.Context, draft Draft) (*Exchange, error) {
	if draft.empty() {
		return nil, ErrEmptyDraft
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	origin, _ := s.repo.Get(s.activeId)
	prompt := draft.prompt()
	sent := s.newMessage(constant.ChatMessageRoleUser, prompt, draft.attachments())

	s.appendLocked(origin, sent)
	if origin.Title == constant.ChatSessionDefaultTitle {
		origin.Title = sessionTitle(prompt, draft.File)
		s.emitLocked(EventTitleChanged, origin.Id, nil)
	}
	s.emitLocked(EventDraftCleared, origin.Id, nil)

	s.busy = true
	s.emitLocked(EventBusyChanged, origin.Id, nil)
	s.setErrorLocked("")

	originId := origin.Id
	req := ChatRequest{
		UserId:         s.userId,
		Prompt:         prompt,
		TargetLanguage: s.targetLanguage,
		File:           draft.File,
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.emitLocked(EventBusyChanged, originId, nil)
		s.mu.Unlock()
	}()

	s.logger.Info(logModule, "Dispatching message to chat backend", map[string]interface{}{
		"user_id":    s.userId,
		"session_id": originId,
		"has_file":   draft.File != nil,
		"language":   req.TargetLanguage,
	})

	reply, callErr := s.backend.Chat(context.WithoutCancel(ctx), req)

	var content string
	if callErr != nil {
		content = fmt.Sprintf(constant.ChatErrorReplyTemplate, errorDetail(callErr))
	} else {
		content = reply
		if content == "" {
			content = constant.ChatEmptyReply
		}
	}

	s.mu.Lock()
	ex := &Exchange{SessionId: originId, Sent: sent}
	if target, ok := s.repo.Get(originId); ok {
		msg := s.newMessage(constant.ChatMessageRoleAssistant, content, nil)
		s.appendLocked(target, msg)
		ex.Reply = &msg
	} else {
		s.logger.Warn(logModule, "Originating session deleted before reply arrived", map[string]interface{}{
			"user_id":    s.userId,
			"session_id": originId,
		})
	}
	if callErr != nil {
		s.setErrorLocked(errorDetail(callErr))
	}
	s.mu.Unlock()

	if callErr != nil {
		s.logger.Error(logModule, "Chat backend call failed", map[string]interface{}{
			"user_id":    s.userId,
			"session_id": originId,
			"error":      callErr,
		})
		var rce *RemoteCallError
		if !errors.As(callErr, &rce) {
			rce = &RemoteCallError{Detail: callErr.Error(), Err: callErr}
		}
		return ex, rce
	}
	return ex, nil
}

// --- Read accessors ---

// Sessions returns copies of all sessions in display order (newest first).
func (s *Store) Sessions() []entity.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionsLocked()
}

func (s *Store) Session(id string) (entity.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.repo.Get(id)
	if !ok {
		return entity.ChatSession{}, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return sess.Clone(), nil
}

func (s *Store) ActiveSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeId
}

func (s *Store) ActiveSession() entity.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, _ := s.repo.Get(s.activeId)
	return sess.Clone()
}

func (s *Store) ActiveMessages() []entity.ChatMessage {
	return s.ActiveSession().Messages
}

func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Store) TargetLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetLanguage
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// --- internals, callers hold s.mu ---

func (s *Store) createLocked() string {
	now := s.now()
	sess := &entity.ChatSession{
		Id:          newID(),
		Title:       constant.ChatSessionDefaultTitle,
		CreatedAt:   now,
		LastUpdated: now,
	}
	sess.Messages = []entity.ChatMessage{
		s.newMessage(constant.ChatMessageRoleAssistant, constant.ChatWelcomeMessage, nil),
	}
	s.repo.Save(sess)
	s.activeId = sess.Id

	s.logger.Debug(logModule, "Session created", map[string]interface{}{
		"user_id":    s.userId,
		"session_id": sess.Id,
	})
	return sess.Id
}

func (s *Store) newMessage(role, content string, attachments []entity.Attachment) entity.ChatMessage {
	return entity.ChatMessage{
		Id:          newID(),
		Role:        role,
		Content:     content,
		CreatedAt:   s.now(),
		Attachments: attachments,
	}
}

func (s *Store) appendLocked(sess *entity.ChatSession, msg entity.ChatMessage) {
	sess.Messages = append(sess.Messages, msg)
	sess.LastUpdated = s.now()
	s.emitLocked(EventMessageAppended, sess.Id, &msg)
}

func (s *Store) setErrorLocked(detail string) {
	if s.lastError == detail {
		return
	}
	s.lastError = detail
	s.emitLocked(EventErrorChanged, "", nil)
}

func (s *Store) sessionsLocked() []entity.ChatSession {
	list := s.repo.List()
	out := make([]entity.ChatSession, len(list))
	for i, sess := range list {
		out[i] = sess.Clone()
	}
	return out
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		UserId:          s.userId,
		Sessions:        s.sessionsLocked(),
		ActiveSessionId: s.activeId,
		Busy:            s.busy,
		LastError:       s.lastError,
		TargetLanguage:  s.targetLanguage,
	}
}

func (s *Store) emitLocked(kind Kind, sessionId string, msg *entity.ChatMessage) {
	if len(s.observers) == 0 {
		return
	}
	ev := Event{
		Kind:       kind,
		SessionId:  sessionId,
		Message:    msg,
		OccurredAt: s.now(),
		State:      s.snapshotLocked(),
	}
	for _, o := range s.observers {
		(*o)(ev)
	}
}

// newID returns a time-ordered UUIDv7, falling back to a random one.
func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
