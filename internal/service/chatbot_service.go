package service

import (
	"context"
	"errors"

	"doqulio-chat/internal/dto"
	"doqulio-chat/internal/mapper"
	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/pkg/session"
)

// IChatbotService defines the chatbot service interface
type IChatbotService interface {
	CreateSession(ctx context.Context, userId string) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId string) ([]dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId string, sessionId string) (*dto.GetChatHistoryResponse, error)
	GetActiveHistory(ctx context.Context, userId string) (*dto.GetChatHistoryResponse, error)
	SwitchSession(ctx context.Context, userId string, request *dto.SwitchSessionRequest) error
	DeleteSession(ctx context.Context, userId string, sessionId string) error
	SendChat(ctx context.Context, userId string, request *dto.SendChatRequest, file *session.FileRef) (*dto.SendChatResponse, error)
	GetState(ctx context.Context, userId string) (*dto.ChatStateResponse, error)
	SetLanguage(ctx context.Context, userId string, request *dto.SetLanguageRequest) error
	DismissError(ctx context.Context, userId string) error
}

// chatbotService maps HTTP calls onto the caller's session store
type chatbotService struct {
	registry *session.Registry
	mapper   *mapper.ChatMapper
	logger   logger.ILogger
}

func NewChatbotService(registry *session.Registry, log logger.ILogger) IChatbotService {
	return &chatbotService{
		registry: registry,
		mapper:   mapper.NewChatMapper(),
		logger:   log,
	}
}

func (cs *chatbotService) CreateSession(ctx context.Context, userId string) (*dto.CreateSessionResponse, error) {
	id := cs.registry.ForUser(userId).CreateSession()
	return &dto.CreateSessionResponse{Id: id}, nil
}

func (cs *chatbotService) GetAllSessions(ctx context.Context, userId string) ([]dto.GetAllSessionsResponse, error) {
	snap := cs.registry.ForUser(userId).Snapshot()
	return cs.mapper.SessionsToDTO(snap), nil
}

func (cs *chatbotService) GetChatHistory(ctx context.Context, userId string, sessionId string) (*dto.GetChatHistoryResponse, error) {
	sess, err := cs.registry.ForUser(userId).Session(sessionId)
	if err != nil {
		return nil, err
	}
	return cs.mapper.HistoryToDTO(sess), nil
}

func (cs *chatbotService) GetActiveHistory(ctx context.Context, userId string) (*dto.GetChatHistoryResponse, error) {
	sess := cs.registry.ForUser(userId).ActiveSession()
	return cs.mapper.HistoryToDTO(sess), nil
}

func (cs *chatbotService) SwitchSession(ctx context.Context, userId string, request *dto.SwitchSessionRequest) error {
	return cs.registry.ForUser(userId).SwitchActive(request.ChatSessionId)
}

func (cs *chatbotService) DeleteSession(ctx context.Context, userId string, sessionId string) error {
	return cs.registry.ForUser(userId).DeleteSession(sessionId)
}

// SendChat blocks until the backend has answered. A backend failure is not an error here:
// the store recorded it as an assistant message, so it is reported in the response body.
func (cs *chatbotService) SendChat(ctx context.Context, userId string, request *dto.SendChatRequest, file *session.FileRef) (*dto.SendChatResponse, error) {
	store := cs.registry.ForUser(userId)

	ex, err := store.Submit(ctx, session.Draft{Text: request.Prompt, File: file})
	var rce *session.RemoteCallError
	if err != nil && !errors.As(err, &rce) {
		return nil, err
	}

	res := &dto.SendChatResponse{
		ChatSessionId: ex.SessionId,
		Sent:          cs.mapper.MessageToDTO(&ex.Sent),
		Reply:         cs.mapper.MessageToDTO(ex.Reply),
	}
	if sess, err := store.Session(ex.SessionId); err == nil {
		res.Title = sess.Title
	}
	if rce != nil {
		res.Error = rce.Detail
		cs.logger.Warn("ChatbotService", "Reply replaced by backend error", map[string]interface{}{
			"user_id":    userId,
			"session_id": ex.SessionId,
			"status":     rce.StatusCode,
		})
	}
	return res, nil
}

func (cs *chatbotService) GetState(ctx context.Context, userId string) (*dto.ChatStateResponse, error) {
	return cs.mapper.StateToDTO(cs.registry.ForUser(userId).Snapshot()), nil
}

func (cs *chatbotService) SetLanguage(ctx context.Context, userId string, request *dto.SetLanguageRequest) error {
	return cs.registry.ForUser(userId).SetTargetLanguage(request.TargetLanguage)
}

func (cs *chatbotService) DismissError(ctx context.Context, userId string) error {
	cs.registry.ForUser(userId).DismissError()
	return nil
}
