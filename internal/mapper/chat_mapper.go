package mapper

import (
	"sort"

	"doqulio-chat/internal/constant"
	"doqulio-chat/internal/dto"
	"doqulio-chat/internal/entity"
	"doqulio-chat/pkg/session"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) SessionsToDTO(snap session.Snapshot) []dto.GetAllSessionsResponse {
	out := make([]dto.GetAllSessionsResponse, len(snap.Sessions))
	for i, s := range snap.Sessions {
		out[i] = dto.GetAllSessionsResponse{
			Id:           s.Id,
			Title:        s.Title,
			MessageCount: len(s.Messages),
			Active:       s.Id == snap.ActiveSessionId,
			CreatedAt:    s.CreatedAt,
			LastUpdated:  s.LastUpdated,
		}
	}
	return out
}

func (m *ChatMapper) HistoryToDTO(s entity.ChatSession) *dto.GetChatHistoryResponse {
	msgs := make([]dto.ChatMessageResponse, len(s.Messages))
	for i, msg := range s.Messages {
		msgs[i] = *m.MessageToDTO(&msg)
	}
	return &dto.GetChatHistoryResponse{
		ChatSessionId: s.Id,
		Title:         s.Title,
		Messages:      msgs,
	}
}

// Message Mappers

func (m *ChatMapper) MessageToDTO(msg *entity.ChatMessage) *dto.ChatMessageResponse {
	if msg == nil {
		return nil
	}

	var attachments []dto.AttachmentDTO
	for _, a := range msg.Attachments {
		attachments = append(attachments, dto.AttachmentDTO{
			Name:     a.Name,
			MimeType: a.MimeType,
			Size:     a.SizeLabel,
		})
	}

	return &dto.ChatMessageResponse{
		Id:          msg.Id,
		Role:        msg.Role,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
		Attachments: attachments,
	}
}

// State Mappers

func (m *ChatMapper) StateToDTO(snap session.Snapshot) *dto.ChatStateResponse {
	languages := make([]string, 0, len(constant.TargetLanguages))
	for name := range constant.TargetLanguages {
		languages = append(languages, name)
	}
	sort.Strings(languages)

	return &dto.ChatStateResponse{
		ActiveSessionId: snap.ActiveSessionId,
		Busy:            snap.Busy,
		LastError:       snap.LastError,
		TargetLanguage:  snap.TargetLanguage,
		Languages:       languages,
	}
}

func (m *ChatMapper) EventToDTO(ev session.Event) *dto.ChatEventMessage {
	return &dto.ChatEventMessage{
		Type:            string(ev.Kind),
		UserId:          ev.State.UserId,
		ChatSessionId:   ev.SessionId,
		ActiveSessionId: ev.State.ActiveSessionId,
		Busy:            ev.State.Busy,
		LastError:       ev.State.LastError,
		TargetLanguage:  ev.State.TargetLanguage,
		Message:         m.MessageToDTO(ev.Message),
		OccurredAt:      ev.OccurredAt,
	}
}
