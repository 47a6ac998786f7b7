// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"
	"time"

	"doqulio-chat/internal/dto"
	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventSink receives chat events taken off the bus, e.g. the NATS publisher.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	sink       EventSink
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	sink EventSink,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		sink:       sink,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ChatEventMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal chat event", map[string]interface{}{"error": err})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if cs.sink == nil {
		msg.Ack()
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := cs.sink.Publish(pubCtx, toBusEvent(payload)); err != nil {
		cs.logger.Warn("ConsumerService", "Failed to mirror chat event", map[string]interface{}{
			"type":  payload.Type,
			"error": err.Error(),
		})
		// The mirror is best effort; a failed event is dropped.
		msg.Ack()
		return
	}
	msg.Ack()
}

func toBusEvent(p dto.ChatEventMessage) events.Event {
	data := map[string]interface{}{
		"user_id":           p.UserId,
		"chat_session_id":   p.ChatSessionId,
		"active_session_id": p.ActiveSessionId,
		"busy":              p.Busy,
		"last_error":        p.LastError,
		"target_language":   p.TargetLanguage,
		"occurred_at":       p.OccurredAt,
	}
	if p.Message != nil {
		data["message_id"] = p.Message.Id
		data["role"] = p.Message.Role
		data["content"] = p.Message.Content
	}
	return events.BaseEvent{
		Type:       "chat." + p.Type,
		Data:       data,
		OccurredAt: p.OccurredAt,
	}
}
