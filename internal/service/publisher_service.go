package service

import (
	"encoding/json"

	"doqulio-chat/internal/mapper"
	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/pkg/session"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventDelivery pushes an encoded event to a user's live connections.
type EventDelivery interface {
	Send(userID string, data []byte)
}

type IPublisherService interface {
	// Observe is registered as a store observer.
	Observe(ev session.Event)
}

// publisherService forwards store events to live clients synchronously and
// onto the event bus for everything else (NATS mirror).
type publisherService struct {
	topicName string
	publisher message.Publisher
	delivery  EventDelivery
	mapper    *mapper.ChatMapper
	logger    logger.ILogger
}

func NewPublisherService(topicName string, publisher message.Publisher, delivery EventDelivery, log logger.ILogger) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		delivery:  delivery,
		mapper:    mapper.NewChatMapper(),
		logger:    log,
	}
}

func (ps *publisherService) Observe(ev session.Event) {
	payload, err := json.Marshal(ps.mapper.EventToDTO(ev))
	if err != nil {
		ps.logger.Error("PublisherService", "Failed to encode chat event", map[string]interface{}{"error": err})
		return
	}

	if ps.delivery != nil {
		ps.delivery.Send(ev.State.UserId, payload)
	}

	if ps.publisher == nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", ev.EventType())
	msg.Metadata.Set("user_id", ev.State.UserId)
	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		ps.logger.Warn("PublisherService", "Failed to publish chat event", map[string]interface{}{
			"event_type": ev.EventType(),
			"error":      err.Error(),
		})
	}
}
