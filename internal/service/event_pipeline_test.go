package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"doqulio-chat/internal/dto"
	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/pkg/events"
	"doqulio-chat/pkg/session"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDelivery struct {
	mu   sync.Mutex
	sent map[string][][]byte
}

func (d *recordingDelivery) Send(userID string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sent == nil {
		d.sent = make(map[string][][]byte)
	}
	d.sent[userID] = append(d.sent[userID], data)
}

func (d *recordingDelivery) types(userID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, raw := range d.sent[userID] {
		var msg dto.ChatEventMessage
		if json.Unmarshal(raw, &msg) == nil {
			out = append(out, msg.Type)
		}
	}
	return out
}

type chanSink struct {
	ch   chan events.Event
	fail bool
}

func (s *chanSink) Publish(ctx context.Context, ev events.Event) error {
	if s.fail {
		return errors.New("nats down")
	}
	s.ch <- ev
	return nil
}

func newPipeline(t *testing.T, sink EventSink) (*gochannel.GoChannel, *recordingDelivery, IPublisherService) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	log := logger.NewNopLogger()
	require.NoError(t, NewConsumerService(pubSub, "chat-events", sink, log).Consume(context.Background()))

	delivery := &recordingDelivery{}
	return pubSub, delivery, NewPublisherService("chat-events", pubSub, delivery, log)
}

func TestEventPipeline_DeliversAndMirrors(t *testing.T) {
	sink := &chanSink{ch: make(chan events.Event, 64)}
	_, delivery, publisher := newPipeline(t, sink)

	store := session.NewStore("u1", session.BackendFunc(func(ctx context.Context, req session.ChatRequest) (string, error) {
		return "Here you go", nil
	}), session.WithObserver(publisher.Observe))

	_, err := store.Submit(context.Background(), session.Draft{Text: "Summarize"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SESSION_CREATED",
		"MESSAGE_APPENDED",
		"TITLE_CHANGED",
		"DRAFT_CLEARED",
		"BUSY_CHANGED",
		"MESSAGE_APPENDED",
		"BUSY_CHANGED",
	}, delivery.types("u1"))

	var mirrored []events.Event
	require.Eventually(t, func() bool {
		for {
			select {
			case ev := <-sink.ch:
				mirrored = append(mirrored, ev)
			default:
				return len(mirrored) == 7
			}
		}
	}, time.Second, 10*time.Millisecond)

	var replies []string
	for _, ev := range mirrored {
		assert.Equal(t, "u1", ev.Payload()["user_id"])
		if ev.EventType() == "chat.MESSAGE_APPENDED" {
			replies = append(replies, ev.Payload()["content"].(string))
		}
	}
	assert.ElementsMatch(t, []string{"Summarize", "Here you go"}, replies)
}

func TestEventPipeline_SinkFailureDoesNotReachStore(t *testing.T) {
	_, delivery, publisher := newPipeline(t, &chanSink{fail: true})

	store := session.NewStore("u2", session.BackendFunc(func(ctx context.Context, req session.ChatRequest) (string, error) {
		return "ok", nil
	}), session.WithObserver(publisher.Observe))

	_, err := store.Submit(context.Background(), session.Draft{Text: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, delivery.types("u2"))
	assert.False(t, store.Busy())
}
