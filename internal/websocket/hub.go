package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"doqulio-chat/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	clusterChannel = "chat_cluster_events"

	// Events waiting for the Redis fan-out; overflow is dropped.
	clusterQueueSize      = 1024
	clusterPublishTimeout = 2 * time.Second
)

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-tab)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// instanceID lets a hub ignore its own messages coming back from Redis.
	instanceID string

	// outbound feeds the Redis publisher goroutine started by Run.
	outbound chan clusterPayload

	// done is closed when Run returns.
	done     chan struct{}
	doneOnce sync.Once

	logger logger.ILogger
}

type clusterPayload struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		outbound:   make(chan clusterPayload, clusterQueueSize),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run processes registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer h.doneOnce.Do(func() { close(h.done) })

	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
		go h.publishToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send delivers data to every connection of the user, here and on other instances.
// It never blocks: a client whose buffer is full is dropped, and the Redis
// fan-out happens on Run's publisher goroutine.
func (h *Hub) Send(userID string, data []byte) {
	h.deliverLocal(userID, data)

	if h.rdb == nil {
		return
	}
	select {
	case h.outbound <- clusterPayload{Origin: h.instanceID, TargetUserID: userID, Message: data}:
	default:
		h.logger.Warn("Hub", "Redis fan-out queue full, dropping event", map[string]interface{}{"user_id": userID})
	}
}

// remove unregisters c unless the hub has already stopped.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ConnectedClients returns how many connections the user has on this instance.
func (h *Hub) ConnectedClients(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) deliverLocal(userID string, data []byte) {
	// Hold the read lock while sending so Run cannot close a channel under us.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{"user_id": userID})
			go h.remove(client)
		}
	}
}

func (h *Hub) publishToRedis(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-h.outbound:
			payload, err := json.Marshal(p)
			if err != nil {
				continue
			}
			pubCtx, cancel := context.WithTimeout(ctx, clusterPublishTimeout)
			err = h.rdb.Publish(pubCtx, clusterChannel, payload).Err()
			cancel()
			if err != nil {
				h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	// Every instance listens on one channel and delivers to the users it holds locally.
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterPayload
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			h.deliverLocal(payload.TargetUserID, payload.Message)
		}
	}
}
