package bootstrap

import (
	"context"
	"log"
	"time"

	"doqulio-chat/internal/config"
	"doqulio-chat/internal/controller"
	"doqulio-chat/internal/handler"
	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/internal/service"
	"doqulio-chat/internal/websocket"
	"doqulio-chat/pkg/chatbot"
	pktNats "doqulio-chat/pkg/nats"
	"doqulio-chat/pkg/session"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const registryCleanupInterval = 10 * time.Minute

type Container struct {
	Logger   logger.ILogger
	Registry *session.Registry

	ChatbotController controller.IChatbotController
	ChatEventHandler  *handler.ChatEventHandler

	// Background services, started by main.
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 1. Event bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)

	// 2. Infrastructure (all optional)
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		p, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = p
		}
	}

	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		cancel()
	}

	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 3. Chat state
	backend := chatbot.NewHTTPBackend(cfg.Backend.BaseURL, cfg.Backend.Timeout, sysLogger)

	registry := session.NewRegistry(backend, cfg.App.SessionIdleTTL, registryCleanupInterval, sysLogger)
	registry.SetDefaultLanguage(cfg.Backend.DefaultLanguage)

	publisherService := service.NewPublisherService(cfg.App.EventsTopic, pubSub, wsHub, sysLogger)
	registry.Observe(publisherService.Observe)

	// The NATS mirror is skipped when no publisher is configured.
	var sink service.EventSink
	if natsPub != nil {
		sink = natsPub
	}
	consumerService := service.NewConsumerService(pubSub, cfg.App.EventsTopic, sink, sysLogger)

	chatbotService := service.NewChatbotService(registry, sysLogger)

	c := &Container{
		Logger:            sysLogger,
		Registry:          registry,
		ChatbotController: controller.NewChatbotController(chatbotService, cfg.Auth.JWTSecret),
		ChatEventHandler:  handler.NewChatEventHandler(wsHub, cfg.Auth.JWTSecret, wsLogger),
		ConsumerService:   consumerService,
		WebSocketHub:      wsHub,
	}

	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	if natsPub != nil {
		c.closers = append(c.closers, natsPub.Close)
	}
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	c.closers = append(c.closers, func() {
		_ = wsLogger.Sync()
		_ = sysLogger.Sync()
	})

	return c
}

// Close releases connections in creation order.
func (c *Container) Close() {
	for _, fn := range c.closers {
		fn()
	}
}
