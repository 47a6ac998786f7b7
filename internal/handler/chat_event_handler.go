package handler

import (
	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/internal/pkg/serverutils"
	internalWS "doqulio-chat/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ChatEventHandler streams a user's chat state transitions over a websocket.
type ChatEventHandler struct {
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewChatEventHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *ChatEventHandler {
	return &ChatEventHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *ChatEventHandler) RegisterRoutes(r fiber.Router) {
	g := r.Group("/chatbot/v1")
	g.Get("/ws", h.Upgrade, websocket.New(h.serve))
}

// Upgrade authenticates the handshake before switching protocols.
func (h *ChatEventHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
	}

	userID, err := serverutils.ParseUserID(tokenStr, h.jwtSecret)
	if err != nil {
		h.logger.Warn("ChatEventHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	c.Locals("user_id", userID)
	return c.Next()
}

func (h *ChatEventHandler) serve(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	internalWS.ServeWs(h.hub, conn, userID)
}
