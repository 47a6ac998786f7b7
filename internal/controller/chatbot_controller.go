package controller

import (
	"io"

	"doqulio-chat/internal/dto"
	"doqulio-chat/internal/pkg/serverutils"
	"doqulio-chat/internal/service"
	"doqulio-chat/pkg/session"

	"github.com/gofiber/fiber/v2"
)

const maxUploadSize = 10 * 1024 * 1024

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	GetAllSessions(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	SwitchSession(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	GetActiveHistory(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	GetState(ctx *fiber.Ctx) error
	SetLanguage(ctx *fiber.Ctx) error
	DismissError(ctx *fiber.Ctx) error
}

type chatbotController struct {
	service   service.IChatbotService
	jwtSecret string
}

func NewChatbotController(service service.IChatbotService, jwtSecret string) IChatbotController {
	return &chatbotController{service: service, jwtSecret: jwtSecret}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	// Auth is attached per route: the websocket route shares this prefix and
	// authenticates its own handshake.
	auth := serverutils.JwtMiddleware(c.jwtSecret)

	h := r.Group("/chatbot/v1")
	h.Get("/sessions", auth, c.GetAllSessions)
	h.Post("/sessions", auth, c.CreateSession)
	h.Put("/sessions/active", auth, c.SwitchSession)
	h.Delete("/sessions/:id", auth, c.DeleteSession)
	h.Get("/sessions/:id/messages", auth, c.GetChatHistory)
	h.Get("/messages", auth, c.GetActiveHistory)
	h.Post("/messages", auth, c.SendChat)
	h.Get("/state", auth, c.GetState)
	h.Put("/language", auth, c.SetLanguage)
	h.Delete("/error", auth, c.DismissError)
}

func (c *chatbotController) GetAllSessions(ctx *fiber.Ctx) error {
	res, err := c.service.GetAllSessions(ctx.Context(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all sessions", res))
}

func (c *chatbotController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.service.CreateSession(ctx.Context(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	err := c.service.DeleteSession(ctx.Context(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

func (c *chatbotController) SwitchSession(ctx *fiber.Ctx) error {
	var req dto.SwitchSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.SwitchSession(ctx.Context(), serverutils.UserID(ctx), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success switch session", nil))
}

func (c *chatbotController) GetChatHistory(ctx *fiber.Ctx) error {
	res, err := c.service.GetChatHistory(ctx.Context(), serverutils.UserID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *chatbotController) GetActiveHistory(ctx *fiber.Ctx) error {
	res, err := c.service.GetActiveHistory(ctx.Context(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *chatbotController) SendChat(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	file, err := readUpload(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.SendChat(ctx.Context(), serverutils.UserID(ctx), &req, file)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *chatbotController) GetState(ctx *fiber.Ctx) error {
	res, err := c.service.GetState(ctx.Context(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat state", res))
}

func (c *chatbotController) SetLanguage(ctx *fiber.Ctx) error {
	var req dto.SetLanguageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.service.SetLanguage(ctx.Context(), serverutils.UserID(ctx), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success set language", nil))
}

func (c *chatbotController) DismissError(ctx *fiber.Ctx) error {
	if err := c.service.DismissError(ctx.Context(), serverutils.UserID(ctx)); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success dismiss error", nil))
}

// readUpload returns the optional "file" part of a multipart request.
func readUpload(ctx *fiber.Ctx) (*session.FileRef, error) {
	header, err := ctx.FormFile("file")
	if err != nil {
		// No multipart body or no file part: text-only message.
		return nil, nil
	}
	if header.Size > maxUploadSize {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, "file exceeds 10MB")
	}

	f, err := header.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return &session.FileRef{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
