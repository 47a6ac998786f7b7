package serverutils

import (
	"errors"

	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/pkg/session"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON envelope.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err,
			})
		}
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var fe *fiber.Error
	var ve *ValidationError
	var rce *session.RemoteCallError

	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, session.ErrEmptyDraft), errors.Is(err, session.ErrUnsupportedLanguage):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrUnknownSession):
		return fiber.StatusNotFound
	case errors.Is(err, session.ErrBusy):
		return fiber.StatusConflict
	case errors.As(err, &rce):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
