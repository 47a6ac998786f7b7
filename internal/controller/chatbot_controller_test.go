package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doqulio-chat/internal/handler"
	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/internal/pkg/serverutils"
	"doqulio-chat/internal/service"
	internalWS "doqulio-chat/internal/websocket"
	"doqulio-chat/pkg/session"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T, backend session.Backend) *fiber.App {
	t.Helper()
	log := logger.NewNopLogger()
	registry := session.NewRegistry(backend, time.Hour, 0, log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(log))
	NewChatbotController(service.NewChatbotService(registry, log), testSecret).RegisterRoutes(app.Group("/api"))
	return app
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, app *fiber.App, req *http.Request, out interface{}) (int, envelope) {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "user-1"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode, env
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, prompt string, fileName string, fileData []byte) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	require.NoError(t, w.WriteField("prompt", prompt))
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/v1/messages", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestChatbotController_RequiresToken(t *testing.T) {
	app := newTestApp(t, session.BackendFunc(func(ctx context.Context, req session.ChatRequest) (string, error) {
		return "ok", nil
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chatbot/v1/state", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestChatbotController_SendChat(t *testing.T) {
	var got session.ChatRequest
	app := newTestApp(t, session.BackendFunc(func(ctx context.Context, req session.ChatRequest) (string, error) {
		got = req
		return "Sure, here's the explanation.", nil
	}))

	var res struct {
		Title string `json:"title"`
		Sent  struct {
			Content string `json:"content"`
		} `json:"sent"`
		Reply struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"reply"`
		Error string `json:"error"`
	}
	status, _ := do(t, app, multipartRequest(t, "Explain this form", "", nil), &res)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Explain this form", res.Title)
	assert.Equal(t, "Explain this form", res.Sent.Content)
	assert.Equal(t, "assistant", res.Reply.Role)
	assert.Equal(t, "Sure, here's the explanation.", res.Reply.Content)
	assert.Empty(t, res.Error)
	assert.Equal(t, "user-1", got.UserId)
	assert.Equal(t, "English", got.TargetLanguage)

	var history struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/chatbot/v1/messages", nil), &history)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, history.Messages, 3)
}

func TestChatbotController_SendChatBackendFailure(t *testing.T) {
	app := newTestApp(t, session.BackendFunc(func(ctx context.Context, req session.ChatRequest) (string, error) {
		return "", &session.RemoteCallError{StatusCode: 503, Detail: "OCR service unavailable"}
	}))

	var res struct {
		Title string `json:"title"`
		Sent  struct {
			Content     string `json:"content"`
			Attachments []struct {
				Name string `json:"name"`
				Size string `json:"size"`
			} `json:"attachments"`
		} `json:"sent"`
		Reply struct {
			Content string `json:"content"`
		} `json:"reply"`
		Error string `json:"error"`
	}
	status, _ := do(t, app, multipartRequest(t, "", "id.pdf", []byte("%PDF-1.4 fake")), &res)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "id.pdf", res.Title)
	assert.Equal(t, "Analyze this file: id.pdf", res.Sent.Content)
	require.Len(t, res.Sent.Attachments, 1)
	assert.Equal(t, "id.pdf", res.Sent.Attachments[0].Name)
	assert.Contains(t, res.Reply.Content, "OCR service unavailable")
	assert.Equal(t, "OCR service unavailable", res.Error)

	var state struct {
		Busy      bool   `json:"busy"`
		LastError string `json:"last_error"`
	}
	_, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/chatbot/v1/state", nil), &state)
	assert.False(t, state.Busy)
	assert.Equal(t, "OCR service unavailable", state.LastError)

	status, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/chatbot/v1/error", nil), nil)
	assert.Equal(t, fiber.StatusOK, status)
	_, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/chatbot/v1/state", nil), &state)
	assert.Empty(t, state.LastError)
}

func TestChatbotController_EmptyDraft(t *testing.T) {
	app := newTestApp(t, session.BackendFunc(func(ctx context.Context, req session.ChatRequest) (string, error) {
		t.Fatal("backend must not be called")
		return "", nil
	}))

	status, env := do(t, app, multipartRequest(t, "   ", "", nil), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)
}

func TestChatbotController_SessionLifecycle(t *testing.T) {
	app := newTestApp(t, session.BackendFunc(func(ctx context.Context, req session.ChatRequest) (string, error) {
		return "ok", nil
	}))

	var created struct {
		Id string `json:"id"`
	}
	status, _ := do(t, app, httptest.NewRequest(http.MethodPost, "/api/chatbot/v1/sessions", nil), &created)
	require.Equal(t, fiber.StatusCreated, status)
	require.NotEmpty(t, created.Id)

	var sessions []struct {
		Id           string `json:"id"`
		Title        string `json:"title"`
		MessageCount int    `json:"message_count"`
		Active       bool   `json:"active"`
	}
	_, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/chatbot/v1/sessions", nil), &sessions)
	require.Len(t, sessions, 2)
	assert.Equal(t, created.Id, sessions[0].Id)
	assert.True(t, sessions[0].Active)
	assert.Equal(t, 1, sessions[0].MessageCount)
	assert.Equal(t, "New Chat", sessions[1].Title)

	status, _ = do(t, app, jsonRequest(http.MethodPut, "/api/chatbot/v1/sessions/active", map[string]string{"chat_session_id": sessions[1].Id}), nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, jsonRequest(http.MethodPut, "/api/chatbot/v1/sessions/active", map[string]string{"chat_session_id": "missing"}), nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = do(t, app, jsonRequest(http.MethodPut, "/api/chatbot/v1/sessions/active", map[string]string{}), nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/chatbot/v1/sessions/"+created.Id+"/messages", nil), nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/chatbot/v1/sessions/"+created.Id, nil), nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, httptest.NewRequest(http.MethodDelete, "/api/chatbot/v1/sessions/"+created.Id, nil), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestChatbotController_SetLanguage(t *testing.T) {
	app := newTestApp(t, session.BackendFunc(func(ctx context.Context, req session.ChatRequest) (string, error) {
		return "ok", nil
	}))

	status, _ := do(t, app, jsonRequest(http.MethodPut, "/api/chatbot/v1/language", map[string]string{"target_language": "Klingon"}), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, jsonRequest(http.MethodPut, "/api/chatbot/v1/language", map[string]string{"target_language": "Marathi"}), nil)
	assert.Equal(t, fiber.StatusOK, status)

	var state struct {
		TargetLanguage string   `json:"target_language"`
		Languages      []string `json:"languages"`
	}
	_, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/chatbot/v1/state", nil), &state)
	assert.Equal(t, "Marathi", state.TargetLanguage)
	assert.Len(t, state.Languages, 14)
}

func TestChatbotController_WebSocketRouteUsesItsOwnAuth(t *testing.T) {
	log := logger.NewNopLogger()
	registry := session.NewRegistry(session.BackendFunc(func(ctx context.Context, req session.ChatRequest) (string, error) {
		return "ok", nil
	}), time.Hour, 0, log)

	// Same registration order as the server.
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(log))
	api := app.Group("/api")
	NewChatbotController(service.NewChatbotService(registry, log), testSecret).RegisterRoutes(api)
	handler.NewChatEventHandler(internalWS.NewHub(nil, log), testSecret, log).RegisterRoutes(api)

	wsRequest := func(query string, upgrade bool) (int, envelope) {
		req := httptest.NewRequest(http.MethodGet, "/api/chatbot/v1/ws"+query, nil)
		if upgrade {
			req.Header.Set("Connection", "Upgrade")
			req.Header.Set("Upgrade", "websocket")
			req.Header.Set("Sec-WebSocket-Version", "13")
			req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()

		var env envelope
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = json.Unmarshal(body, &env)
		return resp.StatusCode, env
	}

	// A query token passes straight to the websocket handler, which then wants an upgrade.
	status, _ := wsRequest("?token="+tokenFor(t, "user-1"), false)
	assert.Equal(t, fiber.StatusUpgradeRequired, status)

	status, env := wsRequest("", true)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, env.Message, "Query 'token'")

	status, env = wsRequest("?token=garbage", true)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", env.Message)

	// REST routes under the same prefix still require a bearer token.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chatbot/v1/sessions?token="+tokenFor(t, "user-1"), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
