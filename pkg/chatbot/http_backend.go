// FILE: pkg/chatbot/http_backend.go
// PURPOSE: Multipart client for the document-assistant chat endpoint.

package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"doqulio-chat/internal/constant"
	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/pkg/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const logModule = "ChatBackend"

// HTTPBackend talks to the remote chat service.
type HTTPBackend struct {
	BaseURL string
	Client  *http.Client
	logger  logger.ILogger
}

// Ensure HTTPBackend implements session.Backend
var _ session.Backend = &HTTPBackend{}

func NewHTTPBackend(baseURL string, timeout time.Duration, log logger.ILogger) *HTTPBackend {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &HTTPBackend{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Detail *string `json:"detail"`
}

func (b *HTTPBackend) Chat(ctx context.Context, req session.ChatRequest) (string, error) {
	ctx, span := otel.Tracer("chatbot").Start(ctx, "chatbot.Chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.user_id", req.UserId),
		attribute.String("chat.target_language", req.TargetLanguage),
		attribute.Bool("chat.has_file", req.File != nil),
	)

	// 1. Build multipart body
	body, contentType, err := encodeForm(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode form")
		return "", fmt.Errorf("encode chat form: %w", err)
	}

	// 2. Send Request
	url := b.BaseURL + "/chat/"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := b.Client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		b.logger.Warn(logModule, "Chat request failed", map[string]interface{}{
			"user_id": req.UserId,
			"error":   err.Error(),
		})
		return "", &session.RemoteCallError{Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &session.RemoteCallError{StatusCode: resp.StatusCode, Detail: err.Error(), Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	b.logger.Info(logModule, "Chat backend responded", map[string]interface{}{
		"user_id":     req.UserId,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	// 3. Parse Response
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := constant.ChatBackendUnknownError
		var er errorResponse
		if json.Unmarshal(bodyBytes, &er) == nil && er.Detail != nil && *er.Detail != "" {
			detail = *er.Detail
		}
		span.SetStatus(codes.Error, detail)
		return "", &session.RemoteCallError{StatusCode: resp.StatusCode, Detail: detail}
	}

	var cr chatResponse
	if err := json.Unmarshal(bodyBytes, &cr); err != nil {
		span.RecordError(err)
		return "", &session.RemoteCallError{
			StatusCode: resp.StatusCode,
			Detail:     "malformed response from chat service",
			Err:        err,
		}
	}

	return cr.Response, nil
}

func encodeForm(req session.ChatRequest) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := [][2]string{
		{"user_id", req.UserId},
		{"prompt", req.Prompt},
		{"target_language", req.TargetLanguage},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if req.File != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(req.File.Name)))
		h.Set("Content-Type", req.File.ContentType())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(req.File.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
