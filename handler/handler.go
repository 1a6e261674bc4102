// Package handler adapts API Gateway proxy events to the chat use case and
// converts every failure into a structured JSON error envelope. It is the
// single point where errors become status codes; nothing below it retries or
// recovers.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"project-bridge/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// ChatUseCase is the use-case surface consumed by the handler.
type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type chatRequest struct {
	Email     string `json:"email"`
	UserID    string `json:"userId"`
	Input     string `json:"input"`
	ProjectID string `json:"projectId"`
	// project_id is accepted as an alias for projectId.
	ProjectIDAlt string `json:"project_id"`
}

type chatResponse struct {
	ProjectID string `json:"projectId"`
	Response  string `json:"response"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Handler serves chat turns over the Lambda proxy integration.
type Handler struct {
	chat ChatUseCase
}

func NewHandler(chat ChatUseCase) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	return &Handler{chat: chat}, nil
}

func (r *chatRequest) validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Input, validation.Required),
	); err != nil {
		return err
	}
	if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.UserID) == "" {
		return errors.New("email or userId is required")
	}
	return nil
}

func (r *chatRequest) projectID() string {
	if strings.TrimSpace(r.ProjectID) != "" {
		return r.ProjectID
	}
	return r.ProjectIDAlt
}

// Handle processes one invocation. Validation failures return 400 with no
// side effects; completion-service failures return 502; everything else
// unexpected returns 500. The response always carries a correlation ID,
// echoing the caller's when one is provided.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := resolveCorrelationID(event.Headers)
	log := slog.With("correlationId", correlationID)

	var req chatRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		log.WarnContext(ctx, "request body is not valid JSON", "err", err)
		return errorEnvelope(http.StatusBadRequest, string(usecase.ErrorInvalidInput), "malformed_body", correlationID), nil
	}
	if err := req.validate(); err != nil {
		log.WarnContext(ctx, "request validation failed", "err", err)
		return errorEnvelope(http.StatusBadRequest, string(usecase.ErrorInvalidInput), err.Error(), correlationID), nil
	}

	out, err := h.chat.Chat(ctx, usecase.ChatInput{
		Email:     req.Email,
		UserID:    req.UserID,
		ProjectID: req.projectID(),
		Input:     req.Input,
	})
	if err != nil {
		return h.mapError(ctx, log, err, correlationID), nil
	}

	log.InfoContext(ctx, "chat turn committed", "projectId", out.ProjectID)
	return jsonEnvelope(http.StatusOK, chatResponse{
		ProjectID: out.ProjectID,
		Response:  out.Response,
	}, correlationID), nil
}

func (h *Handler) mapError(ctx context.Context, log *slog.Logger, err error, correlationID string) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		log.ErrorContext(ctx, "unexpected handler failure", "err", err, "stack", string(debug.Stack()))
		return errorEnvelope(http.StatusInternalServerError, string(usecase.ErrorInternal), "unexpected_error", correlationID)
	}

	status := http.StatusInternalServerError
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		status = http.StatusBadRequest
	case usecase.ErrorUpstream:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		log.ErrorContext(ctx, "chat turn failed", "code", string(ucErr.Code), "reason", ucErr.Reason, "err", ucErr)
	} else {
		log.WarnContext(ctx, "chat turn rejected", "code", string(ucErr.Code), "reason", ucErr.Reason)
	}
	return errorEnvelope(status, string(ucErr.Code), ucErr.Reason, correlationID)
}

func resolveCorrelationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return uuid.NewString()
}

func jsonEnvelope(status int, body any, correlationID string) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		// Marshal of these fixed shapes cannot fail; keep the envelope anyway.
		raw = []byte(`{"error":"INTERNAL_ERROR"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(raw),
	}
}

func errorEnvelope(status int, code, reason, correlationID string) events.APIGatewayProxyResponse {
	return jsonEnvelope(status, errorResponse{Error: code, Reason: reason}, correlationID)
}
