package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/users-backend/pkg/logger"
	"github.com/Proton-105/users-backend/pkg/metrics"
)

// Response is the payload returned to API clients for a failed request.
type Response struct {
	Status int
	Body   map[string]any
}

type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs err, reports it to Sentry when severe enough, and converts it into
// the response sent to the client. Errors that are not AppErrors are treated as
// internal failures and their text is never exposed.
func (h *Handler) Handle(ctx context.Context, err error) Response {
	if err == nil {
		return Response{Status: http.StatusOK}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log := h.log
	if log == nil {
		log = slog.Default()
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		appErr = NewInternalError(err)
	}

	attrs := []slog.Attr{
		slog.String("code", appErr.Code),
		slog.String("message", appErr.Message),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
	}

	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	metrics.RecordError(appErr.Code, string(appErr.Severity))

	switch appErr.Severity {
	case SeverityHigh, SeverityCritical:
		log.LogAttrs(ctx, slog.LevelError, "application error", attrs...)
		if h.sentryEnabled {
			h.sendToSentry(ctx, err, appErr)
		}
	default:
		log.LogAttrs(ctx, slog.LevelWarn, "request rejected", attrs...)
	}

	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	detail := appErr.Detail
	if detail == nil {
		detail = appErr.Message
	}

	return Response{
		Status: status,
		Body:   map[string]any{"detail": detail},
	}
}

func (h *Handler) sendToSentry(ctx context.Context, err error, appErr *AppError) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", appErr.Code)
		scope.SetTag("severity", string(appErr.Severity))
		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}

		hub.CaptureException(err)
	})
}
