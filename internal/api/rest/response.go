package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/api/middleware"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/errors"
)

// ResponseEnvelope wraps all JSON responses.
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

type ResponseMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Count     *int      `json:"count,omitempty"`
}

type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Type      string         `json:"type,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func (h *Handler) meta(r *http.Request) ResponseMeta {
	m := ResponseMeta{
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		m.TraceID = sc.TraceID().String()
	}
	return m
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, env ResponseEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) writeSuccess(w http.ResponseWriter, r *http.Request, data any) {
	h.writeJSON(w, r, http.StatusOK, ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta:    h.meta(r),
	})
}

// writeList is writeSuccess with meta.count set.
func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, data any, n int) {
	meta := h.meta(r)
	meta.Count = &n
	h.writeJSON(w, r, http.StatusOK, ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, r, status, ResponseEnvelope{
		Error: &ErrorResponse{Code: code, Message: message},
		Meta:  h.meta(r),
	})
}

// handleError maps AppErrors to their status; anything else is a 500.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		h.logger.ErrorContext(r.Context(), "unhandled error", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	status := errors.GetStatusCode(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		"code", appErr.Code,
		"type", string(appErr.Type),
		"error", err,
	)

	h.writeJSON(w, r, status, ResponseEnvelope{
		Error: &ErrorResponse{
			Code:      appErr.Code,
			Message:   appErr.Error(),
			Type:      string(appErr.Type),
			Retryable: errors.IsRetryable(err),
			Details:   appErr.Details,
		},
		Meta: h.meta(r),
	})
}
