// Package rest serves the investigator API over HTTP.
package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/features"
	"github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/service/insider"
)

// Handler implements the query and refresh endpoints on top of
// insider.Service.
type Handler struct {
	svc       insider.Service
	validator *validator.Validate
	logger    *slog.Logger
	version   string
}

func NewHandler(svc insider.Service, logger *slog.Logger, version string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}
	return &Handler{
		svc:       svc,
		validator: newValidator(),
		logger:    logger,
		version:   version,
	}
}

// RefreshResult is returned by POST /refresh.
type RefreshResult struct {
	Users      int            `json:"users"`
	Anomalies  int            `json:"anomalies"`
	DurationMS int64          `json:"duration_ms"`
	Status     insider.Status `json:"status"`
}

func (h *Handler) handleRiskyUsers(w http.ResponseWriter, r *http.Request) {
	q, err := parseTopN(r, h.validator)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	records := h.svc.RiskyUsers(r.Context(), q.TopN)
	h.writeList(w, r, records, len(records))
}

func (h *Handler) handleRiskyUsersTable(w http.ResponseWriter, r *http.Request) {
	q, err := parseTopN(r, h.validator)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	records := h.svc.RiskyUsers(r.Context(), q.TopN)
	if err := renderRiskTable(w, records); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render risk table", "error", err)
	}
}

func (h *Handler) handleUserFeatures(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r, h.validator)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	days := h.svc.UserFeatures(r.Context(), q.User)
	h.writeList(w, r, days, len(days))
}

func (h *Handler) handleUserRaw(w http.ResponseWriter, r *http.Request) {
	q, err := parseUser(r, h.validator)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, r, h.svc.UserRaw(r.Context(), q.User))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	m, err := h.svc.Refresh(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, r, RefreshResult{
		Users:      m.Len(),
		Anomalies:  countAnomalies(m),
		DurationMS: time.Since(start).Milliseconds(),
		Status:     h.svc.Status(r.Context()),
	})
}

func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	q, err := parseRuns(r, h.validator)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	runs, err := h.svc.Runs(r.Context(), q.Limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeList(w, r, runs, len(runs))
}

func countAnomalies(m *features.Matrix) int {
	n := 0
	if m == nil {
		return n
	}
	for _, a := range m.Anomalous {
		if a {
			n++
		}
	}
	return n
}
