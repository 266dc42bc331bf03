// Package handler contains HTTP handlers for the Quill API.
//
// This file implements the quota status endpoint.
//
// Route:
//   - GET /api/me/quota -> GetQuota (auth required)
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hollandv/quill/internal/auth"
	"github.com/hollandv/quill/internal/service"
)

// QuotaHandler reports the authenticated user's daily message quota.
type QuotaHandler struct {
	quotaService service.QuotaService
	logger       *slog.Logger
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(quotaService service.QuotaService, logger *slog.Logger) *QuotaHandler {
	return &QuotaHandler{
		quotaService: quotaService,
		logger:       logger,
	}
}

// RegisterRoutes registers quota routes on the provided mux.
func (h *QuotaHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/me/quota", requireUser(http.HandlerFunc(h.GetQuota)))
}

// quotaResponse is the body of GET /api/me/quota.
type quotaResponse struct {
	CanSend   bool   `json:"can_send"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	ResetsAt  string `json:"resets_at"`
}

// GetQuota evaluates the user's quota without consuming any of it.
// The evaluation reconciles the record first, so a client polling after
// midnight sees the fresh day's allowance.
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	decision, err := h.quotaService.Evaluate(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, quotaResponse{
		CanSend:   decision.CanSend,
		Used:      decision.Used,
		Remaining: decision.Remaining,
		Limit:     decision.Limit,
		ResetsAt:  service.NextQuotaReset(time.Now()).UTC().Format(time.RFC3339),
	})
}
