// Package handler contains HTTP handlers for the Quill API.
//
// This file implements invite code management. Creating and listing invites
// requires authentication; validation is public so the registration form can
// check a code before submitting.
//
// Routes handled:
//   - POST /api/invites          -> Create  (auth required)
//   - GET  /api/invites          -> List    (auth required)
//   - POST /api/invites/validate -> Validate (public)
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hollandv/quill/internal/auth"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/service"
)

// InviteHandler handles invite code HTTP requests.
type InviteHandler struct {
	inviteService service.InviteService
	logger        *slog.Logger
}

// NewInviteHandler creates a new InviteHandler.
func NewInviteHandler(inviteService service.InviteService, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{
		inviteService: inviteService,
		logger:        logger,
	}
}

// RegisterRoutes registers invite routes on the provided mux.
func (h *InviteHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/invites", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/invites", requireUser(http.HandlerFunc(h.List)))
	mux.HandleFunc("POST /api/invites/validate", h.Validate)
}

// createInviteRequest is the request body for POST /api/invites.
type createInviteRequest struct {
	Email         string `json:"email" validate:"omitempty,email"`
	MaxUses       int    `json:"max_uses" validate:"omitempty,min=1,max=100"`
	ExpiresInDays int    `json:"expires_in_days" validate:"omitempty,min=1,max=365"`
}

// validateInviteRequest is the request body for POST /api/invites/validate.
type validateInviteRequest struct {
	Code  string `json:"code" validate:"required,len=64"`
	Email string `json:"email" validate:"omitempty,email"`
}

// inviteResponse is the public representation of an invite.
type inviteResponse struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Email      string `json:"email,omitempty"`
	MaxUses    int    `json:"max_uses"`
	UsageCount int    `json:"usage_count"`
	ExpiresAt  string `json:"expires_at"`
	CreatedAt  string `json:"created_at"`
}

func inviteToResponse(i *domain.Invite) inviteResponse {
	return inviteResponse{
		ID:         i.ID.String(),
		Code:       i.Code,
		Email:      i.Email,
		MaxUses:    i.MaxUses,
		UsageCount: i.UsageCount,
		ExpiresAt:  i.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:  i.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create issues a new invite code for the authenticated user.
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req createInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	invite, err := h.inviteService.Create(r.Context(), domain.CreateInviteParams{
		Email:         req.Email,
		InvitedBy:     user.ID,
		MaxUses:       req.MaxUses,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("invite created", "invite_id", invite.ID, "invited_by", user.ID)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"invite": inviteToResponse(invite),
	})
}

// List returns the invites issued by the authenticated user.
func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	invites, err := h.inviteService.ListByInviter(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]inviteResponse, 0, len(invites))
	for _, i := range invites {
		out = append(out, inviteToResponse(i))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"invites": out,
	})
}

// Validate checks whether a code can currently be redeemed, without
// consuming a use. Responds 200 {"valid": true} when redeemable; otherwise
// the error status mirrors what registration with the code would return.
func (h *InviteHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	if _, err := h.inviteService.Validate(r.Context(), req.Code, req.Email); err != nil {
		InviteFailureResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
