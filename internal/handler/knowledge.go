// Package handler contains HTTP handlers for the Quill API.
//
// This file implements knowledge base management. All routes are admin-only;
// regular users only encounter knowledge entries through prompt injection in
// the chat pipeline.
//
// Routes handled:
//   - GET    /api/knowledge        -> List
//   - GET    /api/knowledge/search -> Search
//   - GET    /api/knowledge/{id}   -> Get
//   - POST   /api/knowledge        -> Create
//   - PUT    /api/knowledge/{id}   -> Update
//   - DELETE /api/knowledge/{id}   -> Delete
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hollandv/quill/internal/auth"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/service"
)

// KnowledgeHandler handles knowledge base HTTP requests.
type KnowledgeHandler struct {
	knowledgeService service.KnowledgeService
	logger           *slog.Logger
}

// NewKnowledgeHandler creates a new KnowledgeHandler.
func NewKnowledgeHandler(knowledgeService service.KnowledgeService, logger *slog.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledgeService: knowledgeService,
		logger:           logger,
	}
}

// RegisterRoutes registers knowledge routes on the provided mux.
func (h *KnowledgeHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/knowledge", requireAdmin(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/knowledge/search", requireAdmin(http.HandlerFunc(h.Search)))
	mux.Handle("GET /api/knowledge/{id}", requireAdmin(http.HandlerFunc(h.Get)))
	mux.Handle("POST /api/knowledge", requireAdmin(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /api/knowledge/{id}", requireAdmin(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/knowledge/{id}", requireAdmin(http.HandlerFunc(h.Delete)))
}

// knowledgeRequest is the request body for creating and updating entries.
type knowledgeRequest struct {
	Title    string          `json:"title" validate:"required,max=200"`
	Body     string          `json:"body" validate:"required"`
	Tags     []string        `json:"tags" validate:"max=20,dive,max=50"`
	Metadata json.RawMessage `json:"metadata"`
	Enabled  bool            `json:"enabled"`
}

// knowledgeResponse is the public representation of a knowledge entry.
type knowledgeResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Tags      []string        `json:"tags"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Enabled   bool            `json:"enabled"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// knowledgeMatchResponse is a search hit with its ranking score.
type knowledgeMatchResponse struct {
	Entry knowledgeResponse `json:"entry"`
	Rank  float64           `json:"rank"`
}

func knowledgeToResponse(e *domain.KnowledgeEntry) knowledgeResponse {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return knowledgeResponse{
		ID:        e.ID.String(),
		Title:     e.Title,
		Body:      e.Body,
		Tags:      tags,
		Metadata:  e.Metadata,
		Enabled:   e.Enabled,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// List returns knowledge entries, newest first.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	entries, err := h.knowledgeService.List(r.Context(), limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]knowledgeResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, knowledgeToResponse(e))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": out,
	})
}

// Search runs a full-text search over enabled entries.
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("KnowledgeHandler.Search", "A q query parameter is required"))
		return
	}

	limit := queryInt(r, "limit", service.DefaultKnowledgeSearchLimit)

	matches, err := h.knowledgeService.Search(r.Context(), query, limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]knowledgeMatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, knowledgeMatchResponse{
			Entry: knowledgeToResponse(&m.Entry),
			Rank:  m.Rank,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches": out,
	})
}

// Get returns a single knowledge entry.
func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("KnowledgeHandler.Get", "Invalid entry ID"))
		return
	}

	entry, err := h.knowledgeService.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entry": knowledgeToResponse(entry),
	})
}

// Create adds a new knowledge entry attributed to the requesting admin.
func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req knowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	entry, err := h.knowledgeService.Create(r.Context(), user.ID, domain.KnowledgeParams{
		Title:    req.Title,
		Body:     req.Body,
		Tags:     req.Tags,
		Metadata: req.Metadata,
		Enabled:  req.Enabled,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("knowledge entry created", "entry_id", entry.ID, "created_by", user.ID)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"entry": knowledgeToResponse(entry),
	})
}

// Update modifies an existing knowledge entry.
func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("KnowledgeHandler.Update", "Invalid entry ID"))
		return
	}

	var req knowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	entry, err := h.knowledgeService.Update(r.Context(), id, domain.KnowledgeParams{
		Title:    req.Title,
		Body:     req.Body,
		Tags:     req.Tags,
		Metadata: req.Metadata,
		Enabled:  req.Enabled,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entry": knowledgeToResponse(entry),
	})
}

// Delete removes a knowledge entry.
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("KnowledgeHandler.Delete", "Invalid entry ID"))
		return
	}

	if err := h.knowledgeService.Delete(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("knowledge entry deleted", "entry_id", id)
	w.WriteHeader(http.StatusNoContent)
}
