// Package handler contains HTTP handlers for the Quill API.
//
// This file implements persona management. Reading personas requires
// authentication; mutating them is admin-only.
//
// Routes handled:
//   - GET    /api/personas             -> List          (auth required)
//   - GET    /api/personas/{id}        -> Get           (auth required)
//   - POST   /api/personas             -> Create        (admin)
//   - PUT    /api/personas/{id}        -> Update        (admin)
//   - DELETE /api/personas/{id}        -> Delete        (admin)
//   - PUT    /api/personas/{id}/avatar -> UploadAvatar  (admin, multipart)
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/service"
)

// PersonaHandler handles persona HTTP requests.
type PersonaHandler struct {
	personaService service.PersonaService
	logger         *slog.Logger
}

// NewPersonaHandler creates a new PersonaHandler.
func NewPersonaHandler(personaService service.PersonaService, logger *slog.Logger) *PersonaHandler {
	return &PersonaHandler{
		personaService: personaService,
		logger:         logger,
	}
}

// RegisterRoutes registers persona routes on the provided mux.
func (h *PersonaHandler) RegisterRoutes(mux *http.ServeMux, requireUser, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/personas", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/personas/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("POST /api/personas", requireAdmin(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /api/personas/{id}", requireAdmin(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/personas/{id}", requireAdmin(http.HandlerFunc(h.Delete)))
	mux.Handle("PUT /api/personas/{id}/avatar", requireAdmin(http.HandlerFunc(h.UploadAvatar)))
}

// personaRequest is the request body for creating and updating personas.
type personaRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Description  string `json:"description" validate:"max=500"`
	SystemPrompt string `json:"system_prompt" validate:"required,max=10000"`
	Greeting     string `json:"greeting" validate:"max=2000"`
	IsDefault    bool   `json:"is_default"`
}

// personaResponse is the public representation of a persona.
// The system prompt is included because reads already require auth and the
// admin UI edits it in place.
type personaResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
	Greeting     string `json:"greeting"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	IsDefault    bool   `json:"is_default"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func (h *PersonaHandler) personaToResponse(r *http.Request, p *domain.Persona) personaResponse {
	resp := personaResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		Description:  p.Description,
		SystemPrompt: p.SystemPrompt,
		Greeting:     p.Greeting,
		IsDefault:    p.IsDefault,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.AvatarPath != "" {
		resp.AvatarURL = h.personaService.AvatarURL(r.Context(), p.AvatarPath)
	}
	if p.AvatarThumbnailPath != "" {
		resp.ThumbnailURL = h.personaService.AvatarURL(r.Context(), p.AvatarThumbnailPath)
	}
	return resp
}

// List returns all personas.
func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	personas, err := h.personaService.List(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]personaResponse, 0, len(personas))
	for _, p := range personas {
		out = append(out, h.personaToResponse(r, p))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"personas": out,
	})
}

// Get returns a single persona.
func (h *PersonaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("PersonaHandler.Get", "Invalid persona ID"))
		return
	}

	persona, err := h.personaService.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"persona": h.personaToResponse(r, persona),
	})
}

// Create adds a new persona.
func (h *PersonaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if err := decodeJSON(r, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	persona, err := h.personaService.Create(r.Context(), domain.PersonaParams{
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		Greeting:     req.Greeting,
		IsDefault:    req.IsDefault,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("persona created", "persona_id", persona.ID, "name", persona.Name)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"persona": h.personaToResponse(r, persona),
	})
}

// Update modifies an existing persona.
func (h *PersonaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("PersonaHandler.Update", "Invalid persona ID"))
		return
	}

	var req personaRequest
	if err := decodeJSON(r, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	persona, err := h.personaService.Update(r.Context(), id, domain.PersonaParams{
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		Greeting:     req.Greeting,
		IsDefault:    req.IsDefault,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"persona": h.personaToResponse(r, persona),
	})
}

// Delete removes a persona and its stored avatar files.
func (h *PersonaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("PersonaHandler.Delete", "Invalid persona ID"))
		return
	}

	if err := h.personaService.Delete(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("persona deleted", "persona_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// UploadAvatar accepts a multipart form with an "avatar" file field, stores
// the image and a generated thumbnail, and returns the updated persona.
func (h *PersonaHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("PersonaHandler.UploadAvatar", "Invalid persona ID"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarSize+4096)
	if err := r.ParseMultipartForm(service.MaxAvatarSize); err != nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, "PersonaHandler.UploadAvatar",
			"The uploaded file is too large"))
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("PersonaHandler.UploadAvatar", "An avatar file field is required"))
		return
	}
	defer file.Close()

	persona, err := h.personaService.SetAvatar(r.Context(), id, header.Filename,
		header.Header.Get("Content-Type"), file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("persona avatar updated", "persona_id", id, "filename", header.Filename)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"persona": h.personaToResponse(r, persona),
	})
}
