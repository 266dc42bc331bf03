// Package handler contains HTTP handlers for the Quill API.
//
// This file implements the chat surface: sending messages and browsing
// conversation history. All routes require authentication.
//
// Routes handled:
//   - POST /api/chat/messages                  -> SendMessage
//   - GET  /api/conversations                  -> ListConversations
//   - GET  /api/conversations/{id}             -> GetConversation
//   - GET  /api/conversations/{id}/messages    -> ListMessages
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hollandv/quill/internal/auth"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/metrics"
	"github.com/hollandv/quill/internal/service"
)

// ChatHandler handles chat HTTP requests.
type ChatHandler struct {
	chatService service.ChatService
	logger      *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// RegisterRoutes registers chat routes on the provided mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/chat/messages", requireUser(http.HandlerFunc(h.SendMessage)))
	mux.Handle("GET /api/conversations", requireUser(http.HandlerFunc(h.ListConversations)))
	mux.Handle("GET /api/conversations/{id}", requireUser(http.HandlerFunc(h.GetConversation)))
	mux.Handle("GET /api/conversations/{id}/messages", requireUser(http.HandlerFunc(h.ListMessages)))
}

// sendMessageRequest is the request body for POST /api/chat/messages.
// Omitting conversation_id starts a new conversation; persona_id is only
// honored for new conversations.
type sendMessageRequest struct {
	ConversationID string `json:"conversation_id" validate:"omitempty,uuid"`
	PersonaID      string `json:"persona_id" validate:"omitempty,uuid"`
	Content        string `json:"content" validate:"required,max=8000"`
}

// conversationResponse is the public representation of a conversation.
type conversationResponse struct {
	ID        string  `json:"id"`
	PersonaID *string `json:"persona_id"`
	Title     string  `json:"title"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// messageResponse is the public representation of a chat message.
type messageResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	Model          string `json:"model,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func conversationToResponse(c *domain.Conversation) conversationResponse {
	resp := conversationResponse{
		ID:        c.ID.String(),
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if c.PersonaID != nil {
		id := c.PersonaID.String()
		resp.PersonaID = &id
	}
	return resp
}

func messageToResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		Role:           string(m.Role),
		Content:        m.Content,
		Model:          m.Model,
		CreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// SendMessage runs the chat pipeline for one user message.
//
// Responds 200 with the assistant's reply and the remaining quota, 429 when
// the daily quota is spent, and 503 when the AI provider is unavailable.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	params := domain.SendMessageParams{
		UserID:  user.ID,
		Content: req.Content,
	}
	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("ChatHandler.SendMessage", "Invalid conversation ID"))
			return
		}
		params.ConversationID = &id
	}
	if req.PersonaID != "" {
		id, err := uuid.Parse(req.PersonaID)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("ChatHandler.SendMessage", "Invalid persona ID"))
			return
		}
		params.PersonaID = &id
	}

	result, err := h.chatService.SendMessage(r.Context(), params)
	if err != nil {
		if domain.ErrorCode(err) == domain.ERATELIMIT {
			metrics.QuotaDenials.Inc()
			// Tell the client when the daily window rolls over
			retryAfter := int(time.Until(service.NextQuotaReset(time.Now())).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	metrics.MessagesSent.Inc()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": result.ConversationID.String(),
		"reply":           messageToResponse(result.Reply),
		"quota": map[string]int{
			"remaining": result.Remaining,
		},
	})
}

// ListConversations returns the user's conversations, most recent first.
// Supports limit and offset query parameters.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	limit := queryInt(r, "limit", service.DefaultConversationPageSize)
	offset := queryInt(r, "offset", 0)

	conversations, err := h.chatService.ListConversations(r.Context(), user.ID, limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]conversationResponse, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, conversationToResponse(c))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": out,
	})
}

// GetConversation returns a single conversation owned by the user.
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("ChatHandler.GetConversation", "Invalid conversation ID"))
		return
	}

	conversation, err := h.chatService.GetConversation(r.Context(), user.ID, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"conversation": conversationToResponse(conversation),
	})
}

// ListMessages returns a conversation's messages, oldest first.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("ChatHandler.ListMessages", "Invalid conversation ID"))
		return
	}

	limit := queryInt(r, "limit", 0)

	messages, err := h.chatService.ListMessages(r.Context(), user.ID, id, limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageToResponse(m))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"messages": out,
	})
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
