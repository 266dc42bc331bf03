// Package service contains the business logic layer.
//
// This file implements the chat service: the message send pipeline that
// enforces the daily quota, assembles the persona and knowledge prompt,
// calls the AI provider, and records both sides of the exchange.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hollandv/quill/internal/ai"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/metrics"
	"github.com/hollandv/quill/internal/repository"
)

const (
	// MaxMessageLength caps a single chat message.
	MaxMessageLength = 8000

	// HistoryWindow is how many prior messages are sent to the AI provider.
	HistoryWindow = 40

	// ConversationTitleLength is how much of the first message becomes the
	// conversation title.
	ConversationTitleLength = 60

	// DefaultConversationPageSize is the page size for listing conversations.
	DefaultConversationPageSize = 20
)

// =============================================================================
// Interface Definition
// =============================================================================

// ChatService defines operations for conversations and message exchange.
type ChatService interface {
	// SendMessage runs the full send pipeline for one user message.
	// Returns domain.ERATELIMIT when the daily quota is exhausted and
	// domain.EUNAVAILABLE when the AI provider cannot be reached.
	SendMessage(ctx context.Context, params domain.SendMessageParams) (*domain.SendMessageResult, error)

	// ListConversations returns a user's conversations, most recent first.
	ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Conversation, error)

	// GetConversation retrieves a conversation owned by the user.
	// Returns domain.ENOTFOUND if it doesn't exist or belongs to another user.
	GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error)

	// ListMessages returns a conversation's messages, oldest first.
	// The conversation must belong to the user.
	ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit int) ([]*domain.Message, error)
}

// =============================================================================
// Implementation
// =============================================================================

type chatService struct {
	queries   *repository.Queries
	quota     QuotaService
	personas  PersonaService
	knowledge KnowledgeService
	provider  ai.Provider
	logger    *slog.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(
	queries *repository.Queries,
	quota QuotaService,
	personas PersonaService,
	knowledge KnowledgeService,
	provider ai.Provider,
	logger *slog.Logger,
) ChatService {
	return &chatService{
		queries:   queries,
		quota:     quota,
		personas:  personas,
		knowledge: knowledge,
		provider:  provider,
		logger:    logger,
	}
}

// SendMessage runs the full send pipeline for one user message.
//
// Flow:
// 1. Validate the message content
// 2. Resolve the conversation (create one if the params carry none)
// 3. Consume one message of quota (atomic conditional increment)
// 4. Record the user message
// 5. Assemble the system prompt (persona + ranked knowledge matches)
// 6. Call the AI provider with the recent history
// 7. Record the assistant reply and bump the conversation
//
// Quota is consumed before the provider call. A provider failure does not
// refund the message: the user message is already recorded and the client
// can retry reading the reply without resending.
func (s *chatService) SendMessage(ctx context.Context, params domain.SendMessageParams) (*domain.SendMessageResult, error) {
	const op = "chat.send"

	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, domain.Invalid(op, "Message cannot be empty")
	}
	if len(content) > MaxMessageLength {
		return nil, domain.Invalid(op, fmt.Sprintf("Message must be %d characters or less", MaxMessageLength))
	}

	conversation, persona, err := s.resolveConversation(ctx, params, content)
	if err != nil {
		return nil, err
	}

	remaining, err := s.quota.Consume(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	_, err = s.queries.CreateMessage(ctx, repository.CreateMessageParams{
		ConversationID: conversation.ID,
		Role:           string(domain.MessageRoleUser),
		Content:        content,
		Model:          "",
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to record message")
	}

	systemPrompt := s.buildSystemPrompt(ctx, persona, content)
	history, err := s.buildHistory(ctx, conversation.ID)
	if err != nil {
		return nil, err
	}

	completion, err := s.provider.Complete(ctx, ai.CompletionParams{
		SystemPrompt: systemPrompt,
		History:      history,
	})
	if err != nil {
		metrics.AICalls.WithLabelValues("error").Inc()
		s.logger.Error("ai completion failed",
			"conversation_id", conversation.ID,
			"user_id", params.UserID,
			"error", err,
		)
		return nil, domain.Unavailable(err, op, "The assistant is temporarily unavailable. Please try again.")
	}

	metrics.AICalls.WithLabelValues("success").Inc()
	metrics.AICallDuration.Observe(completion.Usage.Duration.Seconds())
	metrics.AITokensTotal.WithLabelValues("input").Add(float64(completion.Usage.InputTokens))
	metrics.AITokensTotal.WithLabelValues("output").Add(float64(completion.Usage.OutputTokens))

	assistantMsg, err := s.queries.CreateMessage(ctx, repository.CreateMessageParams{
		ConversationID: conversation.ID,
		Role:           string(domain.MessageRoleAssistant),
		Content:        completion.Content,
		Model:          completion.Model,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to record reply")
	}

	if err := s.queries.TouchConversation(ctx, conversation.ID); err != nil {
		s.logger.Warn("failed to touch conversation", "conversation_id", conversation.ID, "error", err)
	}

	s.logger.Info("message exchanged",
		"conversation_id", conversation.ID,
		"user_id", params.UserID,
		"model", completion.Model,
		"input_tokens", completion.Usage.InputTokens,
		"output_tokens", completion.Usage.OutputTokens,
		"remaining", remaining,
	)

	return &domain.SendMessageResult{
		ConversationID: conversation.ID,
		Reply:          repoMessageToDomain(assistantMsg),
		Remaining:      remaining,
	}, nil
}

// ListConversations returns a user's conversations, most recent first.
func (s *chatService) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Conversation, error) {
	const op = "chat.list_conversations"

	if limit <= 0 {
		limit = DefaultConversationPageSize
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.queries.ListConversationsByUserID(ctx, repository.ListConversationsByUserIDParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list conversations")
	}

	conversations := make([]*domain.Conversation, 0, len(rows))
	for _, row := range rows {
		conversations = append(conversations, repoConversationToDomain(row))
	}

	return conversations, nil
}

// GetConversation retrieves a conversation owned by the user.
func (s *chatService) GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	const op = "chat.get_conversation"

	row, err := s.queries.GetConversationByIDAndUserID(ctx, repository.GetConversationByIDAndUserIDParams{
		ID:     conversationID,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "conversation", conversationID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve conversation")
	}

	return repoConversationToDomain(row), nil
}

// ListMessages returns a conversation's messages, oldest first.
func (s *chatService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit int) ([]*domain.Message, error) {
	const op = "chat.list_messages"

	// Ownership check before reading messages
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = HistoryWindow
	}

	rows, err := s.queries.ListMessagesByConversationID(ctx, repository.ListMessagesByConversationIDParams{
		ConversationID: conversationID,
		Limit:          int32(limit),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list messages")
	}

	messages := make([]*domain.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, repoMessageToDomain(row))
	}

	return messages, nil
}

// =============================================================================
// Pipeline Internals
// =============================================================================

// resolveConversation loads the target conversation, or starts a new one
// titled from the first message. The persona is fixed at creation time;
// sends into an existing conversation keep its persona.
func (s *chatService) resolveConversation(ctx context.Context, params domain.SendMessageParams, content string) (*domain.Conversation, *domain.Persona, error) {
	const op = "chat.resolve_conversation"

	if params.ConversationID != nil {
		conversation, err := s.GetConversation(ctx, params.UserID, *params.ConversationID)
		if err != nil {
			return nil, nil, err
		}
		persona, err := s.personaFor(ctx, conversation.PersonaID)
		if err != nil {
			return nil, nil, err
		}
		return conversation, persona, nil
	}

	persona, err := s.personaFor(ctx, params.PersonaID)
	if err != nil {
		return nil, nil, err
	}

	var personaID uuid.NullUUID
	if persona != nil {
		personaID = uuid.NullUUID{UUID: persona.ID, Valid: true}
	}

	row, err := s.queries.CreateConversation(ctx, repository.CreateConversationParams{
		UserID:    params.UserID,
		PersonaID: personaID,
		Title:     conversationTitle(content),
	})
	if err != nil {
		return nil, nil, domain.Internal(err, op, "Failed to create conversation")
	}

	return repoConversationToDomain(row), persona, nil
}

// personaFor resolves the persona for a conversation. A nil ID falls back
// to the default persona; having no default persona at all is allowed.
func (s *chatService) personaFor(ctx context.Context, personaID *uuid.UUID) (*domain.Persona, error) {
	if personaID != nil {
		return s.personas.GetByID(ctx, *personaID)
	}

	persona, err := s.personas.GetDefault(ctx)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil, nil
		}
		return nil, err
	}
	return persona, nil
}

// buildSystemPrompt combines the persona's system prompt with knowledge
// entries relevant to the user's message. Knowledge search failures are
// logged and skipped; a degraded prompt beats a failed send.
func (s *chatService) buildSystemPrompt(ctx context.Context, persona *domain.Persona, content string) string {
	var b strings.Builder

	if persona != nil {
		b.WriteString(persona.SystemPrompt)
	}

	matches, err := s.knowledge.Search(ctx, content, DefaultKnowledgeSearchLimit)
	if err != nil {
		s.logger.Warn("knowledge search failed", "error", err)
		return b.String()
	}

	if len(matches) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Use the following reference material when relevant:\n")
		for _, m := range matches {
			b.WriteString("\n## ")
			b.WriteString(m.Entry.Title)
			b.WriteString("\n")
			b.WriteString(m.Entry.Body)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// buildHistory loads the recent message window for the provider call,
// oldest first. The just-recorded user message is included.
func (s *chatService) buildHistory(ctx context.Context, conversationID uuid.UUID) ([]ai.Turn, error) {
	const op = "chat.build_history"

	rows, err := s.queries.ListMessagesByConversationID(ctx, repository.ListMessagesByConversationIDParams{
		ConversationID: conversationID,
		Limit:          HistoryWindow,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load conversation history")
	}

	turns := make([]ai.Turn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, ai.Turn{
			Role:    row.Role,
			Content: row.Content,
		})
	}

	return turns, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// conversationTitle derives a title from the first message. Truncation
// happens on a rune boundary so a multi-byte character is never split into
// invalid UTF-8.
func conversationTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if len(title) > ConversationTitleLength {
		cut := ConversationTitleLength
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = strings.TrimSpace(title[:cut])
	}
	return title
}

// repoConversationToDomain converts a repository.Conversation.
func repoConversationToDomain(c repository.Conversation) *domain.Conversation {
	var personaID *uuid.UUID
	if c.PersonaID.Valid {
		id := c.PersonaID.UUID
		personaID = &id
	}
	return &domain.Conversation{
		ID:        c.ID,
		UserID:    c.UserID,
		PersonaID: personaID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// repoMessageToDomain converts a repository.Message.
func repoMessageToDomain(m repository.Message) *domain.Message {
	return &domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           domain.MessageRole(m.Role),
		Content:        m.Content,
		Model:          m.Model,
		CreatedAt:      m.CreatedAt,
	}
}

var _ ChatService = (*chatService)(nil)
