package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies who authored a chat message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Conversation groups messages between a user and a persona.
type Conversation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	PersonaID *uuid.UUID
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single chat message within a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           MessageRole
	Content        string
	Model          string // AI model that produced an assistant message
	CreatedAt      time.Time
}

// SendMessageParams contains parameters for sending a chat message.
type SendMessageParams struct {
	UserID         uuid.UUID
	ConversationID *uuid.UUID // Nil starts a new conversation
	PersonaID      *uuid.UUID // Only used when starting a new conversation
	Content        string
}

// SendMessageResult is the outcome of a successful send.
type SendMessageResult struct {
	ConversationID uuid.UUID
	Reply          *Message
	Remaining      int // Messages left in today's quota after this send
}
