package domain

import (
	"time"

	"github.com/google/uuid"
)

// Persona is a selectable chat character. The system prompt shapes the
// assistant's replies; avatar paths point into the storage layer.
type Persona struct {
	ID                  uuid.UUID
	Name                string
	Description         string
	SystemPrompt        string
	Greeting            string // First message shown when a conversation starts
	AvatarPath          string
	AvatarThumbnailPath string
	IsDefault           bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PersonaParams contains the fields an admin can set on a persona.
type PersonaParams struct {
	Name         string
	Description  string
	SystemPrompt string
	Greeting     string
	IsDefault    bool
}
