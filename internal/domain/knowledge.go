package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// KnowledgeEntry is an admin-managed knowledge base article. Matching
// entries are injected into the chat prompt ahead of the user's message.
type KnowledgeEntry struct {
	ID        uuid.UUID
	Title     string
	Body      string
	Tags      []string
	Metadata  json.RawMessage // Free-form JSONB (source, attribution, etc.)
	Enabled   bool
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KnowledgeParams contains the fields an admin can set on an entry.
type KnowledgeParams struct {
	Title    string
	Body     string
	Tags     []string
	Metadata json.RawMessage
	Enabled  bool
}

// KnowledgeMatch is a search hit with its ranking score.
type KnowledgeMatch struct {
	Entry KnowledgeEntry
	Rank  float64
}
