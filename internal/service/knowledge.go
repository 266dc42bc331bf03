// Package service contains the business logic layer.
//
// This file implements the knowledge base service. Entries are admin-managed
// articles; matching entries are injected into the chat prompt ahead of the
// user's message. Search runs on a Postgres tsvector with query terms folded
// to strip diacritics, so "café" and "cafe" hit the same entries.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/repository"
	"github.com/sqlc-dev/pqtype"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultKnowledgeSearchLimit caps how many entries a search returns.
	DefaultKnowledgeSearchLimit = 5

	// MaxKnowledgeListLimit caps page size for listing entries.
	MaxKnowledgeListLimit = 100
)

// =============================================================================
// Interface Definition
// =============================================================================

// KnowledgeService defines operations for managing and searching the
// knowledge base.
type KnowledgeService interface {
	// Create adds a new knowledge entry.
	Create(ctx context.Context, createdBy uuid.UUID, params domain.KnowledgeParams) (*domain.KnowledgeEntry, error)

	// Update modifies an existing entry.
	Update(ctx context.Context, id uuid.UUID, params domain.KnowledgeParams) (*domain.KnowledgeEntry, error)

	// Delete removes an entry.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID retrieves an entry by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.KnowledgeEntry, error)

	// List returns entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.KnowledgeEntry, error)

	// Search returns enabled entries ranked by relevance to the query.
	// A limit of 0 uses DefaultKnowledgeSearchLimit.
	Search(ctx context.Context, query string, limit int) ([]*domain.KnowledgeMatch, error)
}

// =============================================================================
// Implementation
// =============================================================================

type knowledgeService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewKnowledgeService creates a new KnowledgeService.
func NewKnowledgeService(queries *repository.Queries, logger *slog.Logger) KnowledgeService {
	return &knowledgeService{
		queries: queries,
		logger:  logger,
	}
}

// Create adds a new knowledge entry.
func (s *knowledgeService) Create(ctx context.Context, createdBy uuid.UUID, params domain.KnowledgeParams) (*domain.KnowledgeEntry, error) {
	const op = "knowledge.create"

	if err := validateKnowledgeParams(&params); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateKnowledgeEntry(ctx, repository.CreateKnowledgeEntryParams{
		Title:     params.Title,
		Body:      params.Body,
		Tags:      params.Tags,
		Metadata:  toNullRawMessage(params.Metadata),
		Enabled:   params.Enabled,
		CreatedBy: createdBy,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create knowledge entry")
	}

	entry := &domain.KnowledgeEntry{
		ID:        row.ID,
		Title:     row.Title,
		Body:      row.Body,
		Tags:      row.Tags,
		Metadata:  fromNullRawMessage(row.Metadata),
		Enabled:   row.Enabled,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	s.logger.Info("knowledge entry created", "entry_id", entry.ID, "title", entry.Title)

	return entry, nil
}

// Update modifies an existing entry.
func (s *knowledgeService) Update(ctx context.Context, id uuid.UUID, params domain.KnowledgeParams) (*domain.KnowledgeEntry, error) {
	const op = "knowledge.update"

	if err := validateKnowledgeParams(&params); err != nil {
		return nil, err
	}

	row, err := s.queries.UpdateKnowledgeEntry(ctx, repository.UpdateKnowledgeEntryParams{
		ID:       id,
		Title:    params.Title,
		Body:     params.Body,
		Tags:     params.Tags,
		Metadata: toNullRawMessage(params.Metadata),
		Enabled:  params.Enabled,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "knowledge entry", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to update knowledge entry")
	}

	entry := &domain.KnowledgeEntry{
		ID:        row.ID,
		Title:     row.Title,
		Body:      row.Body,
		Tags:      row.Tags,
		Metadata:  fromNullRawMessage(row.Metadata),
		Enabled:   row.Enabled,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	s.logger.Info("knowledge entry updated", "entry_id", entry.ID, "title", entry.Title)

	return entry, nil
}

// Delete removes an entry.
func (s *knowledgeService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "knowledge.delete"

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.queries.DeleteKnowledgeEntry(ctx, id); err != nil {
		return domain.Internal(err, op, "Failed to delete knowledge entry")
	}

	s.logger.Info("knowledge entry deleted", "entry_id", id)

	return nil
}

// GetByID retrieves an entry by ID.
func (s *knowledgeService) GetByID(ctx context.Context, id uuid.UUID) (*domain.KnowledgeEntry, error) {
	const op = "knowledge.get"

	row, err := s.queries.GetKnowledgeEntryByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "knowledge entry", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve knowledge entry")
	}

	return &domain.KnowledgeEntry{
		ID:        row.ID,
		Title:     row.Title,
		Body:      row.Body,
		Tags:      row.Tags,
		Metadata:  fromNullRawMessage(row.Metadata),
		Enabled:   row.Enabled,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// List returns entries, newest first.
func (s *knowledgeService) List(ctx context.Context, limit, offset int) ([]*domain.KnowledgeEntry, error) {
	const op = "knowledge.list"

	if limit <= 0 || limit > MaxKnowledgeListLimit {
		limit = MaxKnowledgeListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.queries.ListKnowledgeEntries(ctx, repository.ListKnowledgeEntriesParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list knowledge entries")
	}

	entries := make([]*domain.KnowledgeEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &domain.KnowledgeEntry{
			ID:        row.ID,
			Title:     row.Title,
			Body:      row.Body,
			Tags:      row.Tags,
			Metadata:  fromNullRawMessage(row.Metadata),
			Enabled:   row.Enabled,
			CreatedBy: row.CreatedBy,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}

	return entries, nil
}

// Search returns enabled entries ranked by relevance to the query.
func (s *knowledgeService) Search(ctx context.Context, query string, limit int) ([]*domain.KnowledgeMatch, error) {
	const op = "knowledge.search"

	folded := foldSearchQuery(query)
	if folded == "" {
		return nil, nil
	}

	if limit <= 0 {
		limit = DefaultKnowledgeSearchLimit
	}

	rows, err := s.queries.SearchKnowledgeEntries(ctx, repository.SearchKnowledgeEntriesParams{
		PlaintoTsquery: folded,
		Limit:          int32(limit),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to search knowledge entries")
	}

	matches := make([]*domain.KnowledgeMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, &domain.KnowledgeMatch{
			Entry: domain.KnowledgeEntry{
				ID:        row.ID,
				Title:     row.Title,
				Body:      row.Body,
				Tags:      row.Tags,
				Metadata:  fromNullRawMessage(row.Metadata),
				Enabled:   row.Enabled,
				CreatedBy: row.CreatedBy,
				CreatedAt: row.CreatedAt,
				UpdatedAt: row.UpdatedAt,
			},
			Rank: row.Rank,
		})
	}

	return matches, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// foldSearchQuery lowercases the query and strips diacritical marks.
// The index side is built by Postgres's own dictionary, so only the query
// needs folding here.
func foldSearchQuery(query string) string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, query)
	if err != nil {
		// Fall back to the raw query; folding is best-effort
		return query
	}
	return folded
}

// validateKnowledgeParams normalizes and validates entry fields.
func validateKnowledgeParams(params *domain.KnowledgeParams) error {
	const op = "knowledge.validate"

	params.Title = strings.TrimSpace(params.Title)
	params.Body = strings.TrimSpace(params.Body)

	if params.Title == "" {
		return domain.Invalid(op, "Title is required")
	}
	if params.Body == "" {
		return domain.Invalid(op, "Body is required")
	}

	if len(params.Metadata) > 0 && !json.Valid(params.Metadata) {
		return domain.Invalid(op, "Metadata must be valid JSON")
	}

	for i, tag := range params.Tags {
		params.Tags[i] = strings.ToLower(strings.TrimSpace(tag))
	}

	return nil
}

// toNullRawMessage wraps metadata bytes for the JSONB column.
func toNullRawMessage(m json.RawMessage) pqtype.NullRawMessage {
	if len(m) == 0 {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: m, Valid: true}
}

// fromNullRawMessage unwraps metadata bytes from the JSONB column.
func fromNullRawMessage(m pqtype.NullRawMessage) json.RawMessage {
	if !m.Valid {
		return nil
	}
	return m.RawMessage
}

var _ KnowledgeService = (*knowledgeService)(nil)
