// Package service contains the business logic layer.
//
// This file implements the persona service. Personas are admin-managed chat
// characters; exactly one can be flagged as the default for new conversations.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/repository"
	"github.com/hollandv/quill/internal/storage"
)

const (
	// MaxAvatarSize caps persona avatar uploads at 5 MB.
	MaxAvatarSize = 5 * 1024 * 1024

	// AvatarThumbnailSize is the bounding box for generated thumbnails.
	AvatarThumbnailSize = 128
)

// =============================================================================
// Interface Definition
// =============================================================================

// PersonaService defines operations for managing chat personas.
type PersonaService interface {
	// Create adds a new persona. Setting IsDefault moves the default flag
	// from whichever persona currently holds it.
	Create(ctx context.Context, params domain.PersonaParams) (*domain.Persona, error)

	// Update modifies an existing persona.
	Update(ctx context.Context, id uuid.UUID, params domain.PersonaParams) (*domain.Persona, error)

	// Delete removes a persona and its stored avatar files.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID retrieves a persona by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Persona, error)

	// GetDefault retrieves the default persona.
	// Returns domain.ENOTFOUND if no default is configured.
	GetDefault(ctx context.Context) (*domain.Persona, error)

	// List returns all personas.
	List(ctx context.Context) ([]*domain.Persona, error)

	// SetAvatar stores an uploaded avatar image and its generated thumbnail,
	// replacing any previous avatar.
	SetAvatar(ctx context.Context, id uuid.UUID, filename, contentType string, data io.Reader) (*domain.Persona, error)

	// AvatarURL resolves a stored avatar key to a client-accessible URL.
	// Returns an empty string when the key cannot be resolved.
	AvatarURL(ctx context.Context, key string) string
}

// =============================================================================
// Implementation
// =============================================================================

type personaService struct {
	db         *sql.DB
	queries    *repository.Queries
	store      storage.Storage
	thumbnails ThumbnailProcessor
	logger     *slog.Logger
}

// NewPersonaService creates a new PersonaService.
func NewPersonaService(db *sql.DB, queries *repository.Queries, store storage.Storage, thumbnails ThumbnailProcessor, logger *slog.Logger) PersonaService {
	return &personaService{
		db:         db,
		queries:    queries,
		store:      store,
		thumbnails: thumbnails,
		logger:     logger,
	}
}

// Create adds a new persona.
func (s *personaService) Create(ctx context.Context, params domain.PersonaParams) (*domain.Persona, error) {
	const op = "persona.create"

	if err := validatePersonaParams(&params); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to begin transaction")
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	// The partial unique index on is_default allows only one default row,
	// so the old default must be cleared in the same transaction.
	if params.IsDefault {
		if err := qtx.ClearDefaultPersona(ctx); err != nil {
			return nil, domain.Internal(err, op, "Failed to clear default persona")
		}
	}

	repoPersona, err := qtx.CreatePersona(ctx, repository.CreatePersonaParams{
		Name:         params.Name,
		Description:  params.Description,
		SystemPrompt: params.SystemPrompt,
		Greeting:     params.Greeting,
		IsDefault:    params.IsDefault,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create persona")
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Internal(err, op, "Failed to commit persona")
	}

	persona := repoPersonaToDomain(repoPersona)

	s.logger.Info("persona created", "persona_id", persona.ID, "name", persona.Name, "is_default", persona.IsDefault)

	return persona, nil
}

// Update modifies an existing persona.
func (s *personaService) Update(ctx context.Context, id uuid.UUID, params domain.PersonaParams) (*domain.Persona, error) {
	const op = "persona.update"

	if err := validatePersonaParams(&params); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to begin transaction")
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	if params.IsDefault {
		if err := qtx.ClearDefaultPersona(ctx); err != nil {
			return nil, domain.Internal(err, op, "Failed to clear default persona")
		}
	}

	repoPersona, err := qtx.UpdatePersona(ctx, repository.UpdatePersonaParams{
		ID:           id,
		Name:         params.Name,
		Description:  params.Description,
		SystemPrompt: params.SystemPrompt,
		Greeting:     params.Greeting,
		IsDefault:    params.IsDefault,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "persona", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to update persona")
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Internal(err, op, "Failed to commit persona update")
	}

	persona := repoPersonaToDomain(repoPersona)

	s.logger.Info("persona updated", "persona_id", persona.ID, "name", persona.Name)

	return persona, nil
}

// Delete removes a persona and its stored avatar files.
func (s *personaService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "persona.delete"

	persona, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.queries.DeletePersona(ctx, id); err != nil {
		return domain.Internal(err, op, "Failed to delete persona")
	}

	// Storage deletes are idempotent; a failure here leaves an orphaned
	// object, which is acceptable.
	if persona.AvatarPath != "" {
		if err := s.store.Delete(ctx, persona.AvatarPath); err != nil {
			s.logger.Warn("failed to delete avatar", "persona_id", id, "error", err)
		}
	}
	if persona.AvatarThumbnailPath != "" {
		if err := s.store.Delete(ctx, persona.AvatarThumbnailPath); err != nil {
			s.logger.Warn("failed to delete avatar thumbnail", "persona_id", id, "error", err)
		}
	}

	s.logger.Info("persona deleted", "persona_id", id)

	return nil
}

// GetByID retrieves a persona by ID.
func (s *personaService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Persona, error) {
	const op = "persona.get"

	repoPersona, err := s.queries.GetPersonaByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "persona", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve persona")
	}

	return repoPersonaToDomain(repoPersona), nil
}

// GetDefault retrieves the default persona.
func (s *personaService) GetDefault(ctx context.Context) (*domain.Persona, error) {
	const op = "persona.get_default"

	repoPersona, err := s.queries.GetDefaultPersona(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "default persona", "")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve default persona")
	}

	return repoPersonaToDomain(repoPersona), nil
}

// List returns all personas.
func (s *personaService) List(ctx context.Context) ([]*domain.Persona, error) {
	const op = "persona.list"

	repoPersonas, err := s.queries.ListPersonas(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list personas")
	}

	personas := make([]*domain.Persona, 0, len(repoPersonas))
	for _, rp := range repoPersonas {
		personas = append(personas, repoPersonaToDomain(rp))
	}

	return personas, nil
}

// SetAvatar stores an uploaded avatar image and its generated thumbnail.
//
// Flow:
// 1. Validate the content type
// 2. Buffer the upload (bounded by MaxAvatarSize)
// 3. Generate a thumbnail
// 4. Store both objects
// 5. Update the persona row and remove the previous avatar objects
func (s *personaService) SetAvatar(ctx context.Context, id uuid.UUID, filename, contentType string, data io.Reader) (*domain.Persona, error) {
	const op = "persona.set_avatar"

	persona, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detected := storage.DetectContentType(contentType, filename, nil)
	if !storage.IsAllowedAvatarType(detected) {
		return nil, domain.Invalid(op, "Avatar must be a JPEG, PNG, or WebP image")
	}

	// Buffer the image; it is read twice (upload + thumbnail)
	buf, err := io.ReadAll(io.LimitReader(data, MaxAvatarSize+1))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to read avatar upload")
	}
	if len(buf) > MaxAvatarSize {
		return nil, domain.Invalid(op, "Avatar image must be 5 MB or smaller")
	}

	thumb, _, _, err := s.thumbnails.GenerateThumbnail(bytes.NewReader(buf), AvatarThumbnailSize, AvatarThumbnailSize)
	if err != nil {
		return nil, domain.Invalid(op, "Avatar image could not be decoded")
	}

	avatarKey := storage.AvatarKey(id, filename)
	thumbKey := storage.AvatarThumbnailKey(id, thumbnailFilename(filename))

	if err := s.store.Put(ctx, avatarKey, bytes.NewReader(buf), storage.PutOptions{
		ContentType: detected,
		MaxSize:     MaxAvatarSize,
		Public:      true,
	}); err != nil {
		return nil, domain.Internal(err, op, "Failed to store avatar")
	}

	if err := s.store.Put(ctx, thumbKey, bytes.NewReader(thumb), storage.PutOptions{
		ContentType: "image/jpeg",
		Public:      true,
	}); err != nil {
		return nil, domain.Internal(err, op, "Failed to store avatar thumbnail")
	}

	err = s.queries.UpdatePersonaAvatar(ctx, repository.UpdatePersonaAvatarParams{
		ID:                  id,
		AvatarPath:          domain.ToNullString(avatarKey),
		AvatarThumbnailPath: domain.ToNullString(thumbKey),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to update persona avatar")
	}

	// Remove the replaced objects after the row points at the new ones.
	if persona.AvatarPath != "" {
		if err := s.store.Delete(ctx, persona.AvatarPath); err != nil {
			s.logger.Warn("failed to delete old avatar", "persona_id", id, "error", err)
		}
	}
	if persona.AvatarThumbnailPath != "" {
		if err := s.store.Delete(ctx, persona.AvatarThumbnailPath); err != nil {
			s.logger.Warn("failed to delete old avatar thumbnail", "persona_id", id, "error", err)
		}
	}

	s.logger.Info("persona avatar updated", "persona_id", id, "key", avatarKey)

	return s.GetByID(ctx, id)
}

// AvatarURL resolves a stored avatar key to a client-accessible URL.
// Avatars are public objects, so no expiry is requested.
func (s *personaService) AvatarURL(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	url, err := s.store.URL(ctx, key, 0)
	if err != nil {
		s.logger.Warn("failed to resolve avatar url", "key", key, "error", err)
		return ""
	}
	return url
}

// =============================================================================
// Helper Functions
// =============================================================================

// validatePersonaParams normalizes and validates persona fields.
func validatePersonaParams(params *domain.PersonaParams) error {
	const op = "persona.validate"

	params.Name = strings.TrimSpace(params.Name)
	params.Description = strings.TrimSpace(params.Description)
	params.SystemPrompt = strings.TrimSpace(params.SystemPrompt)
	params.Greeting = strings.TrimSpace(params.Greeting)

	if params.Name == "" {
		return domain.Invalid(op, "Name is required")
	}
	if params.SystemPrompt == "" {
		return domain.Invalid(op, "System prompt is required")
	}

	return nil
}

// thumbnailFilename swaps the extension for .jpg since thumbnails are
// always encoded as JPEG.
func thumbnailFilename(filename string) string {
	if i := strings.LastIndex(filename, "."); i > 0 {
		filename = filename[:i]
	}
	return filename + ".jpg"
}

// repoPersonaToDomain converts a repository.Persona to domain.Persona.
func repoPersonaToDomain(p repository.Persona) *domain.Persona {
	return &domain.Persona{
		ID:                  p.ID,
		Name:                p.Name,
		Description:         p.Description,
		SystemPrompt:        p.SystemPrompt,
		Greeting:            p.Greeting,
		AvatarPath:          domain.NullStringValue(p.AvatarPath),
		AvatarThumbnailPath: domain.NullStringValue(p.AvatarThumbnailPath),
		IsDefault:           p.IsDefault,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

var _ PersonaService = (*personaService)(nil)
