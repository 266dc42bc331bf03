// Package service contains the business logic layer.
//
// This file implements the invite ledger service. Invite codes gate
// self-registration; each code carries a usage cap and an expiry, and
// redemption is an atomic conditional increment performed by the database.
package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/repository"
)

// InviteCodeBytes is the number of random bytes in an invite code.
// 32 bytes (256 bits) hex-encodes to a 64-character code.
const InviteCodeBytes = 32

// =============================================================================
// Interface Definition
// =============================================================================

// InviteService defines operations on the invite ledger.
type InviteService interface {
	// Create issues a new invite code.
	// Zero-valued MaxUses and ExpiresInDays fall back to defaults.
	Create(ctx context.Context, params domain.CreateInviteParams) (*domain.Invite, error)

	// Validate checks whether a code can currently be redeemed for the
	// given email, without consuming a use.
	// Returns domain.ENOTFOUND for unknown codes, domain.EGONE for expired
	// codes, and domain.EEXHAUSTED for codes with no uses left.
	Validate(ctx context.Context, code, email string) (*domain.Invite, error)

	// Redeem validates and consumes one use of a code in a single
	// conditional update. Returns the invite as it stands after redemption.
	Redeem(ctx context.Context, code, email string) (*domain.Invite, error)

	// ListByInviter returns the invites issued by a user, newest first.
	ListByInviter(ctx context.Context, invitedBy uuid.UUID) ([]*domain.Invite, error)

	// Cleanup deletes expired and fully redeemed invites.
	// Returns the number of rows removed.
	Cleanup(ctx context.Context) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type inviteService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewInviteService creates a new InviteService.
func NewInviteService(queries *repository.Queries, logger *slog.Logger) InviteService {
	return &inviteService{
		queries: queries,
		logger:  logger,
	}
}

// Create issues a new invite code.
func (s *inviteService) Create(ctx context.Context, params domain.CreateInviteParams) (*domain.Invite, error) {
	const op = "invite.create"

	params.Normalize()

	if params.Email != "" {
		if err := validateEmail(params.Email); err != nil {
			return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid recipient email")
		}
	}

	code, err := generateInviteCode()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate invite code")
	}

	expiresAt := time.Now().AddDate(0, 0, params.ExpiresInDays)

	repoInvite, err := s.queries.CreateInvite(ctx, repository.CreateInviteParams{
		Code:      code,
		Email:     params.Email,
		InvitedBy: params.InvitedBy,
		MaxUses:   int32(params.MaxUses),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create invite")
	}

	invite := repoInviteToDomain(repoInvite)

	s.logger.Info("invite created",
		"invite_id", invite.ID,
		"invited_by", params.InvitedBy,
		"max_uses", invite.MaxUses,
		"expires_at", invite.ExpiresAt,
	)

	return invite, nil
}

// Validate checks a code without consuming a use.
func (s *inviteService) Validate(ctx context.Context, code, email string) (*domain.Invite, error) {
	const op = "invite.validate"

	repoInvite, err := s.queries.GetInviteByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "invite", code)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve invite")
	}

	invite := repoInviteToDomain(repoInvite)
	if err := invite.Validate(email, time.Now()); err != nil {
		return nil, err
	}

	return invite, nil
}

// Redeem validates and consumes one use of a code.
//
// The email binding check happens before the update; the expiry and usage
// cap are re-checked inside the update's WHERE clause, so two concurrent
// redemptions of a single-use code cannot both succeed. The loser gets
// zero rows back, and we re-read the invite to report why.
func (s *inviteService) Redeem(ctx context.Context, code, email string) (*domain.Invite, error) {
	const op = "invite.redeem"

	// Check the email binding up front; the conditional update cannot
	// express a case-insensitive match cleanly.
	if _, err := s.Validate(ctx, code, email); err != nil {
		return nil, err
	}

	repoInvite, err := s.queries.RedeemInvite(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost a race, or the code expired between validate and redeem.
			// Re-read to return the precise reason.
			current, verr := s.queries.GetInviteByCode(ctx, code)
			if verr != nil {
				return nil, domain.InviteExhausted(op)
			}
			if repoInviteToDomain(current).IsExpired(time.Now()) {
				return nil, domain.InviteExpired(op)
			}
			return nil, domain.InviteExhausted(op)
		}
		return nil, domain.Internal(err, op, "Failed to redeem invite")
	}

	invite := repoInviteToDomain(repoInvite)

	s.logger.Info("invite redeemed",
		"invite_id", invite.ID,
		"usage_count", invite.UsageCount,
		"max_uses", invite.MaxUses,
	)

	return invite, nil
}

// ListByInviter returns the invites issued by a user.
func (s *inviteService) ListByInviter(ctx context.Context, invitedBy uuid.UUID) ([]*domain.Invite, error) {
	const op = "invite.list"

	repoInvites, err := s.queries.ListInvitesByInviter(ctx, invitedBy)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list invites")
	}

	invites := make([]*domain.Invite, 0, len(repoInvites))
	for _, ri := range repoInvites {
		invites = append(invites, repoInviteToDomain(ri))
	}

	return invites, nil
}

// Cleanup deletes expired and fully redeemed invites.
func (s *inviteService) Cleanup(ctx context.Context) (int64, error) {
	const op = "invite.cleanup"

	removed, err := s.queries.CleanupInvites(ctx)
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to clean up invites")
	}

	if removed > 0 {
		s.logger.Info("invites cleaned up", "removed", removed)
	}

	return removed, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// generateInviteCode creates a cryptographically random invite code.
// Returns a 64-character hex string.
func generateInviteCode() (string, error) {
	bytes := make([]byte, InviteCodeBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// repoInviteToDomain converts a repository.Invite to domain.Invite.
func repoInviteToDomain(i repository.Invite) *domain.Invite {
	return &domain.Invite{
		ID:         i.ID,
		Code:       i.Code,
		Email:      i.Email,
		InvitedBy:  i.InvitedBy,
		MaxUses:    int(i.MaxUses),
		UsageCount: int(i.UsageCount),
		Used:       i.Used,
		UsedAt:     domain.NullTimeValue(i.UsedAt),
		ExpiresAt:  i.ExpiresAt,
		CreatedAt:  i.CreatedAt,
	}
}

var _ InviteService = (*inviteService)(nil)
