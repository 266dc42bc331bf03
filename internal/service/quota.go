// Package service contains the business logic layer.
//
// This file implements the daily message quota service. The quota record
// lives on the user row; enforcement is a single conditional increment so
// two concurrent sends can never both claim the last remaining message.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/metrics"
	"github.com/hollandv/quill/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService defines operations for evaluating and consuming the daily
// message quota.
type QuotaService interface {
	// Evaluate reconciles the quota record against the current date and
	// returns the resulting policy decision. It never consumes quota, so
	// it is safe for display and pre-flight checks.
	Evaluate(ctx context.Context, userID uuid.UUID) (*domain.QuotaDecision, error)

	// Reconcile resets the daily count if the record's last reset was on an
	// earlier calendar date. Returns true if a reset happened.
	Reconcile(ctx context.Context, userID uuid.UUID) (bool, error)

	// Consume reconciles the record and then atomically claims one message
	// against today's limit. Returns the number of messages remaining after
	// the claim. Returns a domain.ERATELIMIT error when the limit is
	// already reached.
	Consume(ctx context.Context, userID uuid.UUID) (int, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	queries *repository.Queries
	limits  domain.QuotaLimits
	logger  *slog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(queries *repository.Queries, limits domain.QuotaLimits, logger *slog.Logger) QuotaService {
	return &quotaService{
		queries: queries,
		limits:  limits,
		logger:  logger,
	}
}

// Evaluate reconciles the record and applies the quota policy.
func (s *quotaService) Evaluate(ctx context.Context, userID uuid.UUID) (*domain.QuotaDecision, error) {
	const op = "quota.evaluate"

	if _, err := s.Reconcile(ctx, userID); err != nil {
		return nil, err
	}

	repoUser, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to retrieve quota record")
	}

	user := repoUserToDomain(repoUser)
	decision := domain.EvaluateQuota(user.IsSubscriber(), user.DailyMessageCount, s.limits)
	return &decision, nil
}

// Reconcile performs the lazy day-boundary reset.
//
// The comparison against CURRENT_DATE happens inside the UPDATE's WHERE
// clause, so concurrent reconciles are harmless: at most one of them
// matches and the rest see zero rows affected.
func (s *quotaService) Reconcile(ctx context.Context, userID uuid.UUID) (bool, error) {
	const op = "quota.reconcile"

	rows, err := s.queries.ResetDailyCountIfStale(ctx, userID)
	if err != nil {
		return false, domain.Internal(err, op, "failed to reset daily count")
	}

	if rows > 0 {
		metrics.QuotaResets.Inc()
		s.logger.Debug("daily quota reset", "user_id", userID)
	}

	return rows > 0, nil
}

// Consume claims one message against today's limit.
//
// Flow:
// 1. Reconcile the record (lazy reset on day rollover)
// 2. Look up the user to pick the applicable limit for their tier
// 3. Conditionally increment the count; the WHERE clause re-checks the
//    limit so the check and the increment are one statement
//
// The conditional increment closes the window where two requests both read
// count = limit-1 and both send. The loser of the race gets zero rows back
// and is rejected.
func (s *quotaService) Consume(ctx context.Context, userID uuid.UUID) (int, error) {
	const op = "quota.consume"

	if _, err := s.Reconcile(ctx, userID); err != nil {
		return 0, err
	}

	repoUser, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NotFound(op, "user", userID.String())
		}
		return 0, domain.Internal(err, op, "failed to retrieve quota record")
	}

	user := repoUserToDomain(repoUser)
	limit := s.limits.DailyLimitFor(user.IsSubscriber())

	newCount, err := s.queries.ConsumeDailyMessage(ctx, repository.ConsumeDailyMessageParams{
		ID:                userID,
		DailyMessageCount: int32(limit),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The increment found the count already at or above the limit.
			s.logger.Info("daily message limit reached",
				"user_id", userID,
				"tier", user.SubscriptionTier,
				"limit", limit,
			)
			return 0, domain.QuotaExceeded(op, user.DailyMessageCount, limit)
		}
		return 0, domain.Internal(err, op, "failed to consume quota")
	}

	remaining := limit - int(newCount)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// NextQuotaReset returns the next local midnight after t. Used by handlers
// to tell clients when the quota resets.
func NextQuotaReset(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

var _ QuotaService = (*quotaService)(nil)
