// Package maintenance runs periodic background cleanup.
//
// The sweeper removes expired invites and sessions on a fixed interval.
// Quota resets are NOT handled here; those happen lazily on the request
// path so a dormant account costs nothing.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/hollandv/quill/internal/metrics"
	"github.com/hollandv/quill/internal/service"
)

// DefaultInterval is used when no sweep interval is configured.
const DefaultInterval = time.Hour

// Sweeper periodically removes expired invites and sessions.
type Sweeper struct {
	invites  service.InviteService
	users    service.UserService
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(invites service.InviteService, users service.UserService, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		invites:  invites,
		users:    users,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately and then on every interval tick until the
// context is canceled. Intended to run in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("maintenance sweeper started", "interval", s.interval)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. A failure in one step does not prevent the
// others from running.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()
	failed := false

	invites, err := s.invites.Cleanup(ctx)
	if err != nil {
		failed = true
		s.logger.Error("invite cleanup failed", "error", err)
	} else if invites > 0 {
		metrics.SweeperItemsRemoved.WithLabelValues("invites").Add(float64(invites))
	}

	sessions, err := s.users.DeleteExpiredSessions(ctx)
	if err != nil {
		failed = true
		s.logger.Error("session cleanup failed", "error", err)
	} else if sessions > 0 {
		metrics.SweeperItemsRemoved.WithLabelValues("sessions").Add(float64(sessions))
	}

	status := "success"
	if failed {
		status = "error"
	}
	metrics.SweeperRuns.WithLabelValues(status).Inc()

	s.logger.Info("maintenance sweep complete",
		"invites_removed", invites,
		"sessions_removed", sessions,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
