// Package modstats materializes per-moderator activity counters from the
// ledger, report and appeal stores.
package modstats

import (
	"context"
	"log/slog"

	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	"github.com/openboard/moderation-server/internal/storage"
)

type Service struct {
	db     *storage.Storage
	logger *slog.Logger
}

func New(db *storage.Storage, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Recompute overwrites the moderator's stats row as a pure function of the
// underlying stores. Administrators only; nothing else writes the row.
func (s *Service) Recompute(ctx context.Context, actor model.Actor, moderatorID model.MemberID) (*model.ModeratorActivityStats, error) {
	if !actor.IsAdministrator() {
		return nil, moderr.Authorization("moderator_activity_stats", "only administrators may recompute stats")
	}

	stats, err := s.db.RecomputeModeratorStats(ctx, moderatorID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "moderator stats recomputed",
		slog.Int64("moderator_id", moderatorID.ToInt64()),
		slog.Int64("reports_reviewed", stats.TotalReportsReviewed),
		slog.Int64("content_removals", stats.TotalContentRemovals),
	)

	return stats, nil
}

// Get reads the materialized stats row. Administrators only.
func (s *Service) Get(ctx context.Context, actor model.Actor, moderatorID model.MemberID) (*model.ModeratorActivityStats, error) {
	if !actor.IsAdministrator() {
		return nil, moderr.Authorization("moderator_activity_stats", "only administrators may read stats")
	}
	return s.db.ModeratorStatsByID(ctx, moderatorID)
}
