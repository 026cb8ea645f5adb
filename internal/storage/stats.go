package storage

import (
	"context"
	"time"

	"github.com/openboard/moderation-server/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecomputeModeratorStats rebuilds the moderator's summary row from the
// report, ledger and appeal stores and overwrites the single stats row.
// Nothing else ever writes this table.
func (s *Storage) RecomputeModeratorStats(ctx context.Context, moderatorID model.MemberID) (*model.ModeratorActivityStats, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	stats := &model.ModeratorActivityStats{
		ModeratorID:      moderatorID,
		LastCalculatedAt: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Reports reviewed: assigned to this moderator and closed either way.
		err := tx.Model(&model.Report{}).
			Where("assigned_moderator_id = ? AND status IN ?", moderatorID,
				[]model.ReportStatus{model.ReportResolved, model.ReportDismissed}).
			Count(&stats.TotalReportsReviewed).Error
		if err != nil {
			return err
		}

		// Content removals recorded by this actor, under either role.
		err = tx.Model(&model.ModerationAction{}).
			Where("(moderator_id = ? OR administrator_id = ?) AND type IN ?",
				moderatorID, moderatorID,
				[]model.ActionType{model.ActionHideContent, model.ActionDeleteContent}).
			Count(&stats.TotalContentRemovals).Error
		if err != nil {
			return err
		}

		err = tx.Model(&model.Ban{}).
			Where("administrator_id = ?", moderatorID).
			Count(&stats.TotalBansIssued).Error
		if err != nil {
			return err
		}

		// Appeals decided by the same actor id when it also holds admin duty.
		err = tx.Model(&model.Appeal{}).
			Where("reviewing_administrator_id = ? AND status IN ?", moderatorID,
				[]model.AppealStatus{model.AppealApproved, model.AppealDenied}).
			Count(&stats.TotalAppealsReviewed).Error
		if err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "moderator_id"}},
			UpdateAll: true,
		}).Create(stats).Error
	})
	if err != nil {
		return nil, wrapError("moderator_activity_stats", int64(moderatorID), err)
	}

	return stats, nil
}

// ModeratorStatsByID - read the materialized stats row.
func (s *Storage) ModeratorStatsByID(ctx context.Context, moderatorID model.MemberID) (*model.ModeratorActivityStats, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var stats model.ModeratorActivityStats
	err := s.db.WithContext(ctx).First(&stats, "moderator_id = ?", moderatorID).Error
	if err != nil {
		return nil, wrapError("moderator_activity_stats", int64(moderatorID), err)
	}
	return &stats, nil
}
