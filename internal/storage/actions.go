package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	"gorm.io/gorm"
)

// AppendAction - append a ledger entry and its audit trail row atomically.
// Entries are immutable after this insert except the single reversal flip.
func (s *Storage) AppendAction(ctx context.Context, action *model.ModerationAction) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(action).Error; err != nil {
			return err
		}

		entry := &model.AuditLogEntry{
			Type:        model.LogActionTaken,
			CommunityID: action.CommunityID,
			ModeratorID: action.ModeratorID,
			ActionID:    sql.NullInt64{Int64: action.GetID(), Valid: true},
			ReportID:    action.RelatedReportID,
			Summary:     fmt.Sprintf("action taken: %s against member %d", action.Type, action.TargetUserID),
		}
		return tx.Create(entry).Error
	})

	return wrapError("moderation_action", action.GetID(), err)
}

// ActionByID - get the ledger entry by ID.
func (s *Storage) ActionByID(ctx context.Context, id model.ActionID) (*model.ModerationAction, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var action model.ModerationAction
	if err := s.db.WithContext(ctx).First(&action, id).Error; err != nil {
		return nil, wrapError("moderation_action", int64(id), err)
	}
	return &action, nil
}

// ReverseAction - flip a ledger entry's reversed flag when no sanction entity
// is attached to it, such as a warning or a content removal.
func (s *Storage) ReverseAction(ctx context.Context, id model.ActionID) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return markActionReversed(tx, id)
	})
	return wrapError("moderation_action", int64(id), err)
}

// markActionReversed flips is_reversed exactly once inside the given
// transaction. A second flip hits zero rows and is an invalid state.
func markActionReversed(tx *gorm.DB, id model.ActionID) error {
	res := tx.Model(&model.ModerationAction{}).
		Where("id = ? AND is_reversed = ?", id, false).
		Update("is_reversed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return moderr.InvalidState("moderation_action", int64(id), "already reversed or missing")
	}
	return nil
}
