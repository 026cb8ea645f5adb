package storage

import (
	"context"
	"errors"

	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	"gorm.io/gorm"
)

// CreateAppeal - insert an appeal. The in-transaction count gives a readable
// conflict on the common path; the unique index on the active-action sentinel
// column is the guard of record when two submissions race on backends where
// the read and the insert do not serialize.
func (s *Storage) CreateAppeal(ctx context.Context, appeal *model.Appeal) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		err := tx.Model(&model.Appeal{}).
			Where("action_id = ? AND status IN ?", appeal.ActionID,
				[]model.AppealStatus{model.AppealPendingReview, model.AppealUnderReview}).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return moderr.Conflict("appeal", 0, "an active appeal already exists for this action")
		}
		if err := tx.Create(appeal).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return moderr.Conflict("appeal", 0, "an active appeal already exists for this action")
			}
			return err
		}
		return nil
	})

	return wrapError("appeal", appeal.GetID(), err)
}

// AppealByID - get the appeal by ID.
func (s *Storage) AppealByID(ctx context.Context, id model.AppealID) (*model.Appeal, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var appeal model.Appeal
	if err := s.db.WithContext(ctx).First(&appeal, id).Error; err != nil {
		return nil, wrapError("appeal", int64(id), err)
	}
	return &appeal, nil
}

// SaveAppeal - persist an appeal mutated by the workflow.
func (s *Storage) SaveAppeal(ctx context.Context, appeal *model.Appeal) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	return wrapError("appeal", appeal.GetID(), s.db.WithContext(ctx).Save(appeal).Error)
}
