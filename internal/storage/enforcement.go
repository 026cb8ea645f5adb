package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/openboard/moderation-server/internal/model"
	"gorm.io/gorm"
)

// CreateSuspension - insert a new suspension.
func (s *Storage) CreateSuspension(ctx context.Context, suspension *model.Suspension) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	return wrapError("suspension", suspension.GetID(), s.db.WithContext(ctx).Create(suspension).Error)
}

// SuspensionByID - get the suspension by ID.
func (s *Storage) SuspensionByID(ctx context.Context, id model.SuspensionID) (*model.Suspension, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var suspension model.Suspension
	if err := s.db.WithContext(ctx).First(&suspension, id).Error; err != nil {
		return nil, wrapError("suspension", int64(id), err)
	}
	return &suspension, nil
}

// UpdateSuspension re-reads the suspension and applies the mutation inside one
// transaction, so an extension cannot lose an update to a concurrent lift.
func (s *Storage) UpdateSuspension(
	ctx context.Context,
	id model.SuspensionID,
	mutate func(suspension *model.Suspension) error,
) (*model.Suspension, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var suspension model.Suspension
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&suspension, id).Error; err != nil {
			return err
		}
		if err := mutate(&suspension); err != nil {
			return err
		}
		return tx.Save(&suspension).Error
	})
	if err != nil {
		return nil, wrapError("suspension", int64(id), err)
	}
	return &suspension, nil
}

// CreateBan - insert a new ban.
func (s *Storage) CreateBan(ctx context.Context, ban *model.Ban) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	return wrapError("ban", ban.GetID(), s.db.WithContext(ctx).Create(ban).Error)
}

// BanByID - get the ban by ID.
func (s *Storage) BanByID(ctx context.Context, id model.BanID) (*model.Ban, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var ban model.Ban
	if err := s.db.WithContext(ctx).First(&ban, id).Error; err != nil {
		return nil, wrapError("ban", int64(id), err)
	}
	return &ban, nil
}

// SuspensionByActionID - find the suspension derived from a ledger entry.
func (s *Storage) SuspensionByActionID(ctx context.Context, actionID model.ActionID) (*model.Suspension, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var suspension model.Suspension
	err := s.db.WithContext(ctx).Where("action_id = ?", actionID).First(&suspension).Error
	if err != nil {
		return nil, wrapError("suspension", 0, err)
	}
	return &suspension, nil
}

// BanByActionID - find the ban derived from a ledger entry.
func (s *Storage) BanByActionID(ctx context.Context, actionID model.ActionID) (*model.Ban, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var ban model.Ban
	err := s.db.WithContext(ctx).Where("action_id = ?", actionID).First(&ban).Error
	if err != nil {
		return nil, wrapError("ban", 0, err)
	}
	return &ban, nil
}

// ReverseSuspension deactivates the suspension and flips its origin ledger
// entry in one transaction.
func (s *Storage) ReverseSuspension(ctx context.Context, id model.SuspensionID, actionID model.ActionID) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := markActionReversed(tx, actionID); err != nil {
			return err
		}
		return tx.Model(&model.Suspension{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_active": false,
				"lifted_at": sql.NullTime{Time: now, Valid: true},
			}).Error
	})

	return wrapError("suspension", int64(id), err)
}

// ReverseBan marks the ban reversed and flips its origin ledger entry in one
// transaction.
func (s *Storage) ReverseBan(ctx context.Context, id model.BanID, actionID model.ActionID) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := markActionReversed(tx, actionID); err != nil {
			return err
		}
		return tx.Model(&model.Ban{}).
			Where("id = ?", id).
			Update("is_reversed", true).Error
	})

	return wrapError("ban", int64(id), err)
}

// IsMemberBanned - check for an unreversed ban against the member.
func (s *Storage) IsMemberBanned(ctx context.Context, memberID model.MemberID) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var count int64
	err := s.db.WithContext(ctx).Model(&model.Ban{}).
		Where("member_id = ? AND is_reversed = ?", memberID, false).
		Count(&count).Error
	if err != nil {
		return false, wrapError("ban", 0, err)
	}
	return count > 0, nil
}

// IsEmailBanned - check whether an email address is blocked from re-registration.
func (s *Storage) IsEmailBanned(ctx context.Context, email string) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var count int64
	err := s.db.WithContext(ctx).Model(&model.Ban{}).
		Where("email = ? AND is_reversed = ?", email, false).
		Count(&count).Error
	if err != nil {
		return false, wrapError("ban", 0, err)
	}
	return count > 0, nil
}

// ActiveSanctions - the member's current suspensions and unreversed bans,
// consumed by the UI collaborator showing a user their own sanction state.
func (s *Storage) ActiveSanctions(ctx context.Context, memberID model.MemberID) ([]model.Suspension, []model.Ban, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	now := time.Now().UTC()

	var suspensions []model.Suspension
	err := s.db.WithContext(ctx).
		Where("member_id = ? AND is_active = ? AND end_date > ?", memberID, true, now).
		Order("end_date DESC").
		Find(&suspensions).Error
	if err != nil {
		return nil, nil, wrapError("suspension", 0, err)
	}

	var bans []model.Ban
	err = s.db.WithContext(ctx).
		Where("member_id = ? AND is_reversed = ?", memberID, false).
		Order("created_at DESC").
		Find(&bans).Error
	if err != nil {
		return nil, nil, wrapError("ban", 0, err)
	}

	return suspensions, bans, nil
}
