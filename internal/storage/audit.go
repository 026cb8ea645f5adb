package storage

import (
	"context"
	"time"

	"github.com/openboard/moderation-server/internal/model"
)

// AuditFilter narrows an audit page query. Nil fields mean "any".
type AuditFilter struct {
	CommunityID *int64
	Type        model.LogType
	ModeratorID *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	Limit       int
}

// AuditPage returns one page of audit log entries, newest first, plus the
// total record count for the filter. Ordering ties on created_at break on id
// so a constant data set pages without duplicates or gaps.
func (s *Storage) AuditPage(ctx context.Context, filter AuditFilter) ([]model.AuditLogEntry, int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	db := s.db.WithContext(ctx).Model(&model.AuditLogEntry{})

	if filter.CommunityID != nil {
		db = db.Where("community_id = ?", *filter.CommunityID)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.ModeratorID != nil {
		db = db.Where("moderator_id = ?", *filter.ModeratorID)
	}
	if filter.CreatedFrom != nil {
		db = db.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		db = db.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, wrapError("audit_log", 0, err)
	}

	var entries []model.AuditLogEntry
	offset := (filter.Page - 1) * filter.Limit
	err := db.Order("created_at DESC, id DESC").
		Limit(filter.Limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, wrapError("audit_log", 0, err)
	}

	return entries, total, nil
}
