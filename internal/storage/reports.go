package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openboard/moderation-server/internal/model"
	"gorm.io/gorm"
)

// CreateReport - insert the report and its audit trail entry atomically.
func (s *Storage) CreateReport(ctx context.Context, report *model.Report) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}

		entry := &model.AuditLogEntry{
			Type:        model.LogReportSubmitted,
			CommunityID: report.CommunityID,
			ReportID:    sql.NullInt64{Int64: report.GetID(), Valid: true},
			Summary:     fmt.Sprintf("report submitted: %s (%s)", report.Category, report.Severity),
		}
		return tx.Create(entry).Error
	})

	return wrapError("report", report.GetID(), err)
}

// ReportByID - get the report by ID.
func (s *Storage) ReportByID(ctx context.Context, id model.ReportID) (*model.Report, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var report model.Report
	if err := s.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, wrapError("report", int64(id), err)
	}
	return &report, nil
}

// SaveReport - persist a report mutated by the intake service.
func (s *Storage) SaveReport(ctx context.Context, report *model.Report) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	return wrapError("report", report.GetID(), s.db.WithContext(ctx).Save(report).Error)
}
