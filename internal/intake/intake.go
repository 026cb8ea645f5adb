// Package intake accepts violation reports against content and walks them
// through the pending -> assigned -> resolved | dismissed lifecycle.
package intake

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/openboard/moderation-server/internal/content"
	"github.com/openboard/moderation-server/internal/metrics"
	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	"github.com/openboard/moderation-server/internal/storage"
)

type Service struct {
	db       *storage.Storage
	content  content.Resolver
	severity model.SeverityTable
	metrics  metrics.Metrics
	logger   *slog.Logger
}

func New(
	db *storage.Storage,
	resolver content.Resolver,
	severity model.SeverityTable,
	mtr metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:       db,
		content:  resolver,
		severity: severity,
		metrics:  mtr,
		logger:   logger,
	}
}

// SubmitReport carries everything a member supplies when filing a report.
type SubmitReport struct {
	ReporterID  model.MemberID          `json:"reporter_id"`
	Target      model.ContentRef        `json:"target"`
	Category    model.ViolationCategory `json:"category"`
	Explanation string                  `json:"explanation"`
}

// Submit files a report. The target must reference exactly one existing,
// non-deleted content item; the reporter cannot report their own content; the
// "other" category requires a non-empty explanation. Severity is derived from
// the injected category table and the result always starts pending.
func (s *Service) Submit(ctx context.Context, req *SubmitReport) (*model.Report, error) {
	if !req.Category.IsValid() {
		return nil, moderr.Validation("report", "category", "unknown violation category")
	}
	if req.Category == model.CategoryOther && strings.TrimSpace(req.Explanation) == "" {
		return nil, moderr.Validation("report", "explanation", "explanation is mandatory for the other category")
	}
	if !req.Target.IsValid() {
		return nil, moderr.Validation("report", "target", "target must reference exactly one topic or reply")
	}

	item, err := s.content.Resolve(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	if item.Deleted {
		return nil, moderr.Validation("report", "target", "content is deleted")
	}
	if item.AuthorID == req.ReporterID {
		return nil, moderr.Validation("report", "reporter_id", "reporter cannot report own content")
	}

	report := &model.Report{
		ReporterID:  req.ReporterID,
		Category:    req.Category,
		Severity:    s.severity.Severity(req.Category),
		Explanation: req.Explanation,
		Status:      model.ReportPending,
	}
	report.SetContent(req.Target)
	if item.CommunityID != 0 {
		report.CommunityID = sql.NullInt64{Int64: item.CommunityID, Valid: true}
	}

	if err := s.db.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	s.metrics.LogModerationEvent("report_submitted", report.ReporterID.ToInt64(), map[string]interface{}{
		"report_id": report.GetID(),
		"category":  string(report.Category),
		"severity":  string(report.Severity),
	})
	s.logger.InfoContext(ctx, "report submitted",
		slog.Int64("report_id", report.GetID()),
		slog.String("category", string(report.Category)),
		slog.String("severity", string(report.Severity)),
	)

	return report, nil
}

// Assign hands a pending report to a moderator. Staff only.
func (s *Service) Assign(ctx context.Context, actor model.Actor, id model.ReportID, moderatorID model.MemberID) (*model.Report, error) {
	if !actor.IsStaff() {
		return nil, moderr.Authorization("report", "only staff may assign reports")
	}

	report, err := s.db.ReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != model.ReportPending {
		return nil, moderr.InvalidState("report", int64(id), "only pending reports can be assigned")
	}

	report.Status = model.ReportAssigned
	report.AssignedModeratorID = sql.NullInt64{Int64: moderatorID.ToInt64(), Valid: true}

	if err := s.db.SaveReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Resolve closes a report with resolution notes. Staff only.
func (s *Service) Resolve(ctx context.Context, actor model.Actor, id model.ReportID, notes string) (*model.Report, error) {
	return s.close(ctx, actor, id, model.ReportResolved, notes)
}

// Dismiss closes a report without enforcement. Staff only.
func (s *Service) Dismiss(ctx context.Context, actor model.Actor, id model.ReportID, notes string) (*model.Report, error) {
	return s.close(ctx, actor, id, model.ReportDismissed, notes)
}

func (s *Service) close(ctx context.Context, actor model.Actor, id model.ReportID, status model.ReportStatus, notes string) (*model.Report, error) {
	if !actor.IsStaff() {
		return nil, moderr.Authorization("report", "only staff may close reports")
	}

	report, err := s.db.ReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != model.ReportPending && report.Status != model.ReportAssigned {
		return nil, moderr.InvalidState("report", int64(id), "report is already closed")
	}

	report.Status = status
	report.ResolutionNotes = sql.NullString{String: notes, Valid: notes != ""}

	if err := s.db.SaveReport(ctx, report); err != nil {
		return nil, err
	}

	s.metrics.LogModerationEvent("report_closed", report.ReporterID.ToInt64(), map[string]interface{}{
		"report_id": report.GetID(),
		"status":    string(status),
	})

	return report, nil
}

// Get - read a single report.
func (s *Service) Get(ctx context.Context, id model.ReportID) (*model.Report, error) {
	return s.db.ReportByID(ctx, id)
}
