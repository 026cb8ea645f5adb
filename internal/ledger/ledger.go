// Package ledger is the append-only record of every enforcement decision.
package ledger

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/openboard/moderation-server/internal/config"
	"github.com/openboard/moderation-server/internal/content"
	"github.com/openboard/moderation-server/internal/metrics"
	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	"github.com/openboard/moderation-server/internal/storage"
)

type Service struct {
	db      *storage.Storage
	content content.Resolver
	policy  config.ModerationConfig
	metrics metrics.Metrics
	logger  *slog.Logger
}

func New(
	db *storage.Storage,
	resolver content.Resolver,
	policy config.ModerationConfig,
	mtr metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:      db,
		content: resolver,
		policy:  policy,
		metrics: mtr,
		logger:  logger,
	}
}

// RecordAction is a request to append one ledger entry.
type RecordAction struct {
	Actor           model.Actor             `json:"actor"`
	TargetUserID    model.MemberID          `json:"target_user_id"`
	Type            model.ActionType        `json:"action_type"`
	Reason          string                  `json:"reason"`
	Category        model.ViolationCategory `json:"violation_category"`
	RelatedReportID model.ReportID          `json:"related_report_id,omitempty"`
	Content         model.ContentRef        `json:"content,omitempty"`
	CommunityID     int64                   `json:"community_id,omitempty"`

	// Snapshot overrides the fetched content body. When empty and a content
	// reference is present, the body is captured from the content service at
	// record time and never re-fetched.
	Snapshot string `json:"content_snapshot,omitempty"`
}

// Record appends an immutable ledger entry. Exactly one of moderator or
// administrator is recorded from the actor's role, and the reason must meet
// the canonical minimum length.
func (s *Service) Record(ctx context.Context, req *RecordAction) (*model.ModerationAction, error) {
	if !req.Actor.IsStaff() {
		return nil, moderr.Authorization("moderation_action", "only moderators and administrators may record actions")
	}
	if !req.Type.IsValid() {
		return nil, moderr.Validation("moderation_action", "action_type", "unknown action type")
	}
	if len(strings.TrimSpace(req.Reason)) < s.policy.ActionReasonMinLength {
		return nil, moderr.Validation("moderation_action", "reason", "reason is shorter than the required minimum")
	}
	if req.TargetUserID == 0 {
		return nil, moderr.Validation("moderation_action", "target_user_id", "target user is required")
	}
	if !req.Content.IsZero() && !req.Content.IsValid() {
		return nil, moderr.Validation("moderation_action", "content", "content reference must name exactly one topic or reply")
	}

	snapshot := req.Snapshot
	if snapshot == "" && !req.Content.IsZero() {
		item, err := s.content.Resolve(ctx, req.Content)
		if err != nil {
			return nil, err
		}
		snapshot = item.Body
	}

	action := &model.ModerationAction{
		TargetUserID: req.TargetUserID,
		Type:         req.Type,
		Reason:       req.Reason,
		Category:     req.Category,

		ContentSnapshot: snapshot,
	}
	action.SetActor(req.Actor)
	action.SetContent(req.Content)
	if req.RelatedReportID != 0 {
		action.RelatedReportID = sql.NullInt64{Int64: int64(req.RelatedReportID), Valid: true}
	}
	if req.CommunityID != 0 {
		action.CommunityID = sql.NullInt64{Int64: req.CommunityID, Valid: true}
	}

	// Integrity hash over the entry as appended, for later tamper checks.
	if hash, err := action.Hash(); err == nil {
		action.SnapshotHash = hash
	}

	if err := s.db.AppendAction(ctx, action); err != nil {
		return nil, err
	}

	s.metrics.LogModerationEvent("action_recorded", req.Actor.ID.ToInt64(), map[string]interface{}{
		"action_id":   action.GetID(),
		"action_type": string(action.Type),
		"target_user": action.TargetUserID.ToInt64(),
	})
	s.logger.InfoContext(ctx, "moderation action recorded",
		slog.Int64("action_id", action.GetID()),
		slog.String("action_type", string(action.Type)),
		slog.Int64("target_user_id", action.TargetUserID.ToInt64()),
	)

	return action, nil
}

// Get reads a ledger entry. Administrators read any entry for oversight;
// a moderator reads only entries they created themselves.
func (s *Service) Get(ctx context.Context, actor model.Actor, id model.ActionID) (*model.ModerationAction, error) {
	if !actor.IsStaff() {
		return nil, moderr.Authorization("moderation_action", "members may not read the ledger")
	}

	action, err := s.db.ActionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdministrator() && action.Actor().ID != actor.ID {
		return nil, moderr.Authorization("moderation_action", "moderators may only read their own entries")
	}

	return action, nil
}
