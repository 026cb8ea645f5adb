// Package appeal lets a sanctioned member contest a ledger entry and routes
// the appeal to administrators for resolution.
package appeal

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/openboard/moderation-server/internal/config"
	"github.com/openboard/moderation-server/internal/enforcement"
	"github.com/openboard/moderation-server/internal/metrics"
	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	"github.com/openboard/moderation-server/internal/storage"
)

// Outcome of a decided appeal.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeDenied   Outcome = "denied"
)

type Service struct {
	db          *storage.Storage
	enforcement *enforcement.Service
	policy      config.ModerationConfig
	metrics     metrics.Metrics
	logger      *slog.Logger
}

func New(
	db *storage.Storage,
	enf *enforcement.Service,
	policy config.ModerationConfig,
	mtr metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:          db,
		enforcement: enf,
		policy:      policy,
		metrics:     mtr,
		logger:      logger,
	}
}

// SubmitAppeal carries everything a member supplies when contesting an action.
type SubmitAppeal struct {
	MemberID           model.MemberID `json:"member_id"`
	ActionID           model.ActionID `json:"appealed_moderation_action_id"`
	Explanation        string         `json:"appeal_explanation"`
	AdditionalEvidence string         `json:"additional_evidence,omitempty"`
}

// Submit opens an appeal in pending_review. The member must be the target of
// the appealed action, non-appealable bans reject outright, and at most one
// active appeal may exist per action (enforced inside the insert transaction).
func (s *Service) Submit(ctx context.Context, req *SubmitAppeal) (*model.Appeal, error) {
	if len(strings.TrimSpace(req.Explanation)) < s.policy.AppealMinLength {
		return nil, moderr.Validation("appeal", "appeal_explanation", "explanation is shorter than the required minimum")
	}

	action, err := s.db.ActionByID(ctx, req.ActionID)
	if err != nil {
		return nil, err
	}
	if action.TargetUserID != req.MemberID {
		return nil, moderr.Authorization("appeal", "only the sanctioned member may appeal this action")
	}
	if action.IsReversed {
		return nil, moderr.InvalidState("appeal", 0, "the appealed action is already reversed")
	}

	// Ban-specific gates: appealability and the appeal window.
	if ban, err := s.enforcement.BanForAction(ctx, req.ActionID); err == nil {
		if !ban.IsAppealable {
			return nil, moderr.Authorization("appeal", "this ban is not appealable")
		}
		if deadline, ok := ban.AppealDeadline(); ok && time.Now().UTC().After(deadline) {
			return nil, moderr.Authorization("appeal", "the appeal window for this ban has closed")
		}
	}

	appeal := &model.Appeal{
		MemberID:    req.MemberID,
		ActionID:    req.ActionID,
		Explanation: req.Explanation,
	}
	appeal.SetStatus(model.AppealPendingReview)
	if req.AdditionalEvidence != "" {
		appeal.AdditionalEvidence = sql.NullString{String: req.AdditionalEvidence, Valid: true}
	}

	if err := s.db.CreateAppeal(ctx, appeal); err != nil {
		return nil, err
	}

	s.metrics.LogModerationEvent("appeal_submitted", req.MemberID.ToInt64(), map[string]interface{}{
		"appeal_id": appeal.GetID(),
		"action_id": int64(req.ActionID),
	})
	s.logger.InfoContext(ctx, "appeal submitted",
		slog.Int64("appeal_id", appeal.GetID()),
		slog.Int64("action_id", int64(req.ActionID)),
	)

	return appeal, nil
}

// BeginReview moves a pending appeal under review. Administrators only.
func (s *Service) BeginReview(ctx context.Context, id model.AppealID, actor model.Actor) (*model.Appeal, error) {
	if !actor.IsAdministrator() {
		return nil, moderr.Authorization("appeal", "only administrators may review appeals")
	}

	appeal, err := s.db.AppealByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appeal.Status != model.AppealPendingReview {
		return nil, moderr.InvalidState("appeal", int64(id), "appeal is not pending review")
	}

	appeal.SetStatus(model.AppealUnderReview)
	appeal.ReviewingAdministratorID = sql.NullInt64{Int64: actor.ID.ToInt64(), Valid: true}

	if err := s.db.SaveAppeal(ctx, appeal); err != nil {
		return nil, err
	}
	return appeal, nil
}

// DecideAppeal carries an administrator's terminal decision.
type DecideAppeal struct {
	AppealID model.AppealID `json:"appeal_id"`
	Actor    model.Actor    `json:"actor"`
	Outcome  Outcome        `json:"outcome"`
	Notes    string         `json:"notes"`
}

// Decide closes an appeal under review. Approval reverses the linked sanction
// and flips the ledger entry; denial records the notes and timestamp only.
func (s *Service) Decide(ctx context.Context, req *DecideAppeal) (*model.Appeal, error) {
	if !req.Actor.IsAdministrator() {
		return nil, moderr.Authorization("appeal", "only administrators may decide appeals")
	}
	if req.Outcome != OutcomeApproved && req.Outcome != OutcomeDenied {
		return nil, moderr.Validation("appeal", "outcome", "outcome must be approved or denied")
	}

	appeal, err := s.db.AppealByID(ctx, req.AppealID)
	if err != nil {
		return nil, err
	}
	if appeal.Status != model.AppealUnderReview {
		return nil, moderr.InvalidState("appeal", int64(req.AppealID), "appeal is not under review")
	}

	if req.Outcome == OutcomeApproved {
		kind, err := s.enforcement.SanctionForAction(ctx, appeal.ActionID)
		if err != nil {
			return nil, err
		}
		if err := s.enforcement.Reverse(ctx, kind, appeal.ActionID, appeal.ID); err != nil {
			return nil, err
		}
		appeal.SetStatus(model.AppealApproved)
	} else {
		appeal.SetStatus(model.AppealDenied)
	}

	appeal.ReviewingAdministratorID = sql.NullInt64{Int64: req.Actor.ID.ToInt64(), Valid: true}
	appeal.DecisionNotes = sql.NullString{String: req.Notes, Valid: req.Notes != ""}
	appeal.ResolvedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	if err := s.db.SaveAppeal(ctx, appeal); err != nil {
		return nil, err
	}

	s.metrics.LogModerationEvent("appeal_decided", appeal.MemberID.ToInt64(), map[string]interface{}{
		"appeal_id": appeal.GetID(),
		"outcome":   string(req.Outcome),
	})
	s.logger.InfoContext(ctx, "appeal decided",
		slog.Int64("appeal_id", appeal.GetID()),
		slog.String("outcome", string(req.Outcome)),
	)

	return appeal, nil
}

// Get - read a single appeal. The appellant reads their own; administrators
// read any.
func (s *Service) Get(ctx context.Context, actor model.Actor, id model.AppealID) (*model.Appeal, error) {
	appeal, err := s.db.AppealByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdministrator() && appeal.MemberID != actor.ID {
		return nil, moderr.Authorization("appeal", "appeals are visible to the appellant and administrators only")
	}
	return appeal, nil
}
