// Package enforcement manages the suspension and ban lifecycle derived from
// ledger entries, including the authority-tier duration caps.
package enforcement

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openboard/moderation-server/internal/config"
	"github.com/openboard/moderation-server/internal/metrics"
	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	"github.com/openboard/moderation-server/internal/storage"
)

// SanctionKind selects which sanction a reversal targets.
type SanctionKind string

const (
	KindSuspension SanctionKind = "suspension"
	KindBan        SanctionKind = "ban"
	KindNone       SanctionKind = "none" // the entry carries no suspension or ban
)

type Service struct {
	db      *storage.Storage
	caps    map[model.Role]int // role -> max suspension duration in days
	policy  config.ModerationConfig
	metrics metrics.Metrics
	logger  *slog.Logger
}

func New(db *storage.Storage, policy config.ModerationConfig, mtr metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		db: db,
		caps: map[model.Role]int{
			model.RoleModerator:     policy.ModeratorSuspensionCapDays,
			model.RoleAdministrator: policy.AdminSuspensionCapDays,
		},
		policy:  policy,
		metrics: mtr,
		logger:  logger,
	}
}

// durationAllowed checks the actor's authority cap. Over-cap durations are
// rejected, never clamped.
func (s *Service) durationAllowed(actor model.Actor, days int) error {
	cap, ok := s.caps[actor.Role]
	if !ok {
		return moderr.Authorization("suspension", "only moderators and administrators may suspend")
	}
	if days > cap {
		return moderr.Authorization("suspension", "duration exceeds the authority cap for this role")
	}
	return nil
}

// CreateSuspension is a request to suspend a member.
type CreateSuspension struct {
	MemberID     model.MemberID `json:"member_id"`
	ActionID     model.ActionID `json:"moderation_action_id"`
	Reason       string         `json:"reason"`
	DurationDays int            `json:"duration_days"`
	Actor        model.Actor    `json:"actor"`
}

// Suspend creates an active suspension with end date computed from now plus
// the duration. Moderators are bounded by their cap; administrators by theirs.
func (s *Service) Suspend(ctx context.Context, req *CreateSuspension) (*model.Suspension, error) {
	if req.DurationDays <= 0 {
		return nil, moderr.Validation("suspension", "duration_days", "duration must be positive")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, moderr.Validation("suspension", "suspension_reason", "reason is required")
	}
	if err := s.durationAllowed(req.Actor, req.DurationDays); err != nil {
		return nil, err
	}
	if _, err := s.db.ActionByID(ctx, req.ActionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	suspension := &model.Suspension{
		MemberID:     req.MemberID,
		ActionID:     req.ActionID,
		Reason:       req.Reason,
		DurationDays: req.DurationDays,
		StartDate:    now,
		IsActive:     true,
	}
	suspension.Recompute()
	setSanctionActor(suspension, req.Actor)

	if err := s.db.CreateSuspension(ctx, suspension); err != nil {
		return nil, err
	}

	s.metrics.LogModerationEvent("suspension_created", req.MemberID.ToInt64(), map[string]interface{}{
		"suspension_id": suspension.GetID(),
		"duration_days": req.DurationDays,
	})
	s.logger.InfoContext(ctx, "suspension created",
		slog.Int64("suspension_id", suspension.GetID()),
		slog.Int64("member_id", req.MemberID.ToInt64()),
		slog.Int("duration_days", req.DurationDays),
	)

	return suspension, nil
}

// ExtendSuspension is a request to modify an active suspension.
type ExtendSuspension struct {
	SuspensionID model.SuspensionID `json:"suspension_id"`
	Reason       string             `json:"reason"`
	DurationDays int                `json:"duration_days"`
	Actor        model.Actor        `json:"actor"`
}

// Extend modifies an active suspension. Durations beyond the moderator cap
// are administrator-only; the end date is always recomputed from the original
// start date, and an acting administrator takes ownership of the record.
// The read-modify-write runs in one transaction against a concurrent lift.
func (s *Service) Extend(ctx context.Context, req *ExtendSuspension) (*model.Suspension, error) {
	if req.DurationDays <= 0 {
		return nil, moderr.Validation("suspension", "duration_days", "duration must be positive")
	}
	minReason := s.policy.ExtensionReasonMinLength
	if len(strings.TrimSpace(req.Reason)) < minReason {
		return nil, moderr.Validation("suspension", "suspension_reason", "extension reason is shorter than the required minimum")
	}
	if err := s.durationAllowed(req.Actor, req.DurationDays); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	suspension, err := s.db.UpdateSuspension(ctx, req.SuspensionID, func(suspension *model.Suspension) error {
		if suspension.IsTerminal(now) {
			return moderr.InvalidState("suspension", suspension.GetID(), "suspension is not active")
		}

		suspension.Reason = req.Reason
		suspension.DurationDays = req.DurationDays
		suspension.Recompute()
		setSanctionActor(suspension, req.Actor)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.LogModerationEvent("suspension_extended", suspension.MemberID.ToInt64(), map[string]interface{}{
		"suspension_id": suspension.GetID(),
		"duration_days": req.DurationDays,
	})

	return suspension, nil
}

// Lift ends an active suspension early.
func (s *Service) Lift(ctx context.Context, id model.SuspensionID, actor model.Actor) (*model.Suspension, error) {
	if !actor.IsStaff() {
		return nil, moderr.Authorization("suspension", "only moderators and administrators may lift suspensions")
	}

	now := time.Now().UTC()
	suspension, err := s.db.UpdateSuspension(ctx, id, func(suspension *model.Suspension) error {
		if !suspension.IsActive {
			return moderr.Conflict("suspension", suspension.GetID(), "suspension is already lifted")
		}
		if suspension.IsExpired(now) {
			return moderr.InvalidState("suspension", suspension.GetID(), "suspension has already expired")
		}

		suspension.IsActive = false
		suspension.LiftedEarly = true
		suspension.LiftedAt = sql.NullTime{Time: now, Valid: true}
		setSanctionActor(suspension, actor)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.LogModerationEvent("suspension_lifted", suspension.MemberID.ToInt64(), map[string]interface{}{
		"suspension_id": suspension.GetID(),
	})

	return suspension, nil
}

// CreateBan is a request to permanently ban a member.
type CreateBan struct {
	MemberID         model.MemberID `json:"member_id"`
	ActionID         model.ActionID `json:"moderation_action_id"`
	Reason           string         `json:"ban_reason"`
	ViolationSummary string         `json:"violation_summary"`
	IsAppealable     bool           `json:"is_appealable"`
	AppealWindowDays int            `json:"appeal_window_days"`
	IPAddress        string         `json:"ip_address,omitempty"`
	Email            string         `json:"email"`
	Actor            model.Actor    `json:"actor"`
}

// Ban permanently bans a member. Bans are administrator-only; moderators can
// at most request one through a suspend_user escalation in the ledger.
// The email is captured to block re-registration by the same address.
func (s *Service) Ban(ctx context.Context, req *CreateBan) (*model.Ban, error) {
	if !req.Actor.IsAdministrator() {
		return nil, moderr.Authorization("ban", "only administrators may issue bans")
	}
	if len(strings.TrimSpace(req.Reason)) < s.policy.BanReasonMinLength {
		return nil, moderr.Validation("ban", "ban_reason", "ban reason is shorter than the required minimum")
	}
	if strings.TrimSpace(req.ViolationSummary) == "" {
		return nil, moderr.Validation("ban", "violation_summary", "violation summary is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, moderr.Validation("ban", "email_banned", "email is required to block re-registration")
	}
	if _, err := s.db.ActionByID(ctx, req.ActionID); err != nil {
		return nil, err
	}

	window := req.AppealWindowDays
	if req.IsAppealable && window <= 0 {
		window = s.policy.DefaultAppealWindowDays
	}

	ban := &model.Ban{
		MemberID:         req.MemberID,
		ActionID:         req.ActionID,
		AdministratorID:  req.Actor.ID,
		Reason:           req.Reason,
		ViolationSummary: req.ViolationSummary,
		IsAppealable:     req.IsAppealable,
		AppealWindowDays: window,
		Email:            req.Email,
	}
	if req.IPAddress != "" {
		ban.IPAddress = sql.NullString{String: req.IPAddress, Valid: true}
	}

	if err := s.db.CreateBan(ctx, ban); err != nil {
		return nil, err
	}

	s.metrics.LogModerationEvent("ban_created", req.MemberID.ToInt64(), map[string]interface{}{
		"ban_id":     ban.GetID(),
		"appealable": ban.IsAppealable,
	})
	s.logger.InfoContext(ctx, "ban created",
		slog.Int64("ban_id", ban.GetID()),
		slog.Int64("member_id", req.MemberID.ToInt64()),
	)

	return ban, nil
}

// Reverse nullifies a sanction after an approved appeal. It deactivates the
// suspension or ban and flips the origin ledger entry's reversed flag, all in
// one transaction. Entries without a sanction entity (warnings, content
// removals) flip the ledger flag alone. The appeal workflow is the only
// caller.
func (s *Service) Reverse(ctx context.Context, kind SanctionKind, actionID model.ActionID, appealID model.AppealID) error {
	switch kind {
	case KindSuspension:
		suspension, err := s.db.SuspensionByActionID(ctx, actionID)
		if err != nil {
			return err
		}
		if err := s.db.ReverseSuspension(ctx, suspension.ID, actionID); err != nil {
			return err
		}
		s.metrics.LogModerationEvent("suspension_reversed", suspension.MemberID.ToInt64(), map[string]interface{}{
			"suspension_id": suspension.GetID(),
			"appeal_id":     int64(appealID),
		})
		return nil
	case KindBan:
		ban, err := s.db.BanByActionID(ctx, actionID)
		if err != nil {
			return err
		}
		if err := s.db.ReverseBan(ctx, ban.ID, actionID); err != nil {
			return err
		}
		s.metrics.LogModerationEvent("ban_reversed", ban.MemberID.ToInt64(), map[string]interface{}{
			"ban_id":    ban.GetID(),
			"appeal_id": int64(appealID),
		})
		return nil
	case KindNone:
		action, err := s.db.ActionByID(ctx, actionID)
		if err != nil {
			return err
		}
		if err := s.db.ReverseAction(ctx, actionID); err != nil {
			return err
		}
		s.metrics.LogModerationEvent("action_reversed", action.TargetUserID.ToInt64(), map[string]interface{}{
			"action_id": int64(actionID),
			"appeal_id": int64(appealID),
		})
		return nil
	default:
		return moderr.Validation("reversal", "kind", "unknown sanction kind")
	}
}

// SanctionForAction resolves which sanction kind a ledger entry produced.
// Entries like warnings yield KindNone rather than an error.
func (s *Service) SanctionForAction(ctx context.Context, actionID model.ActionID) (SanctionKind, error) {
	if _, err := s.db.SuspensionByActionID(ctx, actionID); err == nil {
		return KindSuspension, nil
	} else if !errors.Is(err, moderr.ErrNotFound) {
		return "", err
	}
	if _, err := s.db.BanByActionID(ctx, actionID); err == nil {
		return KindBan, nil
	} else if !errors.Is(err, moderr.ErrNotFound) {
		return "", err
	}
	return KindNone, nil
}

// BanForAction - the ban derived from a ledger entry, if any.
func (s *Service) BanForAction(ctx context.Context, actionID model.ActionID) (*model.Ban, error) {
	return s.db.BanByActionID(ctx, actionID)
}

// ActiveSanctions - a member's own current suspensions and bans.
func (s *Service) ActiveSanctions(ctx context.Context, memberID model.MemberID) ([]model.Suspension, []model.Ban, error) {
	return s.db.ActiveSanctions(ctx, memberID)
}

// IsMemberBanned - registration-guard read for the identity collaborator.
func (s *Service) IsMemberBanned(ctx context.Context, memberID model.MemberID) (bool, error) {
	return s.db.IsMemberBanned(ctx, memberID)
}

// IsEmailBanned - registration-guard read for the identity collaborator.
func (s *Service) IsEmailBanned(ctx context.Context, email string) (bool, error) {
	return s.db.IsEmailBanned(ctx, email)
}

// setSanctionActor records whoever created or last modified the suspension.
func setSanctionActor(suspension *model.Suspension, actor model.Actor) {
	id := sql.NullInt64{Int64: actor.ID.ToInt64(), Valid: true}
	if actor.Role == model.RoleAdministrator {
		suspension.AdministratorID = id
	} else {
		suspension.ModeratorID = id
	}
}
