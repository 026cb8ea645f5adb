package model

import (
	"database/sql"
	"time"

	"github.com/openboard/moderation-server/internal/utility"
)

type ActionID int64

// ActionType enumerates every enforcement decision the ledger records.
type ActionType string

const (
	ActionHideContent    ActionType = "hide_content"
	ActionDeleteContent  ActionType = "delete_content"
	ActionIssueWarning   ActionType = "issue_warning"
	ActionSuspendUser    ActionType = "suspend_user"
	ActionBanUser        ActionType = "ban_user"
	ActionRestoreContent ActionType = "restore_content"
	ActionDismissReport  ActionType = "dismiss_report"
)

// IsValid - the action type is a member of the closed enumeration.
func (t ActionType) IsValid() bool {
	switch t {
	case ActionHideContent, ActionDeleteContent, ActionIssueWarning,
		ActionSuspendUser, ActionBanUser, ActionRestoreContent, ActionDismissReport:
		return true
	default:
		return false
	}
}

// IsContentRemoval - the action removes content from view.
func (t ActionType) IsContentRemoval() bool {
	return t == ActionHideContent || t == ActionDeleteContent
}

// ModerationAction is a ledger entry. Entries are append-only: no field is ever
// mutated after creation except IsReversed, flipped exactly once on reversal.
type ModerationAction struct {
	ID ActionID `gorm:"primaryKey" hash:"x" json:"id"`

	// Exactly one of ModeratorID/AdministratorID is non-null.
	ModeratorID     sql.NullInt64 `gorm:"index" hash:"x" json:"moderator_id"`
	AdministratorID sql.NullInt64 `gorm:"index" hash:"x" json:"administrator_id"`

	TargetUserID    MemberID      `gorm:"index;not null" hash:"x" json:"target_user_id"`
	RelatedReportID sql.NullInt64 `gorm:"index" hash:"x" json:"related_report_id"`

	// Optional content reference, topic XOR reply. Both null when the action
	// targets only the user.
	TopicID sql.NullInt64 `gorm:"index" hash:"x" json:"topic_id"`
	ReplyID sql.NullInt64 `gorm:"index" hash:"x" json:"reply_id"`

	CommunityID sql.NullInt64 `gorm:"index" hash:"x" json:"community_id"` // Scope for audit queries.

	Type     ActionType        `gorm:"index;not null" hash:"x" json:"action_type"`
	Reason   string            `gorm:"not null" hash:"x" json:"reason"`
	Category ViolationCategory `gorm:"not null" hash:"x" json:"violation_category"`

	// Verbatim copy of the affected content at action time. Never re-fetched,
	// so appeal evidence survives later edits and deletions.
	ContentSnapshot string `hash:"x" json:"content_snapshot"`
	SnapshotHash    string `json:"snapshot_hash"` // Integrity hash of the entry at creation.

	IsReversed bool `gorm:"default:false" json:"is_reversed"`

	// Meta fields
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	Extra     string    `json:"extra"` // Extra data.
}

// TableName - set the table name.
func (ModerationAction) TableName() string {
	return "moderation_actions"
}

// GetID - get the action ID.
func (obj *ModerationAction) GetID() int64 {
	return int64(obj.ID)
}

// Hash - calculate the hash of the object.
func (obj *ModerationAction) Hash() (string, error) {
	return utility.Hash(obj)
}

// Actor - the single actor that created the entry.
func (obj *ModerationAction) Actor() Actor {
	if obj.AdministratorID.Valid {
		return Actor{ID: MemberID(obj.AdministratorID.Int64), Role: RoleAdministrator}
	}
	return Actor{ID: MemberID(obj.ModeratorID.Int64), Role: RoleModerator}
}

// SetActor - record exactly one of moderator/administrator from the actor role.
func (obj *ModerationAction) SetActor(actor Actor) {
	id := sql.NullInt64{Int64: actor.ID.ToInt64(), Valid: true}
	if actor.Role == RoleAdministrator {
		obj.AdministratorID = id
		obj.ModeratorID = sql.NullInt64{}
	} else {
		obj.ModeratorID = id
		obj.AdministratorID = sql.NullInt64{}
	}
}

// Content - the affected content reference, zero if the action targets only the user.
func (obj *ModerationAction) Content() ContentRef {
	return joinRef(obj.TopicID, obj.ReplyID)
}

// SetContent - point the action at a single content item.
func (obj *ModerationAction) SetContent(ref ContentRef) {
	obj.TopicID, obj.ReplyID = splitRef(ref)
}
