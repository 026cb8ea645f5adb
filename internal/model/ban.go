package model

import (
	"database/sql"
	"time"

	"github.com/openboard/moderation-server/internal/utility"
)

type BanID int64

// Ban is a permanent sanction. There is no end date; a ban only stops applying
// when it is reversed through a successful appeal.
type Ban struct {
	ID BanID `gorm:"primaryKey" hash:"x" json:"id"`

	MemberID MemberID `gorm:"index;not null" hash:"x" json:"member_id"` // Banned member.
	ActionID ActionID `gorm:"index;not null" hash:"x" json:"moderation_action_id"` // Origin ledger entry.

	AdministratorID MemberID `gorm:"index;not null" hash:"x" json:"administrator_id"` // Bans are administrator-only.

	Reason           string `gorm:"not null" hash:"x" json:"ban_reason"`
	ViolationSummary string `gorm:"not null" hash:"x" json:"violation_summary"`

	IsAppealable     bool `gorm:"default:true" hash:"x" json:"is_appealable"`
	AppealWindowDays int  `hash:"x" json:"appeal_window_days"` // Meaningful only when appealable.

	IPAddress sql.NullString `hash:"x" json:"ip_address_banned"`
	Email     string         `gorm:"index;not null" hash:"x" json:"email_banned"` // Blocks re-registration by address.

	IsReversed bool `gorm:"index;default:false" json:"is_reversed"`

	// Meta fields
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Extra     string    `json:"extra"` // Extra data.
}

// TableName - set the table name.
func (Ban) TableName() string {
	return "bans"
}

// GetID - get the ban ID.
func (obj *Ban) GetID() int64 {
	return int64(obj.ID)
}

// Hash - calculate the hash of the object.
func (obj *Ban) Hash() (string, error) {
	return utility.Hash(obj)
}

// AppealDeadline - last moment an appeal may be submitted.
// The zero window means no deadline.
func (obj *Ban) AppealDeadline() (time.Time, bool) {
	if !obj.IsAppealable || obj.AppealWindowDays <= 0 {
		return time.Time{}, false
	}
	return obj.CreatedAt.AddDate(0, 0, obj.AppealWindowDays), true
}
