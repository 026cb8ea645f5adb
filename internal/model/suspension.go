package model

import (
	"database/sql"
	"time"

	"github.com/openboard/moderation-server/internal/utility"
)

type SuspensionID int64

// Suspension is a time-bounded sanction derived from a ledger entry.
// A suspension is terminal once lifted early; natural expiry is a read-time
// fact derived from EndDate rather than a stored transition.
type Suspension struct {
	ID SuspensionID `gorm:"primaryKey" hash:"x" json:"id"`

	MemberID MemberID `gorm:"index;not null" hash:"x" json:"member_id"` // Sanctioned member.
	ActionID ActionID `gorm:"index;not null" hash:"x" json:"moderation_action_id"` // Origin ledger entry.

	// Whoever created or last modified the suspension, by role.
	ModeratorID     sql.NullInt64 `gorm:"index" hash:"x" json:"moderator_id"`
	AdministratorID sql.NullInt64 `gorm:"index" hash:"x" json:"administrator_id"`

	Reason       string    `gorm:"not null" hash:"x" json:"suspension_reason"`
	DurationDays int       `gorm:"not null" hash:"x" json:"duration_days"`
	StartDate    time.Time `gorm:"not null" hash:"x" json:"start_date"`
	EndDate      time.Time `gorm:"not null" hash:"x" json:"end_date"` // Always StartDate + DurationDays.

	IsActive    bool         `gorm:"index;default:true" json:"is_active"`
	LiftedEarly bool         `gorm:"default:false" json:"lifted_early"`
	LiftedAt    sql.NullTime `json:"lifted_at"`

	// Meta fields
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Extra     string    `json:"extra"` // Extra data.
}

// TableName - set the table name.
func (Suspension) TableName() string {
	return "suspensions"
}

// GetID - get the suspension ID.
func (obj *Suspension) GetID() int64 {
	return int64(obj.ID)
}

// Hash - calculate the hash of the object.
func (obj *Suspension) Hash() (string, error) {
	return utility.Hash(obj)
}

// Recompute - set EndDate from the original StartDate and the duration.
// The start date never moves on modification.
func (obj *Suspension) Recompute() {
	obj.EndDate = obj.StartDate.AddDate(0, 0, obj.DurationDays)
}

// IsExpired - the suspension ran past its end date.
func (obj *Suspension) IsExpired(now time.Time) bool {
	return !now.Before(obj.EndDate)
}

// IsTerminal - lifted early or naturally expired; no further transitions.
func (obj *Suspension) IsTerminal(now time.Time) bool {
	return obj.LiftedEarly || !obj.IsActive || obj.IsExpired(now)
}
