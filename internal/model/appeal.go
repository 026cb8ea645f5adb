package model

import (
	"database/sql"
	"time"

	"github.com/openboard/moderation-server/internal/utility"
)

type AppealID int64

// AppealStatus of the appeal state machine:
// pending_review -> under_review -> approved | denied.
type AppealStatus string

const (
	AppealPendingReview AppealStatus = "pending_review"
	AppealUnderReview   AppealStatus = "under_review"
	AppealApproved      AppealStatus = "approved"
	AppealDenied        AppealStatus = "denied"
)

// IsTerminal - approved and denied appeals accept no further transitions.
func (s AppealStatus) IsTerminal() bool {
	return s == AppealApproved || s == AppealDenied
}

// Appeal contests a single ledger entry. At most one non-terminal appeal may
// exist per appealed moderation action at any time.
type Appeal struct {
	ID AppealID `gorm:"primaryKey" hash:"x" json:"id"`

	MemberID MemberID `gorm:"index;not null" hash:"x" json:"member_id"` // Must equal the action's target user.
	ActionID ActionID `gorm:"index;not null" hash:"x" json:"appealed_moderation_action_id"`

	Explanation        string         `gorm:"not null" hash:"x" json:"appeal_explanation"`
	AdditionalEvidence sql.NullString `hash:"x" json:"additional_evidence"`

	Status AppealStatus `gorm:"index;not null" hash:"x" json:"status"`

	// ActiveActionID mirrors ActionID while the appeal is active and goes
	// null on terminal transitions. The unique index holds the at-most-one
	// active appeal per action rule on every backend, including those where
	// a read-then-insert transaction does not serialize.
	ActiveActionID sql.NullInt64 `gorm:"uniqueIndex" json:"-"`

	ReviewingAdministratorID sql.NullInt64  `gorm:"index" hash:"x" json:"reviewing_administrator_id"`
	DecisionNotes            sql.NullString `hash:"x" json:"decision_notes"`

	SubmittedAt time.Time    `gorm:"autoCreateTime;index" json:"submitted_at"`
	ResolvedAt  sql.NullTime `json:"resolved_at"`

	// Meta fields
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Extra     string    `json:"extra"` // Extra data.
}

// SetStatus moves the appeal to a new status and keeps the active-uniqueness
// sentinel in sync with it.
func (obj *Appeal) SetStatus(status AppealStatus) {
	obj.Status = status
	if status.IsTerminal() {
		obj.ActiveActionID = sql.NullInt64{}
	} else {
		obj.ActiveActionID = sql.NullInt64{Int64: int64(obj.ActionID), Valid: true}
	}
}

// TableName - set the table name.
func (Appeal) TableName() string {
	return "appeals"
}

// GetID - get the appeal ID.
func (obj *Appeal) GetID() int64 {
	return int64(obj.ID)
}

// Hash - calculate the hash of the object.
func (obj *Appeal) Hash() (string, error) {
	return utility.Hash(obj)
}
