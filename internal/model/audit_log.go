package model

import (
	"database/sql"
	"time"

	"github.com/openboard/moderation-server/internal/utility"
)

type AuditLogID int64

// LogType tags the origin of an audit log entry.
type LogType string

const (
	LogReportSubmitted LogType = "report_submitted"
	LogActionTaken     LogType = "action_taken"
)

// IsValid - the log type is known.
func (t LogType) IsValid() bool {
	return t == LogReportSubmitted || t == LogActionTaken
}

// AuditLogEntry is one row of the moderation audit trail. Report submissions
// and ledger appends each leave an entry; the audit query reads them back in
// strict reverse-chronological order.
type AuditLogEntry struct {
	ID AuditLogID `gorm:"primaryKey" hash:"x" json:"id"`

	Type LogType `gorm:"index;not null" hash:"x" json:"log_type"`

	CommunityID sql.NullInt64 `gorm:"index" hash:"x" json:"community_id"` // Scope, null for platform-wide entries.
	ModeratorID sql.NullInt64 `gorm:"index" hash:"x" json:"moderator_id"` // Acting or assigned moderator, if any.

	ReportID sql.NullInt64 `gorm:"index" hash:"x" json:"report_id"`
	ActionID sql.NullInt64 `gorm:"index" hash:"x" json:"action_id"`

	Summary string `hash:"x" json:"summary"` // One-line description for dashboards.

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName - set the table name.
func (AuditLogEntry) TableName() string {
	return "audit_logs"
}

// GetID - get the entry ID.
func (obj *AuditLogEntry) GetID() int64 {
	return int64(obj.ID)
}

// Hash - calculate the hash of the object.
func (obj *AuditLogEntry) Hash() (string, error) {
	return utility.Hash(obj)
}
