package model

import (
	"database/sql"
	"time"

	"github.com/openboard/moderation-server/internal/utility"
)

type ReportID int64

// ViolationCategory is the closed set of report categories.
type ViolationCategory string

const (
	CategoryPersonalAttack ViolationCategory = "personal_attack"
	CategoryHateSpeech     ViolationCategory = "hate_speech"
	CategorySpam           ViolationCategory = "spam"
	CategoryThreats        ViolationCategory = "threats"
	CategoryDoxxing        ViolationCategory = "doxxing"
	CategoryOther          ViolationCategory = "other"
)

// IsValid - the category is a member of the closed enumeration.
func (c ViolationCategory) IsValid() bool {
	switch c {
	case CategoryPersonalAttack, CategoryHateSpeech, CategorySpam,
		CategoryThreats, CategoryDoxxing, CategoryOther:
		return true
	default:
		return false
	}
}

// SeverityLevel is derived from the violation category.
type SeverityLevel string

const (
	SeverityCritical SeverityLevel = "critical"
	SeverityHigh     SeverityLevel = "high"
	SeverityMedium   SeverityLevel = "medium"
	SeverityLow      SeverityLevel = "low"
)

// IsValid - the level is a member of the closed enumeration.
func (l SeverityLevel) IsValid() bool {
	switch l {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// SeverityTable maps categories to severity levels. It is injected into the
// report intake at construction instead of living in a package global.
type SeverityTable map[ViolationCategory]SeverityLevel

// DefaultSeverityTable - the built-in category classification.
// hate_speech, threats and doxxing always classify as critical.
func DefaultSeverityTable() SeverityTable {
	return SeverityTable{
		CategoryHateSpeech:     SeverityCritical,
		CategoryThreats:        SeverityCritical,
		CategoryDoxxing:        SeverityCritical,
		CategoryPersonalAttack: SeverityHigh,
		CategorySpam:           SeverityMedium,
		CategoryOther:          SeverityLow,
	}
}

// WithOverrides applies configured category overrides on top of the table.
// Unknown categories and levels are ignored, and the always-critical
// categories (hate_speech, threats, doxxing) cannot be downgraded.
func (t SeverityTable) WithOverrides(overrides map[string]string) SeverityTable {
	for category, level := range overrides {
		c, l := ViolationCategory(category), SeverityLevel(level)
		if !c.IsValid() || !l.IsValid() {
			continue
		}
		if t[c] == SeverityCritical {
			continue
		}
		t[c] = l
	}
	return t
}

// Severity - look up the severity for a category, defaulting to low.
func (t SeverityTable) Severity(category ViolationCategory) SeverityLevel {
	if level, ok := t[category]; ok {
		return level
	}
	return SeverityLow
}

// ReportStatus of the report lifecycle.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportAssigned  ReportStatus = "assigned"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// IsTerminal - resolved and dismissed reports accept no further transitions.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportResolved || s == ReportDismissed
}

// Report is a violation report filed by a member against a content item.
type Report struct {
	ID ReportID `gorm:"primaryKey" hash:"x" json:"id"`

	ReporterID MemberID `gorm:"index;not null" hash:"x" json:"reporter_id"` // Member who filed the report.

	// Exactly one of TopicID/ReplyID is non-null.
	TopicID sql.NullInt64 `gorm:"index" hash:"x" json:"topic_id"`
	ReplyID sql.NullInt64 `gorm:"index" hash:"x" json:"reply_id"`

	CommunityID sql.NullInt64 `gorm:"index" hash:"x" json:"community_id"` // Scope for audit queries.

	Category    ViolationCategory `gorm:"not null" hash:"x" json:"category"`
	Severity    SeverityLevel     `gorm:"not null" hash:"x" json:"severity"`    // Derived from the category.
	Explanation string            `hash:"x"        json:"explanation"`          // Mandatory when category is "other".
	Status      ReportStatus      `gorm:"index;not null" hash:"x" json:"status"`

	AssignedModeratorID sql.NullInt64  `gorm:"index" hash:"x" json:"assigned_moderator_id"`
	ResolutionNotes     sql.NullString `hash:"x" json:"resolution_notes"`

	// Meta fields
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Extra     string    `json:"extra"` // Extra data.
}

// TableName - set the table name.
func (Report) TableName() string {
	return "reports"
}

// GetID - get the report ID.
func (obj *Report) GetID() int64 {
	return int64(obj.ID)
}

// Hash - calculate the hash of the object.
func (obj *Report) Hash() (string, error) {
	return utility.Hash(obj)
}

// Content - the reported content reference.
func (obj *Report) Content() ContentRef {
	return joinRef(obj.TopicID, obj.ReplyID)
}

// SetContent - point the report at exactly one content item.
func (obj *Report) SetContent(ref ContentRef) {
	obj.TopicID, obj.ReplyID = splitRef(ref)
}
