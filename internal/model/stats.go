package model

import (
	"time"

	"github.com/openboard/moderation-server/internal/utility"
)

// ModeratorActivityStats is the materialized per-moderator summary row.
// It is never hand-edited; only recomputation overwrites it.
type ModeratorActivityStats struct {
	ModeratorID MemberID `gorm:"primaryKey" hash:"x" json:"moderator_id"`

	TotalReportsReviewed int64 `hash:"x" json:"total_reports_reviewed"`
	TotalContentRemovals int64 `hash:"x" json:"total_content_removals"`
	TotalBansIssued      int64 `hash:"x" json:"total_bans_issued"`
	TotalAppealsReviewed int64 `hash:"x" json:"total_appeals_reviewed"`

	LastCalculatedAt time.Time `json:"last_calculated_at"`
}

// TableName - set the table name.
func (ModeratorActivityStats) TableName() string {
	return "moderator_activity_stats"
}

// GetID - get the moderator ID.
func (obj *ModeratorActivityStats) GetID() int64 {
	return int64(obj.ModeratorID)
}

// Hash - calculate the hash of the object.
func (obj *ModeratorActivityStats) Hash() (string, error) {
	return utility.Hash(obj)
}
