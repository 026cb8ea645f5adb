// Package audit is the read-only, paginated query surface over the moderation
// audit trail.
package audit

import (
	"context"

	"github.com/openboard/moderation-server/internal/config"
	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	"github.com/openboard/moderation-server/internal/storage"
)

type Service struct {
	db     *storage.Storage
	policy config.ModerationConfig
}

func New(db *storage.Storage, policy config.ModerationConfig) *Service {
	return &Service{db: db, policy: policy}
}

// Query narrows and pages the audit trail.
type Query struct {
	CommunityID *int64        `json:"community_id,omitempty"`
	LogType     model.LogType `json:"log_type,omitempty"`
	ModeratorID *int64        `json:"moderator_id,omitempty"`
	CreatedFrom *string       `json:"created_from,omitempty"` // RFC 3339
	CreatedTo   *string       `json:"created_to,omitempty"`   // RFC 3339
	Page        int           `json:"page"`
	Limit       int           `json:"limit"`
}

// Pagination echoes the page window and the total record count.
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Records int64 `json:"records"`
	Pages   int64 `json:"pages"`
}

// Page is one page of audit entries, newest first.
type Page struct {
	Entries    []model.AuditLogEntry `json:"entries"`
	Pagination Pagination            `json:"pagination"`
}

// Run executes an audit query. Administrators query platform-wide; moderators
// must scope the query to a community; members and anonymous callers are
// rejected. Results are strictly descending by creation time and pages are
// stable and duplicate-free over a constant data set.
func (s *Service) Run(ctx context.Context, actor model.Actor, query *Query) (*Page, error) {
	switch {
	case actor.IsAdministrator():
		// Platform-wide access.
	case actor.IsModerator():
		if query.CommunityID == nil {
			return nil, moderr.Authorization("audit_log", "moderators must scope audit queries to a community")
		}
	default:
		return nil, moderr.Authorization("audit_log", "only moderators and administrators may query the audit trail")
	}

	if query.LogType != "" && !query.LogType.IsValid() {
		return nil, moderr.Validation("audit_log", "log_type", "unknown log type")
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 || limit > s.policy.AuditPageLimit {
		limit = s.policy.AuditPageLimit
	}

	filter := storage.AuditFilter{
		CommunityID: query.CommunityID,
		Type:        query.LogType,
		ModeratorID: query.ModeratorID,
		Page:        page,
		Limit:       limit,
	}

	from, err := parseTime(query.CreatedFrom, "created_from")
	if err != nil {
		return nil, err
	}
	filter.CreatedFrom = from

	to, err := parseTime(query.CreatedTo, "created_to")
	if err != nil {
		return nil, err
	}
	filter.CreatedTo = to

	entries, total, err := s.db.AuditPage(ctx, filter)
	if err != nil {
		return nil, err
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}

	return &Page{
		Entries: entries,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Records: total,
			Pages:   pages,
		},
	}, nil
}
