package audit

import (
	"time"

	"github.com/openboard/moderation-server/internal/moderr"
)

// parseTime converts an optional RFC 3339 string into a UTC timestamp.
func parseTime(value *string, field string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, moderr.Validation("audit_log", field, "timestamp must be RFC 3339")
	}
	utc := parsed.UTC()
	return &utc, nil
}
