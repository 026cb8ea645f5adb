package metrics

import (
	"testing"
)

func TestFakeAcceptsNilTagsAndFields(t *testing.T) {
	fake := NewMetricsFake()
	defer fake.Close()

	t.Run("Empty tags and fields", func(_ *testing.T) {
		fake.LogEvent("test", nil, nil)
	})

	t.Run("Moderation event without fields", func(_ *testing.T) {
		fake.LogModerationEvent("report_submitted", 42, nil)
	})
}
