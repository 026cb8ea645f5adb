package audit

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/openboard/moderation-server/internal/config"
	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	"github.com/openboard/moderation-server/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	model.InitHashFunction()
	os.Exit(m.Run())
}

func testPolicy() config.ModerationConfig {
	return config.ModerationConfig{AuditPageLimit: 50}
}

func newTestService(t *testing.T) testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite3"
	cfg.Database.Connection = "file:" + t.Name() + "?mode=memory&cache=shared"
	cfg.Database.Timeout = 5 * time.Second

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return testEnv{db: db, service: New(db, testPolicy())}
}

type testEnv struct {
	db      *storage.Storage
	service *Service
}

var (
	moderator = model.Actor{ID: 5, Role: model.RoleModerator}
	admin     = model.Actor{ID: 2, Role: model.RoleAdministrator}
	member    = model.Actor{ID: 50, Role: model.RoleMember}
)

// seedTrail files reports in two communities, producing audit entries.
func (env testEnv) seedTrail(t *testing.T, perCommunity int) {
	t.Helper()
	ctx := context.Background()

	for _, communityID := range []int64{7, 8} {
		for i := 0; i < perCommunity; i++ {
			report := &model.Report{
				ReporterID:  model.MemberID(100 + i),
				CommunityID: sql.NullInt64{Int64: communityID, Valid: true},
				Category:    model.CategorySpam,
				Severity:    model.SeverityMedium,
				Status:      model.ReportPending,
			}
			report.SetContent(model.ContentRef{Kind: model.ContentTopic, ID: model.ContentID(i + 1)})
			require.NoError(t, env.db.CreateReport(ctx, report))
		}
	}
}

func TestRunAuthorization(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	// Members never query the audit trail.
	_, err := env.service.Run(ctx, member, &Query{})
	require.ErrorIs(t, err, moderr.ErrAuthorization)

	// Moderators must scope to a community.
	_, err = env.service.Run(ctx, moderator, &Query{})
	require.ErrorIs(t, err, moderr.ErrAuthorization)

	communityID := int64(7)
	_, err = env.service.Run(ctx, moderator, &Query{CommunityID: &communityID})
	require.NoError(t, err)

	// Administrators query platform-wide.
	_, err = env.service.Run(ctx, admin, &Query{})
	require.NoError(t, err)
}

func TestRunValidation(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	_, err := env.service.Run(ctx, admin, &Query{LogType: model.LogType("member_joined")})
	require.ErrorIs(t, err, moderr.ErrValidation)

	badTime := "yesterday"
	_, err = env.service.Run(ctx, admin, &Query{CreatedFrom: &badTime})
	require.ErrorIs(t, err, moderr.ErrValidation)

	_, err = env.service.Run(ctx, admin, &Query{CreatedTo: &badTime})
	require.ErrorIs(t, err, moderr.ErrValidation)
}

func TestRunCommunityScope(t *testing.T) {
	env := newTestService(t)
	env.seedTrail(t, 3)
	ctx := context.Background()

	communityID := int64(7)
	page, err := env.service.Run(ctx, moderator, &Query{CommunityID: &communityID})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Pagination.Records)

	for _, entry := range page.Entries {
		require.EqualValues(t, 7, entry.CommunityID.Int64)
	}

	// Platform-wide sees both communities.
	page, err = env.service.Run(ctx, admin, &Query{})
	require.NoError(t, err)
	require.EqualValues(t, 6, page.Pagination.Records)
}

func TestRunPagination(t *testing.T) {
	env := newTestService(t)
	env.seedTrail(t, 4)
	ctx := context.Background()

	seen := map[model.AuditLogID]bool{}
	var previous *model.AuditLogEntry

	for pageNum := 1; ; pageNum++ {
		page, err := env.service.Run(ctx, admin, &Query{Page: pageNum, Limit: 3})
		require.NoError(t, err)
		require.EqualValues(t, 8, page.Pagination.Records)
		require.EqualValues(t, 3, page.Pagination.Limit)
		require.EqualValues(t, 3, page.Pagination.Pages)

		if len(page.Entries) == 0 {
			break
		}

		for i := range page.Entries {
			entry := page.Entries[i]

			// Newest first, no duplicates across pages.
			if previous != nil {
				require.False(t, entry.CreatedAt.After(previous.CreatedAt))
				if entry.CreatedAt.Equal(previous.CreatedAt) {
					require.Less(t, int64(entry.ID), int64(previous.ID))
				}
			}

			require.False(t, seen[entry.ID])
			seen[entry.ID] = true
			previous = &page.Entries[i]
		}
	}

	require.Len(t, seen, 8)
}

func TestRunLimitClamp(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	// Oversized and non-positive limits fall back to the configured maximum.
	page, err := env.service.Run(ctx, admin, &Query{Limit: 10_000})
	require.NoError(t, err)
	require.Equal(t, 50, page.Pagination.Limit)

	page, err = env.service.Run(ctx, admin, &Query{Limit: -1, Page: -2})
	require.NoError(t, err)
	require.Equal(t, 50, page.Pagination.Limit)
	require.Equal(t, 1, page.Pagination.Page)
}

func TestRunTimeWindow(t *testing.T) {
	env := newTestService(t)
	env.seedTrail(t, 2)
	ctx := context.Background()

	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	page, err := env.service.Run(ctx, admin, &Query{CreatedFrom: &future})
	require.NoError(t, err)
	require.Empty(t, page.Entries)
	require.EqualValues(t, 0, page.Pagination.Records)

	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	page, err = env.service.Run(ctx, admin, &Query{CreatedFrom: &past})
	require.NoError(t, err)
	require.EqualValues(t, 4, page.Pagination.Records)
}
