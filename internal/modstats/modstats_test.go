package modstats

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

func newTestService(t *testing.T) (*Service, *storage.Storage) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite3"
	cfg.Database.Connection = "file:" + t.Name() + "?mode=memory&cache=shared"
	cfg.Database.Timeout = 5 * time.Second

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return New(db, logger), db
}

var (
	moderator = model.Actor{ID: 5, Role: model.RoleModerator}
	admin     = model.Actor{ID: 2, Role: model.RoleAdministrator}
)

func TestRecomputeIsAdministratorOnly(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Recompute(ctx, moderator, moderator.ID)
	require.ErrorIs(t, err, moderr.ErrAuthorization)

	_, err = service.Get(ctx, moderator, moderator.ID)
	require.ErrorIs(t, err, moderr.ErrAuthorization)
}

func TestGetBeforeRecompute(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Get(context.Background(), admin, 5)
	require.ErrorIs(t, err, moderr.ErrNotFound)
}

func TestRecomputeCounters(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	const moderatorID model.MemberID = 5

	// One resolved report assigned to the moderator.
	report := &model.Report{
		ReporterID:          100,
		Category:            model.CategorySpam,
		Severity:            model.SeverityMedium,
		Status:              model.ReportResolved,
		AssignedModeratorID: sql.NullInt64{Int64: moderatorID.ToInt64(), Valid: true},
	}
	report.SetContent(model.ContentRef{Kind: model.ContentTopic, ID: 1})
	require.NoError(t, db.CreateReport(ctx, report))

	// A content removal by the moderator plus one by someone else.
	for _, actorID := range []model.MemberID{moderatorID, 6} {
		action := &model.ModerationAction{
			TargetUserID: 10,
			Type:         model.ActionDeleteContent,
			Reason:       "spam links repeated across multiple topics",
			Category:     model.CategorySpam,
		}
		action.SetActor(model.Actor{ID: actorID, Role: model.RoleModerator})
		require.NoError(t, db.AppendAction(ctx, action))
	}

	stats, err := service.Recompute(ctx, admin, moderatorID)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.TotalReportsReviewed)
	require.EqualValues(t, 1, stats.TotalContentRemovals)
	require.EqualValues(t, 0, stats.TotalBansIssued)
	require.EqualValues(t, 0, stats.TotalAppealsReviewed)

	read, err := service.Get(ctx, admin, moderatorID)
	require.NoError(t, err)
	require.Equal(t, stats.TotalContentRemovals, read.TotalContentRemovals)
	require.False(t, read.LastCalculatedAt.IsZero())
}
