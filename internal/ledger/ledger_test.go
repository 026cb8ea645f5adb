package ledger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/openboard/moderation-server/internal/config"
	"github.com/openboard/moderation-server/internal/content"
	"github.com/openboard/moderation-server/internal/metrics"
	"github.com/openboard/moderation-server/internal/moderr"
	"github.com/openboard/moderation-server/internal/model"
	"github.com/openboard/moderation-server/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	model.InitHashFunction()
	os.Exit(m.Run())
}

type stubResolver struct {
	items map[model.ContentRef]*content.Content
}

func (s *stubResolver) Resolve(_ context.Context, ref model.ContentRef) (*content.Content, error) {
	if item, ok := s.items[ref]; ok {
		return item, nil
	}
	return nil, moderr.NotFound("content", ref.ID.ToInt64())
}

func testPolicy() config.ModerationConfig {
	return config.ModerationConfig{
		ModeratorSuspensionCapDays: 30,
		AdminSuspensionCapDays:     365,
		ActionReasonMinLength:      20,
		ExtensionReasonMinLength:   20,
		BanReasonMinLength:         100,
		AppealMinLength:            50,
		DefaultAppealWindowDays:    30,
		AuditPageLimit:             50,
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite3"
	cfg.Database.Connection = "file:" + t.Name() + "?mode=memory&cache=shared"
	cfg.Database.Timeout = 5 * time.Second

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	resolver := &stubResolver{items: map[model.ContentRef]*content.Content{
		{Kind: model.ContentTopic, ID: 11}: {AuthorID: 50, Body: "the live topic body", CommunityID: 7},
	}}

	return New(db, resolver, testPolicy(), metrics.NewMetricsFake(), logger)
}

const validReason = "repeated spam links after an earlier warning"

func TestRecordActionCapturesSnapshot(t *testing.T) {
	service := newTestService(t)

	action, err := service.Record(context.Background(), &RecordAction{
		Actor:        model.Actor{ID: 5, Role: model.RoleModerator},
		TargetUserID: 50,
		Type:         model.ActionHideContent,
		Reason:       validReason,
		Category:     model.CategorySpam,
		Content:      model.ContentRef{Kind: model.ContentTopic, ID: 11},
		CommunityID:  7,
	})
	require.NoError(t, err)
	require.NotZero(t, action.ID)

	// The body is copied verbatim at record time.
	require.Equal(t, "the live topic body", action.ContentSnapshot)
	require.NotEmpty(t, action.SnapshotHash)
	require.True(t, action.ModeratorID.Valid)
	require.False(t, action.AdministratorID.Valid)
	require.False(t, action.IsReversed)
}

func TestRecordActionExplicitSnapshot(t *testing.T) {
	service := newTestService(t)

	action, err := service.Record(context.Background(), &RecordAction{
		Actor:        model.Actor{ID: 2, Role: model.RoleAdministrator},
		TargetUserID: 50,
		Type:         model.ActionDeleteContent,
		Reason:       validReason,
		Category:     model.CategorySpam,
		Content:      model.ContentRef{Kind: model.ContentTopic, ID: 11},
		Snapshot:     "body as the moderator saw it",
	})
	require.NoError(t, err)

	// A supplied snapshot wins over the fetched body.
	require.Equal(t, "body as the moderator saw it", action.ContentSnapshot)
	require.True(t, action.AdministratorID.Valid)
	require.False(t, action.ModeratorID.Valid)
}

func TestRecordActionRejections(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RecordAction
		kind error
	}{
		{
			name: "member actor",
			req: RecordAction{
				Actor:        model.Actor{ID: 3, Role: model.RoleMember},
				TargetUserID: 50,
				Type:         model.ActionIssueWarning,
				Reason:       validReason,
			},
			kind: moderr.ErrAuthorization,
		},
		{
			name: "unknown action type",
			req: RecordAction{
				Actor:        model.Actor{ID: 5, Role: model.RoleModerator},
				TargetUserID: 50,
				Type:         model.ActionType("shadowban"),
				Reason:       validReason,
			},
			kind: moderr.ErrValidation,
		},
		{
			name: "short reason",
			req: RecordAction{
				Actor:        model.Actor{ID: 5, Role: model.RoleModerator},
				TargetUserID: 50,
				Type:         model.ActionIssueWarning,
				Reason:       "spam",
			},
			kind: moderr.ErrValidation,
		},
		{
			name: "missing target user",
			req: RecordAction{
				Actor:  model.Actor{ID: 5, Role: model.RoleModerator},
				Type:   model.ActionIssueWarning,
				Reason: validReason,
			},
			kind: moderr.ErrValidation,
		},
		{
			name: "malformed content reference",
			req: RecordAction{
				Actor:        model.Actor{ID: 5, Role: model.RoleModerator},
				TargetUserID: 50,
				Type:         model.ActionHideContent,
				Reason:       validReason,
				Content:      model.ContentRef{Kind: "comment", ID: 11},
			},
			kind: moderr.ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Record(ctx, &tc.req)
			require.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestGetActionVisibility(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	action, err := service.Record(ctx, &RecordAction{
		Actor:        model.Actor{ID: 5, Role: model.RoleModerator},
		TargetUserID: 50,
		Type:         model.ActionIssueWarning,
		Reason:       validReason,
		Category:     model.CategorySpam,
	})
	require.NoError(t, err)

	// The creating moderator reads their own entry.
	read, err := service.Get(ctx, model.Actor{ID: 5, Role: model.RoleModerator}, action.ID)
	require.NoError(t, err)
	require.Equal(t, action.ID, read.ID)

	// Administrators read any entry.
	_, err = service.Get(ctx, model.Actor{ID: 2, Role: model.RoleAdministrator}, action.ID)
	require.NoError(t, err)

	// Another moderator does not.
	_, err = service.Get(ctx, model.Actor{ID: 6, Role: model.RoleModerator}, action.ID)
	require.ErrorIs(t, err, moderr.ErrAuthorization)

	// Members never read the ledger.
	_, err = service.Get(ctx, model.Actor{ID: 50, Role: model.RoleMember}, action.ID)
	require.ErrorIs(t, err, moderr.ErrAuthorization)
}
