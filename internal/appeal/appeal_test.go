package appeal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/openboard/moderation-server/internal/config"
	"github.com/openboard/moderation-server/internal/enforcement"
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

type testEnv struct {
	db          *storage.Storage
	enforcement *enforcement.Service
	appeals     *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite3"
	cfg.Database.Connection = "file:" + t.Name() + "?mode=memory&cache=shared"
	cfg.Database.Timeout = 5 * time.Second

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	enf := enforcement.New(db, testPolicy(), metrics.NewMetricsFake(), logger)

	return &testEnv{
		db:          db,
		enforcement: enf,
		appeals:     New(db, enf, testPolicy(), metrics.NewMetricsFake(), logger),
	}
}

var (
	moderator = model.Actor{ID: 5, Role: model.RoleModerator}
	admin     = model.Actor{ID: 2, Role: model.RoleAdministrator}
)

const explanation = "the quoted messages were part of a private joke between friends and the full thread makes that clear"

func (env *testEnv) suspendedMember(t *testing.T, memberID model.MemberID) (*model.ModerationAction, *model.Suspension) {
	t.Helper()
	ctx := context.Background()

	action := &model.ModerationAction{
		TargetUserID: memberID,
		Type:         model.ActionSuspendUser,
		Reason:       "sustained harassment across several threads",
		Category:     model.CategoryPersonalAttack,
	}
	action.SetActor(moderator)
	require.NoError(t, env.db.AppendAction(ctx, action))

	suspension, err := env.enforcement.Suspend(ctx, &enforcement.CreateSuspension{
		MemberID:     memberID,
		ActionID:     action.ID,
		Reason:       "third harassment strike inside one month",
		DurationDays: 7,
		Actor:        moderator,
	})
	require.NoError(t, err)

	return action, suspension
}

func TestSubmitAppeal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	action, _ := env.suspendedMember(t, 10)

	submitted, err := env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:           10,
		ActionID:           action.ID,
		Explanation:        explanation,
		AdditionalEvidence: "link to the full conversation",
	})
	require.NoError(t, err)
	require.Equal(t, model.AppealPendingReview, submitted.Status)
	require.True(t, submitted.AdditionalEvidence.Valid)
	require.False(t, submitted.ResolvedAt.Valid)

	// One active appeal per action.
	_, err = env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    10,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.ErrorIs(t, err, moderr.ErrConflict)
}

func TestSubmitAppealRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	action, _ := env.suspendedMember(t, 10)

	// Explanations below the minimum are rejected before any lookup.
	_, err := env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    10,
		ActionID:    action.ID,
		Explanation: "unfair",
	})
	require.ErrorIs(t, err, moderr.ErrValidation)

	// Only the sanctioned member may appeal.
	_, err = env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    11,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.ErrorIs(t, err, moderr.ErrAuthorization)

	// Unknown actions surface as not found.
	_, err = env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    10,
		ActionID:    9999,
		Explanation: explanation,
	})
	require.ErrorIs(t, err, moderr.ErrNotFound)

	// An already reversed action cannot be appealed again.
	require.NoError(t, env.enforcement.Reverse(ctx, enforcement.KindSuspension, action.ID, 0))

	_, err = env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    10,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.ErrorIs(t, err, moderr.ErrInvalidState)
}

func (env *testEnv) bannedMember(t *testing.T, memberID model.MemberID, appealable bool, windowDays int) *model.ModerationAction {
	t.Helper()
	ctx := context.Background()

	action := &model.ModerationAction{
		TargetUserID: memberID,
		Type:         model.ActionBanUser,
		Reason:       "coordinated doxxing campaign against another member",
		Category:     model.CategoryDoxxing,
	}
	action.SetActor(admin)
	require.NoError(t, env.db.AppendAction(ctx, action))

	ban := &model.Ban{
		MemberID:         memberID,
		ActionID:         action.ID,
		AdministratorID:  admin.ID,
		Reason:           "coordinated doxxing campaign against another member, with personal addresses posted in three separate topics and reposted after removal",
		ViolationSummary: "doxxing",
		IsAppealable:     appealable,
		AppealWindowDays: windowDays,
		Email:            "banned@example.com",
	}
	if windowDays < 0 {
		// Backdate the ban so its appeal window has already closed.
		ban.AppealWindowDays = 1
		ban.CreatedAt = time.Now().UTC().AddDate(0, 0, -3)
	}
	require.NoError(t, env.db.CreateBan(ctx, ban))

	return action
}

func TestSubmitAppealBanGates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Non-appealable bans reject outright.
	action := env.bannedMember(t, 20, false, 0)
	_, err := env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    20,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.ErrorIs(t, err, moderr.ErrAuthorization)

	// A closed appeal window rejects as well.
	action = env.bannedMember(t, 21, true, -1)
	_, err = env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    21,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.ErrorIs(t, err, moderr.ErrAuthorization)

	// Inside the window the appeal goes through.
	action = env.bannedMember(t, 22, true, 30)
	_, err = env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    22,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.NoError(t, err)
}

func TestBeginReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	action, _ := env.suspendedMember(t, 10)

	submitted, err := env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    10,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.NoError(t, err)

	_, err = env.appeals.BeginReview(ctx, submitted.ID, moderator)
	require.ErrorIs(t, err, moderr.ErrAuthorization)

	reviewed, err := env.appeals.BeginReview(ctx, submitted.ID, admin)
	require.NoError(t, err)
	require.Equal(t, model.AppealUnderReview, reviewed.Status)
	require.EqualValues(t, admin.ID, reviewed.ReviewingAdministratorID.Int64)

	// The transition runs once.
	_, err = env.appeals.BeginReview(ctx, submitted.ID, admin)
	require.ErrorIs(t, err, moderr.ErrInvalidState)
}

func TestDecideApprovalReversesSanction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	action, suspension := env.suspendedMember(t, 10)

	submitted, err := env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    10,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.NoError(t, err)

	_, err = env.appeals.BeginReview(ctx, submitted.ID, admin)
	require.NoError(t, err)

	decided, err := env.appeals.Decide(ctx, &DecideAppeal{
		AppealID: submitted.ID,
		Actor:    admin,
		Outcome:  OutcomeApproved,
		Notes:    "the full thread supports the appellant's reading",
	})
	require.NoError(t, err)
	require.Equal(t, model.AppealApproved, decided.Status)
	require.True(t, decided.ResolvedAt.Valid)
	require.Equal(t, "the full thread supports the appellant's reading", decided.DecisionNotes.String)

	// Approval nullified the suspension and flipped the ledger entry.
	lifted, err := env.db.SuspensionByID(ctx, suspension.ID)
	require.NoError(t, err)
	require.False(t, lifted.IsActive)

	reversed, err := env.db.ActionByID(ctx, action.ID)
	require.NoError(t, err)
	require.True(t, reversed.IsReversed)
}

func TestDecideApprovalReversesWarning(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A warning carries no suspension or ban, so approval only has the
	// ledger entry to reverse.
	action := &model.ModerationAction{
		TargetUserID: 10,
		Type:         model.ActionIssueWarning,
		Reason:       "repeated off-topic replies in the support forum",
		Category:     model.CategorySpam,
	}
	action.SetActor(moderator)
	require.NoError(t, env.db.AppendAction(ctx, action))

	submitted, err := env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    10,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.NoError(t, err)

	_, err = env.appeals.BeginReview(ctx, submitted.ID, admin)
	require.NoError(t, err)

	decided, err := env.appeals.Decide(ctx, &DecideAppeal{
		AppealID: submitted.ID,
		Actor:    admin,
		Outcome:  OutcomeApproved,
		Notes:    "the replies answered a question the member was asked",
	})
	require.NoError(t, err)
	require.Equal(t, model.AppealApproved, decided.Status)
	require.True(t, decided.ResolvedAt.Valid)

	reversed, err := env.db.ActionByID(ctx, action.ID)
	require.NoError(t, err)
	require.True(t, reversed.IsReversed)
}

func TestDecideDenialKeepsSanction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	action, suspension := env.suspendedMember(t, 10)

	submitted, err := env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    10,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.NoError(t, err)

	// Deciding a pending appeal is out of order.
	_, err = env.appeals.Decide(ctx, &DecideAppeal{
		AppealID: submitted.ID,
		Actor:    admin,
		Outcome:  OutcomeDenied,
	})
	require.ErrorIs(t, err, moderr.ErrInvalidState)

	_, err = env.appeals.BeginReview(ctx, submitted.ID, admin)
	require.NoError(t, err)

	_, err = env.appeals.Decide(ctx, &DecideAppeal{
		AppealID: submitted.ID,
		Actor:    moderator,
		Outcome:  OutcomeDenied,
	})
	require.ErrorIs(t, err, moderr.ErrAuthorization)

	_, err = env.appeals.Decide(ctx, &DecideAppeal{
		AppealID: submitted.ID,
		Actor:    admin,
		Outcome:  Outcome("escalated"),
	})
	require.ErrorIs(t, err, moderr.ErrValidation)

	decided, err := env.appeals.Decide(ctx, &DecideAppeal{
		AppealID: submitted.ID,
		Actor:    admin,
		Outcome:  OutcomeDenied,
		Notes:    "the pattern of behavior stands on its own",
	})
	require.NoError(t, err)
	require.Equal(t, model.AppealDenied, decided.Status)

	// Denial leaves the sanction untouched.
	kept, err := env.db.SuspensionByID(ctx, suspension.ID)
	require.NoError(t, err)
	require.True(t, kept.IsActive)

	intact, err := env.db.ActionByID(ctx, action.ID)
	require.NoError(t, err)
	require.False(t, intact.IsReversed)

	// A denied appeal is terminal.
	_, err = env.appeals.Decide(ctx, &DecideAppeal{
		AppealID: submitted.ID,
		Actor:    admin,
		Outcome:  OutcomeDenied,
	})
	require.ErrorIs(t, err, moderr.ErrInvalidState)
}

func TestGetAppealVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	action, _ := env.suspendedMember(t, 10)

	submitted, err := env.appeals.Submit(ctx, &SubmitAppeal{
		MemberID:    10,
		ActionID:    action.ID,
		Explanation: explanation,
	})
	require.NoError(t, err)

	// The appellant reads their own appeal.
	_, err = env.appeals.Get(ctx, model.Actor{ID: 10, Role: model.RoleMember}, submitted.ID)
	require.NoError(t, err)

	// Administrators read any appeal.
	_, err = env.appeals.Get(ctx, admin, submitted.ID)
	require.NoError(t, err)

	// Other members and moderators do not.
	_, err = env.appeals.Get(ctx, model.Actor{ID: 11, Role: model.RoleMember}, submitted.ID)
	require.ErrorIs(t, err, moderr.ErrAuthorization)

	_, err = env.appeals.Get(ctx, moderator, submitted.ID)
	require.ErrorIs(t, err, moderr.ErrAuthorization)
}
