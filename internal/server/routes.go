package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/openboard/moderation-server/api"
	"github.com/openboard/moderation-server/internal/appeal"
	"github.com/openboard/moderation-server/internal/audit"
	"github.com/openboard/moderation-server/internal/enforcement"
	"github.com/openboard/moderation-server/internal/intake"
	"github.com/openboard/moderation-server/internal/ledger"
	"github.com/openboard/moderation-server/internal/model"
	"github.com/openboard/moderation-server/internal/moderr"
)

type contextKey string

const actorContextKey contextKey = "actor"

// middlewareActor resolves the caller's identity from the headers set by the
// identity gateway. Requests without a parseable identity proceed as an
// anonymous member with ID zero; the services reject them where it matters.
func middlewareActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := model.Actor{Role: model.RoleMember}

		if id, err := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64); err == nil {
			actor.ID = model.MemberID(id)
		}

		switch role := model.Role(r.Header.Get("X-Actor-Role")); role {
		case model.RoleMember, model.RoleModerator, model.RoleAdministrator:
			actor.Role = role
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorContextKey, actor)))
	})
}

func actorFromRequest(r *http.Request) model.Actor {
	if actor, ok := r.Context().Value(actorContextKey).(model.Actor); ok {
		return actor
	}

	return model.Actor{Role: model.RoleMember}
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	rsp := api.NewResponse()

	var details any

	var modErr *moderr.Error
	if errors.As(err, &modErr) {
		details = map[string]any{
			"entity": modErr.Entity,
			"id":     modErr.ID,
			"field":  modErr.Field,
		}
	}

	switch {
	case errors.Is(err, moderr.ErrValidation):
		rsp.SetError("validation_error", err.Error(), details).BadRequest(w)
	case errors.Is(err, moderr.ErrAuthorization):
		rsp.SetError("authorization_error", err.Error(), details).Forbidden(w)
	case errors.Is(err, moderr.ErrNotFound):
		rsp.SetError("not_found", err.Error(), details).NotFound(w)
	case errors.Is(err, moderr.ErrConflict):
		rsp.SetError("conflict", err.Error(), details).Conflict(w)
	case errors.Is(err, moderr.ErrInvalidState):
		rsp.SetError("invalid_state", err.Error(), details).UnprocessableEntity(w)
	case errors.Is(err, moderr.ErrTransient):
		rsp.SetError("transient_error", err.Error(), details).ServiceUnavailable(w)
	default:
		rsp.SetError("internal_server_error", "Internal Server Error").InternalServerError(w)
	}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, moderr.Validation("request", "id", "identifier must be a positive integer")
	}

	return id, nil
}

// --- Report intake ---

func (s *Services) submitReport(w http.ResponseWriter, r *http.Request) {
	var req intake.SubmitReport
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, moderr.Validation("report", "body", "malformed request body"))

		return
	}

	// The reporter is always the authenticated caller.
	req.ReporterID = actorFromRequest(r).ID

	report, err := s.Intake.Submit(r.Context(), &req)
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(report).Created(w)
}

func (s *Services) getReport(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	report, err := s.Intake.Get(r.Context(), model.ReportID(id))
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(report).Ok(w)
}

func (s *Services) assignReport(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	var req struct {
		ModeratorID model.MemberID `json:"moderator_id"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, moderr.Validation("report", "body", "malformed request body"))

		return
	}

	report, err := s.Intake.Assign(r.Context(), actorFromRequest(r), model.ReportID(id), req.ModeratorID)
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(report).Ok(w)
}

func (s *Services) resolveReport(w http.ResponseWriter, r *http.Request) {
	s.closeReport(w, r, s.Intake.Resolve)
}

func (s *Services) dismissReport(w http.ResponseWriter, r *http.Request) {
	s.closeReport(w, r, s.Intake.Dismiss)
}

func (s *Services) closeReport(
	w http.ResponseWriter,
	r *http.Request,
	close func(context.Context, model.Actor, model.ReportID, string) (*model.Report, error),
) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	var req struct {
		Notes string `json:"resolution_notes"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, moderr.Validation("report", "body", "malformed request body"))

		return
	}

	report, err := close(r.Context(), actorFromRequest(r), model.ReportID(id), req.Notes)
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(report).Ok(w)
}

// --- Action ledger ---

func (s *Services) recordAction(w http.ResponseWriter, r *http.Request) {
	var req ledger.RecordAction
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, moderr.Validation("moderation_action", "body", "malformed request body"))

		return
	}

	req.Actor = actorFromRequest(r)

	action, err := s.Ledger.Record(r.Context(), &req)
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(action).Created(w)
}

func (s *Services) getAction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	action, err := s.Ledger.Get(r.Context(), actorFromRequest(r), model.ActionID(id))
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(action).Ok(w)
}

// --- Enforcement ---

func (s *Services) createSuspension(w http.ResponseWriter, r *http.Request) {
	var req enforcement.CreateSuspension
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, moderr.Validation("suspension", "body", "malformed request body"))

		return
	}

	req.Actor = actorFromRequest(r)

	suspension, err := s.Enforcement.Suspend(r.Context(), &req)
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(suspension).Created(w)
}

func (s *Services) extendSuspension(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	var req enforcement.ExtendSuspension
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, moderr.Validation("suspension", "body", "malformed request body"))

		return
	}

	req.SuspensionID = model.SuspensionID(id)
	req.Actor = actorFromRequest(r)

	suspension, err := s.Enforcement.Extend(r.Context(), &req)
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(suspension).Ok(w)
}

func (s *Services) liftSuspension(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	suspension, err := s.Enforcement.Lift(r.Context(), model.SuspensionID(id), actorFromRequest(r))
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(suspension).Ok(w)
}

func (s *Services) createBan(w http.ResponseWriter, r *http.Request) {
	var req enforcement.CreateBan
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, moderr.Validation("ban", "body", "malformed request body"))

		return
	}

	req.Actor = actorFromRequest(r)

	ban, err := s.Enforcement.Ban(r.Context(), &req)
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(ban).Created(w)
}

// registrationCheck answers the registration gateway: is this email or member
// blocked by an active ban.
func (s *Services) registrationCheck(w http.ResponseWriter, r *http.Request) {
	if !actorFromRequest(r).IsStaff() {
		writeError(w, moderr.Authorization("ban", "registration checks are staff-only"))

		return
	}

	data := map[string]any{}

	if email := r.URL.Query().Get("email"); email != "" {
		banned, err := s.Enforcement.IsEmailBanned(r.Context(), email)
		if err != nil {
			writeError(w, err)

			return
		}

		data["email_banned"] = banned
	}

	if raw := r.URL.Query().Get("member_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, moderr.Validation("ban", "member_id", "member_id must be an integer"))

			return
		}

		banned, err := s.Enforcement.IsMemberBanned(r.Context(), model.MemberID(id))
		if err != nil {
			writeError(w, err)

			return
		}

		data["member_banned"] = banned
	}

	if len(data) == 0 {
		writeError(w, moderr.Validation("ban", "query", "email or member_id is required"))

		return
	}

	api.NewResponse().SetData(data).Ok(w)
}

func (s *Services) memberSanctions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	actor := actorFromRequest(r)
	if !actor.IsStaff() && actor.ID != model.MemberID(id) {
		writeError(w, moderr.Authorization("member", "sanctions are visible to staff and the member themselves"))

		return
	}

	suspensions, bans, err := s.Enforcement.ActiveSanctions(r.Context(), model.MemberID(id))
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(map[string]any{
		"suspensions": suspensions,
		"bans":        bans,
	}).Ok(w)
}

// --- Appeals ---

func (s *Services) submitAppeal(w http.ResponseWriter, r *http.Request) {
	var req appeal.SubmitAppeal
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, moderr.Validation("appeal", "body", "malformed request body"))

		return
	}

	// Appeals are always filed on the caller's own behalf.
	req.MemberID = actorFromRequest(r).ID

	result, err := s.Appeals.Submit(r.Context(), &req)
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(result).Created(w)
}

func (s *Services) getAppeal(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	result, err := s.Appeals.Get(r.Context(), actorFromRequest(r), model.AppealID(id))
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(result).Ok(w)
}

func (s *Services) beginAppealReview(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	result, err := s.Appeals.BeginReview(r.Context(), model.AppealID(id), actorFromRequest(r))
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(result).Ok(w)
}

func (s *Services) decideAppeal(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	var req appeal.DecideAppeal
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, moderr.Validation("appeal", "body", "malformed request body"))

		return
	}

	req.AppealID = model.AppealID(id)
	req.Actor = actorFromRequest(r)

	result, err := s.Appeals.Decide(r.Context(), &req)
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(result).Ok(w)
}

// --- Audit ---

func (s *Services) auditQuery(w http.ResponseWriter, r *http.Request) {
	query := &audit.Query{}
	params := r.URL.Query()

	if raw := params.Get("community_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, moderr.Validation("audit_log", "community_id", "community_id must be an integer"))

			return
		}

		query.CommunityID = &id
	}

	if raw := params.Get("moderator_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, moderr.Validation("audit_log", "moderator_id", "moderator_id must be an integer"))

			return
		}

		query.ModeratorID = &id
	}

	query.LogType = model.LogType(params.Get("log_type"))

	if raw := params.Get("created_from"); raw != "" {
		query.CreatedFrom = &raw
	}

	if raw := params.Get("created_to"); raw != "" {
		query.CreatedTo = &raw
	}

	if raw := params.Get("page"); raw != "" {
		query.Page, _ = strconv.Atoi(raw)
	}

	if raw := params.Get("limit"); raw != "" {
		query.Limit, _ = strconv.Atoi(raw)
	}

	page, err := s.Audit.Run(r.Context(), actorFromRequest(r), query)
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(page).Ok(w)
}

// --- Moderator statistics ---

func (s *Services) getModeratorStats(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	stats, err := s.Stats.Get(r.Context(), actorFromRequest(r), model.MemberID(id))
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(stats).Ok(w)
}

func (s *Services) recomputeModeratorStats(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)

		return
	}

	stats, err := s.Stats.Recompute(r.Context(), actorFromRequest(r), model.MemberID(id))
	if err != nil {
		writeError(w, err)

		return
	}

	api.NewResponse().SetData(stats).Ok(w)
}
