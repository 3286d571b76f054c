package handler

import (
	"net/http"

	"github.com/edgelink/edgelink/internal/auth"
	"github.com/edgelink/edgelink/internal/model"
)

// MeResponse echoes the resolved identity for the calling credential.
type MeResponse struct {
	SubjectID          string   `json:"subject_id,omitempty"`
	Email              string   `json:"email,omitempty"`
	Plan               string   `json:"plan"`
	Anonymous          bool     `json:"anonymous"`
	Scopes             []string `json:"scopes,omitempty"`
	QuotaLimit         int      `json:"quota_limit"`
	QuotaPeriodSeconds int      `json:"quota_period_seconds"`
}

// Me handles GET /api/v1/me. Anonymous callers get the anonymous
// profile rather than a 401; the endpoint exists to inspect what the
// edge resolved.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	limit, ok := model.DefaultPlanLimits[identity.Plan]
	if !ok {
		limit = model.DefaultPlanLimits[model.PlanAnonymous]
	}

	writeJSON(w, http.StatusOK, MeResponse{
		SubjectID:          identity.SubjectID,
		Email:              identity.Email,
		Plan:               identity.Plan,
		Anonymous:          identity.IsAnonymous(),
		Scopes:             identity.Scopes,
		QuotaLimit:         limit.Requests,
		QuotaPeriodSeconds: int(limit.Period.Seconds()),
	})
}
