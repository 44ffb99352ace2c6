package http

import (
	"net/http"

	"github.com/aussiebroadwan/propinvite/internal/invites/metrics"
	"github.com/aussiebroadwan/propinvite/internal/invites/service"
	"github.com/aussiebroadwan/propinvite/pkg/httpx"
	"github.com/aussiebroadwan/propinvite/pkg/invitesdk"
	"github.com/aussiebroadwan/propinvite/pkg/validate"
)

const rolloutHistoryLimit = 20

type RolloutHandler struct {
	Controller *service.RolloutController
	Metrics    *metrics.Metrics
}

// HandleGet godoc
//
//	@Summary		Get Rollout Endpoint
//	@Description	Current rollout percent for a feature and its recent change history.
//	@Tags			Rollout
//	@Produce		json
//	@Param			feature	path		string	true	"Feature name"
//	@Success		200		{object}	invitesdk.RolloutResponse
//	@Security		BearerAuth
//	@Router			/v1/rollout/{feature} [get].
func (h *RolloutHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.writeRollout(w, r, r.PathValue("feature"))
}

// HandleSet godoc
//
//	@Summary		Set Rollout Endpoint
//	@Description	Manually override the rollout percent. The change is audited with the caller as actor.
//	@Tags			Rollout
//	@Accept			json
//	@Produce		json
//	@Param			feature	path		string						true	"Feature name"
//	@Param			request	body		invitesdk.SetRolloutRequest	true	"New percent"
//	@Success		200		{object}	invitesdk.RolloutResponse
//	@Failure		400		{object}	invitesdk.FailureResponse	"invalid_request"
//	@Security		BearerAuth
//	@Router			/v1/rollout/{feature} [put].
func (h *RolloutHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	var req invitesdk.SetRolloutRequest
	err := httpx.DecodeJSON(w, r, &req)
	if err == nil {
		err = validate.Struct(req)
	}
	if err != nil {
		writeFailure(w, r, err, true)
		return
	}

	feature := r.PathValue("feature")
	if _, err := h.Controller.SetManual(r.Context(), feature, *req.Percent, httpx.UserIDFromContext(r.Context()), req.Reason); err != nil {
		writeFailure(w, r, err, true)
		return
	}
	h.writeRollout(w, r, feature)
}

// HandleEvaluate godoc
//
//	@Summary		Evaluate Rollout Endpoint
//	@Description	Funnel metrics over the monitor window and the decision the monitor would take now. Nothing is applied.
//	@Tags			Rollout
//	@Produce		json
//	@Param			feature	path		string	true	"Feature name"
//	@Success		200		{object}	invitesdk.EvaluationResponse
//	@Failure		404		{object}	invitesdk.FailureResponse	"not_found (feature not monitored)"
//	@Security		BearerAuth
//	@Router			/v1/rollout/{feature}/evaluation [get].
func (h *RolloutHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	feature := r.PathValue("feature")
	if feature != h.Controller.Feature {
		writeFailure(w, r, service.ErrNotFound, true)
		return
	}

	d, err := h.Controller.Evaluate(r.Context())
	if err != nil {
		writeFailure(w, r, err, true)
		return
	}

	m := d.Metrics
	kinds := make(map[string]float64, len(m.KindRates))
	for k, v := range m.KindRates {
		kinds[string(k)] = v
	}
	httpx.WriteJSON(w, http.StatusOK, invitesdk.EvaluationResponse{
		OK:          true,
		Feature:     feature,
		Mode:        string(h.Controller.Mode),
		Action:      string(d.Action),
		FromPercent: d.FromPercent,
		ToPercent:   d.ToPercent,
		Reason:      d.Reason,
		Funnel: invitesdk.Funnel{
			Views:            m.Views,
			ValidateSuccess:  m.ValidateSuccess,
			ValidateFail:     m.ValidateFail,
			AcceptSuccess:    m.AcceptSuccess,
			AcceptFail:       m.AcceptFail,
			AcceptRepeat:     m.AcceptRepeat,
			Conversion:       m.Conversion,
			ViewToValidate:   m.ViewToValidate,
			ValidateToAccept: m.ValidateToAccept,
			ErrorRate:        m.ErrorRate,
			KindRates:        kinds,
			LatencyP50Ms:     float64(m.LatencyP50.Microseconds()) / 1000,
			LatencyP95Ms:     float64(m.LatencyP95.Microseconds()) / 1000,
			LatencyP99Ms:     float64(m.LatencyP99.Microseconds()) / 1000,
		},
	})
}

func (h *RolloutHandler) writeRollout(w http.ResponseWriter, r *http.Request, feature string) {
	ctx := r.Context()

	flag, err := h.Controller.Flag(ctx, feature)
	if err != nil {
		writeFailure(w, r, err, true)
		return
	}
	changes, err := h.Controller.History(ctx, feature, rolloutHistoryLimit)
	if err != nil {
		writeFailure(w, r, err, true)
		return
	}

	out := invitesdk.RolloutResponse{
		OK:        true,
		Feature:   feature,
		Percent:   flag.Percent,
		UpdatedAt: flag.UpdatedAt,
		UpdatedBy: flag.UpdatedBy,
		History:   make([]invitesdk.RolloutChange, 0, len(changes)),
	}
	for _, c := range changes {
		out.History = append(out.History, invitesdk.RolloutChange{
			FromPercent: c.FromPercent,
			ToPercent:   c.ToPercent,
			Reason:      c.Reason,
			Actor:       c.Actor,
			Automatic:   c.Automatic,
			CreatedAt:   c.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
