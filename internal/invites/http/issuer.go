package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/service"
	"github.com/aussiebroadwan/propinvite/pkg/httpx"
	"github.com/aussiebroadwan/propinvite/pkg/invitesdk"
	"github.com/aussiebroadwan/propinvite/pkg/validate"
)

type IssuerHandler struct {
	Issuer *service.InviteIssuer
}

// HandleIssue godoc
//
//	@Summary		Issue Invite Endpoint
//	@Description	Create an invite for a property the caller owns. The raw token is returned once and never again.
//	@Tags			Issuer
//	@Accept			json
//	@Produce		json
//	@Param			request	body		invitesdk.IssueRequest		true	"Invite parameters"
//	@Success		201		{object}	invitesdk.IssueResponse		"invite_id, token, expires_at, max_uses"
//	@Failure		400		{object}	invitesdk.FailureResponse	"invalid_request"
//	@Failure		401		{object}	invitesdk.FailureResponse	"unauthenticated"
//	@Failure		403		{object}	invitesdk.FailureResponse	"forbidden or insufficient_scope"
//	@Failure		404		{object}	invitesdk.FailureResponse	"not_found"
//	@Security		BearerAuth
//	@Router			/v1/invites [post].
func (h *IssuerHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var req invitesdk.IssueRequest
	err := httpx.DecodeJSON(w, r, &req)
	if err == nil {
		err = validate.Struct(req)
	}
	if err != nil {
		writeFailure(w, r, err, true)
		return
	}

	out, err := h.Issuer.Issue(r.Context(), service.IssueRequest{
		PropertyID:    req.PropertyID,
		IssuerID:      httpx.UserIDFromContext(r.Context()),
		TTL:           time.Duration(req.TTLSeconds) * time.Second,
		MaxUses:       req.MaxUses,
		IntendedEmail: req.IntendedEmail,
	})
	if err != nil {
		writeFailure(w, r, err, true)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, invitesdk.IssueResponse{
		OK:        true,
		InviteID:  out.Invite.ID,
		Token:     out.RawToken,
		ExpiresAt: out.Invite.ExpiresAt,
		MaxUses:   out.Invite.MaxUses,
	})
}

// HandleRevoke godoc
//
//	@Summary		Revoke Invite Endpoint
//	@Description	Permanently revoke an invite. Only its issuer may revoke it; revoking twice succeeds.
//	@Tags			Issuer
//	@Accept			json
//	@Produce		json
//	@Param			request	body		invitesdk.RevokeRequest		true	"Invite id"
//	@Success		200		{object}	invitesdk.OKResponse
//	@Failure		403		{object}	invitesdk.FailureResponse	"forbidden"
//	@Failure		404		{object}	invitesdk.FailureResponse	"not_found"
//	@Security		BearerAuth
//	@Router			/v1/invites/revoke [post].
func (h *IssuerHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	var req invitesdk.RevokeRequest
	err := httpx.DecodeJSON(w, r, &req)
	if err == nil {
		err = validate.Struct(req)
	}
	if err != nil {
		writeFailure(w, r, err, true)
		return
	}

	if err := h.Issuer.Revoke(r.Context(), req.TokenID, httpx.UserIDFromContext(r.Context())); err != nil {
		writeFailure(w, r, err, true)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, invitesdk.OKResponse{OK: true})
}

// HandleList godoc
//
//	@Summary		List Invites Endpoint
//	@Description	List a property's invites, newest first, with their effective status.
//	@Tags			Issuer
//	@Produce		json
//	@Param			id	path		string							true	"Property id"
//	@Success		200	{object}	invitesdk.ListInvitesResponse
//	@Failure		403	{object}	invitesdk.FailureResponse	"forbidden"
//	@Failure		404	{object}	invitesdk.FailureResponse	"not_found"
//	@Security		BearerAuth
//	@Router			/v1/properties/{id}/invites [get].
func (h *IssuerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	invites, err := h.Issuer.List(r.Context(), r.PathValue("id"), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeFailure(w, r, err, true)
		return
	}

	now := h.now()
	out := invitesdk.ListInvitesResponse{OK: true, Invites: make([]invitesdk.InviteSummary, 0, len(invites))}
	for _, inv := range invites {
		out.Invites = append(out.Invites, invitesdk.InviteSummary{
			ID:        inv.ID,
			Status:    string(inv.EffectiveStatus(now)),
			MaxUses:   inv.MaxUses,
			UseCount:  inv.UseCount,
			Remaining: inv.Remaining(),
			Bound:     inv.IntendedEmail != "",
			CreatedAt: inv.CreatedAt,
			ExpiresAt: inv.ExpiresAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *IssuerHandler) now() time.Time {
	if h.Issuer.Now != nil {
		return h.Issuer.Now()
	}
	return time.Now()
}
