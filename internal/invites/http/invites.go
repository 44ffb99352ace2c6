package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/service"
	"github.com/aussiebroadwan/propinvite/pkg/httpx"
	"github.com/aussiebroadwan/propinvite/pkg/invitesdk"
	"github.com/aussiebroadwan/propinvite/pkg/validate"
)

type ValidateHandler struct {
	Validator    *service.InviteValidator
	TrustProxy   bool
	FailureFloor time.Duration
}

// ServeHTTP godoc
//
//	@Summary		Validate Invite Endpoint
//	@Description	Preview the property behind an invite token without redeeming it.
//	@Description	Anonymous callers never see wrong_account; it is reported as invalid.
//	@Tags			Invites
//	@Accept			json
//	@Produce		json
//	@Param			request	body		invitesdk.TokenRequest		true	"Invite token"
//	@Success		200		{object}	invitesdk.ValidateResponse	"ok, property"
//	@Failure		404		{object}	invitesdk.FailureResponse	"invalid"
//	@Failure		410		{object}	invitesdk.FailureResponse	"expired or revoked"
//	@Failure		409		{object}	invitesdk.FailureResponse	"capacity_reached"
//	@Failure		403		{object}	invitesdk.FailureResponse	"wrong_account (authenticated callers only)"
//	@Failure		421		{object}	invitesdk.FailureResponse	"legacy_path"
//	@Failure		429		{object}	invitesdk.FailureResponse	"rate_limited"
//	@Failure		503		{object}	invitesdk.FailureResponse	"unavailable"
//	@Security		BearerAuth
//	@Router			/v1/invites/validate [post].
func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	caller := callerFromRequest(r, h.TrustProxy)

	var req invitesdk.TokenRequest
	err := httpx.DecodeJSON(w, r, &req)
	if err == nil {
		err = validate.Struct(req)
	}
	if err != nil {
		writeFailure(w, r, err, caller.Authenticated)
		return
	}

	preview, err := h.Validator.Validate(ctx, req.Token, caller)
	if err != nil {
		if !caller.Authenticated {
			waitUntil(ctx, start.Add(h.FailureFloor))
		}
		writeFailure(w, r, err, caller.Authenticated)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, invitesdk.ValidateResponse{
		OK: true,
		Property: invitesdk.PropertyPreview{
			PropertyID:     preview.PropertyID,
			Name:           preview.Name,
			AddressSummary: preview.AddressSummary,
			IssuerName:     preview.IssuerName,
		},
	})
}

type AcceptHandler struct {
	Acceptor   *service.InviteAcceptor
	TrustProxy bool
}

// ServeHTTP godoc
//
//	@Summary		Accept Invite Endpoint
//	@Description	Redeem an invite token, linking the caller to the property as a tenant.
//	@Description	Accepting again as an already linked tenant succeeds with already_linked=true and consumes nothing.
//	@Tags			Invites
//	@Accept			json
//	@Produce		json
//	@Param			request	body		invitesdk.TokenRequest		true	"Invite token"
//	@Success		200		{object}	invitesdk.AcceptResponse	"ok, already_linked, property_id"
//	@Failure		401		{object}	invitesdk.FailureResponse	"unauthenticated"
//	@Failure		403		{object}	invitesdk.FailureResponse	"wrong_account"
//	@Failure		404		{object}	invitesdk.FailureResponse	"invalid"
//	@Failure		409		{object}	invitesdk.FailureResponse	"capacity_reached"
//	@Failure		410		{object}	invitesdk.FailureResponse	"expired or revoked"
//	@Failure		429		{object}	invitesdk.FailureResponse	"rate_limited"
//	@Failure		503		{object}	invitesdk.FailureResponse	"unavailable"
//	@Security		BearerAuth
//	@Router			/v1/invites/accept [post].
func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller := callerFromRequest(r, h.TrustProxy)

	var req invitesdk.TokenRequest
	err := httpx.DecodeJSON(w, r, &req)
	if err == nil {
		err = validate.Struct(req)
	}
	if err != nil {
		writeFailure(w, r, err, caller.Authenticated)
		return
	}

	res, err := h.Acceptor.Accept(r.Context(), req.Token, caller)
	if err != nil {
		writeFailure(w, r, err, caller.Authenticated)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, invitesdk.AcceptResponse{
		OK:            true,
		AlreadyLinked: res.AlreadyLinked,
		PropertyID:    res.PropertyID,
		LinkID:        res.LinkID,
	})
}

// waitUntil sleeps until deadline or until ctx is done.
func waitUntil(ctx context.Context, deadline time.Time) {
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
