package http

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/aussiebroadwan/propinvite/pkg/httpx"
	"github.com/aussiebroadwan/propinvite/pkg/invitesdk"
	"github.com/aussiebroadwan/propinvite/pkg/slogx"
)

// InvitePathHeader tells clients which flow served the request.
const InvitePathHeader = "X-Invite-Path"

// gated sends callers outside the rollout to the legacy flow. It must run
// after authentication so signed-in callers bucket by account.
func (r *Router) gated(next http.Handler) http.Handler {
	if r.Gate == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		caller := callerFromRequest(req, r.trustProxy)
		newPath, percent := r.Gate.Evaluate(req.Context(), caller.RolloutKey(), r.Feature)
		if r.Metrics != nil {
			r.Metrics.ObserveGate(r.Feature, newPath)
		}

		if newPath {
			w.Header().Set(InvitePathHeader, "new")
			next.ServeHTTP(w, req)
			return
		}

		w.Header().Set(InvitePathHeader, "legacy")
		slogx.FromContext(req.Context()).Debug("routed to legacy invite flow",
			"feature", r.Feature,
			"percent", percent,
		)
		if r.Legacy != nil {
			r.Legacy.ServeHTTP(w, req)
			return
		}
		httpx.WriteJSON(w, http.StatusMisdirectedRequest, invitesdk.FailureResponse{
			OK:     false,
			Reason: invitesdk.ReasonLegacyPath,
		})
	})
}

// NewLegacyProxy forwards bucketed-out requests to the legacy invite
// backend, preserving path, body and headers.
func NewLegacyProxy(target *url.URL) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slogx.FromContext(r.Context()).Error("legacy invite backend failed", "err", err)
		w.Header().Set("Retry-After", "1")
		httpx.WriteJSON(w, http.StatusBadGateway, invitesdk.FailureResponse{
			OK:                false,
			Reason:            invitesdk.ReasonUnavailable,
			RetryAfterSeconds: 1,
		})
	}
	return proxy
}
