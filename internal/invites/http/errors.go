package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/propinvite/internal/invites/service"
	"github.com/aussiebroadwan/propinvite/pkg/httpx"
	"github.com/aussiebroadwan/propinvite/pkg/invitesdk"
	"github.com/aussiebroadwan/propinvite/pkg/slogx"
	"github.com/aussiebroadwan/propinvite/pkg/validate"
)

// failureFor maps a service error onto the transport status and reason.
// wrong_account is only ever shown to authenticated callers.
func failureFor(err error, authenticated bool) (int, invitesdk.FailureResponse) {
	fail := func(code int, reason string) (int, invitesdk.FailureResponse) {
		return code, invitesdk.FailureResponse{OK: false, Reason: reason}
	}

	switch {
	case errors.Is(err, service.ErrWrongAccount) && !authenticated:
		return fail(http.StatusNotFound, invitesdk.ReasonInvalid)
	case errors.Is(err, service.ErrInviteInvalid):
		return fail(http.StatusNotFound, invitesdk.ReasonInvalid)
	case errors.Is(err, service.ErrInviteExpired):
		return fail(http.StatusGone, invitesdk.ReasonExpired)
	case errors.Is(err, service.ErrInviteRevoked):
		return fail(http.StatusGone, invitesdk.ReasonRevoked)
	case errors.Is(err, service.ErrCapacityReached):
		return fail(http.StatusConflict, invitesdk.ReasonCapacityReached)
	case errors.Is(err, service.ErrWrongAccount):
		return fail(http.StatusForbidden, invitesdk.ReasonWrongAccount)
	case errors.Is(err, service.ErrRateLimited):
		code, body := fail(http.StatusTooManyRequests, invitesdk.ReasonRateLimited)
		body.RetryAfterSeconds = httpx.RetryAfterSeconds(service.RetryAfter(err))
		return code, body
	case errors.Is(err, service.ErrUnavailable):
		code, body := fail(http.StatusServiceUnavailable, invitesdk.ReasonUnavailable)
		body.RetryAfterSeconds = 1
		return code, body
	case errors.Is(err, service.ErrUnauthenticated):
		return fail(http.StatusUnauthorized, invitesdk.ReasonUnauthenticated)
	case errors.Is(err, service.ErrForbidden):
		return fail(http.StatusForbidden, invitesdk.ReasonForbidden)
	case errors.Is(err, service.ErrNotFound):
		return fail(http.StatusNotFound, invitesdk.ReasonNotFound)
	case errors.Is(err, service.ErrInvalidInviteRequest),
		errors.Is(err, service.ErrInvalidRolloutChange),
		errors.Is(err, validate.ErrInvalid),
		errors.Is(err, httpx.ErrBadBody):
		return fail(http.StatusBadRequest, invitesdk.ReasonInvalidRequest)
	default:
		return fail(http.StatusInternalServerError, invitesdk.ReasonInternal)
	}
}

func writeFailure(w http.ResponseWriter, r *http.Request, err error, authenticated bool) {
	code, body := failureFor(err, authenticated)

	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfterSeconds))
	case http.StatusBadRequest:
		body.Message = err.Error()
	case http.StatusInternalServerError:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
	}

	httpx.WriteJSON(w, code, body)
}
