package invitesdk

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error is returned for every non-2xx response.
type Error struct {
	StatusCode int
	Reason     string
	RetryAfter time.Duration
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invites: %s (%d): %s", e.Reason, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("invites: %s (%d)", e.Reason, e.StatusCode)
}

// Temporary reports whether retrying later may succeed.
func (e *Error) Temporary() bool {
	return e.Reason == ReasonRateLimited || e.Reason == ReasonUnavailable
}

// IsReason reports whether err is an *Error with the given reason.
func IsReason(err error, reason string) bool {
	var e *Error
	return errors.As(err, &e) && e.Reason == reason
}

func newError(status int, body FailureResponse) *Error {
	reason := body.Reason
	if reason == "" {
		reason = ReasonInternal
		if body.Message == "" {
			body.Message = http.StatusText(status)
		}
	}
	return &Error{
		StatusCode: status,
		Reason:     reason,
		RetryAfter: time.Duration(body.RetryAfterSeconds) * time.Second,
		Message:    body.Message,
	}
}
