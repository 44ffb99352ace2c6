package domain

import "time"

// ErrorKind is the failure taxonomy shared by responses, events and metrics.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindInvalid         ErrorKind = "invalid"
	KindExpired         ErrorKind = "expired"
	KindRevoked         ErrorKind = "revoked"
	KindCapacityReached ErrorKind = "capacity_reached"
	KindWrongAccount    ErrorKind = "wrong_account"
	KindRateLimited     ErrorKind = "rate_limited"
	KindConflict        ErrorKind = "conflict"
	KindUnavailable     ErrorKind = "unavailable"
	KindInternal        ErrorKind = "internal"
)

// Expected reports whether the kind is a normal outcome of presenting a token
// rather than a fault of the service.
func (k ErrorKind) Expected() bool {
	switch k {
	case KindInvalid, KindExpired, KindRevoked, KindCapacityReached, KindWrongAccount:
		return true
	}
	return false
}

type EventName string

const (
	EventInviteView            EventName = "invite_view"
	EventInviteValidateSuccess EventName = "invite_validate_success"
	EventInviteValidateFail    EventName = "invite_validate_fail"
	EventInviteAcceptSuccess   EventName = "invite_accept_success"
	EventInviteAcceptFail      EventName = "invite_accept_fail"
)

// Event is an analytics record. TokenPreview is the redacted token; neither
// the raw token nor its fingerprint is ever attached.
type Event struct {
	ID            string
	Name          EventName
	ErrorKind     ErrorKind
	CorrelationID string
	TokenPreview  string
	Latency       time.Duration
	At            time.Time

	// AlreadyLinked marks an accept that found the caller already linked
	// and consumed nothing.
	AlreadyLinked bool
}
